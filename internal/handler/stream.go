package handler

import (
	"io"

	"github.com/gin-gonic/gin"
)

// streamSnapshots writes each view as a "snapshot" server-sent event until
// the client leaves or the view channel closes.
func streamSnapshots[T any](c *gin.Context, views <-chan T) {
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case v, ok := <-views:
			if !ok {
				return false
			}
			c.SSEvent("snapshot", v)
			return true
		case <-ctx.Done():
			return false
		}
	})
}
