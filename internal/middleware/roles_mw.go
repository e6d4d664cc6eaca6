package middleware

import (
	"net/http"
	"slices"

	"foodconnect/internal/model"

	"github.com/gin-gonic/gin"
)

// RoleMiddleware creates a middleware to check for specific user roles
func RoleMiddleware(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, exists := c.Get(AuthRoleKey)
		if !exists {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Role not found in token, ensure JWT middleware runs first", "code": "forbidden"})
			return
		}

		userRole, ok := roleVal.(string)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid role type in token", "code": "forbidden"})
			return
		}

		if !slices.Contains(allowedRoles, userRole) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You do not have permission to access this resource", "code": "forbidden"})
			return
		}

		c.Next()
	}
}

// AdminMiddleware checks if the user is an admin
func AdminMiddleware() gin.HandlerFunc {
	return RoleMiddleware(model.RoleAdmin)
}

// RestaurantMiddleware checks if the user is a restaurant
func RestaurantMiddleware() gin.HandlerFunc {
	return RoleMiddleware(model.RoleRestaurant)
}

// NGOMiddleware checks if the user is an NGO
func NGOMiddleware() gin.HandlerFunc {
	return RoleMiddleware(model.RoleNGO)
}

// PartnerMiddleware lets both sides of a handover through
func PartnerMiddleware() gin.HandlerFunc {
	return RoleMiddleware(model.RoleRestaurant, model.RoleNGO)
}
