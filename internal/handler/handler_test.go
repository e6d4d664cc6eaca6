package handler_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"foodconnect/internal/app"
	"foodconnect/internal/model"
	"foodconnect/internal/repository/sqlite"
	"foodconnect/internal/service"
	"foodconnect/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t      *testing.T
	app    *app.App
	router *gin.Engine
	admin  string // admin token
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "handler.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	a := app.New(store.Repositories(), utils.NewJWTUtil("handler-secret", 1), store.Ping)
	_, _, err = a.Accounts.EnsureAdmin(context.Background(), service.AdminAccount{
		Name: "Admin User", Email: "admin@foodconnect.com", Password: "password123", City: "New York",
	})
	require.NoError(t, err)

	ts := &testServer{t: t, app: a, router: a.Router([]string{"*"})}
	ts.admin = ts.login("admin@foodconnect.com", "password123")
	return ts
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type errorBody struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Status string `json:"status"`
}

func (ts *testServer) login(email, password string) string {
	ts.t.Helper()
	w := ts.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(ts.t, http.StatusOK, w.Code, w.Body.String())
	return decode[struct {
		Token string `json:"token"`
	}](ts.t, w).Token
}

// signup registers, approves and logs in an account, returning its id and token
func (ts *testServer) signup(name, role, city string) (string, string) {
	ts.t.Helper()
	email := name + "@example.com"
	w := ts.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": name, "email": email, "password": "password123", "role": role, "city": city,
	})
	require.Equal(ts.t, http.StatusCreated, w.Code, w.Body.String())
	id := decode[struct {
		User model.User `json:"user"`
	}](ts.t, w).User.ID

	w = ts.do(http.MethodPut, "/api/v1/admin/users/"+id+"/status", ts.admin, gin.H{"status": "approved"})
	require.Equal(ts.t, http.StatusOK, w.Code, w.Body.String())
	return id, ts.login(email, "password123")
}

func (ts *testServer) createPost(token, item string) model.FoodPost {
	ts.t.Helper()
	w := ts.do(http.MethodPost, "/api/v1/restaurant/posts", token, gin.H{
		"item_name": item, "quantity": "20 loaves", "expiry_time": "2030-06-01T18:00", "pickup_time": "Today, 4 PM - 6 PM",
	})
	require.Equal(ts.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[model.FoodPost](ts.t, w)
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": "Savory Bites", "email": "savory@example.com", "password": "password123", "role": "restaurant", "city": "Los Angeles",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[struct {
		User model.User `json:"user"`
	}](t, w).User
	assert.Equal(t, model.StatusPending, created.Status)

	w = ts.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "savory@example.com", "password": "password123"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	body := decode[errorBody](t, w)
	assert.Equal(t, "not_approved", body.Code)
	assert.Equal(t, model.StatusPending, body.Status)

	w = ts.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": "Again", "email": "SAVORY@example.com", "password": "password123", "role": "ngo", "city": "Los Angeles",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "duplicate_credential", decode[errorBody](t, w).Code)

	w = ts.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "savory@example.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegister_Invalid(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body gin.H
	}{
		{"missing city", gin.H{"name": "a", "email": "a@example.com", "password": "password123", "role": "ngo"}},
		{"short password", gin.H{"name": "a", "email": "a@example.com", "password": "123", "role": "ngo", "city": "X"}},
		{"admin role", gin.H{"name": "a", "email": "a@example.com", "password": "password123", "role": "admin", "city": "X"}},
		{"bad email", gin.H{"name": "a", "email": "nope", "password": "password123", "role": "ngo", "city": "X"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(http.MethodPost, "/api/v1/auth/register", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, "validation", decode[errorBody](t, w).Code)
		})
	}
}

func TestLogin_ReturnsDashboard(t *testing.T) {
	ts := newTestServer(t)
	ts.signup("goodeatery", "restaurant", "New York")

	w := ts.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "goodeatery@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[struct {
		Token     string     `json:"token"`
		User      model.User `json:"user"`
		Dashboard string     `json:"dashboard"`
	}](t, w)
	assert.Equal(t, "/restaurant", res.Dashboard)
	assert.NotEmpty(t, res.Token)

	w = ts.do(http.MethodGet, "/api/v1/me", res.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "goodeatery@example.com", decode[model.User](t, w).Email)

	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/api/v1/me", "", nil).Code)
}

func TestAdminRoutes(t *testing.T) {
	ts := newTestServer(t)
	_, ngoToken := ts.signup("foodbank", "ngo", "New York")
	w := ts.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": "Helping Hands", "email": "hh@example.com", "password": "password123", "role": "ngo", "city": "New York",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(http.MethodGet, "/api/v1/admin/users?status=pending", ts.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	users := decode[struct {
		Users []model.User `json:"users"`
	}](t, w).Users
	require.Len(t, users, 1)
	assert.Equal(t, "Helping Hands", users[0].Name)

	w = ts.do(http.MethodPut, "/api/v1/admin/users/"+users[0].ID+"/status", ts.admin, gin.H{"status": "pending"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = ts.do(http.MethodPut, "/api/v1/admin/users/"+users[0].ID+"/status", ts.admin, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = ts.do(http.MethodPut, "/api/v1/admin/users/missing/status", ts.admin, gin.H{"status": "approved"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodGet, "/api/v1/admin/stats", ts.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[model.AdminStats](t, w)
	assert.Equal(t, 1, stats.TotalNGOs)
	assert.Len(t, stats.Users, 2)

	assert.Equal(t, http.StatusForbidden, ts.do(http.MethodGet, "/api/v1/admin/users", ngoToken, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/api/v1/admin/stats", "", nil).Code)
}

func TestClaimFlow(t *testing.T) {
	ts := newTestServer(t)
	_, restaurantToken := ts.signup("goodeatery", "restaurant", "New York")
	ngoID, ngoToken := ts.signup("foodbank", "ngo", "New York")
	_, rivalToken := ts.signup("rival", "ngo", "New York")
	_, farToken := ts.signup("lafoodshare", "ngo", "Los Angeles")

	post := ts.createPost(restaurantToken, "Surplus Bread Loaves")
	assert.Equal(t, model.PostStatusAvailable, post.Status)
	assert.Equal(t, "New York", post.City)

	w := ts.do(http.MethodGet, "/api/v1/ngo/posts", ngoToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[model.NGOView](t, w)
	require.Len(t, view.AvailablePosts, 1)
	assert.Empty(t, view.MyClaims)

	w = ts.do(http.MethodGet, "/api/v1/ngo/posts", farToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[model.NGOView](t, w).AvailablePosts)

	w = ts.do(http.MethodPost, "/api/v1/ngo/posts/"+post.ID+"/claim", farToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(http.MethodPut, "/api/v1/posts/"+post.ID+"/pickup", restaurantToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_transition", decode[errorBody](t, w).Code)

	w = ts.do(http.MethodPost, "/api/v1/ngo/posts/"+post.ID+"/claim", ngoToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	claimed := decode[model.FoodPost](t, w)
	require.NotNil(t, claimed.ClaimedByNgoID)
	assert.Equal(t, ngoID, *claimed.ClaimedByNgoID)

	w = ts.do(http.MethodPost, "/api/v1/ngo/posts/"+post.ID+"/claim", rivalToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_claimed", decode[errorBody](t, w).Code)

	w = ts.do(http.MethodPut, "/api/v1/posts/"+post.ID+"/pickup", rivalToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(http.MethodPut, "/api/v1/posts/"+post.ID+"/pickup", ngoToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.PostStatusPickedUp, decode[model.FoodPost](t, w).Status)

	w = ts.do(http.MethodGet, "/api/v1/restaurant/posts", restaurantToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	mine := decode[model.RestaurantView](t, w).MyPosts
	require.Len(t, mine, 1)
	assert.Equal(t, model.PostStatusPickedUp, mine[0].Status)

	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodPost, "/api/v1/ngo/posts/missing/claim", ngoToken, nil).Code)
	assert.Equal(t, http.StatusForbidden, ts.do(http.MethodPost, "/api/v1/restaurant/posts", ngoToken, gin.H{}).Code)
	assert.Equal(t, http.StatusForbidden, ts.do(http.MethodPut, "/api/v1/posts/"+post.ID+"/pickup", ts.admin, nil).Code)
}

func TestCreatePost_Invalid(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.signup("goodeatery", "restaurant", "New York")

	w := ts.do(http.MethodPost, "/api/v1/restaurant/posts", token, gin.H{
		"item_name": "Soup", "quantity": "15 liters", "expiry_time": "whenever", "pickup_time": "8 PM",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/restaurant/posts", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStateMachineAndHealth(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/v1/state-machine", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	desc := decode[struct {
		Posts []struct {
			From  string `json:"from"`
			To    string `json:"to"`
			Actor string `json:"actor"`
		} `json:"posts"`
	}](t, w)
	assert.Len(t, desc.Posts, 3)

	w = ts.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestHealth_StoreDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "down.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	a := app.New(store.Repositories(), utils.NewJWTUtil("s", 1), func(context.Context) error {
		return errors.New("connection refused")
	})
	w := httptest.NewRecorder()
	a.Router(nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func readSnapshot(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	sawEvent := false
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		if line == "event:snapshot" {
			sawEvent = true
			continue
		}
		if sawEvent && strings.HasPrefix(line, "data:") {
			return strings.TrimPrefix(line, "data:")
		}
	}
}

func TestNGOStream(t *testing.T) {
	ts := newTestServer(t)
	_, restaurantToken := ts.signup("goodeatery", "restaurant", "New York")
	_, ngoToken := ts.signup("foodbank", "ngo", "New York")

	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/ngo/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+ngoToken)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	r := bufio.NewReader(resp.Body)
	var first model.NGOView
	require.NoError(t, json.Unmarshal([]byte(readSnapshot(t, r)), &first))
	assert.Empty(t, first.AvailablePosts)

	ts.createPost(restaurantToken, "Vegetable Soup")

	var next model.NGOView
	require.NoError(t, json.Unmarshal([]byte(readSnapshot(t, r)), &next))
	require.Len(t, next.AvailablePosts, 1)
	assert.Equal(t, "Vegetable Soup", next.AvailablePosts[0].ItemName)
}

func TestStream_NotApproved(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": "Pending", "email": "pending@example.com", "password": "password123", "role": "ngo", "city": "X",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[struct {
		User model.User `json:"user"`
	}](t, w).User.ID

	// a token minted before approval was revoked still routes as ngo
	token, err := ts.app.JWT.GenerateToken(id, model.RoleNGO)
	require.NoError(t, err)

	w = ts.do(http.MethodGet, "/api/v1/ngo/stream", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "not_approved", decode[errorBody](t, w).Code)
}
