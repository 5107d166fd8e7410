package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"canteen-api/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(j *JWT) *gin.Engine {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/me", j.AuthRequired(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "role": GetRole(c)})
	})
	r.GET("/kitchen", j.AuthRequired(), RoleRequired(models.RoleStaff, models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	j := NewJWT([]byte("test-secret"), time.Hour)
	r := newRouter(j)

	token, err := j.GenerateToken(42, "a@campus.test", models.RoleStudent)
	require.NoError(t, err)

	w := do(r, "/me", token)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		UserID uint   `json:"user_id"`
		Role   string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, uint(42), body.UserID)
	assert.Equal(t, "student", body.Role)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))

	w = do(r, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)

	other := NewJWT([]byte("other-secret"), time.Hour)
	forged, err := other.GenerateToken(42, "a@campus.test", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", forged).Code)
}

func TestAuthRequired_Expired(t *testing.T) {
	j := NewJWT([]byte("test-secret"), time.Minute)
	issued := time.Now().Add(-2 * time.Hour)
	j.now = func() time.Time { return issued }
	token, err := j.GenerateToken(1, "a@campus.test", models.RoleStudent)
	require.NoError(t, err)

	j.now = time.Now
	assert.Equal(t, http.StatusUnauthorized, do(newRouter(j), "/me", token).Code)
}

func TestRoleRequired(t *testing.T) {
	j := NewJWT([]byte("test-secret"), time.Hour)
	r := newRouter(j)

	tests := []struct {
		role models.UserRole
		want int
	}{
		{models.RoleStudent, http.StatusForbidden},
		{models.RoleStaff, http.StatusNoContent},
		{models.RoleAdmin, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			token, err := j.GenerateToken(7, "x@campus.test", tt.role)
			require.NoError(t, err)
			assert.Equal(t, tt.want, do(r, "/kitchen", token).Code)
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS("https://canteen.example"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://canteen.example", w.Header().Get("Access-Control-Allow-Origin"))
}
