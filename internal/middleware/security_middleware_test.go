package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go-biz-server/internal/auth"

	"github.com/gin-gonic/gin"
)

func protectedRouter(tokens *auth.Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	api := r.Group("/api", AuthMiddleware(tokens))
	api.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": c.MustGet("userID")})
	})
	api.GET("/admin", RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	tokens := auth.NewManager("test-secret")
	r := protectedRouter(tokens)

	if w := get(r, "/api/ping", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", w.Code)
	}

	if w := get(r, "/api/ping", "bogus"); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status = %d, want 401", w.Code)
	}

	token, err := tokens.Generate(3, "carol", "employee")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if w := get(r, "/api/ping", token); w.Code != http.StatusOK {
		t.Fatalf("valid token: status = %d, want 200", w.Code)
	}
}

func TestRequireRole(t *testing.T) {
	tokens := auth.NewManager("test-secret")
	r := protectedRouter(tokens)

	employee, _ := tokens.Generate(3, "carol", "employee")
	if w := get(r, "/api/admin", employee); w.Code != http.StatusForbidden {
		t.Fatalf("employee on admin route: status = %d, want 403", w.Code)
	}

	admin, _ := tokens.Generate(1, "root", "admin")
	if w := get(r, "/api/admin", admin); w.Code != http.StatusOK {
		t.Fatalf("admin on admin route: status = %d, want 200", w.Code)
	}
}

func TestRequestIDStampsResponses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("response missing X-Request-ID")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "caller-chosen")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "caller-chosen" {
		t.Fatalf("caller id not kept: %q", got)
	}
}
