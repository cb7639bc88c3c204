package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"bodacover-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

func doRequest(t *testing.T, role string, mw gin.HandlerFunc) int {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if role != "" {
			c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), "u1", role))
		}
		c.Next()
	})
	r.GET("/x", mw, func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRequireAnyRole(t *testing.T) {
	cases := []struct {
		name string
		role string
		want int
	}{
		{"allowed role", RoleFinance, http.StatusOK},
		{"super admin bypasses", RoleSuperAdmin, http.StatusOK},
		{"other role forbidden", RoleOperations, http.StatusForbidden},
		{"missing identity", "", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := doRequest(t, tc.role, RequireAnyRole(RoleFinance))
			if got != tc.want {
				t.Fatalf("status = %d, want %d", got, tc.want)
			}
		})
	}
}
