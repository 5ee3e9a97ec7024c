package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"social-prospector/internal/auth"

	"github.com/gin-gonic/gin"
)

func serve(t *testing.T, id auth.Identity, handlers ...gin.HandlerFunc) int {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	chain := []gin.HandlerFunc{func(c *gin.Context) {
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	}}
	chain = append(chain, handlers...)
	chain = append(chain, func(c *gin.Context) { c.Status(200) })
	r.GET("/x", chain...)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	return w.Code
}

func TestRequireAnyRole_AdminBypasses(t *testing.T) {
	code := serve(t, auth.Identity{UserID: "u", ActorID: "a", Role: RoleAdmin}, RequireActor(), RequireAnyRole(RoleOwner))
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_ViewerDenied(t *testing.T) {
	code := serve(t, auth.Identity{UserID: "u", ActorID: "a", Role: RoleViewer}, RequireActor(), RequireAnyRole(RoleOwner, RoleMember))
	if code != 403 {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireActor_Required(t *testing.T) {
	code := serve(t, auth.Identity{UserID: "u", Role: RoleOwner}, RequireActor(), RequireAnyRole(RoleOwner))
	if code != 401 {
		t.Fatalf("expected 401, got %d", code)
	}
}
