package guard

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusudc/asesorias-api/internal/store"
	appErrors "github.com/campusudc/asesorias-api/pkg/errors"
	"github.com/campusudc/asesorias-api/pkg/response"
)

// ContextSessionKey is the gin context key holding the request's session store.
const ContextSessionKey = "session"

// Middleware resolves the caller's session (awaiting its readiness), applies
// the route decision, and either attaches the session to the context or
// rejects the request with the redirect target the client should follow.
func Middleware(registry *store.SessionRegistry, route Route) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		sess := registry.Session(c.Request.Context(), token)

		if err := sess.WaitReady(c.Request.Context()); err != nil {
			response.Error(c, appErrors.Remote(err, "session initialization interrupted"))
			c.Abort()
			return
		}

		decision := Decide(route, sess.IsAuthenticated(), sess.Role())
		if decision.Action == Redirect {
			err := appErrors.ErrPermissionDenied
			if decision.Target == RouteLogin {
				err = appErrors.ErrUnauthenticated
			}
			c.Header("X-Redirect-To", decision.Target)
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextSessionKey, sess)
		c.Next()
	}
}

// SessionFromContext returns the session store attached by the middleware.
func SessionFromContext(c *gin.Context) *store.SessionStore {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil
	}
	sess, ok := value.(*store.SessionStore)
	if !ok {
		return nil
	}
	return sess
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
