package quota

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"social-prospector/internal/auth"
	"social-prospector/internal/plans"
	"social-prospector/internal/rbac"
	"social-prospector/pkg/logger"

	"github.com/gin-gonic/gin"
)

const ctxAuthorization = "quota_authorization"

// RequireQuota blocks the request when the caller's actor has exhausted the action's quota.
//
// - Uses auth context for actor_id and role
// - admin bypasses
// - On denial responds 429 with the window, ceiling, current count and reset countdown
//
// The middleware does not record usage; the gated handler records the action it performs.
func RequireQuota(g *Guard, actors ActorRepository, action plans.ActionKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := auth.Role(c.Request.Context())
		if rbac.IsAdmin(role) {
			c.Next()
			return
		}

		actorID, err := auth.ActorID(c.Request.Context())
		if err != nil || actorID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "actor_id required"})
			return
		}

		actor, err := actors.GetActor(c.Request.Context(), actorID)
		if errors.Is(err, ErrActorNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown actor"})
			return
		}
		if err != nil {
			logger.FromGin(c).Error("actor lookup failed", "actor_id", actorID, "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "actor lookup failed"})
			return
		}

		res, err := g.CheckAndAuthorize(c.Request.Context(), actor, action)
		if err != nil {
			logger.FromGin(c).Error("quota check failed", "actor_id", actorID, "action", action, "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "quota check failed"})
			return
		}
		if !res.Authorized {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.Denial.ResetIn.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, DenialBody(res))
			return
		}

		c.Set(ctxAuthorization, res)
		c.Next()
	}
}

// FromGin returns the authorization set by RequireQuota, if any.
func FromGin(c *gin.Context) (Authorization, bool) {
	v, ok := c.Get(ctxAuthorization)
	if !ok {
		return Authorization{}, false
	}
	a, ok := v.(Authorization)
	return a, ok
}

// DenialBody is the machine-readable denial payload.
func DenialBody(a Authorization) gin.H {
	d := a.Denial
	if d == nil {
		return gin.H{"error": "quota exceeded"}
	}
	return gin.H{
		"error":            "quota exceeded",
		"action":           a.Action,
		"window":           d.Window,
		"ceiling":          d.Ceiling,
		"current":          d.Current,
		"reset_in_seconds": int64(math.Ceil(d.ResetIn.Seconds())),
		"reset_after":      d.ResetAfter,
		"reset_unit":       d.ResetUnit,
		"reset_message":    d.Message,
	}
}
