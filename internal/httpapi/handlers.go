package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"social-prospector/internal/analytics"
	"social-prospector/internal/auth"
	"social-prospector/internal/contacts"
	"social-prospector/internal/goals"
	"social-prospector/internal/plans"
	"social-prospector/internal/quota"
	"social-prospector/internal/rbac"
	"social-prospector/internal/sequence"

	"github.com/gin-gonic/gin"
)

// ActorStore resolves and provisions actors.
type ActorStore interface {
	GetActor(ctx context.Context, actorID string) (quota.Actor, error)
	PutActor(ctx context.Context, a quota.Actor) error
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth      *auth.Manager
	Goals     *goals.Catalog
	Quota     *quota.Guard
	Actors    ActorStore
	Contacts  *contacts.Service
	Sequences *sequence.Engine
	Analytics *analytics.Service
	Now       func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func actorID(c *gin.Context) string {
	id, _ := auth.ActorID(c.Request.Context())
	return id
}

// --- Auth ---

type loginRequest struct {
	UserID  string `json:"user_id"`
	ActorID string `json:"actor_id"`
	Role    string `json:"role"`
}

// Login issues a JWT token pair for a known actor.
//
// NOTE: credentials are not checked here; put this behind an identity provider.
func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	if req.UserID == "" || req.ActorID == "" || req.Role == "" {
		badRequest(c, "user_id, actor_id, role required")
		return
	}
	if !rbac.IsKnownRole(req.Role) {
		badRequest(c, "unknown role")
		return
	}
	if !rbac.IsAdmin(req.Role) {
		if _, err := h.Actors.GetActor(c.Request.Context(), req.ActorID); err != nil {
			writeError(c, err)
			return
		}
	}
	pair, err := h.Auth.IssuePair(h.now(), auth.Identity{UserID: req.UserID, ActorID: req.ActorID, Role: req.Role})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
	Role         string `json:"role"`
}

// Refresh exchanges a refresh token. Refresh never grants admin; admins log in again.
func (h Handlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		badRequest(c, "refresh_token required")
		return
	}
	role := req.Role
	if role == "" || rbac.IsAdmin(role) || !rbac.IsKnownRole(role) {
		role = rbac.RoleMember
	}
	pair, err := h.Auth.Refresh(h.now(), req.RefreshToken, role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	c.JSON(http.StatusOK, pair)
}

// --- Goals ---

func (h Handlers) ListGoals(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"goals": h.Goals.List()})
}

func (h Handlers) GetGoal(c *gin.Context) {
	g, err := h.Goals.Get(c.Param("goal_id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, g)
}

// --- Quota ---

type authorizeRequest struct {
	Action string `json:"action"`
}

// Authorize reports whether the caller's actor may perform an action now. It does not
// record usage; a denial is returned with 200 since it answers the question asked.
func (h Handlers) Authorize(c *gin.Context) {
	var req authorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	action, err := plans.ParseActionKind(req.Action)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	actor, err := h.Actors.GetActor(c.Request.Context(), actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := h.Quota.CheckAndAuthorize(c.Request.Context(), actor, action)
	if err != nil {
		writeError(c, err)
		return
	}
	if !res.Authorized {
		c.JSON(http.StatusOK, gin.H{"authorized": false, "denial": quota.DenialBody(res), "windows": res.Windows})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h Handlers) Limits(c *gin.Context) {
	actor, err := h.Actors.GetActor(c.Request.Context(), actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	limits, ok := h.Quota.Limits(actor.Tier)
	if !ok {
		writeError(c, quota.ErrUnknownTier)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tier": actor.Tier, "unlimited_override": actor.UnlimitedOverride, "limits": limits})
}

type resourceCapRequest struct {
	Current int `json:"current"`
}

func (h Handlers) CheckResourceCap(c *gin.Context) {
	var req resourceCapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	actor, err := h.Actors.GetActor(c.Request.Context(), actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := h.Quota.CheckResourceCap(actor, plans.Resource(c.Param("resource")), req.Current)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// --- Admin ---

type putActorRequest struct {
	Tier              string `json:"tier"`
	UnlimitedOverride bool   `json:"unlimited_override"`
}

func (h Handlers) PutActor(c *gin.Context) {
	id := strings.TrimSpace(c.Param("actor_id"))
	var req putActorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	tier, err := plans.ParseTier(req.Tier)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	a := quota.Actor{ID: id, Tier: tier, UnlimitedOverride: req.UnlimitedOverride, CreatedAt: h.now().UTC()}
	if err := h.Actors.PutActor(c.Request.Context(), a); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// --- Contacts ---

func (h Handlers) ImportContact(c *gin.Context) {
	var req contacts.Contact
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	out, err := h.Contacts.Import(c.Request.Context(), actorID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h Handlers) ListContacts(c *gin.Context) {
	out, err := h.Contacts.List(c.Request.Context(), actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": out})
}

// --- Analytics ---

// AnalyticsSummary returns funnel stats for from..to (YYYY-MM, inclusive). Both default to
// the current month.
func (h Handlers) AnalyticsSummary(c *gin.Context) {
	current := analytics.MonthOf(h.now())
	r := analytics.MonthRange{
		From: analytics.Month(c.DefaultQuery("from", string(current))),
		To:   analytics.Month(c.DefaultQuery("to", string(current))),
	}
	sum, err := h.Analytics.Summarize(c.Request.Context(), actorID(c), r)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}
