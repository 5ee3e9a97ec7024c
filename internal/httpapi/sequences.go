package httpapi

import (
	"errors"
	"net/http"

	"social-prospector/internal/classify"
	"social-prospector/internal/plans"
	"social-prospector/internal/sequence"

	"github.com/gin-gonic/gin"
)

type startRequest struct {
	ContactID      string `json:"contact_id"`
	GoalID         string `json:"goal_id"`
	ApproachMethod string `json:"approach_method"`
}

func (h Handlers) StartSequence(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	st, err := h.Sequences.Start(c.Request.Context(), actorID(c), req.ContactID, req.GoalID, req.ApproachMethod)
	if errors.Is(err, sequence.ErrSequenceActive) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error(), "state": st})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

type outboundRequest struct {
	Content string `json:"content"`
	// Stage 0 means the current stage.
	Stage int `json:"stage"`
}

func (h Handlers) RecordOutbound(c *gin.Context) {
	var req outboundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	entry, st, err := h.Sequences.RecordOutbound(c.Request.Context(), actorID(c), c.Param("contact_id"), req.Content, req.Stage)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry": entry, "state": st})
}

type inboundResponse struct {
	sequence.InboundResult
	ClassificationError string `json:"classification_error,omitempty"`
}

func (h Handlers) RecordInbound(c *gin.Context) {
	var req sequence.InboundMessage
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	res, err := h.Sequences.RecordInbound(c.Request.Context(), actorID(c), c.Param("contact_id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	out := inboundResponse{InboundResult: res}
	switch {
	case res.ClassificationErr == nil:
	case errors.Is(res.ClassificationErr, classify.ErrClassifierTimeout):
		out.ClassificationError = "classifier_timeout"
	default:
		out.ClassificationError = "classifier_unavailable"
	}
	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, out)
}

func (h Handlers) Advance(c *gin.Context) {
	st, err := h.Sequences.Advance(c.Request.Context(), actorID(c), c.Param("contact_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

type completeRequest struct {
	Outcome string `json:"outcome"`
}

func (h Handlers) Complete(c *gin.Context) {
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	st, err := h.Sequences.Complete(c.Request.Context(), actorID(c), c.Param("contact_id"), sequence.Outcome(req.Outcome))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h Handlers) GetSequence(c *gin.Context) {
	st, err := h.Sequences.Get(c.Request.Context(), actorID(c), c.Param("contact_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	g, _ := h.Goals.Get(st.GoalID)
	stage, _ := g.Stage(st.CurrentStage)
	c.JSON(http.StatusOK, gin.H{"state": st, "stage": stage, "stage_count": g.StageCount()})
}

func (h Handlers) History(c *gin.Context) {
	entries, err := h.Sequences.History(c.Request.Context(), actorID(c), c.Param("contact_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// Draft returns the current stage's template hint for composing the next message and
// records one message_draft action.
func (h Handlers) Draft(c *gin.Context) {
	st, err := h.Sequences.Get(c.Request.Context(), actorID(c), c.Param("contact_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if st.Status.Terminal() {
		writeError(c, sequence.ErrAlreadyTerminal)
		return
	}
	stage, err := h.Goals.Stage(st.GoalID, st.CurrentStage)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.Quota.Record(c.Request.Context(), actorID(c), plans.ActionMessageDraft); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"goal_id": st.GoalID, "stage": stage})
}
