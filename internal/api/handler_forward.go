package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"shift-sync-backend/internal/forward"
)

// User-visible failure strings. Internal detail never reaches the link
// recipient.
const (
	msgInvalidLink   = "Invalid or expired link"
	msgForwardFailed = "Failed to forward email. Please try again later."
	msgBadEmail      = "Please enter a valid email address."
)

// Handler holds shared dependencies for the forwarding page handlers.
type Handler struct {
	workflow *forward.Workflow
	// countdownSeconds is the visible delay before a pending forward
	// auto-confirms.
	countdownSeconds int
	logger           *slog.Logger
}

// NewHandler creates a new forwarding page handler.
func NewHandler(workflow *forward.Workflow, countdownSeconds int, logger *slog.Logger) *Handler {
	if countdownSeconds <= 0 {
		countdownSeconds = 30
	}
	return &Handler{workflow: workflow, countdownSeconds: countdownSeconds, logger: logger}
}

// GetForward renders the page for a token: the shift form, the pending
// confirmation, the success page, or a generic error.
func (h *Handler) GetForward(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		h.renderError(c, msgInvalidLink)
		return
	}

	res, err := h.workflow.Lookup(c.Request.Context(), token)
	if err != nil {
		h.logger.Error("token lookup failed", "error", err)
		h.renderError(c, msgInvalidLink)
		return
	}
	h.renderState(c, token, res, "")
}

// PostForward dispatches the form actions: forward (request), confirm,
// and cancel.
func (h *Handler) PostForward(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = c.PostForm("token")
	}
	if token == "" {
		h.renderError(c, msgInvalidLink)
		return
	}

	ctx := c.Request.Context()

	switch c.PostForm("action") {
	case "forward":
		p, err := h.workflow.Request(ctx, token, c.PostForm("email"), c.PostForm("controller"))
		switch {
		case errors.Is(err, forward.ErrBadEmail):
			h.rerenderForm(c, token, msgBadEmail)
		case errors.Is(err, forward.ErrInvalidToken):
			h.renderError(c, msgInvalidLink)
		case err != nil:
			h.logger.Error("forward request failed", "error", err)
			h.renderError(c, msgForwardFailed)
		default:
			h.renderPending(c, token, p.Email)
		}

	case "confirm":
		res, err := h.workflow.Confirm(ctx, token)
		switch {
		case errors.Is(err, forward.ErrNoPending):
			h.renderState(c, token, res, "")
		case err != nil:
			h.logger.Error("forward confirm failed", "error", err)
			if res != nil && res.State == forward.StateFailed {
				h.renderState(c, token, res, msgForwardFailed)
				return
			}
			h.renderError(c, msgForwardFailed)
		default:
			h.renderState(c, token, res, "")
		}

	case "cancel":
		res, err := h.workflow.Cancel(ctx, token)
		if err != nil {
			h.logger.Error("forward cancel failed", "error", err)
			h.renderError(c, msgInvalidLink)
			return
		}
		h.renderState(c, token, res, "")

	default:
		h.renderError(c, msgInvalidLink)
	}
}

func (h *Handler) renderState(c *gin.Context, token string, res *forward.Result, message string) {
	switch res.State {
	case forward.StateCompleted:
		c.HTML(http.StatusOK, "success.html", gin.H{})
	case forward.StatePendingConfirm:
		h.renderPending(c, token, "")
	case forward.StateFailed:
		h.renderFormWithShift(c, token, res, message)
	case forward.StateAwaitingInput:
		h.renderFormWithShift(c, token, res, message)
	default:
		h.renderError(c, msgInvalidLink)
	}
}

func (h *Handler) renderFormWithShift(c *gin.Context, token string, res *forward.Result, message string) {
	c.HTML(http.StatusOK, "form.html", gin.H{
		"Token":          token,
		"Shift":          res.Shift,
		"ClockInDisplay": res.Shift.ClockIn.Format("2 January 2006 3:04pm"),
		"Message":        message,
	})
}

func (h *Handler) rerenderForm(c *gin.Context, token, message string) {
	res, err := h.workflow.Lookup(c.Request.Context(), token)
	if err != nil || res.State == forward.StateInvalid {
		h.renderError(c, msgInvalidLink)
		return
	}
	h.renderFormWithShift(c, token, res, message)
}

func (h *Handler) renderPending(c *gin.Context, token, email string) {
	res, err := h.workflow.Lookup(c.Request.Context(), token)
	if err != nil || res.Shift == nil {
		h.renderError(c, msgInvalidLink)
		return
	}
	c.HTML(http.StatusOK, "pending.html", gin.H{
		"Token":            token,
		"Shift":            res.Shift,
		"Email":            email,
		"CountdownSeconds": h.countdownSeconds,
	})
}

func (h *Handler) renderError(c *gin.Context, message string) {
	c.HTML(http.StatusOK, "error.html", gin.H{"Message": message})
}
