package forward

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"shift-sync-backend/config"
	"shift-sync-backend/internal/mailer"
	"shift-sync-backend/internal/store"
)

// State is the position of a forward interaction.
type State string

const (
	// StateInvalid covers missing, unknown and expired tokens. Terminal.
	StateInvalid State = "invalid"
	// StateAwaitingInput means the token is live and no forward has been
	// requested yet.
	StateAwaitingInput State = "awaiting_input"
	// StatePendingConfirm means a forward was requested and is waiting
	// for explicit confirmation or the client countdown to elapse.
	// Nothing has been sent and nothing is persisted in this state.
	StatePendingConfirm State = "pending_confirm"
	// StateCompleted means the forward email went out. Terminal.
	StateCompleted State = "completed"
	// StateFailed means the send attempt errored. The token stays usable
	// until its expiry, so the request can be resubmitted.
	StateFailed State = "failed"
)

var (
	// ErrInvalidToken is returned for unknown or expired tokens.
	ErrInvalidToken = errors.New("invalid or expired forward token")
	// ErrNoPending is returned by Confirm when no forward request is
	// waiting for confirmation under the token.
	ErrNoPending = errors.New("no pending forward request")
	// ErrBadEmail is returned by Request for an unusable destination.
	ErrBadEmail = errors.New("invalid destination email")
)

// ShiftView carries the shift fields the forwarding page renders.
type ShiftView struct {
	ShiftUUID string
	UserName  string
	VenueName string
	ClockIn   time.Time
	TimeFrom  string
	TimeTo    string
}

// Pending describes a forward request that has not been confirmed yet.
// It lives only in memory for the confirm window.
type Pending struct {
	Token       string
	Email       string
	Controller  string
	RequestedAt time.Time
}

// Result pairs a workflow state with the shift it concerns.
type Result struct {
	State State
	Shift *ShiftView
}

// Workflow drives the token-gated forwarding interaction. It is safe for
// concurrent use across tokens; the only shared state is the store and
// the pending-confirmation cache.
type Workflow struct {
	store   store.Store
	sender  mailer.Sender
	mailCfg *config.MailerConfig
	pending *cache.Cache
	tz      string
	now     func() time.Time
	logger  *slog.Logger
}

// NewWorkflow creates a forward workflow. Pending requests expire from
// the cache after the confirm window so an abandoned form never holds a
// request open.
func NewWorkflow(s store.Store, sender mailer.Sender, mailCfg *config.MailerConfig, fwdCfg *config.ForwardConfig, timezone string, logger *slog.Logger) *Workflow {
	return &Workflow{
		store:   s,
		sender:  sender,
		mailCfg: mailCfg,
		pending: cache.New(fwdCfg.ConfirmWindow, 2*fwdCfg.ConfirmWindow),
		tz:      timezone,
		now:     time.Now,
		logger:  logger,
	}
}

// Lookup resolves a token to the state the page should render.
func (w *Workflow) Lookup(ctx context.Context, token string) (*Result, error) {
	lookup, err := w.store.FindByToken(ctx, token)
	if errors.Is(err, store.ErrTokenNotFound) {
		return &Result{State: StateInvalid}, nil
	}
	if err != nil {
		return nil, err
	}
	if !lookup.Valid {
		return &Result{State: StateInvalid}, nil
	}

	view, err := w.viewFromLookup(lookup)
	if err != nil {
		return nil, err
	}
	if lookup.Forwarded {
		return &Result{State: StateCompleted, Shift: view}, nil
	}
	if _, found := w.pending.Get(token); found {
		return &Result{State: StatePendingConfirm, Shift: view}, nil
	}
	return &Result{State: StateAwaitingInput, Shift: view}, nil
}

// Request records a forward request without sending anything. The send
// happens only once Confirm is invoked, by the user or by the client
// countdown elapsing.
func (w *Workflow) Request(ctx context.Context, token, email, controller string) (*Pending, error) {
	if !strings.Contains(email, "@") {
		return nil, ErrBadEmail
	}

	lookup, err := w.store.FindByToken(ctx, token)
	if errors.Is(err, store.ErrTokenNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if !lookup.Valid || lookup.Forwarded {
		return nil, ErrInvalidToken
	}

	p := &Pending{
		Token:       token,
		Email:       strings.TrimSpace(email),
		Controller:  strings.TrimSpace(controller),
		RequestedAt: w.now(),
	}
	w.pending.Set(token, p, cache.DefaultExpiration)
	return p, nil
}

// Confirm performs the actual forward send for a pending request. The
// store update is conditional on the shift not being forwarded yet, and
// a confirm that arrives after completion is answered as completed
// without a second send.
func (w *Workflow) Confirm(ctx context.Context, token string) (*Result, error) {
	entry, found := w.pending.Get(token)
	if !found {
		res, err := w.Lookup(ctx, token)
		if err != nil {
			return nil, err
		}
		if res.State == StateInvalid || res.State == StateCompleted {
			return res, nil
		}
		return res, ErrNoPending
	}
	p := entry.(*Pending)

	lookup, err := w.store.FindByToken(ctx, token)
	if errors.Is(err, store.ErrTokenNotFound) {
		w.pending.Delete(token)
		return &Result{State: StateInvalid}, nil
	}
	if err != nil {
		return nil, err
	}
	if !lookup.Valid {
		w.pending.Delete(token)
		return &Result{State: StateInvalid}, nil
	}

	view, err := w.viewFromLookup(lookup)
	if err != nil {
		return nil, err
	}

	if lookup.Forwarded {
		// Lost a race with another confirm; the first one won.
		w.pending.Delete(token)
		return &Result{State: StateCompleted, Shift: view}, nil
	}

	if err := w.send(ctx, view, p); err != nil {
		// The request is spent, the token is not. Resubmitting the form
		// creates a fresh pending request for another attempt.
		w.pending.Delete(token)
		w.logger.Error("forward send failed", "shift_uuid", view.ShiftUUID, "error", err)
		return &Result{State: StateFailed, Shift: view}, err
	}

	if err := w.store.RecordForward(ctx, view.ShiftUUID, p.Email); err != nil && !errors.Is(err, store.ErrAlreadyForwarded) {
		return nil, err
	}
	w.pending.Delete(token)

	w.logger.Info("forwarded clock-in notification", "shift_uuid", view.ShiftUUID)
	return &Result{State: StateCompleted, Shift: view}, nil
}

// Cancel discards a pending forward request, returning the interaction
// to the awaiting-input state.
func (w *Workflow) Cancel(ctx context.Context, token string) (*Result, error) {
	w.pending.Delete(token)
	return w.Lookup(ctx, token)
}

func (w *Workflow) send(ctx context.Context, view *ShiftView, p *Pending) error {
	loc, err := time.LoadLocation(w.tz)
	if err != nil {
		loc = time.UTC
	}
	clockIn := view.ClockIn.In(loc)

	msg := mailer.Message{
		ReplyTo:    mailer.Recipient{Email: w.mailCfg.ReplyTo, Name: w.mailCfg.ReplyToName},
		To:         []mailer.Recipient{{Email: p.Email}},
		Subject:    fmt.Sprintf("Fwd: %s clocked in at %s", view.UserName, view.VenueName),
		TemplateID: w.mailCfg.ForwardTemplateID,
		Params: map[string]any{
			"employee_name": view.UserName,
			"venue_name":    view.VenueName,
			"clock_in":      clockIn.Format("3:04pm"),
			"clock_date":    clockIn.Format("2 January 2006"),
			"shift":         view.TimeFrom + " - " + view.TimeTo,
			"daytime":       Greeting(w.now().In(loc)),
			"controller":    p.Controller,
		},
	}
	return w.sender.Send(ctx, msg)
}

func (w *Workflow) viewFromLookup(lookup *store.TokenLookup) (*ShiftView, error) {
	var payload store.RawShift
	if err := json.Unmarshal(lookup.RawData, &payload); err != nil {
		return nil, fmt.Errorf("stored payload for shift %q not decodable: %w", lookup.ShiftUUID, err)
	}

	view := &ShiftView{
		ShiftUUID: lookup.ShiftUUID,
		UserName:  payload.UserName,
		VenueName: payload.VenueName,
		TimeFrom:  payload.TimeFrom,
		TimeTo:    payload.TimeTo,
	}
	if payload.ActualClockIn != nil {
		view.ClockIn = time.Unix(*payload.ActualClockIn, 0).UTC()
	}
	return view, nil
}

// Greeting buckets a local time into the salutation used by the forward
// email template.
func Greeting(t time.Time) string {
	switch hour := t.Hour(); {
	case hour < 12:
		return "Good Morning"
	case hour < 17:
		return "Good Afternoon"
	default:
		return "Good Evening"
	}
}
