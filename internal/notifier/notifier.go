package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"shift-sync-backend/config"
	"shift-sync-backend/internal/mailer"
	"shift-sync-backend/internal/model"
	"shift-sync-backend/internal/store"
)

// scheduleLayout is the layout of time_from / time_to in shift payloads.
const scheduleLayout = "2006-01-02 15:04:05"

// NotificationError reports a clock-in notification that was not
// delivered. The shift stays unprocessed and is retried on the next run.
type NotificationError struct {
	ShiftUUID string
	Err       error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("clock-in notification for shift %q failed: %v", e.ShiftUUID, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

// Notifier sends clock-in notification emails for eligible shifts and
// issues the forward token embedded in each one.
type Notifier struct {
	store   store.Store
	sender  mailer.Sender
	mailCfg *config.MailerConfig
	fwdCfg  *config.ForwardConfig
	tz      string
	logger  *slog.Logger
}

// New creates a notifier.
func New(s store.Store, sender mailer.Sender, mailCfg *config.MailerConfig, fwdCfg *config.ForwardConfig, timezone string, logger *slog.Logger) *Notifier {
	return &Notifier{
		store:   s,
		sender:  sender,
		mailCfg: mailCfg,
		fwdCfg:  fwdCfg,
		tz:      timezone,
		logger:  logger,
	}
}

// ProcessPending sends a notification for every shift with an unsent
// clock-in. A failure on one shift is logged and the pass continues; the
// failed shift stays eligible for the next pass.
func (n *Notifier) ProcessPending(ctx context.Context) error {
	shifts, err := n.store.FindUnprocessedWithClockIn(ctx)
	if err != nil {
		return err
	}

	n.logger.Info("found unprocessed shifts with clock-in", "count", len(shifts))

	for _, shift := range shifts {
		if err := n.SendClockInEmail(ctx, shift); err != nil {
			n.logger.Error("failed to notify shift", "shift_uuid", shift.ShiftUUID, "error", err)
			continue
		}
		n.logger.Info("notified shift", "shift_uuid", shift.ShiftUUID)
	}
	return nil
}

// SendClockInEmail sends the clock-in notification for one shift. A fresh
// forward token is issued first and its link embedded in the message. The
// shift is marked processed only after the provider accepts the send.
func (n *Notifier) SendClockInEmail(ctx context.Context, shift model.Shift) error {
	if shift.ActualClockIn == nil {
		return &NotificationError{ShiftUUID: shift.ShiftUUID, Err: fmt.Errorf("shift has no clock-in")}
	}

	var payload store.RawShift
	if err := json.Unmarshal([]byte(shift.RawData), &payload); err != nil {
		return &NotificationError{ShiftUUID: shift.ShiftUUID, Err: fmt.Errorf("stored payload not decodable: %w", err)}
	}

	loc, err := time.LoadLocation(n.tz)
	if err != nil {
		loc = time.UTC
	}

	scheduledStart, err := time.ParseInLocation(scheduleLayout, payload.TimeFrom, loc)
	if err != nil {
		// A shift without a parsable scheduled start cannot render the
		// status line; surface it instead of sending a broken email.
		return &NotificationError{ShiftUUID: shift.ShiftUUID, Err: fmt.Errorf("unparsable time_from %q: %w", payload.TimeFrom, err)}
	}

	clockIn := shift.ActualClockIn.In(loc)
	status := ClockStatus(clockIn, scheduledStart)

	token, err := n.store.IssueForwardToken(ctx, shift.ShiftUUID, n.fwdCfg.TokenTTL)
	if err != nil {
		return &NotificationError{ShiftUUID: shift.ShiftUUID, Err: err}
	}

	msg := mailer.Message{
		ReplyTo:    mailer.Recipient{Email: n.mailCfg.ReplyTo, Name: n.mailCfg.ReplyToName},
		To:         []mailer.Recipient{{Email: n.mailCfg.NotifyTo, Name: n.mailCfg.NotifyToName}},
		Subject:    fmt.Sprintf("%s clocked in at %s", payload.UserName, payload.VenueName),
		TemplateID: n.mailCfg.ClockInTemplateID,
		Params: map[string]any{
			"employee_name": payload.UserName,
			"venue_name":    payload.VenueName,
			"clock_time":    clockIn.Format("3:04pm"),
			"clock_date":    clockIn.Format("2 January 2006"),
			"shift":         payload.TimeFrom + " - " + payload.TimeTo,
			"status":        status,
			"link":          ForwardLink(n.fwdCfg.BaseURL, token),
		},
	}

	if err := n.sender.Send(ctx, msg); err != nil {
		// Leave processed false so the next run retries this shift.
		return &NotificationError{ShiftUUID: shift.ShiftUUID, Err: err}
	}

	if err := n.store.MarkProcessed(ctx, shift.ShiftUUID); err != nil {
		return err
	}
	return nil
}

// ClockStatus renders the lateness delta between the clock-in and the
// scheduled start in whole minutes.
func ClockStatus(clockIn, scheduledStart time.Time) string {
	minutes := int(clockIn.Sub(scheduledStart).Round(time.Minute) / time.Minute)
	switch {
	case minutes < 0:
		return fmt.Sprintf("%d minutes early", -minutes)
	case minutes > 0:
		return fmt.Sprintf("%d minutes late", minutes)
	default:
		return "on time"
	}
}

// ForwardLink builds the forwarding-page URL carrying the token.
func ForwardLink(baseURL, token string) string {
	return baseURL + "?token=" + url.QueryEscape(token)
}
