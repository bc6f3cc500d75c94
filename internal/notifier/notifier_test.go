package notifier

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"shift-sync-backend/config"
	"shift-sync-backend/internal/mailer"
	"shift-sync-backend/internal/model"
	"shift-sync-backend/internal/store"
)

type fakeStore struct {
	store.Store
	unprocessed []model.Shift
	issued      []string
	processed   []string
	token       string
}

func (f *fakeStore) FindUnprocessedWithClockIn(_ context.Context) ([]model.Shift, error) {
	return f.unprocessed, nil
}

func (f *fakeStore) IssueForwardToken(_ context.Context, shiftUUID string, _ time.Duration) (string, error) {
	f.issued = append(f.issued, shiftUUID)
	return f.token, nil
}

func (f *fakeStore) MarkProcessed(_ context.Context, shiftUUID string) error {
	f.processed = append(f.processed, shiftUUID)
	return nil
}

type fakeSender struct {
	sent []mailer.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg mailer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func testNotifier(s store.Store, sender mailer.Sender) *Notifier {
	mailCfg := &config.MailerConfig{
		ReplyTo:           "ops@example.com",
		NotifyTo:          "manager@example.com",
		ClockInTemplateID: 7,
	}
	fwdCfg := &config.ForwardConfig{
		BaseURL:  "https://example.com/forward",
		TokenTTL: 24 * time.Hour,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(s, sender, mailCfg, fwdCfg, "UTC", logger)
}

func clockedInShift(uuid string, clockIn time.Time) model.Shift {
	raw := `{"shift_uuid":"` + uuid + `","time_from":"2025-03-03 09:00:00","time_to":"2025-03-03 17:00:00","user_name":"Jane Doe","venue_name":"Depot"}`
	return model.Shift{
		ShiftUUID:     uuid,
		ActualClockIn: &clockIn,
		RawData:       datatypes.JSON(raw),
	}
}

func TestClockStatus(t *testing.T) {
	scheduled := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

	testCases := []struct {
		name    string
		clockIn time.Time
		want    string
	}{
		{"ten minutes early", scheduled.Add(-10 * time.Minute), "10 minutes early"},
		{"five minutes late", scheduled.Add(5 * time.Minute), "5 minutes late"},
		{"exactly on time", scheduled, "on time"},
		{"seconds round to zero", scheduled.Add(20 * time.Second), "on time"},
		{"rounds to nearest minute", scheduled.Add(-9*time.Minute - 40*time.Second), "10 minutes early"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClockStatus(tc.clockIn, scheduled))
		})
	}
}

func TestSendClockInEmail_Success(t *testing.T) {
	fs := &fakeStore{token: "deadbeefdeadbeefdeadbeefdeadbeef"}
	sender := &fakeSender{}
	n := testNotifier(fs, sender)

	clockIn := time.Date(2025, 3, 3, 9, 10, 0, 0, time.UTC)
	err := n.SendClockInEmail(context.Background(), clockedInShift("abc", clockIn))
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, int64(7), msg.TemplateID)
	assert.Equal(t, "manager@example.com", msg.To[0].Email)
	assert.Equal(t, "Jane Doe", msg.Params["employee_name"])
	assert.Equal(t, "Depot", msg.Params["venue_name"])
	assert.Equal(t, "10 minutes late", msg.Params["status"])
	assert.Equal(t, "https://example.com/forward?token=deadbeefdeadbeefdeadbeefdeadbeef", msg.Params["link"])

	assert.Equal(t, []string{"abc"}, fs.issued, "a token is issued before the send")
	assert.Equal(t, []string{"abc"}, fs.processed, "processed only after an accepted send")
}

func TestSendClockInEmail_SendFailureLeavesUnprocessed(t *testing.T) {
	fs := &fakeStore{token: "deadbeef"}
	sender := &fakeSender{err: &mailer.SendError{StatusCode: 500}}
	n := testNotifier(fs, sender)

	clockIn := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	err := n.SendClockInEmail(context.Background(), clockedInShift("abc", clockIn))

	var nerr *NotificationError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, "abc", nerr.ShiftUUID)
	assert.Empty(t, fs.processed, "a failed send must leave the shift eligible for retry")
}

func TestSendClockInEmail_NoClockIn(t *testing.T) {
	fs := &fakeStore{}
	n := testNotifier(fs, &fakeSender{})

	err := n.SendClockInEmail(context.Background(), model.Shift{ShiftUUID: "abc", RawData: datatypes.JSON(`{}`)})
	var nerr *NotificationError
	require.ErrorAs(t, err, &nerr)
	assert.Empty(t, fs.issued)
}

func TestSendClockInEmail_UnparsableSchedule(t *testing.T) {
	fs := &fakeStore{token: "deadbeef"}
	sender := &fakeSender{}
	n := testNotifier(fs, sender)

	clockIn := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	shift := model.Shift{
		ShiftUUID:     "abc",
		ActualClockIn: &clockIn,
		RawData:       datatypes.JSON(`{"shift_uuid":"abc","time_from":"not a time"}`),
	}

	err := n.SendClockInEmail(context.Background(), shift)
	var nerr *NotificationError
	require.ErrorAs(t, err, &nerr)
	assert.Empty(t, sender.sent)
	assert.Empty(t, fs.processed)
}

func TestProcessPending_ContinuesAfterFailure(t *testing.T) {
	clockIn := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	fs := &fakeStore{
		token: "deadbeef",
		unprocessed: []model.Shift{
			{ShiftUUID: "broken", ActualClockIn: &clockIn, RawData: datatypes.JSON(`{`)},
			clockedInShift("ok", clockIn),
		},
	}
	sender := &fakeSender{}
	n := testNotifier(fs, sender)

	require.NoError(t, n.ProcessPending(context.Background()))
	assert.Equal(t, []string{"ok"}, fs.processed)
	require.Len(t, sender.sent, 1)
}
