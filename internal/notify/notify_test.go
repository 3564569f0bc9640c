package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/simplewatch/simplewatch/internal/status"
	"github.com/simplewatch/simplewatch/internal/storage"
)

func testStore(t *testing.T) storage.Store {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "simplewatch-notify-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	store, err := storage.NewSQLiteStore(tmpFile.Name(), 2)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestShouldNotify(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-2 * time.Minute)
	stale := now.Add(-30 * time.Minute)

	tests := []struct {
		name      string
		settings  storage.NotificationSettings
		newStatus status.Status
		want      bool
	}{
		{
			name:      "disabled never notifies",
			settings:  storage.NotificationSettings{Enabled: false, CooldownMinutes: 5, LastNotifiedStatus: status.Operational},
			newStatus: status.Down,
			want:      false,
		},
		{
			name:      "repeat of last notified status",
			settings:  storage.NotificationSettings{Enabled: true, CooldownMinutes: 5, LastNotifiedStatus: status.Down},
			newStatus: status.Down,
			want:      false,
		},
		{
			name:      "first transition with no prior send",
			settings:  storage.NotificationSettings{Enabled: true, CooldownMinutes: 5, LastNotifiedStatus: status.Unknown},
			newStatus: status.Down,
			want:      true,
		},
		{
			name:      "within cooldown",
			settings:  storage.NotificationSettings{Enabled: true, CooldownMinutes: 5, LastNotifiedStatus: status.Down, LastNotificationSentAt: &recent},
			newStatus: status.Degraded,
			want:      false,
		},
		{
			name:      "cooldown elapsed",
			settings:  storage.NotificationSettings{Enabled: true, CooldownMinutes: 5, LastNotifiedStatus: status.Down, LastNotificationSentAt: &stale},
			newStatus: status.Degraded,
			want:      true,
		},
		{
			name:      "recovery bypasses cooldown",
			settings:  storage.NotificationSettings{Enabled: true, CooldownMinutes: 5, NotifyOnRecovery: true, LastNotifiedStatus: status.Down, LastNotificationSentAt: &recent},
			newStatus: status.Operational,
			want:      true,
		},
		{
			// Without the flag the recovery loses its cooldown bypass but is
			// still an ordinary transition: it notifies once the cooldown
			// has elapsed.
			name:      "recovery after cooldown when notify_on_recovery off",
			settings:  storage.NotificationSettings{Enabled: true, CooldownMinutes: 5, NotifyOnRecovery: false, LastNotifiedStatus: status.Down, LastNotificationSentAt: &stale},
			newStatus: status.Operational,
			want:      true,
		},
		{
			name:      "recovery within cooldown when notify_on_recovery off",
			settings:  storage.NotificationSettings{Enabled: true, CooldownMinutes: 5, NotifyOnRecovery: false, LastNotifiedStatus: status.Down, LastNotificationSentAt: &recent},
			newStatus: status.Operational,
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldNotify(&tt.settings, tt.newStatus, now); got != tt.want {
				t.Errorf("ShouldNotify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldNotifyCooldownSequence(t *testing.T) {
	// degraded -> down -> degraded inside a 5 minute cooldown: only the
	// first transition notifies.
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	settings := &storage.NotificationSettings{
		Enabled:            true,
		CooldownMinutes:    5,
		NotifyOnRecovery:   true,
		LastNotifiedStatus: status.Unknown,
	}

	if !ShouldNotify(settings, status.Degraded, now) {
		t.Fatal("first transition should notify")
	}
	sentAt := now
	settings.LastNotifiedStatus = status.Degraded
	settings.LastNotificationSentAt = &sentAt

	if ShouldNotify(settings, status.Down, now.Add(time.Minute)) {
		t.Fatal("second transition within cooldown should not notify")
	}
	if ShouldNotify(settings, status.Degraded, now.Add(2*time.Minute)) {
		t.Fatal("repeat of last notified status should not notify")
	}
	if !ShouldNotify(settings, status.Operational, now.Add(3*time.Minute)) {
		t.Fatal("recovery should notify despite cooldown")
	}
}

type countingNotifier struct {
	name  string
	calls atomic.Int64
	err   error
}

func (n *countingNotifier) Name() string { return n.name }

func (n *countingNotifier) Notify(ctx context.Context, _ *Context) error {
	n.calls.Add(1)
	return n.err
}

func TestMarkNotifiedAndDispatch(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	svc := &storage.Service{Name: "Search", Active: true}
	if err := store.CreateService(ctx, svc); err != nil {
		t.Fatal(err)
	}

	ok := &countingNotifier{name: "ok"}
	failing := &countingNotifier{name: "failing", err: errors.New("unreachable")}

	d := NewDispatcher(store, testLogger(), time.Second)
	d.Register(ok)
	d.Register(failing)

	now := time.Now().UTC().Truncate(time.Second)
	if err := d.MarkNotified(ctx, svc.ID, status.Down, now); err != nil {
		t.Fatal(err)
	}
	d.Dispatch(ctx, &Context{
		ServiceID:   svc.ID,
		ServiceName: svc.Name,
		OldStatus:   status.Operational,
		NewStatus:   status.Down,
		Timestamp:   now.Format(time.RFC3339),
	})

	if ok.calls.Load() != 1 || failing.calls.Load() != 1 {
		t.Fatalf("expected both channels attempted, got %d and %d", ok.calls.Load(), failing.calls.Load())
	}

	// The send was stamped at decision time, independent of channel outcomes.
	settings, err := store.GetOrCreateNotificationSettings(ctx, svc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if settings.LastNotifiedStatus != status.Down {
		t.Fatalf("expected last_notified_status down, got %s", settings.LastNotifiedStatus)
	}
	if settings.LastNotificationSentAt == nil || !settings.LastNotificationSentAt.Equal(now) {
		t.Fatalf("expected last_notification_sent_at %v, got %v", now, settings.LastNotificationSentAt)
	}
}

func TestWebhookNotifier(t *testing.T) {
	var receivedBody []byte
	var receivedSig string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedBody, _ = io.ReadAll(r.Body)
		receivedSig = r.Header.Get("X-SimpleWatch-Signature")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	secret := "test-secret"
	n := &WebhookNotifier{URL: server.URL, Secret: secret}

	err := n.Notify(context.Background(), &Context{
		ServiceID:   1,
		ServiceName: "Search",
		OldStatus:   status.Operational,
		NewStatus:   status.Down,
		Affected: []MonitorDetail{
			{MonitorID: 4, Name: "homepage", Status: status.Down, Error: "connection refused"},
		},
		Timestamp: "2025-06-01T12:00:00Z",
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(receivedBody) == 0 {
		t.Fatal("no body received")
	}
	if !strings.HasPrefix(receivedSig, "sha256=") {
		t.Fatal("signature should start with sha256=")
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(receivedBody)
	if receivedSig != "sha256="+hex.EncodeToString(mac.Sum(nil)) {
		t.Fatal("signature mismatch")
	}
}

func TestWebhookNotifierFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n := &WebhookNotifier{URL: server.URL}
	err := n.Notify(context.Background(), &Context{ServiceID: 1, NewStatus: status.Down})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}
