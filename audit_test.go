package scopeAuth

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func collectEvents(t *testing.T, sink *ChannelSink, want int) []AuditEvent {
	t.Helper()

	events := make([]AuditEvent, 0, want)
	timeout := time.After(2 * time.Second)
	for len(events) < want {
		select {
		case ev := <-sink.Events():
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("expected %d audit events, got %d", want, len(events))
		}
	}
	return events
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	dir := newMockDirectory()
	sink := &countingSink{}
	engine := newTestEngine(t, dir, func(b *Builder) {
		b.WithAuditSink(sink)
		b.config.Audit.Enabled = false
	})

	_, _ = engine.Authenticate(context.Background(), Credentials{Username: "alice", Password: "wrong"})
	engine.Close()

	if sink.count.Load() != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", sink.count.Load())
	}
}

func TestAuditLoginFailureCarriesIPWithoutSecrets(t *testing.T) {
	dir := newMockDirectory()
	sink := NewChannelSink(8)
	clock := newFakeClock()
	engine := newTestEngine(t, dir, func(b *Builder) {
		b.WithAuditSink(sink).WithClock(clock.Now)
	})

	ctx := WithClientIP(context.Background(), "198.51.100.33")
	_, _ = engine.Authenticate(ctx, Credentials{Username: "alice", Password: "super-secret-password"})

	ev := collectEvents(t, sink, 1)[0]
	if ev.EventType != "login_failure" || ev.Success {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.IP != "198.51.100.33" {
		t.Fatalf("expected IP 198.51.100.33, got %q", ev.IP)
	}
	if ev.Username != "alice" || ev.UserID != 1 {
		t.Fatalf("expected alice/1, got %q/%d", ev.Username, ev.UserID)
	}
	if ev.Error != "invalid_credentials" {
		t.Fatalf("expected stable error code, got %q", ev.Error)
	}
	if ev.Metadata["reason"] != "password_mismatch" {
		t.Fatalf("unexpected metadata %v", ev.Metadata)
	}
	if !ev.Timestamp.Equal(clock.Now()) {
		t.Fatalf("expected engine clock timestamp, got %v", ev.Timestamp)
	}
}

func TestAuditNoSecretsInEvents(t *testing.T) {
	dir := newMockDirectory()
	sink := NewChannelSink(32)
	engine := newTestEngine(t, dir, func(b *Builder) {
		b.WithAuditSink(sink)
	})

	weak, _ := weakHasher(t).Hash("correct-password")
	dir.add(StoredPrincipal{ID: 3, Username: "carol", PasswordHash: weak, Scopes: []string{"me"}})

	grant, err := engine.Authenticate(context.Background(), Credentials{Username: "carol", Password: "correct-password", Scopes: []string{"me"}})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	_, _ = engine.Authorize(context.Background(), grant.AccessToken, "admin")
	_ = engine.ChangePassword(context.Background(), 3, "correct-password", "correct-password")

	// rehash, login success, authorize denied, reuse attempt
	events := collectEvents(t, sink, 4)

	needles := []string{"correct-password", weak, dir.get(3).PasswordHash, grant.AccessToken}
	for _, ev := range events {
		encoded, err := json.Marshal(ev)
		if err != nil {
			t.Fatalf("marshal event: %v", err)
		}
		for _, needle := range needles {
			if strings.Contains(string(encoded), needle) {
				t.Fatalf("sensitive value leaked in %s event", ev.EventType)
			}
		}
	}

	denied := events[2]
	if denied.EventType != "authorize_denied" || denied.Metadata["scope"] != "admin" || denied.TokenID == "" {
		t.Fatalf("unexpected authorize event %+v", denied)
	}
	if events[3].Error != "password_reuse" {
		t.Fatalf("expected password_reuse code, got %q", events[3].Error)
	}
}

func TestAuditDropsAreCounted(t *testing.T) {
	dir := newMockDirectory()
	gate := make(chan struct{})
	sink := gateSink(gate)
	engine := newTestEngine(t, dir, func(b *Builder) {
		b.WithAuditSink(sink)
		b.config.Audit.BufferSize = 1
		b.config.Audit.DropIfFull = true
	})
	defer close(gate)

	for i := 0; i < 5; i++ {
		_, _ = engine.Authenticate(context.Background(), Credentials{Username: "ghost", Password: "x"})
	}
	if engine.AuditDropped() == 0 {
		t.Fatal("expected dropped events with a stalled sink")
	}
}

type gateSink chan struct{}

func (g gateSink) Emit(context.Context, AuditEvent) { <-g }

func TestJSONWriterSink(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), AuditEvent{
		EventType: "login_success",
		UserID:    42,
		IP:        "127.0.0.1",
		Success:   true,
	})

	if !buf.Contains(`"event_type":"login_success"`) || !buf.Contains(`"user_id":42`) {
		t.Fatalf("unexpected JSON line %q", buf.String())
	}
}

func TestLogrusSink(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	sink := NewLogrusSink(logger)
	sink.Emit(context.Background(), AuditEvent{EventType: "authorize_denied", Username: "alice", Error: "insufficient_scope"})

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("expected a log entry")
	}
	if entry.Data["event"] != "authorize_denied" || entry.Data["error"] != "insufficient_scope" {
		t.Fatalf("unexpected fields %v", entry.Data)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Contains(v string) bool {
	return strings.Contains(b.String(), v)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
