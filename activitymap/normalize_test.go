package activitymap_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	auth "github.com/goliatone/go-agent-auth"
	"github.com/goliatone/go-agent-auth/activitymap"
)

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	event := auth.ActivityEvent{
		EventType:  auth.ActivityEventLoginSuccess,
		UserID:     "7",
		Metadata:   map[string]any{"ip": "10.0.0.1"},
		OccurredAt: ts,
	}

	out := activitymap.Normalize(event)

	if out.ActorID != "7" {
		t.Fatalf("expected actor_id 7, got %q", out.ActorID)
	}
	if out.Verb != string(auth.ActivityEventLoginSuccess) {
		t.Fatalf("expected verb %q, got %q", auth.ActivityEventLoginSuccess, out.Verb)
	}
	if out.ObjectType != "user" || out.ObjectID != "7" {
		t.Fatalf("expected object user/7, got %q/%q", out.ObjectType, out.ObjectID)
	}
	if out.Channel != "auth" {
		t.Fatalf("expected channel auth, got %q", out.Channel)
	}
	if !out.OccurredAt.Equal(ts) {
		t.Fatalf("expected occurred_at %v, got %v", ts, out.OccurredAt)
	}
	if out.Metadata["ip"] != "10.0.0.1" {
		t.Fatalf("expected metadata ip, got %#v", out.Metadata["ip"])
	}
	if out.Metadata[activitymap.MetadataKeyOutcome] != "success" {
		t.Fatalf("expected outcome success, got %#v", out.Metadata[activitymap.MetadataKeyOutcome])
	}
}

func TestNormalizeAnonymousFailure(t *testing.T) {
	t.Parallel()

	out := activitymap.Normalize(auth.ActivityEvent{
		EventType: auth.ActivityEventLoginFailure,
	}, activitymap.WithActorFallback("guest"), activitymap.WithDefaultChannel("api"))

	if out.ActorID != "guest" {
		t.Fatalf("expected fallback actor, got %q", out.ActorID)
	}
	if out.ObjectType != "" || out.ObjectID != "" {
		t.Fatalf("expected no object, got %q/%q", out.ObjectType, out.ObjectID)
	}
	if out.Channel != "api" {
		t.Fatalf("expected channel api, got %q", out.Channel)
	}
	if out.OccurredAt.IsZero() {
		t.Fatal("expected occurred_at to default to now")
	}
	if out.Metadata[activitymap.MetadataKeyOutcome] != "failure" {
		t.Fatalf("expected outcome failure, got %#v", out.Metadata)
	}
}

func TestNormalizeLogoutHasNoOutcome(t *testing.T) {
	t.Parallel()

	out := activitymap.Normalize(auth.ActivityEvent{EventType: auth.ActivityEventLogout, UserID: "1"})
	if out.Metadata != nil {
		t.Fatalf("expected nil metadata, got %#v", out.Metadata)
	}
}

func TestLogSinkLevels(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	sink := activitymap.NewLogSink(auth.NewZapLogger(zap.New(core)))
	ctx := context.Background()

	if err := sink.Record(ctx, auth.ActivityEvent{EventType: auth.ActivityEventRegisterSuccess, UserID: "1"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := sink.Record(ctx, auth.ActivityEvent{EventType: auth.ActivityEventIdentifyFailure}); err != nil {
		t.Fatalf("record: %v", err)
	}

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel {
		t.Fatalf("expected info for success, got %v", entries[0].Level)
	}
	if entries[1].Level != zapcore.WarnLevel {
		t.Fatalf("expected warn for failure, got %v", entries[1].Level)
	}
	if got := entries[1].ContextMap()["actor_id"]; got != "anonymous" {
		t.Fatalf("expected anonymous actor, got %#v", got)
	}
}
