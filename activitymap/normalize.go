package activitymap

import (
	"context"
	"strings"
	"time"

	auth "github.com/goliatone/go-agent-auth"
)

const (
	defaultChannel    = "auth"
	defaultObjectType = "user"
	defaultActorID    = "anonymous"

	// MetadataKeyOutcome is success or failure, derived from the event verb
	MetadataKeyOutcome = "outcome"
)

// Normalized is a transport agnostic activity record
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Fields flattens the record into logger key/value pairs
func (n Normalized) Fields() []any {
	fields := []any{
		"actor_id", n.ActorID,
		"verb", n.Verb,
		"channel", n.Channel,
		"occurred_at", n.OccurredAt.Format(time.RFC3339),
	}
	if n.ObjectType != "" {
		fields = append(fields, "object_type", n.ObjectType, "object_id", n.ObjectID)
	}
	for key, value := range n.Metadata {
		fields = append(fields, key, value)
	}
	return fields
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel       string
	objectType    string
	actorFallback string
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
	}
}

// WithDefaultChannel sets the channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithDefaultObjectType sets the object type for normalized records.
func WithDefaultObjectType(objectType string) Option {
	return func(opts *normalizeOptions) {
		opts.objectType = strings.TrimSpace(objectType)
	}
}

// WithActorFallback sets the actor id used when the event has no user.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

// Normalize converts an auth.ActivityEvent into a generic normalized shape.
// Events without a user, failed logins for example, are attributed to the
// actor fallback and carry no object.
func Normalize(event auth.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	userID := strings.TrimSpace(event.UserID)

	out := Normalized{
		ActorID:    firstNonEmpty(userID, options.actorFallback),
		Verb:       string(event.EventType),
		Channel:    options.channel,
		Metadata:   normalizeMetadata(event),
		OccurredAt: event.OccurredAt.UTC(),
	}

	if userID != "" {
		out.ObjectType = options.objectType
		out.ObjectID = userID
	}

	if out.OccurredAt.IsZero() {
		out.OccurredAt = time.Now().UTC()
	}

	return out
}

func normalizeMetadata(event auth.ActivityEvent) map[string]any {
	metadata := make(map[string]any, len(event.Metadata)+1)
	for key, value := range event.Metadata {
		metadata[key] = value
	}

	switch {
	case strings.HasSuffix(string(event.EventType), ".failure"):
		metadata[MetadataKeyOutcome] = "failure"
	case strings.HasSuffix(string(event.EventType), ".success"):
		metadata[MetadataKeyOutcome] = "success"
	}

	if len(metadata) == 0 {
		return nil
	}
	return metadata
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

// LogSink is an auth.ActivitySink that writes normalized records to a logger
type LogSink struct {
	logger  auth.Logger
	options []Option
}

var _ auth.ActivitySink = (*LogSink)(nil)

func NewLogSink(logger auth.Logger, opts ...Option) *LogSink {
	if logger == nil {
		logger = auth.NopLogger()
	}
	return &LogSink{logger: logger, options: opts}
}

// Record implements auth.ActivitySink. Failures log at warn level.
func (s *LogSink) Record(_ context.Context, event auth.ActivityEvent) error {
	record := Normalize(event, s.options...)

	if record.Metadata[MetadataKeyOutcome] == "failure" {
		s.logger.Warn("auth activity", record.Fields()...)
		return nil
	}

	s.logger.Info("auth activity", record.Fields()...)
	return nil
}
