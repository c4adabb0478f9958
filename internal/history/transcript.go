package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	transcriptKeyPrefix = "wa_transcript:"
	transcriptTTL       = 24 * time.Hour
)

// TranscriptMessage is one dashboard-visible transcript entry.
type TranscriptMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "user" or "assistant"
	From      string    `json:"from"`
	To        string    `json:"to"`
	Body      string    `json:"body"`
	HasMedia  bool      `json:"has_media,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TranscriptStore persists conversation transcripts in Redis for the
// dashboard. A nil store or nil client degrades to a no-op.
type TranscriptStore struct {
	redis       *redis.Client
	tracer      trace.Tracer
	maxMessages int64
}

func NewTranscriptStore(redisClient *redis.Client) *TranscriptStore {
	if redisClient == nil {
		return nil
	}
	return &TranscriptStore{
		redis:       redisClient,
		tracer:      otel.Tracer("wabot.internal.history.transcript"),
		maxMessages: 250,
	}
}

func (s *TranscriptStore) Append(ctx context.Context, conversationID string, msg TranscriptMessage) error {
	if s == nil || s.redis == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if conversationID == "" {
		return errors.New("history: transcript conversationID required")
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("history: marshal transcript message: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "history.transcript.append")
	defer span.End()

	key := transcriptKey(conversationID)
	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, transcriptTTL)
	if s.maxMessages > 0 {
		pipe.LTrim(ctx, key, -s.maxMessages, -1)
	}
	_, err = pipe.Exec(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("history: append transcript message: %w", err)
	}
	return nil
}

func (s *TranscriptStore) List(ctx context.Context, conversationID string, limit int64) ([]TranscriptMessage, error) {
	if s == nil || s.redis == nil {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if conversationID == "" {
		return nil, errors.New("history: transcript conversationID required")
	}

	ctx, span := s.tracer.Start(ctx, "history.transcript.list")
	defer span.End()

	start := int64(0)
	if limit > 0 {
		start = -limit
	}

	raw, err := s.redis.LRange(ctx, transcriptKey(conversationID), start, -1).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("history: list transcript: %w", err)
	}

	out := make([]TranscriptMessage, 0, len(raw))
	for _, item := range raw {
		var msg TranscriptMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			continue // skip corrupt entries rather than failing the whole read
		}
		out = append(out, msg)
	}
	return out, nil
}

func transcriptKey(conversationID string) string {
	return transcriptKeyPrefix + conversationID
}
