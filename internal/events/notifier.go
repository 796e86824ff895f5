package events

import (
	"context"
	"encoding/json"
	"time"

	"alcovian/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type ctxKey struct{}

// WithRequestID attaches the HTTP request id so it travels as a message header.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Envelope is the JSON body of every published event.
type Envelope struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

type EnrollmentCreated struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type UserCreated struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"external_id"`
	Email      string `json:"email"`
}

// Notifier emits an event without holding up the caller.
type Notifier interface {
	Notify(ctx context.Context, routingKey string, data any)
}

var (
	newMessageID = func() string { return uuid.NewString() }
	now          = time.Now
)

// AsyncNotifier hands each event to a worker pool which publishes it with
// its own timeout. Failures are logged and dropped.
type AsyncNotifier struct {
	pool    worker.Pool
	pub     Publisher
	timeout time.Duration
}

func NewAsyncNotifier(pool worker.Pool, pub Publisher, timeout time.Duration) *AsyncNotifier {
	if pub == nil {
		pub = Nop{}
	}
	return &AsyncNotifier{pool: pool, pub: pub, timeout: timeout}
}

func (n *AsyncNotifier) Notify(ctx context.Context, routingKey string, data any) {
	env := Envelope{
		ID:         newMessageID(),
		Type:       routingKey,
		OccurredAt: now().UTC(),
		Data:       data,
	}
	body, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Str("event", routingKey).Msg("encode event")
		return
	}

	requestID := RequestIDFrom(ctx)
	err = n.pool.Submit(func() {
		pctx, cancel := context.WithTimeout(WithRequestID(context.Background(), requestID), n.timeout)
		defer cancel()
		if err := n.pub.Publish(pctx, routingKey, env.ID, body); err != nil {
			log.Warn().Err(err).
				Str("event", routingKey).
				Str("message_id", env.ID).
				Str("request_id", requestID).
				Msg("publish event failed")
		}
	})
	if err != nil {
		log.Warn().Err(err).Str("event", routingKey).Msg("event dropped")
	}
}

// NopNotifier ignores every event.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string, any) {}
