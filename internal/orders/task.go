package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// TypeOrderPlaced is the asynq task type carrying a ledger entry.
const TypeOrderPlaced = "order:placed"

// NewOrderPlacedTask builds the task for e. The task id is derived from the
// order id so a retried submission enqueues at most one task.
func NewOrderPlacedTask(e Entry) (*asynq.Task, error) {
	if e.OrderID == "" {
		return nil, errors.New("order placed task: order id is required")
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("order placed task: %w", err)
	}
	return asynq.NewTask(TypeOrderPlaced, payload,
		asynq.TaskID(taskID(e.OrderID)),
		asynq.MaxRetry(10),
		asynq.Timeout(30*time.Second),
	), nil
}

func taskID(orderID string) string {
	return "order-placed-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(orderID)).String()
}

// Enqueuer is the subset of *asynq.Client used by AsyncRecorder.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsyncRecorder hands entries to the worker instead of writing them inline.
type AsyncRecorder struct {
	Client Enqueuer
	Queue  string
}

// Record implements Recorder. A duplicate task id means the entry is already
// queued and is not an error.
func (a AsyncRecorder) Record(ctx context.Context, e Entry) error {
	if a.Client == nil {
		return errors.New("order ledger queue not configured")
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	task, err := NewOrderPlacedTask(e)
	if err != nil {
		return err
	}
	var opts []asynq.Option
	if a.Queue != "" {
		opts = append(opts, asynq.Queue(a.Queue))
	}
	if _, err := a.Client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return fmt.Errorf("enqueue %s: %w", TypeOrderPlaced, err)
	}
	return nil
}

// PlacedHandler writes queued entries to the ledger.
type PlacedHandler struct {
	Store  Recorder
	Logger zerolog.Logger
}

// ProcessTask implements asynq.Handler. Malformed payloads are not retried.
func (h PlacedHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var e Entry
	if err := json.Unmarshal(t.Payload(), &e); err != nil {
		return fmt.Errorf("decode %s: %v: %w", TypeOrderPlaced, err, asynq.SkipRetry)
	}
	if err := h.Store.Record(ctx, e); err != nil {
		h.Logger.Warn().Err(err).Str("order_id", e.OrderID).Msg("ledger write failed")
		return err
	}
	h.Logger.Info().Str("order_id", e.OrderID).Int64("points_pending", e.PointsPending).Msg("order recorded")
	return nil
}
