package chat

import (
	"context"
	"log"
	"time"

	"github.com/good-yellow-bee/devroom/internal/metrics"
	"github.com/good-yellow-bee/devroom/internal/models"
)

// MessageLog is the durable per-project message log.
type MessageLog interface {
	Append(ctx context.Context, msg *models.Message) error
}

// Recorder appends broadcast messages to the message log.
// Failures are logged and counted but never retried.
type Recorder struct {
	log     MessageLog
	timeout time.Duration
}

// NewRecorder creates a recorder bounding each append by timeout.
func NewRecorder(messages MessageLog, timeout time.Duration) *Recorder {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Recorder{log: messages, timeout: timeout}
}

// Record appends msg. The write is not cancelled when ctx is, only bounded by the timeout.
func (r *Recorder) Record(ctx context.Context, msg *models.Message) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if err := r.log.Append(ctx, msg); err != nil {
		metrics.PersistFailures.Inc()
		log.Printf("chat persist failed: project %s sender %s: %v", msg.ProjectID, msg.Sender.ID, err)
		return err
	}
	return nil
}
