package mailer

import (
	"context"
	"time"

	"github.com/stafftrack/attendance/internal/security"
	log "github.com/sirupsen/logrus"
)

const (
	queueCapacity = 256
	sendAttempts  = 3
	retryDelay    = 5 * time.Second
	sendTimeout   = 30 * time.Second
)

type queuedMessage struct {
	to      string
	subject string
	body    string
}

// Queue delivers messages asynchronously with bounded retries.
// A failed delivery is logged and dropped after the retry budget; one bad
// recipient never blocks the rest of a batch.
type Queue struct {
	mailer Mailer
	ch     chan queuedMessage
}

// NewQueue constructs a Queue in front of the given mailer.
func NewQueue(m Mailer) *Queue {
	return &Queue{
		mailer: m,
		ch:     make(chan queuedMessage, queueCapacity),
	}
}

// Start runs the delivery loop until the context is cancelled.
func (q *Queue) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-q.ch:
				q.deliver(ctx, msg)
			}
		}
	}()
}

// Enqueue queues one message. It reports false when the queue is full.
func (q *Queue) Enqueue(to, subject, body string) bool {
	select {
	case q.ch <- queuedMessage{to: to, subject: subject, body: body}:
		return true
	default:
		log.WithField("to", security.MaskEmail(to)).Warn("mailer: queue full, dropping message")
		return false
	}
}

func (q *Queue) deliver(ctx context.Context, msg queuedMessage) {
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		errSend := q.mailer.Send(sendCtx, msg.to, msg.subject, msg.body)
		cancel()
		if errSend == nil {
			return
		}
		log.WithError(errSend).WithFields(log.Fields{
			"to":      security.MaskEmail(msg.to),
			"attempt": attempt,
		}).Warn("mailer: delivery failed")
		if attempt < sendAttempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryDelay):
			}
		}
	}
}
