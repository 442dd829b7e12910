package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/bottlerun/exchange-api/internal/core/domain"
	"github.com/bottlerun/exchange-api/internal/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 128
	sendTimeout    = 30 * time.Second
)

// Sender delivers one mail synchronously.
type Sender interface {
	Send(ctx context.Context, mail domain.Mail) error
}

// MailQueue routes outbound mail to a fixed set of workers, sharded by
// recipient so mails to one address leave in the order they were queued.
type MailQueue struct {
	workers []chan domain.Mail
	sender  Sender
	log     zerolog.Logger
}

// NewMailQueue creates a MailQueue with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewMailQueue(numWorkers int, sender Sender, log zerolog.Logger) *MailQueue {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	q := &MailQueue{
		workers: make([]chan domain.Mail, numWorkers),
		sender:  sender,
		log:     log,
	}
	for i := range q.workers {
		q.workers[i] = make(chan domain.Mail, channelBuffer)
	}
	return q
}

// Run drives all workers and blocks until ctx is cancelled and every worker
// has returned.
func (q *MailQueue) Run(ctx context.Context) error {
	done := make(chan struct{}, len(q.workers))
	for i, ch := range q.workers {
		go func(id int, ch <-chan domain.Mail) {
			q.runWorker(ctx, id, ch)
			done <- struct{}{}
		}(i, ch)
	}
	for range q.workers {
		<-done
	}
	return nil
}

// Enqueue hands mail to the worker responsible for its recipient. It never
// blocks: when that worker's buffer is full the mail is dropped and logged.
func (q *MailQueue) Enqueue(mail domain.Mail) {
	idx := q.shardIndex(mail.To)
	select {
	case q.workers[idx] <- mail:
		metrics.MailQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(q.workers[idx])))
	default:
		metrics.MailTotal.WithLabelValues("dropped").Inc()
		q.log.Warn().Str("to", mail.To).Int("worker_id", idx).Msg("mail queue full, dropping mail")
	}
}

// shardIndex maps a recipient deterministically to a worker index.
func (q *MailQueue) shardIndex(recipient string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(recipient))
	return int(h.Sum32() % uint32(len(q.workers)))
}

func (q *MailQueue) runWorker(ctx context.Context, id int, ch <-chan domain.Mail) {
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case mail := <-ch:
			metrics.MailQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			q.deliver(ctx, id, mail)
		}
	}
}

func (q *MailQueue) deliver(ctx context.Context, id int, mail domain.Mail) {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	start := time.Now()
	err := q.sender.Send(ctx, mail)
	metrics.MailDeliveryDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.MailTotal.WithLabelValues("failed").Inc()
		q.log.Error().Err(err).
			Str("to", mail.To).
			Str("subject", mail.Subject).
			Int("worker_id", id).
			Msg("mail delivery failed")
		return
	}
	metrics.MailTotal.WithLabelValues("sent").Inc()
}
