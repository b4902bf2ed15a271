package webhook

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

const (
	// DefaultWorkers bounds concurrent deliveries so a broadcast cannot
	// overwhelm the Telegram API's own rate limits.
	DefaultWorkers = 8
	// DefaultDeliveryTimeout isolates a slow or hanging delivery so it
	// cannot stall the remaining fan-out.
	DefaultDeliveryTimeout = 10 * time.Second
)

// Sender is the messaging sink the dispatcher delivers through.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text, parseMode string) error
}

// Delivery is one rendered message addressed to one recipient.
type Delivery struct {
	ChatID        int64
	WatchedRepoID uint
	Message       Message
}

// Failure records a single failed delivery. Failures never abort the
// remaining fan-out and never surface to the webhook caller.
type Failure struct {
	ChatID        int64
	WatchedRepoID uint
	Err           error
}

// Report summarizes one fan-out.
type Report struct {
	Attempted int
	Delivered int
	Failures  []Failure
}

// Dispatcher fans rendered messages out to recipients through a bounded
// worker pool with a per-delivery timeout.
type Dispatcher struct {
	sender  Sender
	workers int
	timeout time.Duration
}

// NewDispatcher creates a dispatcher delivering through the given sender.
func NewDispatcher(sender Sender) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		workers: DefaultWorkers,
		timeout: DefaultDeliveryTimeout,
	}
}

// NewDispatcherWithOptions creates a dispatcher with explicit pool size
// and per-delivery timeout. Values <= 0 fall back to the defaults.
func NewDispatcherWithOptions(sender Sender, workers int, timeout time.Duration) *Dispatcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}
	return &Dispatcher{sender: sender, workers: workers, timeout: timeout}
}

// Dispatch attempts every delivery independently. Each delivery gets its
// own timeout-bounded context; a failure is recorded and logged but never
// prevents the remaining attempts. Ordering across recipients is not
// guaranteed.
func (d *Dispatcher) Dispatch(ctx context.Context, deliveries []Delivery) Report {
	report := Report{Attempted: len(deliveries)}
	if len(deliveries) == 0 {
		return report
	}

	var (
		wg      sync.WaitGroup
		sem     = make(chan struct{}, d.workers)
		results = make([]error, len(deliveries))
	)

	for i, delivery := range deliveries {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, dv Delivery) {
			defer wg.Done()
			defer func() { <-sem }()

			sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()

			results[i] = d.sender.SendMessage(sendCtx, dv.ChatID, dv.Message.Text, dv.Message.ParseMode)
		}(i, delivery)
	}
	wg.Wait()

	for i, err := range results {
		if err != nil {
			dv := deliveries[i]
			log.Errorf("[Dispatch] delivery to chat %d failed: %v", dv.ChatID, err)
			report.Failures = append(report.Failures, Failure{ChatID: dv.ChatID, WatchedRepoID: dv.WatchedRepoID, Err: err})
			continue
		}
		report.Delivered++
	}
	return report
}
