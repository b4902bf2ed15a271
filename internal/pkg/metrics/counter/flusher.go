package counter

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// Flusher periodically drains the Redis counters into the database.
type Flusher struct {
	interval time.Duration
	ticker   *time.Ticker
	stopCh   chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

// NewFlusher creates a flusher with the given interval.
func NewFlusher(interval time.Duration) *Flusher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Flusher{interval: interval}
}

// Start begins the background flush loop. Safe to call more than once.
func (f *Flusher) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.running {
		return
	}
	f.stopCh = make(chan struct{})
	f.ticker = time.NewTicker(f.interval)
	f.running = true

	f.wg.Add(1)
	go f.loop()
	log.Info("[Counter Flusher] Started")
}

// Stop flushes one last time and stops the loop.
func (f *Flusher) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.running {
		return
	}
	f.ticker.Stop()
	close(f.stopCh)
	f.running = false
	f.wg.Wait()

	if err := FlushAll(); err != nil {
		log.Errorf("[Counter Flusher] Final flush failed: %v", err)
	}
	log.Info("[Counter Flusher] Stopped")
}

func (f *Flusher) loop() {
	defer f.wg.Done()
	for {
		select {
		case <-f.stopCh:
			return
		case <-f.ticker.C:
			if err := FlushAll(); err != nil {
				log.Errorf("[Counter Flusher] Flush failed: %v", err)
			}
		}
	}
}
