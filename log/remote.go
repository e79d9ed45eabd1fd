package log

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/carlmjohnson/requests"
)

const (
	// how long to wait before we resume sending to the server
	// after a failure. doesn't affect logging to files
	throttleTimeout = time.Second * 15

	mimePlainText = "text/plain; charset=utf-8"
)

type shipment struct {
	path string
	mime string
	d    []byte
}

// shipper POSTs log data to a remote server from a background goroutine
type shipper struct {
	baseURL string
	apiKey  string
	ch      chan shipment
	wg      sync.WaitGroup

	mu            sync.Mutex
	throttleUntil time.Time
}

func newShipper(baseURL string, apiKey string) *shipper {
	s := &shipper{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		ch:      make(chan shipment, 1000),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *shipper) run() {
	defer s.wg.Done()
	for op := range s.ch {
		r := requests.
			URL(s.baseURL + op.path).
			BodyBytes(op.d).
			ContentType(op.mime)
		if s.apiKey != "" {
			r = r.Header("X-Api-Key", s.apiKey)
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		err := r.Fetch(ctx)
		cancel()
		if err != nil {
			// can't use Logf, it would ship the message
			fmt.Fprintf(os.Stderr, "log: POST %s failed: %v, will throttle for %s\n", op.path, err, throttleTimeout)
			s.mu.Lock()
			s.throttleUntil = time.Now().Add(throttleTimeout)
			s.mu.Unlock()
		}
	}
}

func (s *shipper) throttled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Now().Before(s.throttleUntil)
}

// send queues d. It's dropped if we're throttling or the queue is full.
// Safe to call on nil receiver.
func (s *shipper) send(path string, d []byte, mime string) {
	if s == nil || s.throttled() {
		return
	}
	select {
	case s.ch <- shipment{path: path, mime: mime, d: d}:
	default:
	}
}

// stop waits until queued data is sent
func (s *shipper) stop() {
	if s == nil {
		return
	}
	close(s.ch)
	s.wg.Wait()
}
