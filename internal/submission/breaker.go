package submission

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrCircuitOpen is returned while the base stage is considered down
var ErrCircuitOpen = errors.New("base stage circuit open")

// rateWindow is how many calls must be seen before the failure rate counts
const rateWindow = 20

// Breaker stops calling the base stage after repeated server-side failures
// and lets one call through again once resetTimeout has passed
type Breaker struct {
	threshold    int
	resetTimeout time.Duration
	log          *logrus.Logger
	now          func() time.Time

	mu                  sync.Mutex
	failures            int
	total               int
	consecutiveFailures int
	isOpen              bool
	lastFailureTime     time.Time
}

// NewBreaker opens after threshold consecutive failures, or when 40% of at
// least 20 calls failed
func NewBreaker(threshold int, resetTimeout time.Duration, log *logrus.Logger) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Breaker{
		threshold:    threshold,
		resetTimeout: resetTimeout,
		log:          log,
		now:          time.Now,
	}
}

// Allow reports whether a call may proceed
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.isOpen {
		return true
	}
	if b.now().Sub(b.lastFailureTime) > b.resetTimeout {
		b.log.WithField("reset_timeout", b.resetTimeout.String()).Info("Base stage circuit half-open")
		b.isOpen = false
		b.failures = 0
		b.total = 0
		b.consecutiveFailures = 0
		return true
	}
	return false
}

// RecordSuccess records a call that reached the base stage and got a
// non-5xx answer
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.total++
	b.consecutiveFailures = 0
}

// RecordFailure records a transport error (status 0) or a 5xx answer
func (b *Breaker) RecordFailure(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.consecutiveFailures++
	b.total++
	b.lastFailureTime = b.now()

	if b.isOpen {
		return
	}
	if b.consecutiveFailures >= b.threshold {
		b.isOpen = true
		b.log.WithFields(logrus.Fields{
			"consecutive": b.consecutiveFailures,
			"status":      status,
		}).Warn("Base stage circuit open")
		return
	}
	if b.total >= rateWindow && float64(b.failures)/float64(b.total) >= 0.40 {
		b.isOpen = true
		b.log.WithFields(logrus.Fields{
			"failures": b.failures,
			"total":    b.total,
		}).Warn("Base stage circuit open on failure rate")
	}
}

// Status returns whether the circuit is open and the failure counters
func (b *Breaker) Status() (isOpen bool, failures int, total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.isOpen, b.failures, b.total
}
