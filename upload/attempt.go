package upload

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/rs/xid"
	"golang.org/x/time/rate"
)

// Attempt is the handle of one Start call. It settles exactly once, even
// when a later attempt superseded it.
type Attempt struct {
	id        uint64
	requestID xid.ID
	cancel    context.CancelFunc
	logger    *log.Logger
	progLog   rate.Sometimes

	once   sync.Once
	done   chan struct{}
	result State
}

func newAttempt(id uint64, cancel context.CancelFunc, logger *log.Logger) *Attempt {
	requestID := xid.New()
	return &Attempt{
		id:        id,
		requestID: requestID,
		cancel:    cancel,
		logger:    logger.With("attempt", id, "request_id", requestID.String()),
		progLog:   rate.Sometimes{First: 1, Interval: time.Second},
		done:      make(chan struct{}),
	}
}

// ID is the attempt sequence number; later attempts have larger IDs.
func (a *Attempt) ID() uint64 {
	return a.id
}

// RequestID is sent to the agent in the X-Request-Id header.
func (a *Attempt) RequestID() string {
	return a.requestID.String()
}

// Done is closed once the attempt has settled.
func (a *Attempt) Done() <-chan struct{} {
	return a.done
}

// Result returns the terminal state of this attempt. It is only valid after
// Done is closed.
func (a *Attempt) Result() State {
	<-a.done
	return a.result
}

// Wait blocks until the attempt settles or ctx ends.
func (a *Attempt) Wait(ctx context.Context) (State, error) {
	select {
	case <-a.done:
		return a.result, nil
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

func (a *Attempt) settle(s State) {
	a.once.Do(func() {
		a.result = s
		close(a.done)
	})
}
