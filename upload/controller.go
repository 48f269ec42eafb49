// Package upload sends one selected file to the local agent and tracks the
// attempt through a small state machine:
//
//	Idle/Ready -> InProgress(percent) -> Succeeded(filePath) | Failed(cause)
//
// Only the most recent attempt may change the observable state. Events that
// belong to an older attempt are dropped.
package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/krau/fileopener/common/utils/ioutil"
	"github.com/krau/fileopener/selection"
)

const (
	DefaultEndpoint = "http://localhost:8080/upload"

	// maxResponseSize bounds how much of the agent's reply is read.
	maxResponseSize = 1 << 20
)

type Option func(*Controller)

// WithEndpoint overrides DefaultEndpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Controller) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithHTTPClient sets the client used for uploads. The default client has
// no timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Controller) {
		if client != nil {
			c.client = client
		}
	}
}

// WithObserver adds fn to the functions called with every state the
// controller moves to, in order. Observers run while the controller is
// locked: they may read State but must not call Start or Prepare.
func WithObserver(fn func(State)) Option {
	return func(c *Controller) {
		c.observers = append(c.observers, fn)
	}
}

// Controller owns the upload state and the single authoritative attempt.
type Controller struct {
	endpoint  string
	client    *http.Client
	observers []func(State)

	mu      sync.Mutex
	seq     uint64
	current *Attempt
	state   atomic.Pointer[State]
}

func NewController(opts ...Option) *Controller {
	c := &Controller{
		endpoint: DefaultEndpoint,
		client:   &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	idle := idleState(0)
	c.state.Store(&idle)
	return c
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	return *c.state.Load()
}

func (c *Controller) Endpoint() string {
	return c.endpoint
}

// Prepare resets the controller for a newly selected file: Ready when f is
// set, Idle otherwise. Any in-flight attempt is superseded.
func (c *Controller) Prepare(f *selection.File) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.supersedeLocked()
	c.seq++
	if f == nil {
		c.storeLocked(idleState(c.seq))
		return
	}
	c.storeLocked(readyState(c.seq))
}

// Start uploads f. It returns ErrNoFileSelected for a nil file and an
// ErrFileUnreadable error when the content can not be opened; in both cases
// no request is sent and the state is unchanged.
//
// Otherwise the state moves to InProgress(0) before the request is sent and
// the returned Attempt settles once the agent answers, the transport fails,
// ctx ends, or a later Start or Prepare supersedes it.
func (c *Controller) Start(ctx context.Context, f *selection.File) (*Attempt, error) {
	if f == nil {
		return nil, ErrNoFileSelected
	}
	body, err := newFormBody(f)
	if err != nil {
		return nil, &Error{Cause: CauseFileUnreadable, Err: err}
	}

	logger := log.FromContext(ctx).WithPrefix("upload")
	reqCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.supersedeLocked()
	c.seq++
	att := newAttempt(c.seq, cancel, logger)
	c.current = att
	c.storeLocked(inProgressState(att.id, 0))
	c.mu.Unlock()

	att.logger.Debug("Starting upload", "file", f.Name, "size", f.Size, "endpoint", c.endpoint)
	go c.run(reqCtx, att, body)
	return att, nil
}

func (c *Controller) run(ctx context.Context, att *Attempt, body *formBody) {
	defer att.cancel()
	defer body.Close()

	final := c.send(ctx, att, body)
	// logged before the handle settles so waiters see the complete output
	switch {
	case !c.settle(att, final):
		att.logger.Debug("Dropped result of superseded attempt", "state", final)
	case final.Phase() == PhaseSucceeded:
		att.logger.Info("Upload succeeded", "path", final.FilePath())
	default:
		att.logger.Warn("Upload failed", "error", final.Err())
	}
	att.settle(final)
}

func (c *Controller) send(ctx context.Context, att *Attempt, body *formBody) State {
	reader := ioutil.NewProgressReader(body, body.size, func(read, total int64) {
		c.progress(att, read, total)
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, reader)
	if err != nil {
		return failedState(att.id, networkError(err))
	}
	// -1 sends the body chunked
	req.ContentLength = body.size
	req.Header.Set("Content-Type", body.contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", att.RequestID())

	resp, err := c.client.Do(req)
	if err != nil {
		return failedState(att.id, transportError(ctx, err))
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var message string
		if r, err := ParseResponse(data); err == nil {
			message = r.ErrorMessage
		}
		return failedState(att.id, serverError(resp.StatusCode, message))
	}
	if readErr != nil {
		return failedState(att.id, transportError(ctx, readErr))
	}

	r, err := ParseResponse(data)
	if err != nil {
		return failedState(att.id, parseError(err))
	}
	if !r.Success {
		return failedState(att.id, applicationError(r.ErrorMessage))
	}
	return succeededState(att.id, r.FilePath)
}

// transportError tells an abort (ctx cancelled by the caller or by a
// superseding attempt) apart from a network failure.
func transportError(ctx context.Context, err error) *Error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return abortedError(err)
	}
	return networkError(err)
}

func (c *Controller) progress(att *Attempt, read, total int64) {
	percent, ok := percentOf(read, total)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if att.id != c.seq {
		return
	}
	cur := c.state.Load()
	if cur.Phase() != PhaseInProgress || percent <= cur.Percent() {
		return
	}
	c.storeLocked(inProgressState(att.id, percent))
	att.progLog.Do(func() {
		att.logger.Debug("Upload progress", "percent", percent, "sent", read, "total", total)
	})
}

// settle applies the terminal state of att if att is still the
// authoritative attempt. It reports whether the state was applied.
func (c *Controller) settle(att *Attempt, s State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if att.id != c.seq || c.state.Load().Phase() != PhaseInProgress {
		return false
	}
	c.storeLocked(s)
	c.current = nil
	return true
}

// supersedeLocked aborts the in-flight attempt, if any. Its own goroutine
// settles its handle; the sequence bump done by the caller makes sure the
// result never reaches the controller state.
func (c *Controller) supersedeLocked() {
	if c.current == nil {
		return
	}
	c.current.logger.Debug("Superseding attempt")
	c.current.cancel()
	c.current = nil
}

func (c *Controller) storeLocked(s State) {
	c.state.Store(&s)
	for _, fn := range c.observers {
		fn(s)
	}
}
