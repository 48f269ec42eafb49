package upload_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/krau/fileopener/selection"
	"github.com/krau/fileopener/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	states []upload.State
}

func (r *recorder) observe(s upload.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) snapshot() []upload.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]upload.State(nil), r.states...)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func memFile(name, content string) *selection.File {
	return selection.FromReader(name, strings.NewReader(content), int64(len(content)))
}

func jsonServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func settle(t *testing.T, att *upload.Attempt) upload.State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := att.Wait(ctx)
	require.NoError(t, err, "attempt did not settle")
	return s
}

func TestStartSucceeded(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"success":true,"filePath":"/tmp/x"}`)
	c := upload.NewController(upload.WithEndpoint(srv.URL))

	att, err := c.Start(context.Background(), memFile("x.txt", "hello"))
	require.NoError(t, err)
	res := settle(t, att)

	assert.Equal(t, upload.PhaseSucceeded, res.Phase())
	assert.Equal(t, "/tmp/x", res.FilePath())
	assert.Nil(t, res.Err())
	assert.Equal(t, res, c.State())
}

func TestStartSettlement(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		cause   upload.Cause
		message string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, cause: upload.CauseServer},
		{name: "server error with json", status: http.StatusBadRequest, body: `{"success":false,"errorMessage":"File type not allowed"}`, cause: upload.CauseServer, message: "File type not allowed"},
		{name: "non json body", status: http.StatusOK, body: `<html>ok</html>`, cause: upload.CauseParse},
		{name: "missing success", status: http.StatusOK, body: `{"filePath":"/tmp/x"}`, cause: upload.CauseParse},
		{name: "success not boolean", status: http.StatusOK, body: `{"success":"yes"}`, cause: upload.CauseParse},
		{name: "application failure", status: http.StatusOK, body: `{"success":false,"errorMessage":"disk full"}`, cause: upload.CauseApplication, message: "disk full"},
		{name: "application failure default message", status: http.StatusOK, body: `{"success":false}`, cause: upload.CauseApplication, message: upload.DefaultApplicationMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := jsonServer(t, tt.status, tt.body)
			c := upload.NewController(upload.WithEndpoint(srv.URL))

			att, err := c.Start(context.Background(), memFile("a.txt", "data"))
			require.NoError(t, err)
			res := settle(t, att)

			require.Equal(t, upload.PhaseFailed, res.Phase())
			require.NotNil(t, res.Err())
			assert.Equal(t, tt.cause, res.Err().Cause)
			assert.Equal(t, tt.message, res.Err().Message)
			assert.Empty(t, res.FilePath())
			if tt.cause == upload.CauseServer {
				assert.Equal(t, tt.status, res.Err().Status)
				assert.ErrorIs(t, res.Err(), upload.ErrServer)
				assert.ErrorIs(t, res.Err(), &upload.Error{Cause: upload.CauseServer, Status: tt.status})
			}
		})
	}
}

func TestStartServerErrorMapsStatus(t *testing.T) {
	srv := jsonServer(t, http.StatusInternalServerError, `{"success":true,"filePath":"/tmp/x"}`)
	c := upload.NewController(upload.WithEndpoint(srv.URL))

	att, err := c.Start(context.Background(), memFile("a.txt", "data"))
	require.NoError(t, err)
	res := settle(t, att)

	require.Equal(t, upload.PhaseFailed, res.Phase())
	assert.Equal(t, 500, res.Err().Status)
	assert.Equal(t, "server error: 500", res.Err().Error())
}

func TestStartNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	c := upload.NewController(upload.WithEndpoint(endpoint))
	att, err := c.Start(context.Background(), memFile("a.txt", "data"))
	require.NoError(t, err)
	res := settle(t, att)

	require.Equal(t, upload.PhaseFailed, res.Phase())
	assert.ErrorIs(t, res.Err(), upload.ErrNetwork)
	assert.NotNil(t, errors.Unwrap(res.Err()), "transport error is kept")
}

func TestStartAbortedByContext(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// the server only notices the client going away once the body is drained
		_, _ = io.Copy(io.Discard, r.Body)
		close(arrived)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c := upload.NewController(upload.WithEndpoint(srv.URL))
	ctx, cancel := context.WithCancel(context.Background())
	att, err := c.Start(ctx, memFile("a.txt", "data"))
	require.NoError(t, err)

	<-arrived
	assert.Equal(t, upload.PhaseInProgress, c.State().Phase())
	cancel()
	res := settle(t, att)

	require.Equal(t, upload.PhaseFailed, res.Phase())
	assert.ErrorIs(t, res.Err(), upload.ErrAborted)
	assert.Equal(t, res, c.State())
}

func TestStartWithoutFile(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	t.Cleanup(srv.Close)

	var rec recorder
	c := upload.NewController(upload.WithEndpoint(srv.URL), upload.WithObserver(rec.observe))
	holder := selection.NewHolder()

	att, err := c.Start(context.Background(), holder.Current())
	assert.Nil(t, att)
	require.ErrorIs(t, err, upload.ErrNoFileSelected)
	assert.Equal(t, "no file selected", err.Error())
	assert.Equal(t, upload.PhaseIdle, c.State().Phase())
	assert.Empty(t, rec.snapshot())
	assert.Zero(t, hits.Load())
}

func TestStartUnreadableFile(t *testing.T) {
	c := upload.NewController(upload.WithEndpoint("http://127.0.0.1:0/upload"))
	att, err := c.Start(context.Background(), &selection.File{Name: "ghost"})
	assert.Nil(t, att)
	require.ErrorIs(t, err, upload.ErrFileUnreadable)
	assert.Equal(t, upload.PhaseIdle, c.State().Phase())
}

func TestStartSendsMultipartForm(t *testing.T) {
	type received struct {
		name, content, openNow, contentType, requestID string
		length                                         int64
	}
	got := make(chan received, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		file, header, err := r.FormFile(upload.FileField)
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		b, _ := io.ReadAll(file)
		got <- received{
			name:        header.Filename,
			content:     string(b),
			openNow:     r.FormValue(upload.OpenNowField),
			contentType: header.Header.Get("Content-Type"),
			requestID:   r.Header.Get("X-Request-Id"),
			length:      r.ContentLength,
		}
		_, _ = w.Write([]byte(`{"success":true,"filePath":"/tmp/report.txt"}`))
	}))
	t.Cleanup(srv.Close)

	c := upload.NewController(upload.WithEndpoint(srv.URL))
	att, err := c.Start(context.Background(), memFile(`re"port.txt`, "plain text content"))
	require.NoError(t, err)
	res := settle(t, att)
	require.Equal(t, upload.PhaseSucceeded, res.Phase())

	r := <-got
	assert.Equal(t, `re"port.txt`, r.name)
	assert.Equal(t, "plain text content", r.content)
	assert.Equal(t, "true", r.openNow)
	assert.True(t, strings.HasPrefix(r.contentType, "text/plain"), r.contentType)
	assert.Equal(t, att.RequestID(), r.requestID)
	assert.Greater(t, r.length, int64(len("plain text content")))
}

func TestProgressIsMonotonic(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"success":true,"filePath":"/tmp/big.bin"}`)
	var rec recorder
	c := upload.NewController(upload.WithEndpoint(srv.URL), upload.WithObserver(rec.observe))

	content := bytes.Repeat([]byte{0xAB}, 4<<20)
	f := selection.FromReader("big.bin", bytes.NewReader(content), int64(len(content)))
	att, err := c.Start(context.Background(), f)
	require.NoError(t, err)
	res := settle(t, att)
	require.Equal(t, upload.PhaseSucceeded, res.Phase())

	states := rec.snapshot()
	require.GreaterOrEqual(t, len(states), 2)
	assert.Equal(t, upload.PhaseInProgress, states[0].Phase())
	assert.Equal(t, 0, states[0].Percent())

	last := -1
	for _, s := range states[:len(states)-1] {
		require.Equal(t, upload.PhaseInProgress, s.Phase())
		require.GreaterOrEqual(t, s.Percent(), last)
		require.LessOrEqual(t, s.Percent(), 100)
		last = s.Percent()
	}
	assert.Greater(t, last, 0, "expected at least one progress update")
	assert.Equal(t, res, states[len(states)-1])
}

func TestUnknownSizeReportsNoProgress(t *testing.T) {
	var chunked atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chunked.Store(r.ContentLength == -1)
		_, _ = io.Copy(io.Discard, r.Body)
		_, _ = w.Write([]byte(`{"success":true,"filePath":"/tmp/stdin"}`))
	}))
	t.Cleanup(srv.Close)

	var rec recorder
	c := upload.NewController(upload.WithEndpoint(srv.URL), upload.WithObserver(rec.observe))
	f := selection.FromReader("stdin", bytes.NewReader(bytes.Repeat([]byte("a"), 1<<20)), selection.UnknownSize)
	att, err := c.Start(context.Background(), f)
	require.NoError(t, err)
	res := settle(t, att)

	require.Equal(t, upload.PhaseSucceeded, res.Phase())
	assert.True(t, chunked.Load())
	states := rec.snapshot()
	require.Len(t, states, 2)
	assert.Equal(t, 0, states[0].Percent())
	assert.Equal(t, upload.PhaseSucceeded, states[1].Phase())
}

func TestLatestStartWins(t *testing.T) {
	firstArrived := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, header, err := r.FormFile(upload.FileField)
		if err != nil {
			return
		}
		if header.Filename == "first.txt" {
			close(firstArrived)
			<-r.Context().Done()
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"filePath":"/tmp/second.txt"}`))
	}))
	t.Cleanup(srv.Close)

	var firstLog syncBuffer
	firstCtx := log.WithContext(context.Background(), log.New(&firstLog))

	c := upload.NewController(upload.WithEndpoint(srv.URL))
	first, err := c.Start(firstCtx, memFile("first.txt", "1"))
	require.NoError(t, err)
	<-firstArrived

	second, err := c.Start(context.Background(), memFile("second.txt", "2"))
	require.NoError(t, err)
	assert.Greater(t, second.ID(), first.ID())

	secondRes := settle(t, second)
	firstRes := settle(t, first)

	assert.Equal(t, upload.PhaseSucceeded, secondRes.Phase())
	require.Equal(t, upload.PhaseFailed, firstRes.Phase())
	assert.ErrorIs(t, firstRes.Err(), upload.ErrAborted)

	state := c.State()
	assert.Equal(t, upload.PhaseSucceeded, state.Phase())
	assert.Equal(t, "/tmp/second.txt", state.FilePath())
	assert.Equal(t, second.ID(), state.Attempt())
	assert.NotContains(t, firstLog.String(), "Upload failed", "superseded attempt is not reported as a failure")
}

func TestRestartClearsPreviousResult(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte(`{"success":true,"filePath":"/tmp/one"}`))
			return
		}
		<-release
		_, _ = w.Write([]byte(`{"success":false,"errorMessage":"no opener"}`))
	}))
	t.Cleanup(srv.Close)

	c := upload.NewController(upload.WithEndpoint(srv.URL))
	holder := selection.NewHolder()
	holder.OnSelect(c.Prepare)

	att, err := c.Start(context.Background(), holder.Select(memFile("one.txt", "1")))
	require.NoError(t, err)
	require.Equal(t, "/tmp/one", settle(t, att).FilePath())

	holder.Select(memFile("two.txt", "2"))
	ready := c.State()
	assert.Equal(t, upload.PhaseReady, ready.Phase())
	assert.Empty(t, ready.FilePath())
	assert.Nil(t, ready.Err())

	att, err = c.Start(context.Background(), holder.Current())
	require.NoError(t, err)
	inFlight := c.State()
	assert.Equal(t, upload.PhaseInProgress, inFlight.Phase())
	assert.Empty(t, inFlight.FilePath())
	assert.Nil(t, inFlight.Err())

	close(release)
	res := settle(t, att)
	require.Equal(t, upload.PhaseFailed, res.Phase())
	assert.Equal(t, "no opener", res.Err().Error())
	assert.Empty(t, res.FilePath())

	holder.Clear()
	assert.Equal(t, upload.PhaseIdle, c.State().Phase())
}
