package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/callwaiting/voxbridge/pkg/transcript"
	"github.com/callwaiting/voxbridge/pkg/webvoice"
)

// fakeBridge is a bridge server. Each accepted channel is handed to the
// handler after the auth frame has been read.
type fakeBridge struct {
	t        *testing.T
	srv      *httptest.Server
	upgrader websocket.Upgrader
	handler  func(ws *websocket.Conn)

	mu       sync.Mutex
	accepted int
	tokens   []string
}

func newFakeBridge(t *testing.T, handler func(ws *websocket.Conn)) *fakeBridge {
	t.Helper()
	b := &fakeBridge{t: t, handler: handler}
	b.srv = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *fakeBridge) URL() string {
	return "ws" + strings.TrimPrefix(b.srv.URL, "http") + "/bridge"
}

func (b *fakeBridge) serve(w http.ResponseWriter, r *http.Request) {
	ws, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer ws.Close()

	_, data, err := ws.ReadMessage()
	if err != nil {
		return
	}
	var auth AuthFrame
	if err := json.Unmarshal(data, &auth); err != nil || auth.Type != "auth" {
		b.t.Errorf("first frame = %s; want auth frame", data)
		return
	}
	b.mu.Lock()
	b.accepted++
	b.tokens = append(b.tokens, auth.Token)
	b.mu.Unlock()

	if b.handler != nil {
		b.handler(ws)
		return
	}
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (b *fakeBridge) Accepted() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accepted
}

// fakeInitiator answers StartSession with a fixed response.
type fakeInitiator struct {
	mu        sync.Mutex
	resp      *webvoice.StartResponse
	err       error
	gate      chan struct{}
	starts    []*webvoice.StartRequest
	ends      []string
	endErr    error
	endCalled chan string

	// numbered suffixes the tracking id with the start count, so every
	// initiation returns a fresh id.
	numbered bool
}

func newFakeInitiator(url, trackingID string) *fakeInitiator {
	return &fakeInitiator{
		resp: &webvoice.StartResponse{
			Success:            true,
			BridgeWebsocketURL: url,
			TrackingID:         trackingID,
		},
		endCalled: make(chan string, 16),
	}
}

func (f *fakeInitiator) StartSession(ctx context.Context, req *webvoice.StartRequest) (*webvoice.StartResponse, error) {
	f.mu.Lock()
	f.starts = append(f.starts, req)
	gate := f.gate
	resp := *f.resp
	if f.numbered {
		resp.TrackingID = fmt.Sprintf("%s-%d", resp.TrackingID, len(f.starts))
	}
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &resp, nil
}

func (f *fakeInitiator) EndSession(_ context.Context, _ string, trackingID string) error {
	f.mu.Lock()
	f.ends = append(f.ends, trackingID)
	f.mu.Unlock()
	f.endCalled <- trackingID
	return f.endErr
}

func (f *fakeInitiator) Starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.starts)
}

func (f *fakeInitiator) Ends() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ends...)
}

// staticCreds implements Credentials.
type staticCreds struct {
	token, tenant string
	err           error
}

func (c staticCreds) Token(context.Context) (string, error) { return c.token, c.err }
func (c staticCreds) TenantID() string                      { return c.tenant }

// recorder captures Handler callbacks.
type recorder struct {
	mu           sync.Mutex
	connected    []Session
	disconnected []Session
	errs         []error
	speaking     []bool
	recording    []bool
	transcripts  int
}

func (r *recorder) handler() Handler {
	return Handler{
		OnConnected: func(s Session) {
			r.mu.Lock()
			r.connected = append(r.connected, s)
			r.mu.Unlock()
		},
		OnDisconnected: func(s Session) {
			r.mu.Lock()
			r.disconnected = append(r.disconnected, s)
			r.mu.Unlock()
		},
		OnError: func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
		},
		OnSpeaking: func(on bool) {
			r.mu.Lock()
			r.speaking = append(r.speaking, on)
			r.mu.Unlock()
		},
		OnRecording: func(on bool) {
			r.mu.Lock()
			r.recording = append(r.recording, on)
			r.mu.Unlock()
		},
		OnTranscript: func([]transcript.Message) {
			r.mu.Lock()
			r.transcripts++
			r.mu.Unlock()
		},
	}
}

func (r *recorder) Connected() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.connected)
}

func (r *recorder) Disconnected() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Session(nil), r.disconnected...)
}

func (r *recorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

// fakePlayback records chunks.
type fakePlayback struct {
	mu      sync.Mutex
	chunks  [][]byte
	resumes int
	stops   int
	closed  bool
}

func (p *fakePlayback) Resume(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resumes++
	return nil
}

func (p *fakePlayback) PlayChunk(_ context.Context, chunk []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("playback closed")
	}
	p.chunks = append(p.chunks, append([]byte(nil), chunk...))
	return nil
}

func (p *fakePlayback) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
}

func (p *fakePlayback) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePlayback) snapshot() (chunks [][]byte, resumes, stops int, closed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]byte(nil), p.chunks...), p.resumes, p.stops, p.closed
}

// fakeCapture writes one frame on Start.
type fakeCapture struct {
	w        FrameWriter
	startErr error
	frame    []byte

	mu      sync.Mutex
	stopped int
}

func (c *fakeCapture) Start(context.Context) error {
	if c.startErr != nil {
		return c.startErr
	}
	if c.frame != nil {
		return c.w.WriteAudio(c.frame)
	}
	return nil
}

func (c *fakeCapture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped++
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// fastReconnect keeps retries quick in tests.
var fastReconnect = ReconnectPolicy{
	MaxAttempts: 3,
	Base:        10 * time.Millisecond,
	Max:         40 * time.Millisecond,
}

func sendJSON(t *testing.T, ws *websocket.Conn, v any) {
	t.Helper()
	if err := ws.WriteJSON(v); err != nil {
		t.Errorf("WriteJSON: %v", err)
	}
}
