package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/callwaiting/voxbridge/pkg/jsontime"
	"github.com/callwaiting/voxbridge/pkg/transcript"
	"github.com/callwaiting/voxbridge/pkg/webvoice"
)

// Manager owns one voice session at a time: initiation, the duplex
// channel, authentication, message dispatch, reconnection and teardown.
//
// All methods are safe for concurrent use.
type Manager struct {
	creds      Credentials
	initiator  Initiator
	cfg        *config
	reconciler *transcript.Reconciler
	log        *slog.Logger

	// pending tracks termination notifications and archive writes so Close
	// can wait for them.
	pending sync.WaitGroup

	mu         sync.Mutex
	alive      bool
	phase      Phase
	connecting bool
	manual     bool
	attempts   int
	generation uint64
	cancelDial context.CancelFunc

	conn       *conn
	trackingID string
	token      string

	transcript *transcript.Log
	session    *Session
	speaking   bool
	lastErr    error

	capture         Capture
	startingCapture bool
	playback        Playback

	reconnectTimer *time.Timer
	staleTimer     *time.Timer
	speakingTimer  *time.Timer
	keepaliveTimer *time.Timer
}

// New creates a Manager. initiator is typically a *webvoice.Client.
func New(creds Credentials, initiator Initiator, opts ...Option) *Manager {
	if creds == nil || initiator == nil {
		panic("bridge: credentials and initiator are required")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	rec := transcript.NewReconciler()
	rec.DedupWindow = cfg.dedupWindow
	rec.StaleAfter = cfg.staleAfter

	return &Manager{
		creds:      creds,
		initiator:  initiator,
		cfg:        cfg,
		reconciler: rec,
		log:        cfg.logger.With("component", "bridge"),
		alive:      true,
		transcript: transcript.NewLog(cfg.logCapacity),
	}
}

// notes collects callbacks to run once the lock is released.
type notes []func()

func (n *notes) add(f func()) {
	*n = append(*n, f)
}

func (n notes) fire() {
	for _, f := range n {
		f()
	}
}

// Connect starts a session. It returns once the channel is authenticated
// or the attempt failed. A call while another attempt is in flight or a
// channel is open does nothing.
//
// Errors are also delivered to Handler.OnError and kept in Err.
func (m *Manager) Connect(ctx context.Context) error {
	return m.connect(ctx, false)
}

func (m *Manager) connect(ctx context.Context, retry bool) error {
	var n notes
	m.mu.Lock()
	if !m.alive {
		m.mu.Unlock()
		return ErrClosed
	}
	// A scheduled reconnect is superseded by this attempt, or by the
	// channel already open.
	m.stopTimerLocked(&m.reconnectTimer)
	if m.connecting || m.conn != nil || m.phase == PhaseClosing {
		m.mu.Unlock()
		m.log.Debug("connect ignored: session already connecting or open")
		return nil
	}

	tenantID := m.creds.TenantID()
	if tenantID == "" {
		err := newError(KindConfiguration, msgOrgNotValidated, nil)
		m.failLocked(err, &n)
		m.mu.Unlock()
		n.fire()
		return err
	}

	m.connecting = true
	m.manual = false
	m.lastErr = nil
	m.phase = PhaseConnecting
	if !retry {
		m.attempts = 0
	}
	m.generation++
	gen := m.generation
	ctx, cancel := context.WithCancel(ctx)
	m.cancelDial = cancel
	m.mu.Unlock()
	defer cancel()

	return m.establish(ctx, gen, tenantID)
}

func (m *Manager) establish(ctx context.Context, gen uint64, tenantID string) error {
	token, err := m.creds.Token(ctx)
	if err != nil {
		return m.abort(gen, newError(KindAuthentication, msgNotAuthenticated, err))
	}

	resp, err := m.initiator.StartSession(ctx, &webvoice.StartRequest{Token: token, TenantID: tenantID})
	if err != nil {
		return m.abort(gen, initiationError(err))
	}
	if !resp.Success || resp.BridgeWebsocketURL == "" {
		msg := resp.Error
		if msg == "" {
			msg = msgStartFailed
		}
		return m.abort(gen, newError(KindTransport, msg, nil))
	}

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		// Disconnected while the session was being provisioned.
		m.endSession(ctx, token, resp.TrackingID)
		return nil
	}
	if prev := m.trackingID; prev != "" && prev != resp.TrackingID {
		// A reconnect provisions a new session; release the one it replaces.
		m.endSession(ctx, m.token, prev)
	}
	m.trackingID = resp.TrackingID
	m.token = token
	m.mu.Unlock()

	m.log.Info("dialing bridge", "tracking_id", resp.TrackingID)
	dialCtx, cancelDial := context.WithTimeout(ctx, m.cfg.establishTimeout)
	ch, err := m.cfg.dialer.Dial(dialCtx, resp.BridgeWebsocketURL)
	timedOut := errors.Is(dialCtx.Err(), context.DeadlineExceeded)
	cancelDial()

	var n notes
	m.mu.Lock()
	if gen != m.generation || !m.alive {
		m.mu.Unlock()
		if ch != nil {
			ch.CloseWithCode(CloseNormal, "")
		}
		return nil
	}
	m.cancelDial = nil

	if err != nil {
		msg := msgConnectionError
		if timedOut {
			msg = msgConnectTimeout
		}
		e := newError(KindTransport, msg, err)
		m.connecting = false
		m.failLocked(e, &n)
		m.closedLocked(closeAbnormal, false, &n)
		m.mu.Unlock()
		n.fire()
		return e
	}

	c := &conn{ch: ch}
	m.conn = c
	m.phase = PhaseOpenUnauthenticated
	if err := m.writeJSON(c, NewAuthFrame(token)); err != nil {
		m.conn = nil
		ch.Close()
		e := newError(KindTransport, msgConnectionError, err)
		m.connecting = false
		m.failLocked(e, &n)
		m.closedLocked(closeAbnormal, false, &n)
		m.mu.Unlock()
		n.fire()
		return e
	}

	m.phase = PhaseConnected
	m.connecting = false
	m.attempts = 0
	m.transcript.Reset()
	m.session = &Session{
		ID:        m.trackingID,
		Status:    StatusConnected,
		StartedAt: jsontime.FromTime(m.cfg.now()),
	}
	m.armKeepaliveLocked(c)
	if h := m.cfg.handler.OnConnected; h != nil {
		s := *m.session
		n.add(func() { h(s) })
	}
	autoRecord := m.cfg.autoRecord
	m.mu.Unlock()

	m.log.Info("bridge connected", "tracking_id", resp.TrackingID)
	go m.readLoop(c)
	n.fire()

	if autoRecord {
		if err := m.StartRecording(ctx); err != nil {
			m.log.Warn("auto-start recording failed", "error", err)
		}
	}
	return nil
}

// abort ends a connect attempt that never opened a channel. No reconnect
// is scheduled.
func (m *Manager) abort(gen uint64, err *Error) error {
	var n notes
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return err
	}
	m.connecting = false
	m.cancelDial = nil
	m.phase = PhaseClosed
	m.failLocked(err, &n)
	m.mu.Unlock()
	n.fire()
	return err
}

// readLoop delivers frames from c in order until it fails.
func (m *Manager) readLoop(c *conn) {
	for {
		ft, data, err := c.ch.ReadFrame()
		if err != nil {
			m.handleReadError(c, err)
			return
		}
		switch ft {
		case FrameBinary:
			m.playAudio(c, data, true)
		case FrameText:
			ev, err := DecodeEvent(data)
			if err != nil {
				m.log.Warn("dropping malformed frame", "error", err, "frame", truncate(data))
				continue
			}
			m.log.Debug("received event", "type", TypeOf(ev), "frame", truncate(data))
			m.dispatch(c, ev)
		}
	}
}

func (m *Manager) dispatch(c *conn, ev Event) {
	switch ev := ev.(type) {
	case *ConnectedEvent:
		m.log.Info("bridge greeting", "message", ev.Message)
	case *TranscriptEvent:
		m.onTranscript(c, ev)
	case *ResponseEvent:
		m.onResponse(c, ev)
	case *AudioEvent:
		m.playAudio(c, ev.Audio, false)
	case *StateEvent:
		m.onState(c, ev)
	case *ErrorEvent:
		m.onServerError(c, ev)
	case *InterruptEvent:
		m.onInterrupt(c)
	case *PingEvent, *PongEvent:
	case *UnknownEvent:
		m.log.Debug("ignoring unknown event", "type", ev.Type)
	}
}

func (m *Manager) handleReadError(c *conn, err error) {
	var n notes
	m.mu.Lock()
	if m.conn != c {
		m.mu.Unlock()
		return
	}
	code := CloseCode(err)
	m.log.Info("bridge channel closed", "code", code, "error", err)
	if !c.fatal && !isCloseFrame(err) {
		m.failLocked(newError(KindTransport, msgConnectionError, err), &n)
	}
	m.conn = nil
	c.ch.Close()
	m.closedLocked(code, c.fatal, &n)
	m.mu.Unlock()
	n.fire()
}

// closedLocked tears down per-channel state after the channel is gone and
// schedules a reconnect when allowed.
func (m *Manager) closedLocked(code int, terminal bool, n *notes) {
	m.stopTimerLocked(&m.staleTimer)
	m.stopTimerLocked(&m.speakingTimer)
	m.stopTimerLocked(&m.keepaliveTimer)
	m.setSpeakingLocked(false, n)
	m.stopRecordingLocked(n)
	m.phase = PhaseClosed
	m.connecting = false
	m.finalizeSessionLocked(n)

	switch {
	case m.manual || !m.alive:
		return
	case terminal || IsTerminalClose(code):
		m.log.Info("not reconnecting: terminal close", "code", code)
		return
	case m.attempts >= m.cfg.reconnect.MaxAttempts:
		m.log.Warn("not reconnecting: attempts exhausted", "attempts", m.attempts)
		return
	}

	m.attempts++
	delay := m.cfg.reconnect.Backoff(m.attempts)
	m.log.Info("reconnect scheduled", "attempt", m.attempts, "delay", delay)

	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		m.mu.Lock()
		if !m.alive || m.manual || m.reconnectTimer != t {
			m.mu.Unlock()
			return
		}
		// reconnectTimer stays set until connect takes over so Active
		// never reports a gap.
		m.mu.Unlock()
		if err := m.connect(context.Background(), true); err != nil {
			m.log.Warn("reconnect failed", "error", err)
		}
	})
	m.reconnectTimer = t
}

func (m *Manager) finalizeSessionLocked(n *notes) {
	if m.session == nil || m.session.Status == StatusDisconnected {
		return
	}
	m.session.end(m.cfg.now())
	s := *m.session
	m.log.Info("session ended", "tracking_id", s.ID, "duration_s", *s.DurationSeconds, "messages", s.TotalMessages)

	if h := m.cfg.handler.OnDisconnected; h != nil {
		n.add(func() { h(s) })
	}
	if a := m.cfg.archiver; a != nil {
		msgs := m.transcript.Messages()
		m.pending.Add(1)
		n.add(func() {
			defer m.pending.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := a.Archive(ctx, s, msgs); err != nil {
				m.log.Warn("archive session failed", "tracking_id", s.ID, "error", err)
			}
		})
	}
}

func (m *Manager) onTranscript(c *conn, ev *TranscriptEvent) {
	var n notes
	m.mu.Lock()
	if m.conn != c {
		m.mu.Unlock()
		return
	}
	e := transcript.NewEvent(ev.Speaker, ev.Text, ev.IsFinal, ev.Confidence)
	outcome := m.reconciler.Fold(m.transcript, e, m.cfg.now())
	m.log.Debug("transcript folded", "outcome", outcome, "speaker", e.Speaker, "final", e.IsFinal)
	if outcome.Finalized() && m.session != nil {
		m.session.TotalMessages++
	}
	if outcome != transcript.Duplicate {
		m.armStaleLocked(c)
		m.notifyTranscriptLocked(&n)
	}
	m.mu.Unlock()
	n.fire()
}

func (m *Manager) onResponse(c *conn, ev *ResponseEvent) {
	var n notes
	m.mu.Lock()
	if m.conn != c {
		m.mu.Unlock()
		return
	}
	m.reconciler.AppendResponse(m.transcript, ev.Text, m.cfg.now())
	if m.session != nil {
		m.session.TotalMessages++
	}
	m.armStaleLocked(c)
	m.setSpeakingLocked(true, &n)
	m.notifyTranscriptLocked(&n)
	m.mu.Unlock()
	n.fire()
}

func (m *Manager) onState(c *conn, ev *StateEvent) {
	var n notes
	m.mu.Lock()
	if m.conn != c {
		m.mu.Unlock()
		return
	}
	switch ev.To {
	case AgentSpeaking:
		m.setSpeakingLocked(true, &n)
	case AgentListening, AgentIdle:
		m.stopTimerLocked(&m.speakingTimer)
		m.setSpeakingLocked(false, &n)
	default:
		m.log.Debug("ignoring unknown agent state", "to", ev.To)
	}
	m.mu.Unlock()
	n.fire()
}

func (m *Manager) onServerError(c *conn, ev *ErrorEvent) {
	var n notes
	m.mu.Lock()
	if m.conn != c {
		m.mu.Unlock()
		return
	}
	msg := ev.Text()
	if msg == "" {
		msg = msgServerError
	}
	c.fatal = true
	m.failLocked(newError(KindServer, msg, nil), &n)
	m.mu.Unlock()
	n.fire()

	// The read loop observes the close and runs teardown.
	c.ch.Close()
}

func (m *Manager) onInterrupt(c *conn) {
	var n notes
	m.mu.Lock()
	if m.conn != c {
		m.mu.Unlock()
		return
	}
	pb := m.playback
	m.stopTimerLocked(&m.speakingTimer)
	m.setSpeakingLocked(false, &n)
	m.mu.Unlock()
	n.fire()

	if pb != nil {
		pb.Stop()
	}
}

// playAudio forwards a chunk to playback. Binary frames keep the speaking
// flag raised for the grace period after the latest frame.
func (m *Manager) playAudio(c *conn, chunk []byte, grace bool) {
	var n notes
	m.mu.Lock()
	if m.conn != c {
		m.mu.Unlock()
		return
	}
	pb, err := m.ensurePlaybackLocked()
	if err != nil {
		m.failLocked(newError(KindDevice, msgPlaybackFailed, err), &n)
		m.mu.Unlock()
		n.fire()
		return
	}
	m.setSpeakingLocked(true, &n)
	if grace {
		m.armSpeakingGraceLocked(c)
	}
	m.mu.Unlock()
	n.fire()

	ctx := context.Background()
	if err := pb.Resume(ctx); err != nil {
		m.log.Warn("playback resume failed", "error", err)
		return
	}
	if err := pb.PlayChunk(ctx, chunk); err != nil {
		m.log.Warn("playback failed", "error", err, "bytes", len(chunk))
	}
}

// Disconnect ends the session. It is idempotent and never fails; the
// termination notification is sent in the background.
func (m *Manager) Disconnect(ctx context.Context) {
	var n notes
	m.mu.Lock()
	m.manual = true
	m.generation++
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}
	m.stopTimerLocked(&m.reconnectTimer)
	m.stopTimerLocked(&m.staleTimer)
	m.stopTimerLocked(&m.speakingTimer)
	m.stopTimerLocked(&m.keepaliveTimer)
	m.setSpeakingLocked(false, &n)
	m.stopRecordingLocked(&n)

	pb := m.playback
	m.playback = nil
	c := m.conn
	m.conn = nil
	token, trackingID := m.token, m.trackingID
	m.token, m.trackingID = "", ""
	m.connecting = false
	m.attempts = 0
	m.finalizeSessionLocked(&n)
	if c != nil {
		m.phase = PhaseClosing
	} else if m.phase != PhaseIdle {
		m.phase = PhaseClosed
	}
	m.mu.Unlock()
	n.fire()

	if pb != nil {
		if err := pb.Close(); err != nil {
			m.log.Warn("close playback failed", "error", err)
		}
	}
	if c != nil {
		if err := m.writeJSON(c, stopFrame); err != nil {
			m.log.Debug("send stop frame failed", "error", err)
		}
		if err := c.ch.CloseWithCode(CloseNormal, "client disconnect"); err != nil {
			m.log.Debug("close channel failed", "error", err)
		}
		m.mu.Lock()
		if m.phase == PhaseClosing {
			m.phase = PhaseClosed
		}
		m.mu.Unlock()
		m.log.Info("bridge disconnected", "tracking_id", trackingID)
	}
	if trackingID != "" {
		m.endSession(ctx, token, trackingID)
	}
}

// endSession notifies the termination endpoint in the background. Per-attempt
// limits and retries belong to the Initiator; endTimeout caps the whole call.
func (m *Manager) endSession(ctx context.Context, token, trackingID string) {
	if trackingID == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)
	m.pending.Add(1)
	go func() {
		defer m.pending.Done()
		if m.cfg.endTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, m.cfg.endTimeout)
			defer cancel()
		}
		if err := m.initiator.EndSession(ctx, token, trackingID); err != nil {
			m.log.Warn("session termination failed", "tracking_id", trackingID, "error", err)
			return
		}
		m.log.Debug("session terminated", "tracking_id", trackingID)
	}()
}

// Close disconnects, disables every pending timer and waits for
// outstanding termination notifications and archive writes. The Manager cannot be reused.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.alive = false
	m.mu.Unlock()
	m.Disconnect(context.Background())
	m.pending.Wait()
	return nil
}

// StartRecording opens the input device and streams it to the bridge.
// It fails with ErrNotConnected unless the channel is authenticated.
func (m *Manager) StartRecording(ctx context.Context) error {
	var n notes
	m.mu.Lock()
	c := m.conn
	if c == nil || m.phase != PhaseConnected {
		m.mu.Unlock()
		return ErrNotConnected
	}
	if m.capture != nil || m.startingCapture {
		m.mu.Unlock()
		return nil
	}
	if _, err := m.ensurePlaybackLocked(); err != nil {
		e := newError(KindDevice, msgPlaybackFailed, err)
		m.failLocked(e, &n)
		m.mu.Unlock()
		n.fire()
		return e
	}
	if m.cfg.newCapture == nil {
		e := newError(KindDevice, msgRecordingFailed, errors.New("no capture device configured"))
		m.failLocked(e, &n)
		m.mu.Unlock()
		n.fire()
		return e
	}
	capture := m.cfg.newCapture(c, m.captureErrorHandler(c))
	m.startingCapture = true
	m.mu.Unlock()

	err := capture.Start(ctx)

	m.mu.Lock()
	m.startingCapture = false
	if m.conn != c {
		m.mu.Unlock()
		if err == nil {
			capture.Stop()
		}
		return ErrNotConnected
	}
	if err != nil {
		e := newError(KindDevice, msgRecordingFailed, err)
		m.failLocked(e, &n)
		m.mu.Unlock()
		n.fire()
		return e
	}
	m.capture = capture
	if h := m.cfg.handler.OnRecording; h != nil {
		n.add(func() { h(true) })
	}
	m.mu.Unlock()
	n.fire()
	m.log.Info("recording started")
	return nil
}

// StopRecording stops the input device. It is idempotent.
func (m *Manager) StopRecording() {
	var n notes
	m.mu.Lock()
	m.stopRecordingLocked(&n)
	m.mu.Unlock()
	n.fire()
}

func (m *Manager) captureErrorHandler(c *conn) func(error) {
	return func(err error) {
		var n notes
		m.mu.Lock()
		if m.conn != c {
			m.mu.Unlock()
			return
		}
		m.failLocked(newError(KindDevice, msgRecordingFailed, err), &n)
		m.mu.Unlock()
		n.fire()
	}
}

func (m *Manager) stopRecordingLocked(n *notes) {
	if m.capture == nil {
		return
	}
	capture := m.capture
	m.capture = nil
	n.add(capture.Stop)
	if h := m.cfg.handler.OnRecording; h != nil {
		n.add(func() { h(false) })
	}
}

func (m *Manager) ensurePlaybackLocked() (Playback, error) {
	if m.playback != nil {
		return m.playback, nil
	}
	if m.cfg.newPlayback == nil {
		m.playback = discardPlayback{}
		return m.playback, nil
	}
	pb, err := m.cfg.newPlayback()
	if err != nil {
		return nil, err
	}
	m.playback = pb
	return pb, nil
}

func (m *Manager) setSpeakingLocked(on bool, n *notes) {
	if m.speaking == on {
		return
	}
	m.speaking = on
	if h := m.cfg.handler.OnSpeaking; h != nil {
		n.add(func() { h(on) })
	}
}

func (m *Manager) failLocked(err error, n *notes) {
	m.lastErr = err
	if e, ok := AsError(err); ok {
		m.log.Warn("bridge error", "kind", e.Kind, "error", e.Message, "cause", e.Err)
	}
	if h := m.cfg.handler.OnError; h != nil {
		n.add(func() { h(err) })
	}
}

func (m *Manager) notifyTranscriptLocked(n *notes) {
	if h := m.cfg.handler.OnTranscript; h != nil {
		msgs := m.transcript.Messages()
		n.add(func() { h(msgs) })
	}
}

// armStaleLocked (re)starts the staleness timer for an interim tail and
// cancels it when the tail is final.
func (m *Manager) armStaleLocked(c *conn) {
	m.stopTimerLocked(&m.staleTimer)
	pending, ok := transcript.PendingInterim(m.transcript)
	if !ok {
		return
	}
	id := pending.ID
	var t *time.Timer
	t = time.AfterFunc(m.reconciler.StaleAfter, func() {
		var n notes
		m.mu.Lock()
		if !m.alive || m.conn != c || m.staleTimer != t {
			m.mu.Unlock()
			return
		}
		m.staleTimer = nil
		if m.reconciler.PromoteStale(m.transcript, id) {
			m.log.Debug("promoted stale interim", "id", id)
			m.notifyTranscriptLocked(&n)
		}
		m.mu.Unlock()
		n.fire()
	})
	m.staleTimer = t
}

func (m *Manager) armSpeakingGraceLocked(c *conn) {
	m.stopTimerLocked(&m.speakingTimer)
	var t *time.Timer
	t = time.AfterFunc(m.cfg.speakingGrace, func() {
		var n notes
		m.mu.Lock()
		if !m.alive || m.conn != c || m.speakingTimer != t {
			m.mu.Unlock()
			return
		}
		m.speakingTimer = nil
		m.setSpeakingLocked(false, &n)
		m.mu.Unlock()
		n.fire()
	})
	m.speakingTimer = t
}

func (m *Manager) armKeepaliveLocked(c *conn) {
	if m.cfg.keepalive <= 0 {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(m.cfg.keepalive, func() {
		m.mu.Lock()
		if !m.alive || m.conn != c || m.keepaliveTimer != t {
			m.mu.Unlock()
			return
		}
		m.armKeepaliveLocked(c)
		m.mu.Unlock()
		if err := m.writeJSON(c, pingFrame); err != nil {
			m.log.Debug("keepalive failed", "error", err)
		}
	})
	m.keepaliveTimer = t
}

// stopTimerLocked cancels *t. A callback that already started sees the
// cleared field and backs off.
func (m *Manager) stopTimerLocked(t **time.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

func (m *Manager) writeJSON(c *conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, isAuth := v.(AuthFrame); !isAuth {
		m.log.Debug("sending frame", "frame", truncate(data))
	}
	return c.ch.WriteText(data)
}

// Phase returns the current state machine position.
func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Active reports whether a channel is open, being established or scheduled
// to be re-established.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil || m.connecting || m.reconnectTimer != nil
}

// Session returns a copy of the current or most recent session.
func (m *Manager) Session() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return Session{}, false
	}
	return *m.session, true
}

// Transcript returns the conversation so far, oldest first.
func (m *Manager) Transcript() []transcript.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transcript.Messages()
}

// Speaking reports whether the agent is currently producing audio.
func (m *Manager) Speaking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speaking
}

// Recording reports whether capture is running.
func (m *Manager) Recording() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.capture != nil
}

// Err returns the last surfaced error. It is cleared by the next Connect.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// TrackingID returns the tracking id of the current session, if any.
func (m *Manager) TrackingID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trackingID
}
