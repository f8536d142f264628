package bridge

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/callwaiting/voxbridge/pkg/transcript"
	"github.com/callwaiting/voxbridge/pkg/webvoice"
)

// Defaults.
const (
	DefaultEstablishTimeout = 10 * time.Second
	DefaultSpeakingGrace    = time.Second

	// DefaultEndTimeout covers two 10s termination attempts and the retry
	// delay between them.
	DefaultEndTimeout = 25 * time.Second
)

// DefaultReconnectPolicy retries three times after 2s, 4s and 8s, each
// plus up to 250ms of jitter.
var DefaultReconnectPolicy = ReconnectPolicy{
	MaxAttempts: 3,
	Base:        2 * time.Second,
	Max:         8 * time.Second,
	Jitter:      250 * time.Millisecond,
}

// ReconnectPolicy controls automatic reconnection.
type ReconnectPolicy struct {
	MaxAttempts int
	Base        time.Duration
	Max         time.Duration
	Jitter      time.Duration
}

// Backoff returns the delay before 1-based attempt n:
// min(Max, Base*2^(n-1)) plus a uniform jitter in [0, Jitter).
func (p ReconnectPolicy) Backoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	d := p.Max
	if n <= 32 {
		if exp := p.Base << uint(n-1); exp > 0 && exp < p.Max {
			d = exp
		}
	}
	if p.Jitter > 0 {
		d += rand.N(p.Jitter)
	}
	return d
}

// Credentials supplies what Connect needs from the signed-in user.
type Credentials interface {
	Token(ctx context.Context) (string, error)
	TenantID() string
}

// Initiator provisions and releases sessions. *webvoice.Client implements
// it.
type Initiator interface {
	StartSession(ctx context.Context, req *webvoice.StartRequest) (*webvoice.StartResponse, error)
	EndSession(ctx context.Context, token, trackingID string) error
}

// Archiver persists finished sessions.
type Archiver interface {
	Archive(ctx context.Context, s Session, messages []transcript.Message) error
}

// Handler receives lifecycle notifications. All fields are optional.
// Callbacks run on internal goroutines after the manager lock is released;
// they may call back into the Manager but must not block for long.
type Handler struct {
	OnConnected    func(Session)
	OnDisconnected func(Session)
	OnError        func(error)
	OnTranscript   func([]transcript.Message)
	OnSpeaking     func(bool)
	OnRecording    func(bool)
}

type config struct {
	dialer      Dialer
	handler     Handler
	logger      *slog.Logger
	newCapture  CaptureFactory
	newPlayback PlaybackFactory
	archiver    Archiver
	autoRecord  bool

	establishTimeout time.Duration
	reconnect        ReconnectPolicy
	speakingGrace    time.Duration
	dedupWindow      time.Duration
	staleAfter       time.Duration
	keepalive        time.Duration
	logCapacity      int
	endTimeout       time.Duration
	now              func() time.Time
}

func defaultConfig() *config {
	return &config{
		dialer:           &WebSocketDialer{},
		logger:           slog.Default(),
		establishTimeout: DefaultEstablishTimeout,
		reconnect:        DefaultReconnectPolicy,
		speakingGrace:    DefaultSpeakingGrace,
		dedupWindow:      transcript.DefaultDedupWindow,
		staleAfter:       transcript.DefaultStaleAfter,
		logCapacity:      transcript.DefaultCapacity,
		endTimeout:       DefaultEndTimeout,
		now:              time.Now,
	}
}

// Option configures a Manager.
type Option func(*config)

// WithDialer replaces the WebSocket dialer.
func WithDialer(d Dialer) Option {
	return func(c *config) {
		c.dialer = d
	}
}

// WithHandler sets the lifecycle callbacks.
func WithHandler(h Handler) Option {
	return func(c *config) {
		c.handler = h
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithCaptureFactory sets how the input device is opened.
func WithCaptureFactory(f CaptureFactory) Option {
	return func(c *config) {
		c.newCapture = f
	}
}

// WithPlaybackFactory sets how the output device is opened. Without one,
// received audio is discarded.
func WithPlaybackFactory(f PlaybackFactory) Option {
	return func(c *config) {
		c.newPlayback = f
	}
}

// WithArchiver persists every finished session.
func WithArchiver(a Archiver) Option {
	return func(c *config) {
		c.archiver = a
	}
}

// WithAutoStartRecording starts capture as soon as the channel is
// authenticated.
func WithAutoStartRecording(on bool) Option {
	return func(c *config) {
		c.autoRecord = on
	}
}

// WithEstablishTimeout bounds channel establishment.
func WithEstablishTimeout(d time.Duration) Option {
	return func(c *config) {
		c.establishTimeout = d
	}
}

// WithReconnect sets the reconnect policy. MaxAttempts 0 disables
// reconnection.
func WithReconnect(p ReconnectPolicy) Option {
	return func(c *config) {
		c.reconnect = p
	}
}

// WithSpeakingGrace sets how long the agent counts as speaking after the
// last binary audio frame.
func WithSpeakingGrace(d time.Duration) Option {
	return func(c *config) {
		c.speakingGrace = d
	}
}

// WithDedupWindow sets the duplicate-final window.
func WithDedupWindow(d time.Duration) Option {
	return func(c *config) {
		c.dedupWindow = d
	}
}

// WithStaleAfter sets how long an interim utterance may go without updates
// before it is finalized as-is.
func WithStaleAfter(d time.Duration) Option {
	return func(c *config) {
		c.staleAfter = d
	}
}

// WithKeepalive sends a ping frame at the given interval. Zero disables it.
func WithKeepalive(d time.Duration) Option {
	return func(c *config) {
		c.keepalive = d
	}
}

// WithLogCapacity sets how many transcript messages are retained.
func WithLogCapacity(n int) Option {
	return func(c *config) {
		c.logCapacity = n
	}
}

// WithEndTimeout caps the whole best-effort termination notification,
// retries included. Zero leaves the bound to the Initiator.
func WithEndTimeout(d time.Duration) Option {
	return func(c *config) {
		c.endTimeout = d
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}
