package commands

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/callwaiting/voxbridge/pkg/archive"
	"github.com/callwaiting/voxbridge/pkg/audio/pcm"
	"github.com/callwaiting/voxbridge/pkg/audio/pcmio"
	"github.com/callwaiting/voxbridge/pkg/audio/resampler"
	"github.com/callwaiting/voxbridge/pkg/auth"
	"github.com/callwaiting/voxbridge/pkg/bridge"
	"github.com/callwaiting/voxbridge/pkg/cli"
	"github.com/callwaiting/voxbridge/pkg/storage"
	"github.com/callwaiting/voxbridge/pkg/webvoice"
)

// agentAudioFile is the recording name under the session directory.
const agentAudioFile = "agent.wav"

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Live voice sessions",
}

// sessionRequest is the -f request file for session start. Flags given on
// the command line override it.
type sessionRequest struct {
	Input      string `yaml:"input,omitempty" json:"input,omitempty"`
	InputRate  int    `yaml:"input_rate,omitempty" json:"input_rate,omitempty"`
	BridgeRate int    `yaml:"bridge_rate,omitempty" json:"bridge_rate,omitempty"`
	Record     bool   `yaml:"record,omitempty" json:"record,omitempty"`
	RecordRate int    `yaml:"record_rate,omitempty" json:"record_rate,omitempty"`
	Duration   string `yaml:"duration,omitempty" json:"duration,omitempty"`
	Keepalive  string `yaml:"keepalive,omitempty" json:"keepalive,omitempty"`
	NoArchive  bool   `yaml:"no_archive,omitempty" json:"no_archive,omitempty"`
	Interim    bool   `yaml:"interim,omitempty" json:"interim,omitempty"`
}

// sessionResult is printed when the session command exits.
type sessionResult struct {
	Sessions  []bridge.Session `json:"sessions" yaml:"sessions"`
	Messages  int              `json:"messages" yaml:"messages"`
	Recording string           `json:"recording,omitempty" yaml:"recording,omitempty"`
	Error     string           `json:"error,omitempty" yaml:"error,omitempty"`
}

var sessionStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a voice session and stay connected",
	Long: `Start a voice session with the current context.

The caller's side is an optional PCM or WAV file streamed in real time as
the microphone. The agent's audio can be recorded and saved as WAV next to
the exported transcript. The conversation is printed as it is transcribed.

The session ends on Ctrl-C, after --duration, or when the bridge closes for
good. Finished sessions are archived unless --no-archive is set.

Example:
  voxbridge session start --input caller.wav --record --duration 45s
  voxbridge session start -f session.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := loadSessionRequest(cmd)
		if err != nil {
			return err
		}
		return runSession(cmd.Context(), req)
	},
}

func loadSessionRequest(cmd *cobra.Command) (*sessionRequest, error) {
	req := &sessionRequest{BridgeRate: 16000, RecordRate: 24000}
	if inputFile != "" {
		if err := cli.LoadFile(inputFile, req); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	var err error
	set := func(name string, get func() error) {
		if err == nil && flags.Changed(name) {
			err = get()
		}
	}
	set("input", func() (e error) { req.Input, e = flags.GetString("input"); return })
	set("input-rate", func() (e error) { req.InputRate, e = flags.GetInt("input-rate"); return })
	set("bridge-rate", func() (e error) { req.BridgeRate, e = flags.GetInt("bridge-rate"); return })
	set("record", func() (e error) { req.Record, e = flags.GetBool("record"); return })
	set("record-rate", func() (e error) { req.RecordRate, e = flags.GetInt("record-rate"); return })
	set("duration", func() (e error) { req.Duration, e = flags.GetString("duration"); return })
	set("keepalive", func() (e error) { req.Keepalive, e = flags.GetString("keepalive"); return })
	set("no-archive", func() (e error) { req.NoArchive, e = flags.GetBool("no-archive"); return })
	set("interim", func() (e error) { req.Interim, e = flags.GetBool("interim"); return })
	if err != nil {
		return nil, fmt.Errorf("failed to read flags: %w", err)
	}
	return req, nil
}

func parseDuration(name, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return d, nil
}

func runSession(ctx context.Context, req *sessionRequest) error {
	c, err := getContext()
	if err != nil {
		return err
	}
	if c.BaseURL == "" {
		return fmt.Errorf("context %q has no base_url", c.Name)
	}
	paths, err := getPaths()
	if err != nil {
		return err
	}
	bridgeFmt, err := pcm.ParseFormat(req.BridgeRate)
	if err != nil {
		return err
	}
	recordFmt, err := pcm.ParseFormat(req.RecordRate)
	if err != nil {
		return err
	}
	duration, err := parseDuration("duration", req.Duration)
	if err != nil {
		return err
	}
	keepalive, err := parseDuration("keepalive", req.Keepalive)
	if err != nil {
		return err
	}

	logger := slog.Default()
	printer := cli.NewLivePrinter(os.Stdout, cli.NewStyles(cli.DefaultTheme))
	printer.Interim = req.Interim

	var (
		mu       sync.Mutex
		sessions []bridge.Session
	)
	ended := make(chan struct{}, 1)
	handler := bridge.Handler{
		OnConnected: func(s bridge.Session) {
			printer.Status("connected, session %s", s.ID)
		},
		OnDisconnected: func(s bridge.Session) {
			mu.Lock()
			sessions = append(sessions, s)
			mu.Unlock()
			printer.Status("session %s ended after %s, %d messages", s.ID, s.Duration().Round(time.Second), s.TotalMessages)
			select {
			case ended <- struct{}{}:
			default:
			}
		},
		OnError:      printer.Error,
		OnTranscript: printer.Update,
		OnSpeaking: func(on bool) {
			if verbose {
				printer.Status("agent speaking: %v", on)
			}
		},
		OnRecording: func(on bool) {
			if verbose {
				printer.Status("recording: %v", on)
			}
		},
	}

	policy := bridge.DefaultReconnectPolicy
	if c.MaxRetries > 0 {
		policy.MaxAttempts = c.MaxRetries
	}
	establish := bridge.DefaultEstablishTimeout
	if c.Timeout > 0 {
		establish = c.EstablishTimeout()
	}
	opts := []bridge.Option{
		bridge.WithHandler(handler),
		bridge.WithLogger(logger),
		bridge.WithReconnect(policy),
		bridge.WithEstablishTimeout(establish),
		bridge.WithKeepalive(keepalive),
	}

	var agentAudio bytes.Buffer
	if req.Record {
		opts = append(opts, bridge.WithPlaybackFactory(pcmio.PlaybackFactory(&agentAudio, bridgeFmt, recordFmt, logger)))
	}
	if req.Input != "" {
		open := openInput(req.Input, req.InputRate, bridgeFmt)
		capture := pcmio.CaptureFactory(open, bridgeFmt,
			pcmio.WithCaptureLogger(logger),
			pcmio.WithEOF(func() { printer.Status("input %s finished", filepath.Base(req.Input)) }),
		)
		opts = append(opts, bridge.WithCaptureFactory(capture), bridge.WithAutoStartRecording(true))
	}
	if !req.NoArchive {
		arch, err := archive.OpenBadger(archive.BadgerOptions{Dir: paths.ArchiveDirFor(c)}, archive.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		// Deferred first so it closes after the manager has stored the session.
		defer arch.Close()
		opts = append(opts, bridge.WithArchiver(arch))
	}

	var clientOpts []webvoice.Option
	clientOpts = append(clientOpts, webvoice.WithLogger(logger))
	if c.FrontendPort != "" || c.BackendPort != "" {
		clientOpts = append(clientOpts, webvoice.WithDevPorts(
			cmp.Or(c.FrontendPort, webvoice.DefaultFrontendPort),
			cmp.Or(c.BackendPort, webvoice.DefaultBackendPort),
		))
	}
	client := webvoice.NewClient(c.BaseURL, clientOpts...)

	m := bridge.New(auth.NewStatic(c.Token, c.OrgID), client, opts...)
	defer m.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	if err := m.Connect(ctx); err != nil {
		return err
	}
	waitForEnd(ctx, m, ended)
	m.Close()

	mu.Lock()
	res := sessionResult{Sessions: sessions, Messages: len(m.Transcript())}
	mu.Unlock()
	if err := m.Err(); err != nil {
		res.Error = err.Error()
	}

	if req.Record && agentAudio.Len() > 0 && len(res.Sessions) > 0 {
		uri, err := saveRecording(ctx, c, paths, res.Sessions[0].ID, recordFmt, agentAudio.Bytes())
		if err != nil {
			printer.Error(err)
		} else {
			res.Recording = uri
		}
	}
	return outputResult(res)
}

// waitForEnd blocks until ctx is done or the manager has neither a channel
// nor a reconnect in flight.
func waitForEnd(ctx context.Context, m *bridge.Manager, ended <-chan struct{}) {
	tick := time.NewTicker(250 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ended:
		case <-tick.C:
		}
		if !m.Active() {
			return
		}
	}
}

// openInput opens a PCM or WAV file and converts it to the bridge format.
// Raw PCM is assumed to be at rate, or already at the bridge rate when rate
// is zero.
func openInput(name string, rate int, dst pcm.Format) pcmio.OpenFunc {
	return func(context.Context) (io.Reader, error) {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		src := dst
		if strings.EqualFold(filepath.Ext(name), ".wav") {
			if src, err = pcm.ReadWAVHeader(f); err != nil {
				f.Close()
				return nil, err
			}
		} else if rate != 0 {
			if src, err = pcm.ParseFormat(rate); err != nil {
				f.Close()
				return nil, err
			}
		}
		if src == dst {
			return f, nil
		}
		r, err := resampler.NewReader(f, src, dst)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &resampledFile{Reader: r, f: f}, nil
	}
}

type resampledFile struct {
	*resampler.Reader
	f *os.File
}

func (r *resampledFile) Close() error {
	r.Reader.Close()
	return r.f.Close()
}

func saveRecording(ctx context.Context, c *cli.Context, paths *cli.Paths, id string, f pcm.Format, data []byte) (string, error) {
	fs, err := openStorage(c, paths, "")
	if err != nil {
		return "", err
	}
	ctx = context.WithoutCancel(ctx)
	name := path.Join(id, agentAudioFile)
	w, err := fs.Write(ctx, name)
	if err != nil {
		return "", err
	}
	if err := pcm.WriteWAV(w, f, data); err != nil {
		w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return fs.URI(name), nil
}

// openStorage opens location, or the context's storage when it is empty.
func openStorage(c *cli.Context, paths *cli.Paths, location string) (storage.FileStore, error) {
	if location == "" {
		location = paths.StorageFor(c)
	}
	var s3cfg storage.S3Config
	if c.S3 != nil {
		s3cfg = *c.S3
	}
	return storage.Open(location, s3cfg)
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the identity behind the context token",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getContext()
		if err != nil {
			return err
		}
		if c.Token == "" {
			return auth.ErrMissingToken
		}
		claims, err := auth.ParseClaims(c.Token)
		if err != nil {
			return err
		}
		type identity struct {
			Context   string    `json:"context" yaml:"context"`
			Subject   string    `json:"subject" yaml:"subject"`
			Email     string    `json:"email,omitempty" yaml:"email,omitempty"`
			OrgID     string    `json:"org_id,omitempty" yaml:"org_id,omitempty"`
			ExpiresAt time.Time `json:"expires_at,omitzero" yaml:"expires_at,omitempty"`
			Expired   bool      `json:"expired" yaml:"expired"`
		}
		id := identity{
			Context:   c.Name,
			Subject:   claims.Subject,
			Email:     claims.Email,
			OrgID:     claims.OrgID,
			ExpiresAt: claims.ExpiresAt,
			Expired:   !claims.ExpiresAt.IsZero() && time.Now().After(claims.ExpiresAt),
		}
		if claims.OrgID != "" && c.OrgID != "" && claims.OrgID != c.OrgID {
			cli.PrintWarning("token org %s differs from context org_id %s", claims.OrgID, c.OrgID)
		}
		return outputResult(id)
	},
}

func init() {
	f := sessionStartCmd.Flags()
	f.String("input", "", "PCM or WAV file streamed as the caller's microphone")
	f.Int("input-rate", 0, "sample rate of a raw PCM input (default: bridge rate)")
	f.Int("bridge-rate", 16000, "sample rate of audio exchanged with the bridge")
	f.Bool("record", false, "record the agent's audio and save it as WAV")
	f.Int("record-rate", 24000, "sample rate of the saved recording")
	f.String("duration", "", "disconnect after this long (e.g. 30s)")
	f.String("keepalive", "", "send a ping at this interval (e.g. 15s)")
	f.Bool("no-archive", false, "do not archive the finished session")
	f.Bool("interim", false, "also print speech still being recognized")

	sessionCmd.AddCommand(sessionStartCmd)
}
