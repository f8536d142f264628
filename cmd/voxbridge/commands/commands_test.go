package commands

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/callwaiting/voxbridge/pkg/audio/pcm"
)

// runCmd executes the root command with args and returns what it printed.
func runCmd(t *testing.T, args ...string) (stdout string, err error) {
	t.Helper()

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	cfgFile, contextName, outputFile, inputFile, jqQuery = "", "", "", "", ""
	outputJSON, verbose = false, false
	for _, c := range []*cobra.Command{sessionStartCmd, archiveListCmd, archiveExportCmd} {
		resetFlags(c)
	}

	rootCmd.SetArgs(args)
	err = rootCmd.Execute()

	w.Close()
	os.Stdout = oldStdout
	var buf bytes.Buffer
	buf.ReadFrom(r)
	return buf.String(), err
}

// resetFlags restores a command's local flags to their defaults.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	})
}

// fakeBackend serves the web voice API and a bridge that greets, says one
// exchange, sends a short burst of agent audio and hangs up normally.
func fakeBackend(t *testing.T, audio []byte) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/web-voice/start", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success":            true,
			"bridgeWebsocketUrl": "ws" + strings.TrimPrefix(srv.URL, "http") + "/bridge",
			"trackingId":         "cli-1",
		})
	})
	mux.HandleFunc("POST /api/web-voice/end", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	})
	mux.HandleFunc("/bridge", func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
		ws.WriteJSON(map[string]any{"type": "transcript", "speaker": "caller", "text": "I need a cleaning", "is_final": true})
		ws.WriteJSON(map[string]any{"type": "response", "text": "Sure, which day?"})
		ws.WriteMessage(websocket.BinaryMessage, audio)
		ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSessionLifecycle(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfg := filepath.Join(home, "config.yaml")
	store := filepath.Join(home, "store")
	audio := bytes.Repeat([]byte{0x10, 0x00}, 160)
	srv := fakeBackend(t, audio)

	if _, err := runCmd(t, "--config", cfg, "config", "add-context", "dev",
		"--base-url", srv.URL, "--token", "tok", "--org-id", "org-1",
		"--archive-dir", filepath.Join(home, "archive"), "--storage", store); err != nil {
		t.Fatalf("config add-context: %v", err)
	}

	out, err := runCmd(t, "--config", cfg, "--json", "session", "start",
		"--record", "--record-rate", "16000", "--duration", "10s")
	if err != nil {
		t.Fatalf("session start: %v", err)
	}
	jsonStart := strings.Index(out, "{")
	if jsonStart < 0 {
		t.Fatalf("session start printed no result: %q", out)
	}
	var res sessionResult
	if err := json.Unmarshal([]byte(out[jsonStart:]), &res); err != nil {
		t.Fatalf("session result: %v\n%s", err, out)
	}
	if len(res.Sessions) != 1 || res.Sessions[0].ID != "cli-1" || res.Sessions[0].TotalMessages != 2 {
		t.Errorf("sessions = %+v", res.Sessions)
	}
	if !strings.Contains(out, "I need a cleaning") || !strings.Contains(out, "Sure, which day?") {
		t.Errorf("live transcript missing from output: %q", out)
	}

	wav, err := os.ReadFile(filepath.Join(store, "cli-1", agentAudioFile))
	if err != nil {
		t.Fatalf("recording: %v", err)
	}
	if f, err := pcm.ReadWAVHeader(bytes.NewReader(wav)); err != nil || f != pcm.L16Mono16K {
		t.Errorf("recording header = %v, %v", f, err)
	}
	if !bytes.Equal(wav[pcm.WAVHeaderSize:], audio) {
		t.Errorf("recorded %d audio bytes; want %d", len(wav)-pcm.WAVHeaderSize, len(audio))
	}

	out, err = runCmd(t, "--config", cfg, "archive", "list", "--jq", ".[].session.session_id")
	if err != nil {
		t.Fatalf("archive list: %v", err)
	}
	if strings.TrimSpace(out) != `"cli-1"` {
		t.Errorf("archive list = %q", out)
	}

	if _, err := runCmd(t, "--config", cfg, "archive", "export", "cli-1"); err != nil {
		t.Fatalf("archive export: %v", err)
	}
	text, err := os.ReadFile(filepath.Join(store, "cli-1", "transcript.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(text), "user: I need a cleaning") || !strings.Contains(string(text), "agent: Sure, which day?") {
		t.Errorf("transcript.txt = %q", text)
	}
}

func TestSessionStart_NoContext(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	if _, err := runCmd(t, "--config", cfg, "session", "start"); err == nil || !strings.Contains(err.Error(), "no context") {
		t.Errorf("session start without context error = %v", err)
	}
}

func TestArchiveList_Empty(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfg := filepath.Join(home, "config.yaml")
	if _, err := runCmd(t, "--config", cfg, "config", "add-context", "dev",
		"--base-url", "http://127.0.0.1:1", "--archive-dir", filepath.Join(home, "archive")); err != nil {
		t.Fatalf("config add-context: %v", err)
	}

	out, err := runCmd(t, "--config", cfg, "archive", "list")
	if err != nil {
		t.Fatalf("archive list: %v", err)
	}
	if !strings.Contains(out, "No archived sessions") {
		t.Errorf("archive list output = %q", out)
	}
}

func TestLoadSessionRequest_FlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "session.yaml")
	os.WriteFile(file, []byte("input: a.pcm\ninput_rate: 8000\nduration: 30s\n"), 0644)

	sessionStartCmd.Flags().Set("duration", "5s")
	defer resetFlags(sessionStartCmd)
	inputFile = file
	defer func() { inputFile = "" }()

	req, err := loadSessionRequest(sessionStartCmd)
	if err != nil {
		t.Fatal(err)
	}
	if req.Input != "a.pcm" || req.InputRate != 8000 || req.Duration != "5s" || req.BridgeRate != 16000 {
		t.Errorf("request = %+v", req)
	}
}

func TestOpenInput(t *testing.T) {
	dir := t.TempDir()
	samples := bytes.Repeat([]byte{0x00, 0x10}, 800)

	wavPath := filepath.Join(dir, "caller.wav")
	var wav bytes.Buffer
	pcm.WriteWAV(&wav, pcm.L16Mono16K, samples)
	os.WriteFile(wavPath, wav.Bytes(), 0644)

	r, err := openInput(wavPath, 0, pcm.L16Mono16K)(t.Context())
	if err != nil {
		t.Fatalf("openInput(wav) error: %v", err)
	}
	got := new(bytes.Buffer)
	got.ReadFrom(r)
	r.(*os.File).Close()
	if !bytes.Equal(got.Bytes(), samples) {
		t.Errorf("wav input yielded %d bytes; want the %d payload bytes", got.Len(), len(samples))
	}

	rawPath := filepath.Join(dir, "caller.pcm")
	os.WriteFile(rawPath, samples, 0644)
	r, err = openInput(rawPath, 8000, pcm.L16Mono16K)(t.Context())
	if err != nil {
		t.Fatalf("openInput(pcm) error: %v", err)
	}
	rf, ok := r.(*resampledFile)
	if !ok {
		t.Fatalf("raw 8k input reader = %T; want a resampling reader", r)
	}
	rf.Close()

	if _, err := openInput(rawPath, 11025, pcm.L16Mono16K)(t.Context()); err == nil {
		t.Error("openInput with an unsupported rate succeeded")
	}
	if _, err := openInput(filepath.Join(dir, "missing.pcm"), 0, pcm.L16Mono16K)(t.Context()); err == nil {
		t.Error("openInput(missing) succeeded")
	}
}

func TestListOptions(t *testing.T) {
	defer resetFlags(archiveListCmd)
	archiveListCmd.Flags().Set("day", "2024-01-15")
	archiveListCmd.Flags().Set("since", "2h")
	archiveListCmd.Flags().Set("oldest", "true")

	before := time.Now()
	opts, err := listOptions(archiveListCmd)
	if err != nil {
		t.Fatal(err)
	}
	if !opts.Day.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)) || !opts.Oldest || opts.Limit != 20 {
		t.Errorf("options = %+v", opts)
	}
	if d := before.Sub(opts.Since); d < 2*time.Hour-time.Second || d > 2*time.Hour+time.Second {
		t.Errorf("Since = %v; want two hours ago", opts.Since)
	}

	archiveListCmd.Flags().Set("day", "15/01/2024")
	if _, err := listOptions(archiveListCmd); err == nil {
		t.Error("malformed --day accepted")
	}
}
