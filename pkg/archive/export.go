package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/callwaiting/voxbridge/pkg/storage"
	"github.com/callwaiting/voxbridge/pkg/transcript"
)

// Export file names, relative to the session directory.
const (
	TranscriptFile = "transcript.json"
	TextFile       = "transcript.txt"
)

// Export writes rec under <id>/ in fs: the full record as JSON and a plain
// text rendering of the conversation. It returns the URI of the JSON file.
func Export(ctx context.Context, fs storage.FileStore, rec *Record) (string, error) {
	dir := rec.Session.ID
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("archive: export %s: %w", dir, err)
	}
	jsonPath := path.Join(dir, TranscriptFile)
	if err := storage.WriteFile(ctx, fs, jsonPath, append(data, '\n')); err != nil {
		return "", err
	}
	if err := storage.WriteFile(ctx, fs, path.Join(dir, TextFile), []byte(PlainText(rec.Messages))); err != nil {
		return "", err
	}
	return fs.URI(jsonPath), nil
}

// PlainText renders final messages one per line as "speaker: text".
func PlainText(messages []transcript.Message) string {
	var b strings.Builder
	for _, m := range messages {
		if !m.IsFinal {
			continue
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", m.Timestamp.Time().UTC().Format("15:04:05"), m.Speaker, m.Text)
	}
	return b.String()
}
