// Package journal persists the broadcast history of a session so finished
// games can be inspected or replayed offline. Journalling is best effort:
// callers log failures and keep playing.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"

	"goldenbrigade/server/internal/protocol"
)

var gameIDCleaner = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Manifest describes the journal bundle layout so tooling can locate artefacts.
type Manifest struct {
	Version        int    `json:"version"`
	GameID         string `json:"game_id"`
	CreatedAt      string `json:"created_at"`
	EventsPath     string `json:"events_path"`
	CheckpointPath string `json:"checkpoint_path"`
}

// entry is one journalled broadcast line inside the snappy stream.
type entry struct {
	At      string          `json:"at"`
	Message json.RawMessage `json:"message"`
}

// Writer streams one session's broadcasts into a snappy-framed JSONL file and
// keeps the latest full-state checkpoint beside it as zstd-compressed JSON.
type Writer struct {
	mu          sync.Mutex
	dir         string
	now         func() time.Time
	eventFile   *os.File
	eventStream *snappy.Writer
	closed      bool
}

// NewWriter prepares the journal directory, writes the manifest and opens the
// compressed event sink. A nil clock falls back to time.Now.
func NewWriter(root, gameID string, clock func() time.Time) (*Writer, error) {
	if root == "" {
		return nil, errors.New("journal root must be provided")
	}
	if clock == nil {
		clock = time.Now
	}

	cleaned := gameIDCleaner.ReplaceAllString(gameID, "")
	if cleaned == "" {
		cleaned = "game"
	}
	created := clock().UTC()
	dir := filepath.Join(root, fmt.Sprintf("%s-%s", cleaned, created.Format("20060102T150405Z")))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	eventsPath := filepath.Join(dir, "events.jsonl.sz")
	eventFile, err := os.Create(eventsPath)
	if err != nil {
		return nil, err
	}

	manifest := Manifest{
		Version:        1,
		GameID:         gameID,
		CreatedAt:      created.Format(time.RFC3339),
		EventsPath:     "events.jsonl.sz",
		CheckpointPath: "state.json.zst",
	}
	manifestBytes, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		_ = eventFile.Close()
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), manifestBytes, 0o644); err != nil {
		_ = eventFile.Close()
		return nil, err
	}

	return &Writer{
		dir:         dir,
		now:         clock,
		eventFile:   eventFile,
		eventStream: snappy.NewBufferedWriter(eventFile),
	}, nil
}

// Dir exposes the journal directory for logging and tests.
func (w *Writer) Dir() string {
	if w == nil {
		return ""
	}
	return w.dir
}

// Append records one broadcast message as a journal line.
func (w *Writer) Append(msg protocol.Message) error {
	if w == nil {
		return errors.New("nil journal writer")
	}
	payload, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	line, err := json.Marshal(entry{At: w.now().UTC().Format(time.RFC3339Nano), Message: payload})
	if err != nil {
		return err
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("journal closed")
	}
	if _, err := w.eventStream.Write(line); err != nil {
		return err
	}
	//1.- Flush per line so a crashed server still leaves a readable journal.
	return w.eventStream.Flush()
}

// Checkpoint replaces the on-disk full-state snapshot with the given state.
func (w *Writer) Checkpoint(state protocol.GameState) error {
	if w == nil {
		return errors.New("nil journal writer")
	}
	payload, err := protocol.Encode(state)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("journal closed")
	}

	file, err := os.Create(filepath.Join(w.dir, "state.json.zst"))
	if err != nil {
		return err
	}
	encoder, err := zstd.NewWriter(file)
	if err != nil {
		_ = file.Close()
		return err
	}
	if _, err := encoder.Write(payload); err != nil {
		_ = encoder.Close()
		_ = file.Close()
		return err
	}
	if err := encoder.Close(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// Close flushes and seals the journal. Further appends fail.
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.eventStream.Close(); err != nil {
		_ = w.eventFile.Close()
		return err
	}
	return w.eventFile.Close()
}
