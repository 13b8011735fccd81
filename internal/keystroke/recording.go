package keystroke

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// recordingFile is the on-disk layout: {"events": [{"k": "a", "dt": 0.12}]}.
type recordingFile struct {
	Events []recordedEvent `json:"events"`
}

type recordedEvent struct {
	K  string  `json:"k"`
	DT float64 `json:"dt"`
}

// secondsToDuration converts a recorded dt back to a Duration, rounding to the
// nearest nanosecond so a save/load cycle is lossless.
func secondsToDuration(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

// EncodeRecording serializes events in recording file order.
func EncodeRecording(events []KeyEvent) ([]byte, error) {
	file := recordingFile{Events: make([]recordedEvent, len(events))}
	for i, e := range events {
		file.Events[i] = recordedEvent{K: string(e.Key), DT: e.Delay.Seconds()}
	}
	return json.MarshalIndent(file, "", "  ")
}

// DecodeRecording parses a recording file body. Order is preserved; delays
// are returned as stored, including negative ones (replay clamps them).
func DecodeRecording(data []byte) ([]KeyEvent, error) {
	var file recordingFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("keystroke: malformed recording: %w", err)
	}
	events := make([]KeyEvent, 0, len(file.Events))
	for _, e := range file.Events {
		if math.IsNaN(e.DT) || math.IsInf(e.DT, 0) {
			return nil, fmt.Errorf("keystroke: event %q has non-finite delay", e.K)
		}
		events = append(events, KeyEvent{Key: Symbol(e.K), Delay: secondsToDuration(e.DT)})
	}
	return events, nil
}

// LoadRecording reads a recording file. A missing file yields an error
// satisfying errors.Is(err, fs.ErrNotExist).
func LoadRecording(path string) ([]KeyEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keystroke: failed to read recording %s: %w", path, err)
	}
	return DecodeRecording(data)
}

// SaveRecording writes events to path, creating parent directories as needed.
func SaveRecording(path string, events []KeyEvent) error {
	data, err := EncodeRecording(events)
	if err != nil {
		return fmt.Errorf("keystroke: failed to encode recording: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("keystroke: failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("keystroke: failed to write recording %s: %w", path, err)
	}
	return nil
}
