package keystroke

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvents() []KeyEvent {
	return []KeyEvent{
		{Key: KeyTab, Delay: 1200 * time.Millisecond},
		{Key: KeyShift, Delay: 310 * time.Millisecond},
		{Key: "J", Delay: 95*time.Millisecond + 123456},
		{Key: "a", Delay: 142 * time.Millisecond},
		{Key: KeyBackspace, Delay: 0},
		{Key: "0", Delay: 3*time.Second + 7},
		{Key: KeyEnter, Delay: 88 * time.Millisecond},
	}
}

func TestRecording_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "login_recording.json")
	want := sampleEvents()

	require.NoError(t, SaveRecording(path, want))
	got, err := LoadRecording(path)
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRecording_FileLayout(t *testing.T) {
	data, err := EncodeRecording([]KeyEvent{{Key: KeyTab, Delay: 1500 * time.Millisecond}, {Key: "x", Delay: 0}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"events":[{"k":"Key.tab","dt":1.5},{"k":"x","dt":0}]}`, string(data))
}

func TestDecodeRecording_KeepsNegativeDelays(t *testing.T) {
	events, err := DecodeRecording([]byte(`{"events":[{"k":"a","dt":-0.25},{"k":"Key.enter","dt":0.5}]}`))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, -250*time.Millisecond, events[0].Delay)
	assert.Equal(t, KeyEnter, events[1].Key)
}

func TestDecodeRecording_Malformed(t *testing.T) {
	_, err := DecodeRecording([]byte(`{"events": [`))
	assert.Error(t, err)
}

func TestDecodeRecording_MissingEvents(t *testing.T) {
	events, err := DecodeRecording([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestLoadRecording_Missing(t *testing.T) {
	_, err := LoadRecording(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestSaveRecording_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.json")
	require.NoError(t, SaveRecording(path, sampleEvents()))
	require.NoError(t, SaveRecording(path, []KeyEvent{{Key: "z", Delay: time.Millisecond}}))

	got, err := LoadRecording(path)
	require.NoError(t, err)
	assert.Equal(t, []KeyEvent{{Key: "z", Delay: time.Millisecond}}, got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

// FuzzRecordingRoundTrip checks that any generated sequence survives encoding.
func FuzzRecordingRoundTrip(f *testing.F) {
	f.Add([]byte("seed-data-for-keystrokes"))
	f.Fuzz(func(t *testing.T, data []byte) {
		consumer := fuzz.NewConsumer(data)
		var raw []struct {
			Key   string
			Delay int64
		}
		if err := consumer.CreateSlice(&raw); err != nil {
			return
		}

		events := make([]KeyEvent, 0, len(raw))
		for _, r := range raw {
			// Keep delays within a day; recordings never span longer.
			d := time.Duration(r.Delay % int64(24*time.Hour))
			events = append(events, KeyEvent{Key: Symbol(r.Key), Delay: d})
		}

		encoded, err := EncodeRecording(events)
		require.NoError(t, err)
		decoded, err := DecodeRecording(encoded)
		require.NoError(t, err)
		// Invalid UTF-8 keys are replaced by the encoder, so only order and
		// cadence are compared here.
		require.Len(t, decoded, len(events))
		for i := range events {
			if events[i].Delay != decoded[i].Delay {
				t.Fatalf("delay mismatch at %d: %v != %v", i, events[i].Delay, decoded[i].Delay)
			}
		}
	})
}
