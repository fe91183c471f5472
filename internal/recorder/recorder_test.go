package recorder

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2/smf"

	perrors "github.com/schollz/polysurface/internal/errors"
	"github.com/schollz/polysurface/internal/types"
)

type captureSink struct {
	got []Performance
	err error
}

func (c *captureSink) Export(p Performance) error {
	c.got = append(c.got, p)
	return c.err
}

func TestRecorderStates(t *testing.T) {
	r := New(nil)

	assert.ErrorIs(t, r.RecordNoteOn("C4", 1), perrors.ErrNotRecording)
	_, err := r.StopRecording()
	assert.ErrorIs(t, err, perrors.ErrNotRecording)
	assert.ErrorIs(t, err, perrors.ErrInvalidState)

	require.NoError(t, r.StartRecording(10))
	assert.True(t, r.Recording())
	assert.ErrorIs(t, r.StartRecording(11), perrors.ErrAlreadyRecording)

	require.NoError(t, r.RecordNoteOn("C4", 10))
	require.NoError(t, r.RecordNoteOn("E4", 10.5))
	assert.Equal(t, 2, r.Pending())

	perf, err := r.StopRecording()
	require.NoError(t, err)
	assert.False(t, r.Recording())
	assert.Equal(t, []Event{{"C4", 0}, {"E4", 0.5}}, perf.Events)
	assert.Equal(t, perf, r.Performance())
	assert.InDelta(t, 0.5, perf.Duration(), 1e-12)
}

func TestRecorderClockSkew(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.StartRecording(5))

	err := r.RecordNoteOn("G4", 4.9)
	assert.ErrorIs(t, err, perrors.ErrClockSkew)

	perf, err := r.StopRecording()
	require.NoError(t, err)
	assert.Equal(t, []Event{{"G4", 0}}, perf.Events, "event kept with offset clamped")
}

func TestRecorderSink(t *testing.T) {
	sink := &captureSink{err: errors.New("disk full")}
	r := New(sink)

	require.NoError(t, r.StartRecording(0))
	require.NoError(t, r.RecordNoteOn("A4", 0.25))
	perf, err := r.StopRecording()
	require.NoError(t, err, "sink errors never fail the stop")
	require.Len(t, sink.got, 1)
	assert.Equal(t, perf, sink.got[0])

	sink.got[0].Events[0].Note = "B4"
	assert.Equal(t, types.Note("A4"), r.Performance().Events[0].Note)
}

type voiceCall struct {
	op   string
	note types.Note
	at   float64
}

type fakeVoices struct {
	now   float64
	calls []voiceCall
}

func (f *fakeVoices) Strike(n types.Note) { f.calls = append(f.calls, voiceCall{"strike", n, f.now}) }
func (f *fakeVoices) Damp(n types.Note)   { f.calls = append(f.calls, voiceCall{"damp", n, f.now}) }

func TestReplayOffsets(t *testing.T) {
	perf := Performance{Events: []Event{{"C4", 0}, {"E4", 0.5}, {"G4", 1.0}}}
	before := perf.clone()

	p := NewPlayer()
	voices := &fakeVoices{}
	assert.Equal(t, 3, p.Replay(perf, 100))
	assert.Equal(t, 6, p.Pending())
	assert.Empty(t, voices.calls, "replay returns without firing")

	for i := 0; i <= 200; i++ {
		voices.now = 100 + float64(i)*0.01
		p.Tick(voices.now, voices)
	}

	var strikes []voiceCall
	for _, c := range voices.calls {
		if c.op == "strike" {
			strikes = append(strikes, c)
		}
	}
	require.Len(t, strikes, 3)
	for i, want := range []struct {
		note types.Note
		at   float64
	}{{"C4", 100}, {"E4", 100.5}, {"G4", 101}} {
		assert.Equal(t, want.note, strikes[i].note)
		assert.InDelta(t, want.at, strikes[i].at, 0.011)
	}
	assert.Len(t, voices.calls, 6)
	assert.Equal(t, 0, p.Pending())
	assert.False(t, p.Active())
	assert.Equal(t, 3, p.Fired())
	assert.Equal(t, before, perf, "performance not mutated")
}

func TestReplayEmptyIsNoop(t *testing.T) {
	p := NewPlayer()
	voices := &fakeVoices{}
	assert.Equal(t, 0, p.Replay(Performance{}, 0))
	assert.Equal(t, 0, p.Tick(10, voices))
	assert.Empty(t, voices.calls)
}

func TestReplayCancel(t *testing.T) {
	p := NewPlayer()
	voices := &fakeVoices{}
	p.Replay(Performance{Events: []Event{{"C4", 0}, {"D4", 1}}}, 0)
	p.Tick(0.1, voices)
	p.Cancel(voices)

	assert.Equal(t, []voiceCall{{"strike", "C4", 0}, {"damp", "C4", 0}}, voices.calls)
	assert.Equal(t, 0, p.Pending())
	assert.False(t, p.Active())
	p.Tick(5, voices)
	assert.Len(t, voices.calls, 2)
}

func TestReplayOverlappingNote(t *testing.T) {
	p := NewPlayer()
	voices := &fakeVoices{}
	p.Replay(Performance{Events: []Event{{"C4", 0}, {"C4", 0.1}}}, 0)

	for i := 0; i <= 30; i++ {
		voices.now = float64(i) * 0.01
		p.Tick(voices.now, voices)
	}
	assert.Equal(t, []voiceCall{{"strike", "C4", 0}, {"strike", "C4", 0.1}}, voices.calls,
		"first release must not cut the retriggered note")
	assert.True(t, p.Active())

	for i := 31; i <= 40; i++ {
		voices.now = float64(i) * 0.01
		p.Tick(voices.now, voices)
	}
	require.Len(t, voices.calls, 3)
	assert.Equal(t, "damp", voices.calls[2].op)
	assert.InDelta(t, 0.35, voices.calls[2].at, 0.011)
	assert.False(t, p.Active())

	t.Run("Cancel", func(t *testing.T) {
		p := NewPlayer()
		voices := &fakeVoices{}
		p.Replay(Performance{Events: []Event{{"C4", 0}, {"C4", 0.1}}}, 0)
		p.Tick(0.2, voices)
		p.Cancel(voices)
		assert.Equal(t, []voiceCall{{"strike", "C4", 0}, {"strike", "C4", 0}, {"damp", "C4", 0}}, voices.calls)
	})
}

func TestWriteSMF(t *testing.T) {
	perf := Performance{Events: []Event{{"C4", 0}, {"C4", 0.25}, {"G4", 1.0}}}

	var buf bytes.Buffer
	require.NoError(t, WriteSMF(&buf, perf, 120, 0.25, 0))

	s, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, s.Tracks, 1)

	var tick uint32
	var ons, offs []uint32
	for _, ev := range s.Tracks[0] {
		tick += ev.Delta
		msg := ev.Message
		if len(msg) < 3 {
			continue
		}
		switch {
		case msg[0]&0xF0 == 0x90 && msg[2] > 0:
			ons = append(ons, tick)
		case msg[0]&0xF0 == 0x80:
			offs = append(offs, tick)
		}
	}
	// 0.25 s at 120 BPM is half a beat
	assert.Equal(t, []uint32{0, 480, 1920}, ons)
	assert.Equal(t, []uint32{480, 960, 2400}, offs)
}

func TestSMFSinkWritesTakes(t *testing.T) {
	dir := t.TempDir()
	sink := NewSMFSink(dir, func() float64 { return 90 })

	require.NoError(t, sink.Export(Performance{}), "empty takes are skipped")
	require.NoError(t, sink.Export(Performance{Events: []Event{{"A4", 0}}}))
	require.NoError(t, sink.Export(Performance{Events: []Event{{"B4", 0}}}))

	for _, name := range []string{"take-001.mid", "take-002.mid"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}
