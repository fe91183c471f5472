package voice

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"

	perrors "github.com/schollz/polysurface/internal/errors"
	"github.com/schollz/polysurface/internal/types"
)

type call struct {
	op   string
	note types.Note
}

type fakeEngine struct {
	calls []call
	err   error
}

func (f *fakeEngine) Attack(n types.Note) error {
	f.calls = append(f.calls, call{"attack", n})
	return f.err
}

func (f *fakeEngine) Release(n types.Note) error {
	f.calls = append(f.calls, call{"release", n})
	return f.err
}

var (
	c4 = types.MustNote("C4")
	e4 = types.MustNote("E4")
	g4 = types.MustNote("G4")
)

func TestTriggerIsIdempotent(t *testing.T) {
	eng := &fakeEngine{}
	r := NewRegistry(eng)

	r.Trigger(c4)
	r.Trigger(c4)
	r.Trigger(c4)

	assert.Equal(t, 1, r.Len())
	assert.True(t, r.IsActive(c4))
	assert.Equal(t, []call{{"attack", c4}}, eng.calls, "attack forwarded once per logical press")
}

func TestReleaseWhenAbsentIsNoop(t *testing.T) {
	eng := &fakeEngine{}
	r := NewRegistry(eng)

	r.Release(c4)
	assert.Empty(t, eng.calls)

	r.Trigger(c4)
	r.Release(c4)
	r.Release(c4)
	assert.Equal(t, []call{{"attack", c4}, {"release", c4}}, eng.calls)
	assert.Equal(t, 0, r.Len())
}

func TestReleaseAll(t *testing.T) {
	eng := &fakeEngine{}
	r := NewRegistry(eng)
	for _, n := range []types.Note{g4, c4, e4} {
		r.Trigger(n)
	}
	eng.calls = nil

	r.ReleaseAll()

	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.ActiveNotes())
	assert.Equal(t, []call{{"release", c4}, {"release", e4}, {"release", g4}}, eng.calls)

	r.ReleaseAll()
	assert.Len(t, eng.calls, 3, "releasing an empty registry sends nothing")
}

// TestMatchesReferenceModel applies random trigger/release sequences and
// compares against a plain set.
func TestMatchesReferenceModel(t *testing.T) {
	alphabet := []types.Note{c4, e4, g4, "A4", "B2", "F#5"}
	rng := rand.New(rand.NewPCG(1, 2))

	for trial := 0; trial < 200; trial++ {
		r := NewRegistry(&fakeEngine{})
		model := make(map[types.Note]bool)

		for op := 0; op < 50; op++ {
			n := alphabet[rng.IntN(len(alphabet))]
			switch rng.IntN(5) {
			case 0:
				r.ReleaseAll()
				model = make(map[types.Note]bool)
			case 1, 2:
				r.Trigger(n)
				model[n] = true
			default:
				r.Release(n)
				delete(model, n)
			}
		}

		assert.Equal(t, len(model), r.Len())
		for _, n := range r.ActiveNotes() {
			assert.True(t, model[n], "trial %d: %s active but not in model", trial, n)
		}

		r.ReleaseAll()
		assert.Equal(t, 0, r.Len())
	}
}

func TestActiveNotesIsSnapshot(t *testing.T) {
	r := NewRegistry(&fakeEngine{})
	r.Trigger(e4)
	r.Trigger(c4)

	snap := r.ActiveNotes()
	assert.Equal(t, []types.Note{c4, e4}, snap, "sorted by pitch")

	r.Release(c4)
	assert.Equal(t, []types.Note{c4, e4}, snap, "snapshot unaffected by later mutation")
	snap[0] = g4
	assert.False(t, r.IsActive(g4))
}

func TestStrikeAndDamp(t *testing.T) {
	eng := &fakeEngine{}
	r := NewRegistry(eng)

	r.Strike(c4)
	r.Damp(c4)
	assert.Equal(t, []call{{"attack", c4}, {"release", c4}}, eng.calls)
	assert.Equal(t, 0, r.Len(), "plucks never enter the held set")

	eng.calls = nil
	r.Trigger(e4)
	r.Strike(e4)
	r.Damp(e4)
	assert.Equal(t, []call{{"attack", e4}, {"attack", e4}}, eng.calls, "damp suppressed while held")
	assert.True(t, r.IsActive(e4))

	attacks, releases := r.Counts()
	assert.Equal(t, 3, attacks)
	assert.Equal(t, 1, releases)
}

func TestEngineFaultKeepsState(t *testing.T) {
	eng := &fakeEngine{err: perrors.NewEngineError("attack", "C4", errors.New("connection refused"))}
	r := NewRegistry(eng)

	var faults []error
	r.OnFault(func(err error) { faults = append(faults, err) })

	r.Trigger(c4)
	assert.True(t, r.IsActive(c4))
	assert.Len(t, faults, 1)
	assert.ErrorIs(t, faults[0], perrors.ErrEngineLost)

	quiet := &fakeEngine{}
	r.SetEngine(quiet)
	r.Release(c4)
	assert.Equal(t, []call{{"release", c4}}, quiet.calls)
	assert.Len(t, faults, 1)
}
