// Package preset serializes effect and engine parameters to a
// gzip-compressed JSON blob.
package preset

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"log"
	"sort"

	jsoniter "github.com/json-iterator/go"

	"github.com/schollz/polysurface/internal/effects"
	perrors "github.com/schollz/polysurface/internal/errors"
	"github.com/schollz/polysurface/internal/storage"
	"github.com/schollz/polysurface/internal/types"
)

// Version is written into every blob; Decode rejects other versions.
const Version = 1

var json = jsoniter.Config{
	SortMapKeys:            true,
	EscapeHTML:             false,
	ValidateJsonRawMessage: true,
}.Froze()

type document struct {
	Version    int                `json:"version"`
	Oscillator string             `json:"oscillator"`
	Params     map[string]float64 `json:"params"`
}

// Source is what Save reads parameters from. *effects.Chain implements it.
type Source interface {
	EffectSnapshot() effects.Snapshot
	EngineSnapshot() effects.Snapshot
}

// Encode writes every parameter of fx and eng. The output is deterministic
// for equal input. Together the snapshots must hold every declared
// parameter; a missing or unknown parameter or a value outside its domain
// fails with ErrEncode.
func Encode(fx, eng effects.Snapshot) ([]byte, error) {
	all := fx.Merge(eng)
	doc := document{Version: Version, Params: make(map[string]float64)}

	for stage, params := range all {
		for name, v := range params {
			p, ok := effects.Lookup(stage + "." + name)
			if !ok {
				return nil, fmt.Errorf("unknown parameter %s.%s: %w", stage, name, perrors.ErrEncode)
			}
			if !p.Contains(v) {
				return nil, fmt.Errorf("%s = %g outside [%g, %g]: %w", p.Path(), v, p.Min, p.Max, perrors.ErrEncode)
			}
			doc.Params[p.Path()] = v
		}
	}
	for _, p := range effects.Params() {
		if _, ok := doc.Params[p.Path()]; !ok {
			return nil, fmt.Errorf("missing %s: %w", p.Path(), perrors.ErrEncode)
		}
	}
	doc.Oscillator = types.OscillatorType(doc.Params["source.oscillator"]).String()

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal preset: %v: %w", err, perrors.ErrEncode)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return nil, fmt.Errorf("compress preset: %v: %w", err, perrors.ErrEncode)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("compress preset: %v: %w", err, perrors.ErrEncode)
	}
	return buf.Bytes(), nil
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), perrors.ErrCorruptData)
}

// Decode parses a blob produced by Encode. It is all-or-nothing: a blob
// that is unreadable, of another version, misses a declared parameter or
// holds an out-of-range value yields ErrCorruptData and no snapshot.
func Decode(blob []byte) (effects.Snapshot, error) {
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, corrupt("open preset: %v", err)
	}
	data, err := io.ReadAll(gz)
	if err != nil {
		return nil, corrupt("decompress preset: %v", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, corrupt("parse preset: %v", err)
	}
	if doc.Version != Version {
		return nil, corrupt("preset version %d, want %d", doc.Version, Version)
	}

	out := make(effects.Snapshot)
	for _, p := range effects.Params() {
		v, ok := doc.Params[p.Path()]
		if !ok {
			return nil, corrupt("missing %s", p.Path())
		}
		if !p.Contains(v) {
			return nil, corrupt("%s = %g outside [%g, %g]", p.Path(), v, p.Min, p.Max)
		}
		if out[p.Stage] == nil {
			out[p.Stage] = make(map[string]float64)
		}
		out[p.Stage][p.Name] = v
	}
	if len(doc.Params) != len(effects.Params()) {
		var unknown []string
		for path := range doc.Params {
			if _, ok := effects.Lookup(path); !ok {
				unknown = append(unknown, path)
			}
		}
		sort.Strings(unknown)
		return nil, corrupt("unknown parameters %v", unknown)
	}

	osc, err := types.ParseOscillator(doc.Oscillator)
	if err != nil || float64(osc) != out[effects.StageSource]["oscillator"] {
		return nil, corrupt("oscillator %q does not match source.oscillator", doc.Oscillator)
	}
	return out, nil
}

// Save encodes the current parameters of src under key.
func Save(store storage.Store, key string, src Source) error {
	blob, err := Encode(src.EffectSnapshot(), src.EngineSnapshot())
	if err != nil {
		return err
	}
	if err := store.Set(key, blob); err != nil {
		return fmt.Errorf("save preset %q: %w", key, err)
	}
	log.Printf("saved preset %q (%d bytes)", key, len(blob))
	return nil
}

// Load reads and decodes the preset stored under key. A missing key is
// ErrNotFound.
func Load(store storage.Store, key string) (effects.Snapshot, error) {
	blob, ok, err := store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("load preset %q: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("preset %q: %w", key, perrors.ErrNotFound)
	}
	snap, err := Decode(blob)
	if err != nil {
		return nil, fmt.Errorf("preset %q: %w", key, err)
	}
	return snap, nil
}
