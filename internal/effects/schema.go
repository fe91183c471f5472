package effects

import (
	"math"
	"strings"

	"github.com/schollz/polysurface/internal/types"
)

// Stage names in signal order.
const (
	StageSource     = "source"
	StageReverb     = "reverb"
	StageDelay      = "delay"
	StageDistortion = "distortion"
	StageAnalysis   = "analysis"
	StageOutput     = "output"
)

// Param declares one stage parameter and its domain.
type Param struct {
	Stage   string
	Name    string
	Min     float64
	Max     float64
	Default float64
	Enum    bool // integral values only
}

// Path is the engine address of the parameter, e.g. "reverb.wet".
func (p Param) Path() string { return p.Stage + "." + p.Name }

// Clamp limits v to [Min, Max], rounding enum parameters. NaN maps to Default.
func (p Param) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return p.Default
	}
	if p.Enum {
		v = math.Round(v)
	}
	return math.Max(p.Min, math.Min(p.Max, v))
}

// Contains reports whether v lies inside the declared domain.
func (p Param) Contains(v float64) bool {
	if math.IsNaN(v) || v < p.Min || v > p.Max {
		return false
	}
	return !p.Enum || v == math.Round(v)
}

// Stage is one fixed step of the pipeline.
type Stage struct {
	Name   string
	Params []Param
}

// Stages is the signal path: source → reverb → delay → distortion →
// analysis tap → output. Adding a stage is a schema change here.
var Stages = []Stage{
	{StageSource, []Param{
		{StageSource, "volume", -60, 6, -12, false},
		{StageSource, "detune", -1200, 1200, 0, false},
		{StageSource, "attack", 0.001, 2, 0.01, false},
		{StageSource, "decay", 0.001, 2, 0.2, false},
		{StageSource, "sustain", 0, 1, 0.5, false},
		{StageSource, "release", 0.001, 5, 0.8, false},
		{StageSource, "oscillator", 0, 3, float64(types.OscSawtooth), true},
	}},
	{StageReverb, []Param{
		{StageReverb, "wet", 0, 1, 0.3, false},
		{StageReverb, "decay", 0.1, 10, 2.5, false},
	}},
	{StageDelay, []Param{
		{StageDelay, "wet", 0, 1, 0.2, false},
		{StageDelay, "time", 0, 1, 0.25, false},
		{StageDelay, "feedback", 0, 0.95, 0.4, false},
	}},
	{StageDistortion, []Param{
		{StageDistortion, "wet", 0, 1, 0, false},
		{StageDistortion, "amount", 0, 1, 0.4, false},
	}},
	{StageAnalysis, []Param{
		{StageAnalysis, "smoothing", 0, 1, 0.8, false},
		{StageAnalysis, "size", 32, 2048, 256, true},
	}},
	{StageOutput, []Param{
		{StageOutput, "volume", -60, 6, 0, false},
	}},
}

// engineStages are the stages whose values belong to the engine's own
// voice settings rather than to the effect processors.
var engineStages = map[string]bool{StageSource: true, StageOutput: true}

var index = func() map[string]Param {
	idx := make(map[string]Param)
	for _, st := range Stages {
		for _, p := range st.Params {
			idx[p.Path()] = p
		}
	}
	return idx
}()

// Lookup finds a parameter by its "stage.name" path.
func Lookup(path string) (Param, bool) {
	p, ok := index[path]
	return p, ok
}

// SplitPath splits "stage.name" into its parts.
func SplitPath(path string) (stage, name string, ok bool) {
	stage, name, ok = strings.Cut(path, ".")
	return stage, name, ok && stage != "" && name != ""
}

// Params returns every declared parameter in pipeline order.
func Params() []Param {
	var out []Param
	for _, st := range Stages {
		out = append(out, st.Params...)
	}
	return out
}
