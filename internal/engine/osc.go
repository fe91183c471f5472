package engine

import (
	"log"

	"github.com/hypebeast/go-osc/osc"

	perrors "github.com/schollz/polysurface/internal/errors"
	"github.com/schollz/polysurface/internal/types"
)

// OSC addresses understood by the remote synth.
const (
	AddrNoteOn   = "/note_on"
	AddrNoteOff  = "/note_off"
	AddrParam    = "/param"
	AddrWaveform = "/waveform"
)

// oscSender is the part of *osc.Client the engine needs.
type oscSender interface {
	Send(packet osc.Packet) error
}

// OSCEngine drives a remote synth over OSC.
type OSCEngine struct {
	client   oscSender
	analysis *AnalysisBuffer
}

// NewOSCEngine creates an engine sending to host:port.
func NewOSCEngine(host string, port int) *OSCEngine {
	log.Printf("OSC engine sending to %s:%d", host, port)
	return &OSCEngine{
		client:   osc.NewClient(host, port),
		analysis: NewAnalysisBuffer(2048),
	}
}

func (e *OSCEngine) send(op, path string, msg *osc.Message) error {
	if err := e.client.Send(msg); err != nil {
		return perrors.NewEngineError(op, path, err)
	}
	return nil
}

func (e *OSCEngine) Attack(note types.Note) error {
	return e.send("attack", note.String(), osc.NewMessage(AddrNoteOn, note.String(), int32(note.MIDI())))
}

func (e *OSCEngine) Release(note types.Note) error {
	return e.send("release", note.String(), osc.NewMessage(AddrNoteOff, note.String(), int32(note.MIDI())))
}

func (e *OSCEngine) SetParameter(path string, value float64) error {
	return e.send("param", path, osc.NewMessage(AddrParam, path, float32(value)))
}

func (e *OSCEngine) AnalysisSamples() []float64 {
	return e.analysis.Samples()
}

// Attach registers the analysis handler on the dispatcher of the OSC
// server that listens for engine feedback.
func (e *OSCEngine) Attach(d *osc.StandardDispatcher) error {
	return d.AddMsgHandler(AddrWaveform, e.handleWaveform)
}

func (e *OSCEngine) handleWaveform(msg *osc.Message) {
	for _, arg := range msg.Arguments {
		switch v := arg.(type) {
		case float32:
			e.analysis.Push(float64(v))
		case float64:
			e.analysis.Push(v)
		}
	}
}
