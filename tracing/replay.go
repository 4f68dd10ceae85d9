package tracing

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/tracenav/stage"
)

// Kinds of transitions in a transition log.
const (
	TransitionStart = "start"
	TransitionStep  = "step"
	TransitionEnd   = "end"
)

// A Transition is one line of the transition log a simulator writes while
// instructions move through the pipeline. The instruction metadata is only
// read from start transitions.
type Transition struct {
	Kind  string     `json:"kind"`
	ID    uint64     `json:"id"`
	Time  float64    `json:"time"`
	Stage stage.Code `json:"stage,omitempty"`

	WorkgroupID int    `json:"workgroup_id,omitempty"`
	WavefrontID int    `json:"wavefront_id,omitempty"`
	SIMDID      int    `json:"simd_id,omitempty"`
	Asm         string `json:"asm,omitempty"`
}

// Apply feeds the transition to a recorder.
func (t Transition) Apply(r *Recorder) error {
	switch t.Kind {
	case TransitionStart:
		inst := Instruction{
			ID:          t.ID,
			WorkgroupID: t.WorkgroupID,
			WavefrontID: t.WavefrontID,
			SIMDID:      t.SIMDID,
			Asm:         t.Asm,
		}

		return r.StartInstruction(inst, t.Time, t.Stage)
	case TransitionStep:
		return r.StepInstruction(t.ID, t.Time, t.Stage)
	case TransitionEnd:
		return r.EndInstruction(t.ID, t.Time)
	default:
		return fmt.Errorf("unknown transition kind %q", t.Kind)
	}
}

// Replay reads a stream of JSON transitions and feeds them to the recorder.
// The recorder is terminated at the end of the stream, so instructions that
// never end are dropped. It returns the number of transitions read.
func Replay(in io.Reader, r *Recorder) (int, error) {
	dec := json.NewDecoder(in)

	count := 0
	for {
		var t Transition

		err := dec.Decode(&t)
		if errors.Is(err, io.EOF) {
			break
		}

		if err == nil {
			err = t.Apply(r)
		}

		if err != nil {
			return count, fmt.Errorf("transition %d: %w", count, err)
		}

		count++
	}

	if n := r.InFlight(); n > 0 {
		logrus.WithField("in_flight", n).
			Warn("Dropping instructions that never ended")
	}

	return count, r.Terminate()
}
