package tracing

import (
	"fmt"
	"sync"

	"github.com/sarchlab/tracenav/stage"
)

// Recorder collects the stage transitions of the instructions that are in
// flight in a simulator. An instruction is written to the TraceWriter when it
// completes.
type Recorder struct {
	mu sync.Mutex

	writer             TraceWriter
	startTime, endTime float64
	inFlight           map[uint64]*Instruction
	written            int
}

// NewRecorder creates a recorder that writes to w.
func NewRecorder(w TraceWriter) *Recorder {
	return &Recorder{
		writer:   w,
		inFlight: make(map[uint64]*Instruction),
	}
}

// SetTimeRange restricts the recording to the instructions that overlap
// [startTime, endTime]. A zero bound is ignored.
func (r *Recorder) SetTimeRange(startTime, endTime float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.startTime = startTime
	r.endTime = endTime
}

// StartInstruction marks that an instruction enters the pipeline at a stage.
// The events of inst are ignored.
func (r *Recorder) StartInstruction(
	inst Instruction,
	time float64,
	s stage.Code,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.inFlight[inst.ID]; dup {
		return fmt.Errorf("instruction %d is already in flight", inst.ID)
	}

	if r.endTime > 0 && time > r.endTime {
		return nil
	}

	inst.Events = []*StageEvent{{Time: time, Stage: s}}
	r.inFlight[inst.ID] = &inst

	return nil
}

// StepInstruction marks that an in-flight instruction moves to a stage.
// Instructions that are not recorded are ignored.
func (r *Recorder) StepInstruction(id uint64, time float64, s stage.Code) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.inFlight[id]
	if !ok {
		return nil
	}

	return appendEvent(inst, time, s)
}

// EndInstruction marks the completion of an instruction and writes it.
func (r *Recorder) EndInstruction(id uint64, time float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.inFlight[id]
	if !ok {
		return nil
	}

	delete(r.inFlight, id)

	if r.startTime > 0 && time < r.startTime {
		return nil
	}

	err := appendEvent(inst, time, stage.Complete)
	if err != nil {
		return err
	}

	err = r.writer.Write(inst)
	if err != nil {
		return err
	}

	r.written++

	return nil
}

func appendEvent(inst *Instruction, time float64, s stage.Code) error {
	last := inst.Events[len(inst.Events)-1]
	if time < last.Time {
		return fmt.Errorf(
			"instruction %d: event at %g is before the previous one at %g",
			inst.ID, time, last.Time)
	}

	inst.Events = append(inst.Events, &StageEvent{Time: time, Stage: s})

	return nil
}

// InFlight returns the number of instructions that have not completed.
func (r *Recorder) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.inFlight)
}

// Written returns the number of instructions handed to the writer.
func (r *Recorder) Written() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.written
}

// Terminate drops the instructions that are still in flight and flushes the
// writer.
func (r *Recorder) Terminate() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.inFlight = make(map[uint64]*Instruction)

	return r.writer.Flush()
}
