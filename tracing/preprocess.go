package tracing

import "fmt"

// EmptyInstructionError is returned when an instruction carries no stage
// event.
type EmptyInstructionError struct {
	ID    uint64
	Index int
}

func (e *EmptyInstructionError) Error() string {
	return fmt.Sprintf(
		"instruction %d (batch index %d) has no stage event", e.ID, e.Index)
}

// Preprocess turns the instantaneous stage transitions of a batch of
// instructions into contiguous stage intervals. Each event ends when the next
// event of the same instruction starts. The last event ends at its own time,
// making it a zero-width marker.
//
// The batch is checked before anything is modified, so a batch with an empty
// instruction is left untouched.
func Preprocess(insts []*Instruction) error {
	for i, inst := range insts {
		if len(inst.Events) == 0 {
			return &EmptyInstructionError{ID: inst.ID, Index: i}
		}
	}

	for i, inst := range insts {
		last := len(inst.Events) - 1
		for j, evt := range inst.Events {
			evt.InstructionIndex = i
			evt.Inst = inst

			if j == last {
				evt.EndTime = evt.Time
				continue
			}

			evt.EndTime = inst.Events[j+1].Time
		}
	}

	return nil
}
