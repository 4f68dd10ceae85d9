package tracing

import "github.com/sarchlab/tracenav/stage"

// A StageEvent marks the moment an instruction enters a pipeline stage.
type StageEvent struct {
	Time  float64    `json:"time"`
	Stage stage.Code `json:"stage"`

	// EndTime is the time of the next event of the same instruction, or Time
	// if this is the last event. Filled by Preprocess.
	EndTime float64 `json:"-"`

	// InstructionIndex is the position of the owning instruction in the batch
	// that was preprocessed. Filled by Preprocess.
	InstructionIndex int `json:"-"`

	// Inst points back to the owning instruction. It is only used to look up
	// metadata.
	Inst *Instruction `json:"-"`
}

// Duration returns how long the instruction stays in the stage.
func (e *StageEvent) Duration() float64 {
	return e.EndTime - e.Time
}

// An Instruction is one dynamic instruction and the stage events it went
// through.
type Instruction struct {
	ID          uint64        `json:"id"`
	WorkgroupID int           `json:"workgroup_id,omitempty"`
	WavefrontID int           `json:"wavefront_id,omitempty"`
	SIMDID      int           `json:"simd_id,omitempty"`
	Asm         string        `json:"asm"`
	Events      []*StageEvent `json:"events"`
}

// StartTime returns the time of the first event.
func (i *Instruction) StartTime() float64 {
	return i.Events[0].Time
}

// EndTime returns the time of the last event.
func (i *Instruction) EndTime() float64 {
	return i.Events[len(i.Events)-1].Time
}

// OverviewBucket summarizes how many stage events fall into a time window.
type OverviewBucket struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Count     int     `json:"count"`
}

// TimeRange is a closed time interval.
type TimeRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// NewTimeRange creates a time range, swapping the ends if needed.
func NewTimeRange(a, b float64) TimeRange {
	if a > b {
		a, b = b, a
	}

	return TimeRange{Start: a, End: b}
}

// Duration returns the length of the range.
func (r TimeRange) Duration() float64 {
	return r.End - r.Start
}

// Overlaps tells if the range shares at least one point with [start, end].
func (r TimeRange) Overlaps(start, end float64) bool {
	return end >= r.Start && start <= r.End
}
