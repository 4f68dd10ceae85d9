// Package rendering lays out the detailed view of a time range: one row per
// instruction and one time-scaled segment per stage event.
package rendering

import "github.com/sarchlab/tracenav/tracing"

// A Segment is the rectangle that represents one stage event.
type Segment struct {
	X, Y          float64
	Width, Height float64

	// Fill and Stroke are colors. Empty means none.
	Fill   string
	Stroke string
}

// Surface is where the detailed view is drawn. Rows are keyed by instruction
// ID and segments by their index in the instruction's events.
type Surface interface {
	Size() (width, height float64)
	SetTimeAxis(r tracing.TimeRange)

	AddRow(id uint64)
	RemoveRow(id uint64)

	AddSegment(row uint64, index int, seg Segment)
	UpdateSegment(row uint64, index int, seg Segment)
	RemoveSegment(row uint64, index int)
}
