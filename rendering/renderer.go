package rendering

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/tracenav/scale"
	"github.com/sarchlab/tracenav/stage"
	"github.com/sarchlab/tracenav/tracing"
)

// BarHeightRatio is the part of a row that a segment covers vertically. The
// rest is the gap between rows.
const BarHeightRatio = 0.7

var log = logrus.WithField("component", "rendering")

type row struct {
	inst     *tracing.Instruction
	segments []Segment
}

// Renderer draws instructions onto a Surface. It remembers what it drew so
// that the next render only adds, removes, and updates what changed.
type Renderer struct {
	surface Surface

	timeRange tracing.TimeRange
	order     []uint64
	rows      map[uint64]*row
}

// NewRenderer creates a renderer that draws on the given surface.
func NewRenderer(surface Surface) *Renderer {
	return &Renderer{
		surface: surface,
		rows:    make(map[uint64]*row),
	}
}

// TimeRange returns the range of the last successful render.
func (r *Renderer) TimeRange() tracing.TimeRange {
	return r.timeRange
}

// Rows returns the IDs of the rendered instructions, top to bottom.
func (r *Renderer) Rows() []uint64 {
	return append([]uint64(nil), r.order...)
}

// Segments returns the segments of a rendered instruction.
func (r *Renderer) Segments(id uint64) []Segment {
	row, ok := r.rows[id]
	if !ok {
		return nil
	}

	return append([]Segment(nil), row.segments...)
}

// Render shows the preprocessed instructions of a time range. The layout is
// computed before anything is drawn, so a failure leaves the surface as it
// was.
func (r *Renderer) Render(
	timeRange tracing.TimeRange,
	insts []*tracing.Instruction,
) error {
	width, height := r.surface.Size()

	next, order, err := layout(timeRange, insts, width, height)
	if err != nil {
		return err
	}

	diff := Reconcile(r.order, order)

	r.surface.SetTimeAxis(timeRange)

	for _, id := range diff.Removed {
		r.surface.RemoveRow(id)
	}

	for _, id := range diff.Added {
		r.surface.AddRow(id)
		for i, seg := range next[id].segments {
			r.surface.AddSegment(id, i, seg)
		}
	}

	for _, id := range diff.Retained {
		r.updateRow(id, r.rows[id].segments, next[id].segments)
	}

	r.timeRange = timeRange
	r.order = order
	r.rows = next

	return nil
}

func (r *Renderer) updateRow(id uint64, prev, next []Segment) {
	for i, seg := range next {
		if i < len(prev) {
			r.surface.UpdateSegment(id, i, seg)
			continue
		}

		r.surface.AddSegment(id, i, seg)
	}

	for i := len(prev) - 1; i >= len(next); i-- {
		r.surface.RemoveSegment(id, i)
	}
}

func layout(
	timeRange tracing.TimeRange,
	insts []*tracing.Instruction,
	width, height float64,
) (map[uint64]*row, []uint64, error) {
	rows := make(map[uint64]*row, len(insts))
	order := make([]uint64, 0, len(insts))

	if len(insts) == 0 {
		return rows, order, nil
	}

	timeScale := scale.NewLinear(timeRange.Start, timeRange.End, 0, width)
	rowHeight := height / float64(len(insts))

	for _, inst := range insts {
		if _, dup := rows[inst.ID]; dup {
			return nil, nil, fmt.Errorf("duplicate instruction id %d", inst.ID)
		}

		segments := make([]Segment, 0, len(inst.Events))
		for _, evt := range inst.Events {
			seg, err := layoutEvent(evt, timeScale, rowHeight)
			if err != nil {
				return nil, nil, fmt.Errorf("instruction %d: %w", inst.ID, err)
			}

			segments = append(segments, seg)
		}

		rows[inst.ID] = &row{inst: inst, segments: segments}
		order = append(order, inst.ID)
	}

	return rows, order, nil
}

func layoutEvent(
	evt *tracing.StageEvent,
	timeScale scale.Linear,
	rowHeight float64,
) (Segment, error) {
	info, err := stage.Lookup(evt.Stage)
	if err != nil {
		return Segment{}, err
	}

	seg := Segment{
		X:      timeScale.Map(evt.Time),
		Y:      float64(evt.InstructionIndex) * rowHeight,
		Width:  max(0, timeScale.Length(evt.EndTime-evt.Time)),
		Height: rowHeight * BarHeightRatio,
	}

	// An event at time 0 is the placeholder of an instruction that has not
	// started yet.
	if evt.Time == 0 {
		return seg, nil
	}

	seg.Fill = info.Color
	if info.Boundary {
		seg.Stroke = stage.BoundaryStroke
	}

	return seg, nil
}
