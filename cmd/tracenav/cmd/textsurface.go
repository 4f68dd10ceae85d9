package cmd

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/sarchlab/tracenav/rendering"
	"github.com/sarchlab/tracenav/stage"
	"github.com/sarchlab/tracenav/tracing"
)

// textSurface draws the detailed view with one character per column.
type textSurface struct {
	width, height float64

	timeRange tracing.TimeRange
	rows      map[uint64][]rendering.Segment
}

func newTextSurface(columns int) *textSurface {
	return &textSurface{
		width:  float64(columns),
		height: 100,
		rows:   make(map[uint64][]rendering.Segment),
	}
}

func (s *textSurface) Size() (float64, float64) {
	return s.width, s.height
}

func (s *textSurface) SetTimeAxis(r tracing.TimeRange) {
	s.timeRange = r
}

func (s *textSurface) AddRow(id uint64) {
	s.rows[id] = nil
}

func (s *textSurface) RemoveRow(id uint64) {
	delete(s.rows, id)
}

func (s *textSurface) AddSegment(row uint64, index int, seg rendering.Segment) {
	segs := s.rows[row]
	for len(segs) <= index {
		segs = append(segs, rendering.Segment{})
	}

	segs[index] = seg
	s.rows[row] = segs
}

func (s *textSurface) UpdateSegment(
	row uint64,
	index int,
	seg rendering.Segment,
) {
	s.AddSegment(row, index, seg)
}

func (s *textSurface) RemoveSegment(row uint64, index int) {
	segs := s.rows[row]
	if index < len(segs) {
		s.rows[row] = segs[:index]
	}
}

// line returns the text of a row.
func (s *textSurface) line(id uint64) string {
	cells := []byte(strings.Repeat(" ", int(s.width)))

	for _, seg := range s.rows[id] {
		from := int(math.Floor(seg.X))
		to := int(math.Ceil(seg.X + seg.Width))
		if to <= from {
			to = from + 1
		}

		c := segmentChar(seg)
		for x := max(from, 0); x < to && x < len(cells); x++ {
			cells[x] = c
		}
	}

	return string(cells)
}

// Fprint writes the rows in the given order, each followed by its label.
func (s *textSurface) Fprint(
	w io.Writer,
	order []uint64,
	label func(id uint64) string,
) {
	fmt.Fprintf(w, "%-*g%g\n", int(s.width)-1,
		s.timeRange.Start, s.timeRange.End)

	for _, id := range order {
		fmt.Fprintf(w, "%s  %s\n", s.line(id), label(id))
	}
}

func segmentChar(seg rendering.Segment) byte {
	switch {
	case seg.Fill != "":
		for i := 0; i < stage.NumStages(); i++ {
			info, _ := stage.Lookup(stage.Code(i))
			if info.Color == seg.Fill {
				return stageChar(info.Code)
			}
		}

		return '?'
	case seg.Stroke != "":
		return '-'
	default:
		return '.'
	}
}

func stageChar(c stage.Code) byte {
	return strconv.FormatInt(int64(c), 16)[0]
}

// fprintLegend writes the characters of the stages that have a fill.
func fprintLegend(w io.Writer) {
	var entries []string

	for i := 0; i < stage.NumStages(); i++ {
		info, _ := stage.Lookup(stage.Code(i))
		if info.Boundary {
			continue
		}

		entries = append(entries,
			fmt.Sprintf("%c=%s", stageChar(info.Code), info.Name))
	}

	entries = append(entries, "-=wait", ".=not started")

	fmt.Fprintln(w, strings.Join(entries, " "))
}
