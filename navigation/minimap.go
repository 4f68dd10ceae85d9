package navigation

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/sarchlab/tracenav/scale"
	"github.com/sarchlab/tracenav/tracing"
)

// PixelsPerSample is the width of an overview bucket on screen.
const PixelsPerSample = 2

// NumSamplesForWidth returns how many overview buckets to request for a view
// of the given width.
func NumSamplesForWidth(width float64) int {
	n := int(math.Floor(width / PixelsPerSample))
	if n < 1 {
		n = 1
	}

	return n
}

// A Bar is the on-screen rectangle of an overview bucket.
type Bar struct {
	Bucket tracing.OverviewBucket
	X, Y   float64
	Width  float64
	Height float64
}

// Minimap is the overview of the whole trace. It summarizes the event density
// in buckets and maps between time and horizontal positions.
type Minimap struct {
	mu sync.Mutex

	reader        tracing.TraceReader
	width, height float64
	buckets       []tracing.OverviewBucket
	maxCount      int
	generation    uint64

	timeScale  scale.Linear
	countScale scale.Linear
}

// NewMinimap creates a minimap of the given size on screen.
func NewMinimap(reader tracing.TraceReader, width, height float64) *Minimap {
	m := &Minimap{
		reader: reader,
		width:  width,
		height: height,
	}

	m.updateScales()

	return m
}

// Load fetches numSamples buckets from the trace source. If another load
// starts before this one completes, the result of this one is dropped. On
// error, the previously loaded buckets are kept.
func (m *Minimap) Load(ctx context.Context, numSamples int) error {
	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	buckets, err := m.reader.Overview(ctx, numSamples)

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		log.WithField("generation", gen).Debug(ErrStaleResult)
		return nil
	}

	if err != nil {
		return err
	}

	if len(buckets) == 0 {
		return errors.New("trace source returned no overview bucket")
	}

	m.buckets = buckets
	m.maxCount = 0
	for _, b := range buckets {
		if b.Count > m.maxCount {
			m.maxCount = b.Count
		}
	}

	m.updateScales()

	return nil
}

// Resize changes the size of the minimap and reloads the buckets at the
// density that fits the new width.
func (m *Minimap) Resize(ctx context.Context, width, height float64) error {
	m.mu.Lock()
	m.width = width
	m.height = height
	m.updateScales()
	m.mu.Unlock()

	return m.Load(ctx, NumSamplesForWidth(width))
}

func (m *Minimap) updateScales() {
	start, end := 0.0, 0.0
	if len(m.buckets) > 0 {
		start = m.buckets[0].StartTime
		end = m.buckets[len(m.buckets)-1].EndTime
	}

	m.timeScale = scale.NewLinear(start, end, 0, m.width)
	m.countScale = scale.NewLinear(0, float64(m.maxCount), m.height, 0)
}

// Loaded tells if the minimap holds any bucket.
func (m *Minimap) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.buckets) > 0
}

// Buckets returns a copy of the loaded buckets.
func (m *Minimap) Buckets() []tracing.OverviewBucket {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]tracing.OverviewBucket(nil), m.buckets...)
}

// Size returns the size of the minimap on screen.
func (m *Minimap) Size() (width, height float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.width, m.height
}

// Span returns the time range covered by the buckets.
func (m *Minimap) Span() tracing.TimeRange {
	m.mu.Lock()
	defer m.mu.Unlock()

	return tracing.TimeRange{Start: m.timeScale.D0, End: m.timeScale.D1}
}

// MaxCount returns the highest bucket count.
func (m *Minimap) MaxCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.maxCount
}

// TimeToPosition converts a time to a horizontal position.
func (m *Minimap) TimeToPosition(t float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.timeScale.Map(t)
}

// PositionToTime converts a horizontal position to a time. It is the inverse
// of TimeToPosition.
func (m *Minimap) PositionToTime(p float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.timeScale.Invert(p)
}

// CountToHeight converts an event count to the vertical position of the top
// of a bar. Higher counts give smaller values, and therefore taller bars.
func (m *Minimap) CountToHeight(c int) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.countToHeight(c)
}

func (m *Minimap) countToHeight(c int) float64 {
	if m.maxCount == 0 {
		return m.height
	}

	return m.countScale.Map(float64(c))
}

// Bars lays out the loaded buckets.
func (m *Minimap) Bars() []Bar {
	m.mu.Lock()
	defer m.mu.Unlock()

	bars := make([]Bar, 0, len(m.buckets))
	for _, b := range m.buckets {
		y := m.countToHeight(b.Count)
		bars = append(bars, Bar{
			Bucket: b,
			X:      m.timeScale.Map(b.StartTime),
			Y:      y,
			Width:  m.timeScale.Length(b.EndTime - b.StartTime),
			Height: m.height - y,
		})
	}

	return bars
}
