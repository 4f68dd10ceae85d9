package navigation

import (
	"context"
	"errors"
	"sync"

	"github.com/sarchlab/tracenav/tracing"
)

// DefaultSelectionStart and DefaultSelectionEnd are the ends of the initial
// selection, as fractions of the overview width.
const (
	DefaultSelectionStart = 0.1
	DefaultSelectionEnd   = 0.2
)

// DetailHandler receives the preprocessed instructions of a selected range.
type DetailHandler interface {
	Render(r tracing.TimeRange, insts []*tracing.Instruction) error
}

// RangeSelector owns the selected time range. Every change of the selection
// triggers a detail fetch. Only the result of the most recent fetch is handed
// to the handler; the results of superseded fetches are dropped.
type RangeSelector struct {
	mu sync.Mutex

	minimap *Minimap
	reader  tracing.TraceReader
	handler DetailHandler

	current    tracing.TimeRange
	selected   bool
	generation uint64
	cancel     context.CancelFunc
	err        error

	inFlight sync.WaitGroup
}

// NewRangeSelector creates a RangeSelector that brushes on the given minimap
// and fetches details from the reader.
func NewRangeSelector(
	minimap *Minimap,
	reader tracing.TraceReader,
	handler DetailHandler,
) *RangeSelector {
	return &RangeSelector{
		minimap: minimap,
		reader:  reader,
		handler: handler,
	}
}

// SelectDefault selects the initial range, a small window near the start of
// the overview.
func (s *RangeSelector) SelectDefault(ctx context.Context) tracing.TimeRange {
	width, _ := s.minimap.Size()

	return s.Brush(ctx,
		width*DefaultSelectionStart,
		width*DefaultSelectionEnd)
}

// Brush selects the time range under the pixel interval [x0, x1] of the
// overview. The interval is clamped to the overview.
func (s *RangeSelector) Brush(
	ctx context.Context,
	x0, x1 float64,
) tracing.TimeRange {
	width, _ := s.minimap.Size()
	x0 = clamp(x0, 0, width)
	x1 = clamp(x1, 0, width)

	r := tracing.NewTimeRange(
		s.minimap.PositionToTime(x0),
		s.minimap.PositionToTime(x1),
	)

	s.Select(ctx, r)

	return r
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}

// Select changes the selection and starts fetching its details. A fetch that
// is still running for an older selection is cancelled, and its result is
// ignored if it arrives anyway.
func (s *RangeSelector) Select(ctx context.Context, r tracing.TimeRange) {
	s.mu.Lock()

	if s.cancel != nil {
		s.cancel()
	}

	s.generation++
	gen := s.generation
	s.current = r
	s.selected = true

	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.inFlight.Add(1)
	s.mu.Unlock()

	go s.fetch(fetchCtx, gen, r)
}

func (s *RangeSelector) fetch(
	ctx context.Context,
	gen uint64,
	r tracing.TimeRange,
) {
	defer s.inFlight.Done()

	insts, err := s.reader.Detail(ctx, r.Start, r.End)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		log.WithField("generation", gen).Debug(ErrStaleResult)
		return
	}

	s.cancel()
	s.cancel = nil

	s.err = s.apply(r, insts, err)
	if s.err != nil {
		log.WithError(s.err).
			WithField("start", r.Start).
			WithField("end", r.End).
			Warn("Failed to show the selected range")
	}
}

func (s *RangeSelector) apply(
	r tracing.TimeRange,
	insts []*tracing.Instruction,
	fetchErr error,
) error {
	if fetchErr != nil {
		return fetchErr
	}

	err := tracing.Preprocess(insts)
	if err != nil {
		return err
	}

	return s.handler.Render(r, insts)
}

// Current returns the selected range. The boolean is false until the first
// selection.
func (s *RangeSelector) Current() (tracing.TimeRange, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current, s.selected
}

// Err returns the error of the most recent completed fetch, if any.
func (s *RangeSelector) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.err
}

// Wait blocks until all the fetches started so far have completed, and
// returns the error of the most recent one.
func (s *RangeSelector) Wait() error {
	s.inFlight.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	if errors.Is(s.err, context.Canceled) {
		return nil
	}

	return s.err
}
