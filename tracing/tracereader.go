package tracing

import "context"

// TraceReader is the source of trace data the navigation engine reads from.
type TraceReader interface {
	// Overview returns numSamples contiguous buckets that span the whole
	// trace, ordered by start time.
	Overview(ctx context.Context, numSamples int) ([]OverviewBucket, error)

	// Detail returns the instructions that have at least one event in
	// [start, end], with all of their events.
	Detail(ctx context.Context, start, end float64) ([]*Instruction, error)
}

// TraceWriter stores instructions into a trace.
type TraceWriter interface {
	// Write buffers an instruction. It may be persisted later.
	Write(inst *Instruction) error

	// Flush persists all the buffered instructions.
	Flush() error
}
