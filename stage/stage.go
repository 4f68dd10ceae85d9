// Package stage describes the pipeline stages that appear in an instruction
// trace.
package stage

import "fmt"

// Code identifies a pipeline stage. The numeric value is what the trace source
// sends on the wire.
type Code int

// All the stages known to the catalog. The "done" stages mark the gap between
// two working stages, when the instruction waits for the next stage to accept
// it.
const (
	Unknown Code = iota
	Fetch
	FetchDone
	Issue
	Decode
	DecodeDone
	Read
	ReadDone
	Exec
	ExecDone
	Write
	WriteDone
	WaitMem
	MemReturn
	Complete
)

// BoundaryStroke is the stroke color of boundary stages.
const BoundaryStroke = "#888888"

// Info is the display information of a stage.
type Info struct {
	Code Code
	Name string

	// Color is the fill color. An empty color means the stage is not filled.
	Color string

	// Boundary stages separate two working stages. They are drawn with a
	// neutral stroke and no fill.
	Boundary bool
}

var catalog = [...]Info{
	{Code: Unknown, Name: "unknown", Color: "black"},
	{Code: Fetch, Name: "fetch", Color: "#67001f"},
	{Code: FetchDone, Name: "wait issue", Boundary: true},
	{Code: Issue, Name: "issue", Color: "#b2182b"},
	{Code: Decode, Name: "decode", Color: "#d6604d"},
	{Code: DecodeDone, Name: "wait", Boundary: true},
	{Code: Read, Name: "read", Color: "#f4a582"},
	{Code: ReadDone, Name: "wait", Boundary: true},
	{Code: Exec, Name: "exec", Color: "#fddbc7"},
	{Code: ExecDone, Name: "wait", Boundary: true},
	{Code: Write, Name: "write", Color: "#92c5de"},
	{Code: WriteDone, Name: "wait", Boundary: true},
	{Code: WaitMem, Name: "wait mem", Color: "#4394c3"},
	{Code: MemReturn, Name: "mem return", Color: "#2166ac"},
	{Code: Complete, Name: "complete", Color: "#053061"},
}

// UnknownStageError is returned when a stage code is not in the catalog.
type UnknownStageError struct {
	Code Code
}

func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("unknown stage code %d", int(e.Code))
}

// NumStages returns the number of stages in the catalog.
func NumStages() int {
	return len(catalog)
}

// Lookup returns the display information of a stage.
func Lookup(c Code) (Info, error) {
	if c < 0 || int(c) >= len(catalog) {
		return Info{}, &UnknownStageError{Code: c}
	}

	return catalog[c], nil
}

// Color returns the fill color of a stage.
func Color(c Code) (string, error) {
	info, err := Lookup(c)
	if err != nil {
		return "", err
	}

	return info.Color, nil
}

// Name returns the human-readable name of a stage.
func Name(c Code) (string, error) {
	info, err := Lookup(c)
	if err != nil {
		return "", err
	}

	return info.Name, nil
}

// IsBoundary tells if the stage is drawn as a boundary between two working
// stages.
func IsBoundary(c Code) (bool, error) {
	info, err := Lookup(c)
	if err != nil {
		return false, err
	}

	return info.Boundary, nil
}

// Stroke returns the stroke color of a stage, or an empty string if the stage
// has no stroke.
func Stroke(c Code) (string, error) {
	info, err := Lookup(c)
	if err != nil {
		return "", err
	}

	if info.Boundary {
		return BoundaryStroke, nil
	}

	return "", nil
}

func (c Code) String() string {
	info, err := Lookup(c)
	if err != nil {
		return fmt.Sprintf("stage(%d)", int(c))
	}

	return info.Name
}
