package regdebug

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
)

// NumLanes is the number of lanes of a vector register, and the number of
// bits in the EXEC and VCC masks.
const NumLanes = 64

// RegisterSnapshot is the register file of a wavefront at one cycle. A
// debugging session shows one snapshot per page.
type RegisterSnapshot struct {
	PCHi   uint32     `json:"PCHi"`
	PCLo   uint32     `json:"PCLo"`
	Inst   string     `json:"Inst"`
	SCC    uint32     `json:"SCC"`
	VCCLo  uint32     `json:"VCCLo"`
	VCCHi  uint32     `json:"VCCHi"`
	EXECLo uint32     `json:"EXECLo"`
	EXECHi uint32     `json:"EXECHi"`
	SGPRs  []uint32   `json:"SGPRs"`
	VGPRs  [][]uint32 `json:"VGPRs"`
}

// PC returns the full 64-bit program counter.
func (s RegisterSnapshot) PC() uint64 {
	return uint64(s.PCHi)<<32 | uint64(s.PCLo)
}

// VCCLane tells if the VCC bit of a lane is set.
func (s RegisterSnapshot) VCCLane(lane int) bool {
	return maskLane(s.VCCLo, s.VCCHi, lane)
}

// EXECLane tells if the EXEC bit of a lane is set.
func (s RegisterSnapshot) EXECLane(lane int) bool {
	return maskLane(s.EXECLo, s.EXECHi, lane)
}

func maskLane(lo, hi uint32, lane int) bool {
	switch {
	case lane < 0 || lane >= NumLanes:
		return false
	case lane >= 32:
		return hi&(1<<(lane-32)) != 0
	default:
		return lo&(1<<lane) != 0
	}
}

// SGPRName returns the name of the i-th scalar register.
func SGPRName(i int) string {
	return fmt.Sprintf("s%d", i)
}

// VGPRName returns the name of the i-th vector register.
func VGPRName(i int) string {
	return fmt.Sprintf("v%d", i)
}

// rawSnapshot keeps track of the fields that are missing in the input.
type rawSnapshot struct {
	PCHi   *uint32    `json:"PCHi"`
	PCLo   *uint32    `json:"PCLo"`
	Inst   *string    `json:"Inst"`
	SCC    *uint32    `json:"SCC"`
	VCCLo  *uint32    `json:"VCCLo"`
	VCCHi  *uint32    `json:"VCCHi"`
	EXECLo *uint32    `json:"EXECLo"`
	EXECHi *uint32    `json:"EXECHi"`
	SGPRs  []uint32   `json:"SGPRs"`
	VGPRs  [][]uint32 `json:"VGPRs"`
}

func (r *rawSnapshot) missingFields() []string {
	var missing []string

	check := func(name string, present bool) {
		if !present {
			missing = append(missing, name)
		}
	}

	check("PCHi", r.PCHi != nil)
	check("PCLo", r.PCLo != nil)
	check("Inst", r.Inst != nil)
	check("SCC", r.SCC != nil)
	check("VCCLo", r.VCCLo != nil)
	check("VCCHi", r.VCCHi != nil)
	check("EXECLo", r.EXECLo != nil)
	check("EXECHi", r.EXECHi != nil)
	check("SGPRs", r.SGPRs != nil)
	check("VGPRs", r.VGPRs != nil)

	return missing
}

func (r *rawSnapshot) snapshot() RegisterSnapshot {
	return RegisterSnapshot{
		PCHi:   *r.PCHi,
		PCLo:   *r.PCLo,
		Inst:   *r.Inst,
		SCC:    *r.SCC,
		VCCLo:  *r.VCCLo,
		VCCHi:  *r.VCCHi,
		EXECLo: *r.EXECLo,
		EXECHi: *r.EXECHi,
		SGPRs:  r.SGPRs,
		VGPRs:  r.VGPRs,
	}
}

// SchemaError is returned when a raw trace or a saved session does not have
// the expected shape. It lists every problem found.
type SchemaError struct {
	Source string
	errs   *multierror.Error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Source, e.errs.Error())
}

func (e *SchemaError) Unwrap() error {
	return e.errs
}

// Problems returns the individual problems.
func (e *SchemaError) Problems() []error {
	return e.errs.Errors
}

func schemaError(source string, errs *multierror.Error) error {
	if errs.ErrorOrNil() == nil {
		return nil
	}

	errs.ErrorFormat = func(es []error) string {
		var b bytes.Buffer
		for i, err := range es {
			if i > 0 {
				b.WriteString("; ")
			}
			b.WriteString(err.Error())
		}
		return b.String()
	}

	return &SchemaError{Source: source, errs: errs}
}

// DecodeSnapshots reads a raw register trace, a JSON array of snapshots.
func DecodeSnapshots(r io.Reader) ([]RegisterSnapshot, error) {
	var raw []json.RawMessage

	err := json.NewDecoder(r).Decode(&raw)
	if err != nil {
		return nil, schemaError("raw trace",
			multierror.Append(nil, fmt.Errorf("not an array of snapshots: %w", err)))
	}

	pages, errs := decodeSnapshots(raw)

	return pages, schemaError("raw trace", errs)
}

func decodeSnapshots(raw []json.RawMessage) ([]RegisterSnapshot, *multierror.Error) {
	var errs *multierror.Error

	pages := make([]RegisterSnapshot, 0, len(raw))
	for i, msg := range raw {
		page, err := decodeSnapshot(msg)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("page %d: %w", i, err))
			continue
		}

		pages = append(pages, page)
	}

	if errs.ErrorOrNil() != nil {
		return nil, errs
	}

	return pages, checkShape(pages)
}

func decodeSnapshot(msg json.RawMessage) (RegisterSnapshot, error) {
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.DisallowUnknownFields()

	var raw rawSnapshot

	err := dec.Decode(&raw)
	if err != nil {
		return RegisterSnapshot{}, err
	}

	missing := raw.missingFields()
	if len(missing) > 0 {
		return RegisterSnapshot{}, fmt.Errorf("missing fields %v", missing)
	}

	return raw.snapshot(), nil
}

// checkShape makes sure that all the pages share the register file layout of
// the first page and that every vector register has one value per lane.
func checkShape(pages []RegisterSnapshot) *multierror.Error {
	var errs *multierror.Error

	if len(pages) == 0 {
		return multierror.Append(errs, errors.New("trace has no page"))
	}

	numSGPRs := len(pages[0].SGPRs)
	numVGPRs := len(pages[0].VGPRs)

	for i, page := range pages {
		if len(page.SGPRs) != numSGPRs {
			errs = multierror.Append(errs, fmt.Errorf(
				"page %d: %d SGPRs, expected %d", i, len(page.SGPRs), numSGPRs))
		}

		if len(page.VGPRs) != numVGPRs {
			errs = multierror.Append(errs, fmt.Errorf(
				"page %d: %d VGPRs, expected %d", i, len(page.VGPRs), numVGPRs))
		}

		for j, lanes := range page.VGPRs {
			if len(lanes) != NumLanes {
				errs = multierror.Append(errs, fmt.Errorf(
					"page %d: %s has %d lanes, expected %d",
					i, VGPRName(j), len(lanes), NumLanes))
			}
		}
	}

	return errs
}
