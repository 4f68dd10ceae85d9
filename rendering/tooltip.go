package rendering

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/tracenav/stage"
	"github.com/sarchlab/tracenav/tracing"
)

// Tooltip is the metadata shown when hovering over a segment.
type Tooltip struct {
	WorkgroupID int
	WavefrontID int
	SIMDID      int
	Asm         string
	Stage       string
}

func (t Tooltip) String() string {
	return fmt.Sprintf("wg: %d, wf: %d, simd: %d\ninst: %s\nstage: %s",
		t.WorkgroupID, t.WavefrontID, t.SIMDID, t.Asm, t.Stage)
}

func (r *Renderer) event(id uint64, index int) (*tracing.StageEvent, error) {
	row, ok := r.rows[id]
	if !ok {
		return nil, fmt.Errorf("instruction %d is not rendered", id)
	}

	if index < 0 || index >= len(row.inst.Events) {
		return nil, fmt.Errorf("instruction %d has no event %d", id, index)
	}

	return row.inst.Events[index], nil
}

// Hover returns the tooltip of a rendered segment.
func (r *Renderer) Hover(id uint64, index int) (Tooltip, error) {
	evt, err := r.event(id, index)
	if err != nil {
		return Tooltip{}, err
	}

	name, err := stage.Name(evt.Stage)
	if err != nil {
		return Tooltip{}, err
	}

	inst := r.rows[id].inst

	return Tooltip{
		WorkgroupID: inst.WorkgroupID,
		WavefrontID: inst.WavefrontID,
		SIMDID:      inst.SIMDID,
		Asm:         inst.Asm,
		Stage:       name,
	}, nil
}

// Click logs the clicked segment.
func (r *Renderer) Click(id uint64, index int) {
	evt, err := r.event(id, index)
	if err != nil {
		log.WithError(err).Debug("Click outside of any segment")
		return
	}

	log.WithFields(logrus.Fields{
		"inst":  id,
		"index": index,
		"time":  evt.Time,
		"end":   evt.EndTime,
		"stage": evt.Stage.String(),
	}).Debug("Segment clicked")
}
