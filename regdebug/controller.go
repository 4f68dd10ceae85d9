package regdebug

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrNoPage is returned when the controller is used before a trace or a
// session is loaded.
var ErrNoPage = errors.New("no page loaded")

// RegisterRow is the content of one register on a page. Scalar values have
// one entry, vector registers and lane masks have one entry per lane.
type RegisterRow struct {
	Name    string
	Tag     string
	Values  []string
	Changed []bool
}

// PageView is everything shown about the current page.
type PageView struct {
	Page      int
	NumPages  int
	Validated bool
	Unsaved   bool
	Progress  ValidationProgress

	// Fields holds PC, Inst, and SCC.
	Fields []RegisterRow
	EXEC   RegisterRow
	VCC    RegisterRow
	SGPRs  []RegisterRow
	VGPRs  []RegisterRow
}

// Row returns a register row by name, searching every group of the view.
func (v PageView) Row(name string) (RegisterRow, bool) {
	groups := [][]RegisterRow{v.Fields, {v.EXEC, v.VCC}, v.SGPRs, v.VGPRs}
	for _, group := range groups {
		for _, row := range group {
			if row.Name == name {
				return row, true
			}
		}
	}

	return RegisterRow{}, false
}

// View displays pages.
type View interface {
	ShowPage(v PageView)
}

// Controller moves through the pages of a session and keeps the view in sync.
type Controller struct {
	session *Session
	view    View
	shown   *PageView
}

// NewController creates a controller of the session that renders to the
// view.
func NewController(session *Session, view View) *Controller {
	return &Controller{
		session: session,
		view:    view,
	}
}

// Session returns the controlled session.
func (c *Controller) Session() *Session {
	return c.session
}

// Reset forgets the last shown page and shows the current page. It should be
// called after the session is replaced.
func (c *Controller) Reset() error {
	c.shown = nil
	return c.Show()
}

// Show renders the current page again.
func (c *Controller) Show() error {
	if !c.session.Loaded() {
		return ErrNoPage
	}

	page, err := c.session.Page(c.session.CurrentPage())
	if err != nil {
		return err
	}

	v := c.buildView(page)
	c.shown = &v
	c.view.ShowPage(v)

	return nil
}

// Next moves to the next page. It stays on the last page.
func (c *Controller) Next() error {
	return c.JumpTo(c.session.CurrentPage() + 1)
}

// Prev moves to the previous page. It stays on the first page.
func (c *Controller) Prev() error {
	return c.JumpTo(c.session.CurrentPage() - 1)
}

// JumpTo moves to a page, clamped into the valid pages.
func (c *Controller) JumpTo(page int) error {
	if !c.session.Loaded() {
		return ErrNoPage
	}

	c.session.GoToPage(page)

	return c.Show()
}

// ToggleValidated flips the validation flag of the current page.
func (c *Controller) ToggleValidated() error {
	if !c.session.Loaded() {
		return ErrNoPage
	}

	err := c.session.ToggleValidated(c.session.CurrentPage())
	if err != nil {
		return err
	}

	return c.Show()
}

// AddTag attaches a note to a register from the current page on.
func (c *Controller) AddTag(register, content string) error {
	if !c.session.Loaded() {
		return ErrNoPage
	}

	if !c.session.HasRegister(register) {
		return fmt.Errorf("unknown register %q", register)
	}

	c.session.AddTag(register, c.session.CurrentPage(), content)

	return c.Show()
}

func (c *Controller) buildView(page RegisterSnapshot) PageView {
	current := c.session.CurrentPage()

	v := PageView{
		Page:      current,
		NumPages:  c.session.NumPages(),
		Validated: c.session.IsValidated(current),
		Unsaved:   c.session.Unsaved(),
		Progress:  c.session.Progress(),
		Fields: []RegisterRow{
			c.row("pc", "", "0x"+strconv.FormatUint(page.PC(), 16)),
			c.row("inst", "", page.Inst),
			c.row("scc", "", strconv.FormatUint(uint64(page.SCC), 10)),
		},
		EXEC: c.row("EXEC", "", laneBits(page.EXECLane)...),
		VCC:  c.row("VCC", "", laneBits(page.VCCLane)...),
	}

	for i, value := range page.SGPRs {
		name := SGPRName(i)
		v.SGPRs = append(v.SGPRs,
			c.row(name, c.session.LookupTag(name, current), hex(value)))
	}

	for i, lanes := range page.VGPRs {
		name := VGPRName(i)
		values := make([]string, len(lanes))
		for j, value := range lanes {
			values[j] = hex(value)
		}

		v.VGPRs = append(v.VGPRs,
			c.row(name, c.session.LookupTag(name, current), values...))
	}

	return v
}

// row builds a register row and marks the values that differ from the
// previously shown page.
func (c *Controller) row(name, tag string, values ...string) RegisterRow {
	r := RegisterRow{
		Name:    name,
		Tag:     tag,
		Values:  values,
		Changed: make([]bool, len(values)),
	}

	if c.shown == nil {
		return r
	}

	prev, ok := c.shown.Row(name)
	if !ok {
		return r
	}

	for i, value := range values {
		r.Changed[i] = i >= len(prev.Values) || prev.Values[i] != value
	}

	return r
}

func laneBits(lane func(int) bool) []string {
	bits := make([]string, NumLanes)
	for i := range bits {
		bits[i] = "0"
		if lane(i) {
			bits[i] = "1"
		}
	}

	return bits
}

func hex(v uint32) string {
	return strconv.FormatUint(uint64(v), 16)
}
