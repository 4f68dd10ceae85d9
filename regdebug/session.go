// Package regdebug is the model of the register debugger. A session holds
// the register snapshots of a wavefront, one page per cycle, together with
// the tags that the user attaches to registers and the pages the user has
// validated.
package regdebug

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/hashicorp/go-multierror"
)

// Tag is a note attached to a register from a page on.
type Tag struct {
	Time    int    `json:"time"`
	Content string `json:"content"`
}

// Session is a register debugging session. It is owned by a single
// controller and is not safe for concurrent use.
type Session struct {
	currentPage int
	pages       []RegisterSnapshot
	validated   []bool
	tags        map[string][]Tag
	unsaved     bool
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{
		tags: make(map[string][]Tag),
	}
}

// ImportTrace replaces the session with freshly recorded pages. Nothing is
// validated and there is no tag. Missing register lists are stored as empty
// ones.
func (s *Session) ImportTrace(pages []RegisterSnapshot) error {
	err := schemaError("raw trace", checkShape(pages))
	if err != nil {
		return err
	}

	for i := range pages {
		if pages[i].SGPRs == nil {
			pages[i].SGPRs = []uint32{}
		}

		if pages[i].VGPRs == nil {
			pages[i].VGPRs = [][]uint32{}
		}
	}

	s.pages = pages
	s.validated = make([]bool, len(pages))
	s.tags = make(map[string][]Tag)
	s.currentPage = 0
	s.unsaved = false

	return nil
}

// ImportRawTrace reads a raw register trace and replaces the session with
// it.
func (s *Session) ImportRawTrace(r io.Reader) error {
	pages, err := DecodeSnapshots(r)
	if err != nil {
		return err
	}

	return s.ImportTrace(pages)
}

// Loaded tells if the session has any page.
func (s *Session) Loaded() bool {
	return len(s.pages) > 0
}

// NumPages returns the number of pages.
func (s *Session) NumPages() int {
	return len(s.pages)
}

// CurrentPage returns the index of the page being reviewed.
func (s *Session) CurrentPage() int {
	return s.currentPage
}

// Page returns the snapshot of a page.
func (s *Session) Page(index int) (RegisterSnapshot, error) {
	err := s.checkPage(index)
	if err != nil {
		return RegisterSnapshot{}, err
	}

	return s.pages[index], nil
}

// NumSGPRs returns the number of scalar registers of each page.
func (s *Session) NumSGPRs() int {
	if !s.Loaded() {
		return 0
	}

	return len(s.pages[0].SGPRs)
}

// NumVGPRs returns the number of vector registers of each page.
func (s *Session) NumVGPRs() int {
	if !s.Loaded() {
		return 0
	}

	return len(s.pages[0].VGPRs)
}

// HasRegister tells if a name refers to a register of the session.
func (s *Session) HasRegister(name string) bool {
	if len(name) < 2 {
		return false
	}

	index, err := strconv.Atoi(name[1:])
	if err != nil || index < 0 || strconv.Itoa(index) != name[1:] {
		return false
	}

	switch name[0] {
	case 's':
		return index < s.NumSGPRs()
	case 'v':
		return index < s.NumVGPRs()
	default:
		return false
	}
}

// GoToPage moves to a page. The index is clamped into the valid pages and the
// page actually reached is returned.
func (s *Session) GoToPage(index int) int {
	if index >= len(s.pages) {
		index = len(s.pages) - 1
	}

	if index < 0 {
		index = 0
	}

	s.currentPage = index

	return index
}

// IsValidated tells if a page has been validated.
func (s *Session) IsValidated(index int) bool {
	if index < 0 || index >= len(s.validated) {
		return false
	}

	return s.validated[index]
}

// Validated returns the validation flags of all the pages.
func (s *Session) Validated() []bool {
	return append([]bool(nil), s.validated...)
}

// SetValidated sets the validation flag of a page.
func (s *Session) SetValidated(index int, value bool) error {
	err := s.checkPage(index)
	if err != nil {
		return err
	}

	s.validated[index] = value
	s.unsaved = true

	return nil
}

// ToggleValidated flips the validation flag of a page.
func (s *Session) ToggleValidated(index int) error {
	err := s.checkPage(index)
	if err != nil {
		return err
	}

	return s.SetValidated(index, !s.validated[index])
}

// AddTag attaches a note to a register from a page on. Tags of the same page
// are kept in insertion order.
func (s *Session) AddTag(register string, page int, content string) {
	entries := append(s.tags[register], Tag{Time: page, Content: content})
	sortTags(entries)

	s.tags[register] = entries
	s.unsaved = true
}

// LookupTag returns the note that is visible on a register at a page, which
// is the latest tag added at or before the page. An empty string is returned
// if there is no such tag.
func (s *Session) LookupTag(register string, page int) string {
	entries := s.tags[register]

	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Time <= page {
			return entries[i].Content
		}
	}

	return ""
}

// Tags returns the tags of a register, ordered by time.
func (s *Session) Tags(register string) []Tag {
	return append([]Tag(nil), s.tags[register]...)
}

// TaggedRegisters returns the names of the registers that carry tags.
func (s *Session) TaggedRegisters() []string {
	names := make([]string, 0, len(s.tags))
	for name := range s.tags {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Unsaved tells if the session changed since it was last saved or loaded.
func (s *Session) Unsaved() bool {
	return s.unsaved
}

func sortTags(entries []Tag) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Time < entries[j].Time
	})
}

func (s *Session) checkPage(index int) error {
	if index < 0 || index >= len(s.pages) {
		return fmt.Errorf("page %d out of range [0, %d)", index, len(s.pages))
	}

	return nil
}

type savedSession struct {
	CurrentPage int                `json:"currentPage"`
	Data        []RegisterSnapshot `json:"data"`
	Tags        map[string][]Tag   `json:"tags"`
	Validated   []bool             `json:"validated"`
}

// Serialize writes the whole session.
func (s *Session) Serialize(w io.Writer) error {
	saved := savedSession{
		CurrentPage: s.currentPage,
		Data:        s.pages,
		Tags:        s.tags,
		Validated:   s.validated,
	}

	if saved.Data == nil {
		saved.Data = []RegisterSnapshot{}
	}

	if saved.Validated == nil {
		saved.Validated = []bool{}
	}

	err := json.NewEncoder(w).Encode(saved)
	if err != nil {
		return err
	}

	s.unsaved = false

	return nil
}

// Deserialize replaces the session with a saved one. The saved session is
// fully checked first, so a failed load leaves the session untouched.
func (s *Session) Deserialize(r io.Reader) error {
	var fields map[string]json.RawMessage

	err := json.NewDecoder(r).Decode(&fields)
	if err != nil {
		return schemaError("session",
			multierror.Append(nil, fmt.Errorf("not a session object: %w", err)))
	}

	saved, errs := decodeSession(fields)

	err = schemaError("session", errs)
	if err != nil {
		return err
	}

	s.currentPage = saved.CurrentPage
	s.pages = saved.Data
	s.validated = saved.Validated
	s.tags = saved.Tags
	s.unsaved = false

	return nil
}

func decodeSession(
	fields map[string]json.RawMessage,
) (savedSession, *multierror.Error) {
	var (
		saved savedSession
		errs  *multierror.Error
	)

	for key := range fields {
		switch key {
		case "currentPage", "data", "pages", "tags", "validated", "unsaved":
		default:
			errs = multierror.Append(errs, fmt.Errorf("unknown field %q", key))
		}
	}

	decodeField := func(key string, v any) {
		msg, ok := fields[key]
		if !ok {
			errs = multierror.Append(errs, fmt.Errorf("missing field %q", key))
			return
		}

		err := json.Unmarshal(msg, v)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("field %q: %w", key, err))
		}
	}

	decodeField("currentPage", &saved.CurrentPage)
	decodeField("validated", &saved.Validated)
	decodeField("tags", &saved.Tags)

	pagesKey := "data"
	if _, hasPages := fields["pages"]; hasPages {
		pagesKey = "pages"
		if _, hasData := fields["data"]; hasData {
			errs = multierror.Append(errs,
				errors.New(`both "data" and "pages" are present`))
		}
	}

	var rawPages []json.RawMessage
	decodeField(pagesKey, &rawPages)

	if errs.ErrorOrNil() != nil {
		return saved, errs
	}

	saved.Data, errs = decodeSnapshots(rawPages)
	if errs.ErrorOrNil() != nil {
		return saved, errs
	}

	if len(saved.Validated) != len(saved.Data) {
		errs = multierror.Append(errs, fmt.Errorf(
			"%d validation flags for %d pages",
			len(saved.Validated), len(saved.Data)))
	}

	if saved.CurrentPage < 0 || saved.CurrentPage >= len(saved.Data) {
		errs = multierror.Append(errs, fmt.Errorf(
			"current page %d out of range [0, %d)",
			saved.CurrentPage, len(saved.Data)))
	}

	if saved.Tags == nil {
		saved.Tags = make(map[string][]Tag)
	}

	for _, entries := range saved.Tags {
		sortTags(entries)
	}

	return saved, errs
}
