package regdebug

// ProgressSegment is one page in the validation progress bar. A page can be
// both validated and current.
type ProgressSegment struct {
	Validated bool `json:"validated"`
	Current   bool `json:"current"`
}

// A ValidationProgress tracks how many pages of a session have been reviewed.
type ValidationProgress struct {
	Total    int               `json:"total"`
	Finished int               `json:"finished"`
	Current  int               `json:"current"`
	Segments []ProgressSegment `json:"segments"`
}

// Remaining returns the number of pages that are not validated yet.
func (p ValidationProgress) Remaining() int {
	return p.Total - p.Finished
}

// Progress returns the validation progress of the session.
func (s *Session) Progress() ValidationProgress {
	p := ValidationProgress{
		Total:    len(s.pages),
		Current:  s.currentPage,
		Segments: make([]ProgressSegment, len(s.pages)),
	}

	for i := range p.Segments {
		p.Segments[i].Validated = s.IsValidated(i)
		p.Segments[i].Current = i == s.currentPage

		if p.Segments[i].Validated {
			p.Finished++
		}
	}

	return p
}
