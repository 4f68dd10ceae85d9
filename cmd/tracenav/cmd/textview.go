package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/sarchlab/tracenav/regdebug"
)

// textView keeps the last page shown by a controller and prints it on
// demand.
type textView struct {
	last *regdebug.PageView
}

func (v *textView) ShowPage(p regdebug.PageView) {
	v.last = &p
}

func (v *textView) Fprint(w io.Writer) {
	if v.last == nil {
		return
	}

	p := v.last

	status := "not validated"
	if p.Validated {
		status = "validated"
	}

	fmt.Fprintf(w, "page %d/%d (%s)\n", p.Page, p.NumPages-1, status)
	fmt.Fprintf(w, "progress [%s] %d/%d validated\n",
		progressBar(p.Progress), p.Progress.Finished, p.Progress.Total)

	for _, row := range p.Fields {
		fprintRow(w, row)
	}

	fprintRow(w, p.EXEC)
	fprintRow(w, p.VCC)

	for _, row := range p.SGPRs {
		fprintRow(w, row)
	}

	for _, row := range p.VGPRs {
		fprintRow(w, row)
	}
}

func progressBar(p regdebug.ValidationProgress) string {
	var b strings.Builder

	for _, seg := range p.Segments {
		switch {
		case seg.Current && seg.Validated:
			b.WriteByte('V')
		case seg.Current:
			b.WriteByte('>')
		case seg.Validated:
			b.WriteByte('v')
		default:
			b.WriteByte('.')
		}
	}

	return b.String()
}

// fprintRow prints a register row. Changed values are marked with a star.
// Lane masks are printed as a bit string.
func fprintRow(w io.Writer, row regdebug.RegisterRow) {
	values := make([]string, len(row.Values))
	isMask := row.Name == "EXEC" || row.Name == "VCC"

	for i, value := range row.Values {
		if row.Changed[i] && !isMask {
			value += "*"
		}

		values[i] = value
	}

	sep := " "
	if isMask {
		sep = ""
	}

	line := fmt.Sprintf("%-5s %s", row.Name, strings.Join(values, sep))
	if row.Tag != "" {
		line += "  # " + row.Tag
	}

	fmt.Fprintln(w, line)
}
