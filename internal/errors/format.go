package errors

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// style is an ANSI escape sequence.
type style string

const (
	styleReset style = "\033[0m"
	styleRed   style = "\033[31m"
	styleCyan  style = "\033[36m"
	styleWhite style = "\033[37m"
	styleGray  style = "\033[90m"
	styleBold  style = "\033[1m"
)

// colorEnabled controls whether styles are emitted.
var colorEnabled = true

// DisableColors turns off ANSI output, for logs and tests.
func DisableColors() { colorEnabled = false }

// EnableColors turns ANSI output back on.
func EnableColors() { colorEnabled = true }

func paint(text string, styles ...style) string {
	if !colorEnabled || len(styles) == 0 {
		return text
	}
	var b strings.Builder
	for _, s := range styles {
		b.WriteString(string(s))
	}
	b.WriteString(text)
	b.WriteString(string(styleReset))
	return b.String()
}

// detailWidth is the column at which details are wrapped.
const detailWidth = 70

// Format renders the error for a terminal: a header, the location with a
// few lines of the offending file, the detail and the hint.
func (e *Error) Format() string {
	var b strings.Builder
	e.writeHeader(&b)
	e.writeLocation(&b)
	e.writeDetail(&b)
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "  %s%s\n\n", paint("Hint: ", styleCyan), e.Suggestion)
	}
	return b.String()
}

func (e *Error) writeHeader(b *strings.Builder) {
	label := "ERROR: "
	code := ""
	if e.Code != "" {
		label = "ERROR "
		code = paint(e.Code+": ", styleWhite, styleBold)
	}
	fmt.Fprintf(b, "\n%s%s%s\n\n", paint(label, styleRed, styleBold), code, paint(e.Message, styleWhite))
}

func (e *Error) writeLocation(b *strings.Builder) {
	if e.Location == nil {
		return
	}
	fmt.Fprintf(b, "  %s\n\n", paint(e.Location.String(), styleCyan))
	if len(e.Context) == 0 {
		return
	}

	first := max(e.Location.Line-2, 1)
	for i, text := range e.Context {
		n := first + i
		marker := "    "
		if n == e.Location.Line {
			marker = "  " + paint("→ ", styleRed)
		}
		fmt.Fprintf(b, "%s%4d%s%s\n", marker, n, paint(" │ ", styleGray), text)
	}
	b.WriteString("\n")
}

func (e *Error) writeDetail(b *strings.Builder) {
	detail := e.Detail
	if e.Wrapped != nil {
		detail = strings.TrimSpace(detail + " " + e.Wrapped.Error())
	}
	lines := wrapText(detail, detailWidth)
	if len(lines) == 0 {
		return
	}
	for _, line := range lines {
		fmt.Fprintf(b, "  %s\n", line)
	}
	b.WriteString("\n")
}

// FormatCompact renders the error on one line, prefixed by its location.
func (e *Error) FormatCompact() string {
	if e.Location == nil {
		return e.Error()
	}
	return e.Location.String() + ": " + e.Error()
}

// wrapText splits text into lines of at most width bytes, breaking
// between words. A single word longer than width gets its own line.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) > width {
			lines = append(lines, line)
			line = w
			continue
		}
		line += " " + w
	}
	return append(lines, line)
}

// Fprint writes err to w. Errors carrying an *Error are fully formatted,
// others get a plain header.
func Fprint(w io.Writer, err error) {
	var e *Error
	if errors.As(err, &e) {
		io.WriteString(w, e.Format())
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", paint("ERROR:", styleRed, styleBold), err.Error())
}

// PrintError writes err to stderr.
func PrintError(err error) {
	Fprint(os.Stderr, err)
}
