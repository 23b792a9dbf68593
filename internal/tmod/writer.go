// Package tmod writes the TMOD scene-description format: ".tmod" command files
// and the ".sm" mesh files they reference.
package tmod

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Mode selects between a full definition and a vertex-only update.
type Mode int

const (
	FullDefinition Mode = iota
	UpdateOnly
)

// String returns a human-readable mode name.
func (m Mode) String() string {
	switch m {
	case FullDefinition:
		return "full"
	case UpdateOnly:
		return "update"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Writer is a line-oriented text writer with a sticky error.
// After the first failed write every call is a no-op and Err reports it.
type Writer struct {
	bw  *bufio.Writer
	err error
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriter(w)}
}

// Printf writes formatted text.
func (w *Writer) Printf(format string, args ...any) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.bw, format, args...)
}

// Tabs writes n tab characters.
func (w *Writer) Tabs(n int) {
	if w.err != nil || n <= 0 {
		return
	}
	_, w.err = w.bw.WriteString(strings.Repeat("\t", n))
}

// Line writes n tabs, formatted text and a newline.
func (w *Writer) Line(n int, format string, args ...any) {
	w.Tabs(n)
	w.Printf(format, args...)
	w.Printf("\n")
}

// Err returns the first write error.
func (w *Writer) Err() error {
	return w.err
}

// Flush flushes buffered output and returns the first error seen.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	w.err = w.bw.Flush()
	return w.err
}

// Sink creates output files by name.
type Sink interface {
	Create(name string) (io.WriteCloser, error)
}

// WriteFile creates name on sink, runs fn against it and closes it.
// Close errors are merged into the returned error.
func WriteFile(sink Sink, name string, fn func(w *Writer) error) (err error) {
	f, err := sink.Create(name)
	if err != nil {
		return errors.Wrapf(err, "creating %s", name)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(f))

	w := NewWriter(f)
	if err := fn(w); err != nil {
		return errors.Wrapf(err, "writing %s", name)
	}
	return errors.Wrapf(w.Flush(), "writing %s", name)
}

// FormatFloat formats v with 12 significant digits and always keeps a decimal
// point ("1.0", "-0.5", "1e-05" stays as is). Negative zero prints as "0.0".
func FormatFloat(v float64) string {
	switch {
	case v == 0:
		return "0.0"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return "nan"
	}
	s := strconv.FormatFloat(v, 'g', 12, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// formatMatrix renders an engine matrix as {{r0}{r1}{r2}{r3}}.
func formatMatrix(m mgl64.Mat4) string {
	var sb strings.Builder
	sb.WriteString("{")
	for r := 0; r < 4; r++ {
		sb.WriteString("{")
		for c := 0; c < 4; c++ {
			sb.WriteString(FormatFloat(m.At(r, c)))
			sb.WriteString(" ")
		}
		sb.WriteString("}")
	}
	sb.WriteString("}")
	return sb.String()
}
