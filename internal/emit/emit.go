// Package emit renders a parsed ISOBMFF box tree as indented, optionally
// colorized text: plain fmt.Fprintf calls against a writer, centralizing
// indentation, row truncation of tables and hex dumps, and default-value
// elision so that box
// grammars in internal/boxes do not each reimplement them.
package emit

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// ColorMode selects whether ANSI escapes are emitted.
type ColorMode int

const (
	ColorAuto ColorMode = iota
	ColorOn
	ColorOff
)

// Options configures an Emitter. Zero value is not meaningful; use
// DefaultOptions and override fields as needed.
type Options struct {
	Color            ColorMode
	ShowOffsets      bool
	ShowLengths      bool
	ShowDescriptions bool
	ShowDefaults     bool
	Indent           int
	BytesPerLine     int
	MaxRows          int // 0 = unlimited
	Verbose          bool
}

// DefaultOptions returns the specification's documented defaults.
func DefaultOptions() Options {
	return Options{
		Color:            ColorAuto,
		ShowOffsets:      true,
		ShowLengths:      true,
		ShowDescriptions: true,
		ShowDefaults:     false,
		Indent:           4,
		BytesPerLine:     16,
		MaxRows:          0,
	}
}

// palette holds the ANSI SGR codes used by Emitter when color is enabled.
type palette struct {
	header, fieldName, fieldValue, desc, hexAddr, warn, errColor, reset string
}

var colorPalette = palette{
	header:     "\x1b[1;36m",
	fieldName:  "\x1b[0;37m",
	fieldValue: "\x1b[1;37m",
	desc:       "\x1b[2;37m",
	hexAddr:    "\x1b[0;34m",
	warn:       "\x1b[1;33m",
	errColor:   "\x1b[1;31m",
	reset:      "\x1b[0m",
}

var plainPalette = palette{}

// Emitter is a stateful sink for one dissection run's textual output.
type Emitter struct {
	w     io.Writer
	opts  Options
	depth int
	pal   palette
	log   *logrus.Logger
}

// New creates an Emitter writing to w. If opts.Color is ColorAuto, color is
// enabled only when w is a terminal, detected via go-isatty.
func New(w io.Writer, opts Options) *Emitter {
	e := &Emitter{w: w, opts: opts}
	switch opts.Color {
	case ColorOn:
		e.pal = colorPalette
	case ColorOff:
		e.pal = plainPalette
	default:
		if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			e.pal = colorPalette
		} else {
			e.pal = plainPalette
		}
	}
	e.log = logrus.New()
	if opts.Verbose {
		e.log.SetLevel(logrus.DebugLevel)
	} else {
		e.log.SetOutput(io.Discard)
	}
	return e
}

func (e *Emitter) indent() string {
	return strings.Repeat(" ", e.depth*e.opts.Indent)
}

func (e *Emitter) color(code, s string) string {
	if code == "" {
		return s
	}
	return code + s + e.pal.reset
}

// Enter opens a box or descriptor scope, printing its header line, then
// increases indentation for subsequent Field/Enter calls. boxType is the
// bracketed identifier (a four-CC or a descriptor tag rendering like "[6]").
// humanName is the grammar's display name (e.g. "FileType", "ES_Descriptor").
func (e *Emitter) Enter(boxType, humanName string, hdrOff, payloadStart, payloadEnd int64) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%s] %s", e.indent(), boxType, humanName)
	if e.opts.ShowOffsets {
		fmt.Fprintf(&b, " @ 0x%x, 0x%x .. 0x%x", hdrOff, payloadStart, payloadEnd)
	}
	if e.opts.ShowLengths {
		fmt.Fprintf(&b, " (%d)", payloadEnd-payloadStart)
	}
	fmt.Fprintln(e.w, e.color(e.pal.header, b.String()))
	e.depth++
}

// Leave closes the most recently opened scope.
func (e *Emitter) Leave() {
	if e.depth > 0 {
		e.depth--
	}
}

// Field emits one field on its own line as "name = value", with an optional
// trailing parenthesized description when ShowDescriptions is set.
func (e *Emitter) Field(name, value, description string) {
	line := fmt.Sprintf("%s%s = %s", e.indent(), e.color(e.pal.fieldName, name), e.color(e.pal.fieldValue, value))
	if description != "" && e.opts.ShowDescriptions {
		line += " " + e.color(e.pal.desc, "("+description+")")
	}
	fmt.Fprintln(e.w, line)
}

// DefaultField behaves like Field but is suppressed entirely when isDefault
// is true, unless ShowDefaults is set.
func (e *Emitter) DefaultField(name, value string, isDefault bool, description string) {
	if isDefault && !e.opts.ShowDefaults {
		return
	}
	e.Field(name, value, description)
}

// Note prints a bare descriptive line (no "name = value" shape), used for
// flag-only grammar elements such as tfhd's default-base-is-moof bit.
func (e *Emitter) Note(text string) {
	fmt.Fprintf(e.w, "%s%s\n", e.indent(), e.color(e.pal.desc, text))
}

// ListItem prints an indented "- label: value" line, used for repeated
// simple entries such as ftyp's compatible_brands list.
func (e *Emitter) ListItem(label, value string) {
	fmt.Fprintf(e.w, "%s- %s: %s\n", e.indent(), label, e.color(e.pal.fieldValue, value))
}

// rowLimit resolves the effective row cap for this call: the global --rows
// option always wins when set, otherwise the call-site default applies.
func (e *Emitter) rowLimit(def int) int {
	if e.opts.MaxRows > 0 {
		return e.opts.MaxRows
	}
	return def
}

// Table emits a homogeneous sequence of count rows, one per call to row.
// row(i) must be called for every index regardless of whether its result
// is printed, so that callers can accumulate running aggregates (e.g. total
// sample duration) without buffering the whole table. When count exceeds
// the effective row limit, only the first rows are printed, followed by a
// literal "..." line and, if summary is non-nil, one aggregate-summary line.
func (e *Emitter) Table(count int, defaultMaxRows int, row func(i int) string, summary func() string) {
	limit := e.rowLimit(defaultMaxRows)
	for i := 0; i < count; i++ {
		text := row(i)
		if limit <= 0 || i < limit {
			fmt.Fprintf(e.w, "%s%s\n", e.indent(), text)
		} else if i == limit {
			fmt.Fprintf(e.w, "%s...\n", e.indent())
		}
	}
	if summary != nil {
		fmt.Fprintf(e.w, "%s%s\n", e.indent(), summary())
	}
}

// Hexdump prints data as a canonical hex+ASCII dump, BytesPerLine bytes per
// row, with each row's address rendered relative to base. Truncates at
// maxRows lines (0 = unlimited, overridden by the global --rows option)
// and appends a literal "..." line if truncated.
func (e *Emitter) Hexdump(data []byte, base int64, maxRows int) {
	width := e.opts.BytesPerLine
	if width <= 0 {
		width = 16
	}
	limit := e.rowLimit(maxRows)
	rows := (len(data) + width - 1) / width
	for row := 0; row*width < len(data); row++ {
		if limit > 0 && row >= limit {
			fmt.Fprintf(e.w, "%s...\n", e.indent())
			break
		}
		off := row * width
		end := off + width
		if end > len(data) {
			end = len(data)
		}
		chunk := data[off:end]
		var hex strings.Builder
		var ascii strings.Builder
		for i := 0; i < width; i++ {
			if i < len(chunk) {
				fmt.Fprintf(&hex, "%02x ", chunk[i])
				c := chunk[i]
				if c >= 0x20 && c < 0x7f {
					ascii.WriteByte(c)
				} else {
					ascii.WriteByte('.')
				}
			} else {
				hex.WriteString("   ")
			}
		}
		addr := e.color(e.pal.hexAddr, fmt.Sprintf("%08x", base+int64(off)))
		fmt.Fprintf(e.w, "%s%s  %s %s\n", e.indent(), addr, hex.String(), ascii.String())
	}
	_ = rows
}

// Warn reports a non-fatal condition at the current indent level and, when
// verbose logging is enabled, via logrus at Warn level.
func (e *Emitter) Warn(message string) {
	fmt.Fprintf(e.w, "%s%s\n", e.indent(), e.color(e.pal.warn, "WARNING: "+message))
	e.log.Warn(message)
}

// ErrorWithDump reports a recoverable parse failure: an "ERROR: <message>"
// line at the current indent level, followed by a hex dump of the
// remaining box payload so the offending bytes are still visible.
func (e *Emitter) ErrorWithDump(message string, data []byte, base int64) {
	fmt.Fprintf(e.w, "%s%s\n", e.indent(), e.color(e.pal.errColor, "ERROR: "+message))
	e.Hexdump(data, base, 0)
	e.log.Error(message)
}

// Depth returns the current indentation depth, in scopes (not spaces).
func (e *Emitter) Depth() int {
	return e.depth
}
