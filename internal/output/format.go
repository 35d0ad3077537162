// Package output renders command results and errors as text or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// Format is an output encoding.
type Format string

// Supported formats. FormatAuto picks text on a terminal and JSON otherwise.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatAuto Format = "auto"
)

const deadlineLayout = "2006-01-02 15:04 MST"

// Formatter writes command results in one format.
type Formatter struct {
	format Format
	w      io.Writer
	loc    *time.Location
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithLocation renders timestamps in loc instead of the process zone.
func WithLocation(loc *time.Location) Option {
	return func(f *Formatter) {
		if loc != nil {
			f.loc = loc
		}
	}
}

// NewFormatter returns a formatter writing format to w.
func NewFormatter(format Format, w io.Writer, opts ...Option) *Formatter {
	f := &Formatter{format: format, w: w, loc: time.Local}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format reports the encoding in use.
func (f *Formatter) Format() Format { return f.format }

// IsJSON reports whether results are encoded as JSON.
func (f *Formatter) IsJSON() bool { return f.format == FormatJSON }

// Print writes v as indented JSON, or as text. In text mode a string map
// prints as sorted "key: value" lines.
func (f *Formatter) Print(v any) error {
	if f.IsJSON() {
		enc := json.NewEncoder(f.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	switch val := v.(type) {
	case string:
		return f.Println(val)
	case map[string]string:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := f.Printf("%s: %s\n", k, val[k]); err != nil {
				return err
			}
		}
		return nil
	case fmt.Stringer:
		return f.Println(val.String())
	default:
		return f.Printf("%v\n", val)
	}
}

// Printf writes formatted text.
func (f *Formatter) Printf(format string, args ...any) error {
	_, err := fmt.Fprintf(f.w, format, args...)
	return err
}

// Println writes a line of text.
func (f *Formatter) Println(args ...any) error {
	_, err := fmt.Fprintln(f.w, args...)
	return err
}

// Time formats t in the formatter's zone.
func (f *Formatter) Time(t time.Time) string {
	return t.In(f.loc).Format(deadlineLayout)
}

// Resolve turns the configured format setting into a concrete format for w.
// Unknown settings behave like auto.
func Resolve(setting string, w io.Writer) Format {
	switch Format(strings.ToLower(strings.TrimSpace(setting))) {
	case FormatJSON:
		return FormatJSON
	case FormatText:
		return FormatText
	}
	if Interactive(w) {
		return FormatText
	}
	return FormatJSON
}
