package output

import "fmt"

// Marks that open a one-line result in text output.
const (
	markDone = "✓"
	markWarn = "!"
)

// headline writes a marked summary line. JSON output has no headlines.
func (f *Formatter) headline(mark, format string, args ...any) {
	if f.IsJSON() {
		return
	}
	_, _ = fmt.Fprintf(f.w, "%s %s\n", mark, fmt.Sprintf(format, args...))
}
