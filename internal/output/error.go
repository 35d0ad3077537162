package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/etenda/etenda/internal/txerror"
	etendaerr "github.com/etenda/etenda/pkg/errors"
)

// ErrorReport is the document written to stderr when a command fails.
type ErrorReport struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody describes one failure. Message is the user-facing text; Cause
// carries the wrapped low-level error, if any.
type ErrorBody struct {
	Kind       string            `json:"kind"`
	Code       string            `json:"code"`
	Reason     string            `json:"reason,omitempty"`
	Message    string            `json:"message"`
	Cause      string            `json:"cause,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	ExitCode   int               `json:"exit_code"`
}

// NewErrorReport classifies err. Errors outside the etenda taxonomy are
// reported as general failures.
func NewErrorReport(err error) ErrorReport {
	var ee *etendaerr.EtendaError
	if !errors.As(err, &ee) {
		return ErrorReport{Error: ErrorBody{
			Kind:     string(etendaerr.KindGeneral),
			Code:     etendaerr.ErrGeneral.Code,
			Message:  err.Error(),
			ExitCode: etendaerr.ExitGeneral,
		}}
	}

	body := ErrorBody{
		Kind:       string(ee.Kind),
		Code:       ee.Code,
		Reason:     ee.Reason,
		Message:    ee.Message,
		Details:    ee.Details,
		Suggestion: ee.Suggestion,
		ExitCode:   ee.ExitCode,
	}
	if ee.Kind.IsDomain() {
		body.Message = txerror.UserMessage(ee)
	}
	if ee.Cause != nil {
		body.Cause = ee.Cause.Error()
	}
	return ErrorReport{Error: body}
}

// Text renders the report for a terminal.
func (r ErrorReport) Text() string {
	b := r.Error
	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", b.Message)
	if b.Cause != "" {
		fmt.Fprintf(&sb, "  caused by: %s\n", b.Cause)
	}

	if len(b.Details) > 0 {
		sb.WriteString("\nDetails:\n")
		keys := make([]string, 0, len(b.Details))
		for k := range b.Details {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "  %s: %s\n", k, b.Details[k])
		}
	}
	if b.Suggestion != "" {
		fmt.Fprintf(&sb, "\nSuggestion: %s\n", b.Suggestion)
	}
	return sb.String()
}

// WriteError reports err on w in the given format. A nil err writes nothing.
func WriteError(w io.Writer, err error, format Format) error {
	if err == nil {
		return nil
	}
	report := NewErrorReport(err)
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	_, werr := io.WriteString(w, report.Text())
	return werr
}
