package chain

import (
	"math/big"
	"strconv"
	"strings"
	"time"

	etendaerr "github.com/etenda/etenda/pkg/errors"
)

// deadlineLayouts are tried in order. Layouts without an offset are read in
// the caller's location.
//
//nolint:gochecknoglobals // static layout table
var deadlineLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDeadline converts a calendar value or unix seconds to a time with
// second precision. Unparseable input fails with an invalid deadline input error.
func ParseDeadline(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.Local
	}
	if s == "" {
		return time.Time{}, invalidDeadline(s)
	}

	if digits(s) {
		secs, err := strconv.ParseInt(s, 10, 64)
		if err != nil || secs <= 0 {
			return time.Time{}, invalidDeadline(s)
		}
		return time.Unix(secs, 0).UTC(), nil
	}

	for _, layout := range deadlineLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.Truncate(time.Second), nil
		}
	}
	return time.Time{}, invalidDeadline(s)
}

// DeadlineToUnix returns the on-chain representation of a deadline.
func DeadlineToUnix(t time.Time) *big.Int {
	return big.NewInt(t.Unix())
}

// UnixToDeadline converts an on-chain timestamp back to a time in UTC.
func UnixToDeadline(v *big.Int) time.Time {
	if v == nil || !v.IsInt64() {
		return time.Time{}
	}
	return time.Unix(v.Int64(), 0).UTC()
}

func invalidDeadline(s string) error {
	err := etendaerr.WithDetails(etendaerr.ErrInvalidDeadlineInput, map[string]string{"deadline": s})
	return etendaerr.WithSuggestion(err, "use RFC3339, YYYY-MM-DD, YYYY-MM-DD HH:MM, or unix seconds")
}
