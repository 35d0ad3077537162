package output_test

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etenda/etenda/internal/output"
)

func TestFormatter_PrintJSONIsIndented(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, output.NewFormatter(output.FormatJSON, &buf).Print(map[string]string{"tenders": "3"}))

	assert.Equal(t, "{\n  \"tenders\": \"3\"\n}\n", buf.String())
	var got map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "3", got["tenders"])
}

func TestFormatter_PrintText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "string", in: "No tenders found.", want: "No tenders found.\n"},
		{name: "string map sorted", in: map[string]string{"tenders": "3", "network": "base"}, want: "network: base\ntenders: 3\n"},
		{name: "stringer", in: time.Duration(90) * time.Second, want: "1m30s\n"},
		{name: "other", in: 42, want: "42\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			require.NoError(t, output.NewFormatter(output.FormatText, &buf).Print(tc.in))
			assert.Equal(t, tc.want, buf.String())
		})
	}
}

func TestFormatter_IsJSON(t *testing.T) {
	t.Parallel()
	assert.True(t, output.NewFormatter(output.FormatJSON, nil).IsJSON())
	assert.False(t, output.NewFormatter(output.FormatText, nil).IsJSON())
	assert.Equal(t, output.FormatText, output.NewFormatter(output.FormatText, nil).Format())
}

func TestFormatter_Time(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 5, 4, 23, 30, 0, 0, time.UTC)

	f := output.NewFormatter(output.FormatText, nil, output.WithLocation(time.FixedZone("CET", 3600)))
	assert.Equal(t, "2026-05-05 00:30 CET", f.Time(at))

	// a nil location keeps the default zone
	f = output.NewFormatter(output.FormatText, nil, output.WithLocation(nil))
	assert.Equal(t, at.In(time.Local).Format("2006-01-02 15:04 MST"), f.Time(at))
}

func TestResolve(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer

	tests := []struct {
		setting string
		want    output.Format
	}{
		{"json", output.FormatJSON},
		{" TEXT ", output.FormatText},
		{"auto", output.FormatJSON},
		{"", output.FormatJSON},
		{"yaml", output.FormatJSON},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, output.Resolve(tc.setting, &buf), tc.setting)
	}
}

func TestResolve_Terminal(t *testing.T) {
	if os.Getenv("TEST_TTY") == "" {
		t.Skip("set TEST_TTY=1 to run against a terminal")
	}
	assert.Equal(t, output.FormatText, output.Resolve("auto", os.Stdout))
}

func TestTable_Layout(t *testing.T) {
	t.Parallel()
	tbl := output.NewTable("ID", "TITLE", "BUDGET").AlignRight(0, 2)
	tbl.AddRow("1", "Road", "1.5")
	tbl.AddRow("12", "Brücke", "250")

	want := "" +
		"ID  TITLE   BUDGET\n" +
		"--  ------  ------\n" +
		" 1  Road       1.5\n" +
		"12  Brücke     250\n"
	assert.Equal(t, want, tbl.String())
}

func TestTable_WithoutHeaders(t *testing.T) {
	t.Parallel()
	tbl := output.NewTable().AlignRight(1)
	tbl.AddRow("Tenders posted", "2")
	tbl.AddRow("Total budget", "2.5")

	assert.Equal(t, "Tenders posted    2\nTotal budget    2.5\n", tbl.String())
}

func TestTable_ShortRows(t *testing.T) {
	t.Parallel()
	tbl := output.NewTable("", "NAME", "ADDRESS")
	tbl.AddRow("*", "owner")
	tbl.AddRow("", "bidder", "0x22")

	var buf bytes.Buffer
	require.NoError(t, tbl.Render(&buf))
	assert.Equal(t, "   NAME    ADDRESS\n-  ------  -------\n*  owner\n   bidder  0x22\n", buf.String())
}

func TestTable_Empty(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, output.NewTable().Render(&buf))
	assert.Empty(t, buf.String())
}
