package leads

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoad(t *testing.T, doc string) *Table {
	t.Helper()
	tbl, err := Load(strings.NewReader(doc), DefaultSchema())
	require.NoError(t, err)
	return tbl
}

// --- Truthy ---

func TestTruthy(t *testing.T) {
	truthy := []string{"True", "yes", "1", "TRUE", "true", "YES", "Yes"}
	for _, v := range truthy {
		assert.True(t, Truthy(v), "Truthy(%q)", v)
	}
	falsy := []string{"false", "0", "", "maybe", "y", "t", " true", "true ", "1.0", "no"}
	for _, v := range falsy {
		assert.False(t, Truthy(v), "Truthy(%q)", v)
	}
}

func TestTruthyAt_AbsentAndMissingColumn(t *testing.T) {
	tbl := mustLoad(t, "Person_UUID,Has_L2QR\na,\nb,yes\n")
	assert.False(t, TruthyAt(tbl, 0, "Has_L2QR"), "empty cell is falsy")
	assert.True(t, TruthyAt(tbl, 1, "Has_L2QR"))
	assert.False(t, TruthyAt(tbl, 1, "No_Such_Column"))
}

// --- Table ---

func TestTable_NilIsEmpty(t *testing.T) {
	var tbl *Table
	assert.Equal(t, 0, tbl.Len())
	assert.Nil(t, tbl.Columns())
	assert.False(t, tbl.HasColumn("x"))
	v, ok := tbl.Value(0, "x")
	assert.False(t, ok)
	assert.Empty(t, v)
	assert.Nil(t, tbl.Row(0))
}

func TestTable_ColumnsAreCopied(t *testing.T) {
	tbl := mustLoad(t, "Person_UUID,Lead_Status,Lead_Source\n1,New,Web\n")
	cols := tbl.Columns()
	cols[0] = "mutated"
	assert.Equal(t, "Person_UUID", tbl.Columns()[0])
}

func TestSelect_PreservesOrderAndColumns(t *testing.T) {
	tbl := mustLoad(t, "Person_UUID,Lead_Status,Lead_Source\n1,New,Web\n2,Won,Ads\n3,Lost,Web\n")
	out := Select(tbl, []int{2, 0, 99})

	require.Equal(t, 2, out.Len())
	assert.Equal(t, tbl.Columns(), out.Columns())
	id, _ := out.Value(0, "Person_UUID")
	assert.Equal(t, "3", id)
	id, _ = out.Value(1, "Person_UUID")
	assert.Equal(t, "1", id)
	assert.Equal(t, 3, tbl.Len(), "source table untouched")
}

type mapDataset struct {
	cols []string
	rows []map[string]string
}

func (m mapDataset) Columns() []string { return m.cols }
func (m mapDataset) Len() int          { return len(m.rows) }
func (m mapDataset) Value(r int, c string) (string, bool) {
	v, ok := m.rows[r][c]
	return v, ok && v != ""
}

func TestSelect_GenericDataset(t *testing.T) {
	ds := mapDataset{
		cols: []string{"a", "b"},
		rows: []map[string]string{{"a": "1", "b": "x"}, {"a": "2"}},
	}
	out := Select(ds, []int{1})
	require.Equal(t, 1, out.Len())
	v, ok := out.Value(0, "a")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
	_, ok = out.Value(0, "b")
	assert.False(t, ok)
}

func TestProject_RelabelsAndSkipsUnknown(t *testing.T) {
	tbl := mustLoad(t, "Person_UUID,Lead_Status,Lead_Source,Score\n1,New,Web,9\n")
	out := Project(tbl, []string{"Score", "Missing", "Person_UUID"}, map[string]string{
		"Person_UUID": "Lead ID",
		"Score":       "",
	})
	assert.Equal(t, []string{"Score", "Lead ID"}, out.Columns())
	v, _ := out.Value(0, "Lead ID")
	assert.Equal(t, "1", v)
}

// --- Load ---

func TestLoad_SynthesizesRequiredColumns(t *testing.T) {
	tbl := mustLoad(t, "Name,Has_L2QR\nalice,yes\nbob,no\n")

	assert.Equal(t, []string{"Name", "Has_L2QR", "Person_UUID", "Lead_Status", "Lead_Source"}, tbl.Columns())
	for r := 0; r < tbl.Len(); r++ {
		for _, c := range DefaultSchema().Required() {
			v, ok := tbl.Value(r, c)
			assert.True(t, ok)
			assert.Equal(t, Placeholder, v)
		}
	}
}

func TestLoad_PadsShortRows(t *testing.T) {
	tbl := mustLoad(t, "Person_UUID,Lead_Status,Lead_Source\n1,New\n")
	require.Equal(t, 1, tbl.Len())
	_, ok := tbl.Value(0, "Lead_Source")
	assert.False(t, ok, "padded cell is absent")
}

func TestLoad_RejectsWideRows(t *testing.T) {
	_, err := Load(strings.NewReader("a,b\n1,2,3\n"), DefaultSchema())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestLoad_Empty(t *testing.T) {
	_, err := Load(strings.NewReader(""), DefaultSchema())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestLoad_BadQuoting(t *testing.T) {
	_, err := Load(strings.NewReader("a,b\n1,x\"y\n"), DefaultSchema())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestLoad_StripsBOMAndDedupesHeader(t *testing.T) {
	tbl := mustLoad(t, "\ufeffPerson_UUID,x,x,x.1\n1,a,b,c\n")
	assert.Equal(t, "Person_UUID", tbl.Columns()[0])
	assert.Equal(t, []string{"Person_UUID", "x", "x.2", "x.1"}, tbl.Columns()[:4])
	v, _ := tbl.Value(0, "x.2")
	assert.Equal(t, "b", v)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.csv"), DefaultSchema())
	require.Error(t, err)
}

// --- WriteCSV ---

func TestWriteCSV_QuotesOnDemand(t *testing.T) {
	b := NewBuilder([]string{"id", "note"})
	b.Append("1", "plain")
	b.Append("2", "has, comma")
	b.Append("3", `say "hi"`)
	b.Append("4", "")

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, b.Table()))
	want := "id,note\n1,plain\n2,\"has, comma\"\n3,\"say \"\"hi\"\"\"\n4,\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_NilDataset(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "\n", buf.String())
}

func TestExportRoundTrip(t *testing.T) {
	doc := "Person_UUID,Lead_Status,Lead_Source,Notes,Activity_Count\n" +
		"u1,New,Web,\"multi\nline\",3\n" +
		"u2,Won,Referral,\"a, b\",\n" +
		"u3,New,Web,,7\n"
	src := mustLoad(t, doc)
	filtered := Select(src, []int{0, 2})

	path := filepath.Join(t.TempDir(), "export.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteCSV(f, filtered))
	require.NoError(t, f.Close())

	back, err := LoadFile(path, DefaultSchema())
	require.NoError(t, err)

	require.Equal(t, filtered.Columns(), back.Columns())
	require.Equal(t, filtered.Len(), back.Len())
	for r := 0; r < back.Len(); r++ {
		assert.Equal(t, filtered.Row(r), back.Row(r), "row %d", r)
	}
}

func TestExportRoundTrip_SingleColumnEmptyCell(t *testing.T) {
	b := NewBuilder([]string{"Lead ID"})
	b.Append("a")
	b.Append("")
	b.Append("c")
	src := b.Table()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, src))
	assert.Equal(t, "Lead ID\na\n\"\"\nc\n", buf.String())

	back, err := Load(&buf, DefaultSchema())
	require.NoError(t, err)
	require.Equal(t, src.Len(), back.Len())
	for r := 0; r < back.Len(); r++ {
		want, _ := src.Value(r, "Lead ID")
		got, _ := back.Value(r, "Lead ID")
		assert.Equal(t, want, got, "row %d", r)
	}
}
