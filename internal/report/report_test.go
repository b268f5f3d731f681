package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surstitch/leadboard/internal/compute"
	"github.com/surstitch/leadboard/internal/leads"
)

const doc = `Person_UUID,Lead_Status,Lead_Source,Is_Converted_Bool,Has_L2QR,Speed_to_Lead,Activity_Count
a,New,Web,false,true,00:30,2
b,Won,Web,true,true,01:15,4
c,Lost,Ads,false,false,,0
d,Won,Ads,true,true,02:00,6
`

func TestMain(m *testing.M) {
	color.NoColor = true
	m.Run()
}

func result(t *testing.T, f compute.Filters) (*compute.Result, *leads.Table) {
	t.Helper()
	tbl, err := leads.Load(strings.NewReader(doc), leads.DefaultSchema())
	require.NoError(t, err)
	eng := compute.NewEngine(leads.DefaultSchema())
	return eng.Process(tbl, f, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)), tbl
}

func TestRender_Sections(t *testing.T) {
	res, _ := result(t, compute.Filters{Status: "Won"})
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, Input{Dataset: "person_master", Result: res}))
	out := buf.String()

	assert.Contains(t, out, "person_master: 4 leads, 2 matching status=Won")
	assert.Contains(t, out, "KPIs")
	assert.Contains(t, out, "Pipeline health")
	assert.Contains(t, out, "Insights")
	assert.Contains(t, out, "50.00%")
	assert.Contains(t, out, "100.00%")
	assert.Contains(t, out, "state: "+res.FullHealth.State)
	assert.NotContains(t, out, "Leads (", "no preview requested")
}

func TestRender_KPIRowsAligned(t *testing.T) {
	res, _ := result(t, compute.Filters{})
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, Input{Result: res}))

	var leadsLine string
	for _, l := range strings.Split(buf.String(), "\n") {
		if strings.HasPrefix(strings.TrimSpace(l), "Leads ") {
			leadsLine = l
		}
	}
	require.NotEmpty(t, leadsLine)
	assert.Equal(t, []string{"Leads", "4", "4"}, strings.Fields(leadsLine))
}

func TestRender_Preview(t *testing.T) {
	res, _ := result(t, compute.Filters{Source: "Ads"})
	preview := leads.Project(res.Filtered, []string{"Person_UUID", "Lead_Status"}, map[string]string{"Lead_Status": "Status"})

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, Input{Result: res, Preview: preview, PreviewRows: 1}))
	out := buf.String()
	assert.Contains(t, out, "Leads (1 of 2)")
	assert.Contains(t, out, "Status")
	assert.Contains(t, out, "Lost")
	assert.NotContains(t, out, "  d  ")
}

func TestRender_LoadErrorAndNilResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, Input{Dataset: "x", LoadError: "open x.csv: no such file"}))
	out := buf.String()
	assert.Contains(t, out, "x: 0 leads")
	assert.Contains(t, out, "load error: open x.csv: no such file")
	assert.Contains(t, out, "00:00")
}

func TestDescribeFilters(t *testing.T) {
	assert.Equal(t, "no filters", DescribeFilters(compute.Filters{Status: compute.All}))
	assert.Equal(t, `status=Won, source=Web, converted=Not Converted, q="acme co"`,
		DescribeFilters(compute.Filters{Status: "Won", Source: "Web", Converted: compute.ConversionNotConverted, Search: "acme co"}))
}

func TestTable_Render(t *testing.T) {
	tbl := NewTable(Column{Header: "Name"}, Column{Header: "N", Align: AlignRight})
	tbl.AddRow("alpha", "10")
	tbl.AddRow("β", "5", "ignored")
	tbl.AddRow("only")

	var buf bytes.Buffer
	require.NoError(t, tbl.Render(&buf))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "  Name    N", lines[0])
	assert.Equal(t, "  -----  --", lines[1])
	assert.Equal(t, "  alpha  10", lines[2])
	assert.Equal(t, "  β       5", lines[3])
	assert.Equal(t, "  only", lines[4])
}

func TestTable_NoColumns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTable().Render(&buf))
	assert.Empty(t, buf.String())
}
