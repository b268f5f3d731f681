package compute

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surstitch/leadboard/internal/leads"
)

var baseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestEngine_ProcessStatusScenario(t *testing.T) {
	tbl := load(t, `Person_UUID,Lead_Status,Lead_Source,Is_Converted_Bool,Has_L2QR
a,New,Web,false,true
b,Won,Web,true,true
c,Lost,Ads,false,false
d,Won,Ads,true,false
`)
	e := NewEngine(leads.Schema{})

	res := e.Process(tbl, Filters{Status: "Won"}, baseTime)

	assert.Equal(t, baseTime, res.Timestamp)
	assert.True(t, res.FilteredActive)

	assert.Equal(t, 4, res.Full.LeadCount)
	assert.Equal(t, 2, res.Full.ConvertedCount)
	assert.InDelta(t, 50, res.Full.LeadToConvertPct, 1e-9)
	assert.InDelta(t, 50, res.Full.LeadToL2QRPct, 1e-9)
	assert.InDelta(t, 100, res.Full.L2QRToConvertPct, 1e-9)

	require.Equal(t, 2, res.Filtered.Len())
	assert.Equal(t, []string{"b", "d"}, ids(t, res.Filtered))
	assert.Equal(t, 2, res.Snapshot.LeadCount)
	assert.Equal(t, 2, res.Snapshot.ConvertedCount)
	assert.Equal(t, 1, res.Snapshot.L2QRCount)
	assert.InDelta(t, 100, res.Snapshot.LeadToConvertPct, 1e-9)
	assert.InDelta(t, 200, res.Snapshot.L2QRToConvertPct, 1e-9)
}

func TestEngine_ProcessWithoutFilters(t *testing.T) {
	tbl := load(t, pipelineCSV)
	e := NewEngine(leads.DefaultSchema())

	res := e.Process(tbl, Filters{}, baseTime)

	assert.False(t, res.FilteredActive)
	assert.Equal(t, res.Full, res.Snapshot)
	assert.Equal(t, res.FullHealth, res.Health)
	assert.Equal(t, tbl.Len(), res.Filtered.Len())
}

func TestEngine_InsightsDescribeWholeTable(t *testing.T) {
	tbl := load(t, pipelineCSV)
	e := NewEngine(leads.DefaultSchema())

	all := e.Process(tbl, Filters{}, baseTime)
	narrowed := e.Process(tbl, Filters{Status: "Lost"}, baseTime)

	assert.Equal(t, all.Insights, narrowed.Insights)
	assert.NotEqual(t, all.Snapshot, narrowed.Snapshot)
}

func TestEngine_MetricsIgnoreRowOrder(t *testing.T) {
	forward := load(t, `Person_UUID,Is_Converted_Bool,Has_L2QR,Activity_Count
a,true,true,1
b,false,true,3
c,false,false,8
`)
	reversed := load(t, `Person_UUID,Is_Converted_Bool,Has_L2QR,Activity_Count
c,false,false,8
b,false,true,3
a,true,true,1
`)
	e := NewEngine(leads.DefaultSchema())
	f, r := e.Metrics(forward), e.Metrics(reversed)

	assert.Equal(t, f.LeadCount, r.LeadCount)
	assert.Equal(t, f.L2QRCount, r.L2QRCount)
	assert.Equal(t, f.ConvertedCount, r.ConvertedCount)
	assert.InDelta(t, f.LeadToConvertPct, r.LeadToConvertPct, 1e-9)
	assert.InDelta(t, f.ActivityCountAvg, r.ActivityCountAvg, 1e-9)
}

func TestEngine_SchemaDefaults(t *testing.T) {
	e := NewEngine(leads.Schema{Converted: "won"})
	s := e.Schema()
	assert.Equal(t, "won", s.Converted)
	assert.Equal(t, leads.DefaultSchema().Status, s.Status)
}
