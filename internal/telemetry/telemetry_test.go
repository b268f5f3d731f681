package telemetry

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surstitch/leadboard/internal/compute"
)

func sample() Sample {
	snap := compute.Snapshot{
		LeadCount:         4,
		L2QRCount:         2,
		ConvertedCount:    1,
		LeadToConvertPct:  25,
		LeadToL2QRPct:     50,
		L2QRToConvertPct:  50,
		MedianSpeedToLead: "01:30",
		ActivityCountAvg:  2,
	}
	return Sample{
		Dataset:      "person_master",
		Snapshot:     snap,
		Health:       compute.Health(snap),
		Rows:         4,
		Columns:      7,
		Reloads:      3,
		Failures:     1,
		LoadedAt:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		WSClients:    2,
		AlertsFiring: 1,
	}
}

// parse decodes an exposition with the same parser the scrape side uses.
func parse(t *testing.T, b []byte) map[string]*dto.MetricFamily {
	t.Helper()
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(bytes.NewReader(b))
	require.NoError(t, err)
	return mfs
}

// sumFamily adds up the counter and gauge values in mf.
func sumFamily(mf *dto.MetricFamily) float64 {
	if mf == nil {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		switch {
		case m.Counter != nil:
			total += m.Counter.GetValue()
		case m.Gauge != nil:
			total += m.Gauge.GetValue()
		}
	}
	return total
}

func TestWrite_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sample()))
	mfs := parse(t, buf.Bytes())

	want := map[string]float64{
		"leadboard_leads":                               4,
		"leadboard_l2qr_leads":                          2,
		"leadboard_converted_leads":                     1,
		"leadboard_lead_to_convert_pct":                 25,
		"leadboard_lead_to_l2qr_pct":                    50,
		"leadboard_l2qr_to_convert_pct":                 50,
		"leadboard_activity_count_avg":                  2,
		"leadboard_speed_to_lead_minutes":               90,
		"leadboard_health_state":                        1,
		"leadboard_dataset_rows":                        4,
		"leadboard_dataset_columns":                     7,
		"leadboard_dataset_reloads_total":               3,
		"leadboard_dataset_load_failures_total":         1,
		"leadboard_dataset_load_error":                  0,
		"leadboard_dataset_last_load_timestamp_seconds": 1704067200,
		"leadboard_ws_clients":                          2,
		"leadboard_alerts_firing":                       1,
	}
	for name, v := range want {
		mf, ok := mfs[name]
		require.True(t, ok, "missing family %s", name)
		assert.InDelta(t, v, sumFamily(mf), 1e-6, name)
	}
	assert.InDelta(t, sample().Health.Score, sumFamily(mfs["leadboard_health_score"]), 1e-6)
	assert.Equal(t, dto.MetricType_COUNTER, mfs["leadboard_dataset_reloads_total"].GetType())
}

func TestFamilies_DatasetLabelAndState(t *testing.T) {
	s := sample()
	var state *dto.MetricFamily
	for _, mf := range Families(s) {
		if mf.GetName() == "leadboard_leads" {
			require.Len(t, mf.GetMetric(), 1)
			lp := mf.GetMetric()[0].GetLabel()
			require.Len(t, lp, 1)
			assert.Equal(t, "dataset", lp[0].GetName())
			assert.Equal(t, "person_master", lp[0].GetValue())
		}
		if mf.GetName() == "leadboard_health_state" {
			state = mf
		}
	}
	require.NotNil(t, state)
	for _, m := range state.GetMetric() {
		var st string
		for _, l := range m.GetLabel() {
			if l.GetName() == "state" {
				st = l.GetValue()
			}
		}
		if st == s.Health.State {
			assert.Equal(t, 1.0, m.GetGauge().GetValue())
		} else {
			assert.Equal(t, 0.0, m.GetGauge().GetValue())
		}
	}
}

func TestFamilies_OptionalSeries(t *testing.T) {
	s := Sample{Dataset: "d", Snapshot: compute.Empty(), Health: compute.Health(compute.Empty()), LoadErr: true}
	names := map[string]bool{}
	for _, mf := range Families(s) {
		names[mf.GetName()] = true
	}
	assert.True(t, names["leadboard_speed_to_lead_minutes"], "00:00 parses as zero minutes")
	assert.False(t, names["leadboard_dataset_last_load_timestamp_seconds"], "no load yet")

	s.Snapshot.MedianSpeedToLead = "n/a"
	names = map[string]bool{}
	for _, mf := range Families(s) {
		names[mf.GetName()] = true
	}
	assert.False(t, names["leadboard_speed_to_lead_minutes"])
}

func TestHandler(t *testing.T) {
	h := Handler(sample)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	mfs := parse(t, rec.Body.Bytes())
	assert.Contains(t, mfs, "leadboard_health_score")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/metrics", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
