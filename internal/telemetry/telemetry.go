package telemetry

import (
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/surstitch/leadboard/internal/compute"
)

const namespace = "leadboard_"

// Sample is one read of everything the /metrics endpoint exposes.
type Sample struct {
	Dataset  string
	Snapshot compute.Snapshot
	Health   compute.HealthScore

	Rows     int
	Columns  int
	Reloads  int
	Failures int
	LoadedAt time.Time
	LoadErr  bool

	WSClients    int
	AlertsFiring int
}

// Families converts s into Prometheus metric families, sorted by name.
func Families(s Sample) []*dto.MetricFamily {
	ds := []*dto.LabelPair{label("dataset", s.Dataset)}

	var out []*dto.MetricFamily
	gauge := func(name, help string, v float64) {
		out = append(out, family(name, help, dto.MetricType_GAUGE, gaugeMetric(ds, v)))
	}
	counter := func(name, help string, v float64) {
		out = append(out, family(name, help, dto.MetricType_COUNTER, counterMetric(ds, v)))
	}

	snap := s.Snapshot
	gauge("leads", "Number of lead records in the dataset.", float64(snap.LeadCount))
	gauge("l2qr_leads", "Number of leads with a truthy L2QR flag.", float64(snap.L2QRCount))
	gauge("converted_leads", "Number of leads converted to accounts.", float64(snap.ConvertedCount))
	gauge("lead_to_convert_pct", "Converted leads as a percentage of all leads.", snap.LeadToConvertPct)
	gauge("lead_to_l2qr_pct", "L2QR leads as a percentage of all leads.", snap.LeadToL2QRPct)
	gauge("l2qr_to_convert_pct", "Converted leads as a percentage of L2QR leads.", snap.L2QRToConvertPct)
	gauge("activity_count_avg", "Mean activity count per lead.", snap.ActivityCountAvg)
	if mins, ok := compute.SpeedMinutes(snap.MedianSpeedToLead); ok {
		gauge("speed_to_lead_minutes", "Representative speed to lead in minutes.", float64(mins))
	}
	gauge("health_score", "Composite pipeline health score (0-100).", s.Health.Score)

	states := make([]*dto.Metric, 0, 3)
	for _, st := range []string{compute.StateHealthy, compute.StateWarning, compute.StateCritical} {
		v := 0.0
		if s.Health.State == st {
			v = 1
		}
		states = append(states, gaugeMetric([]*dto.LabelPair{label("dataset", s.Dataset), label("state", st)}, v))
	}
	out = append(out, family("health_state", "1 for the current pipeline health state.", dto.MetricType_GAUGE, states...))

	gauge("dataset_rows", "Rows in the loaded table.", float64(s.Rows))
	gauge("dataset_columns", "Columns in the loaded table.", float64(s.Columns))
	counter("dataset_reloads_total", "Dataset load attempts.", float64(s.Reloads))
	counter("dataset_load_failures_total", "Failed dataset loads.", float64(s.Failures))
	loadErr := 0.0
	if s.LoadErr {
		loadErr = 1
	}
	gauge("dataset_load_error", "1 if the last dataset load failed.", loadErr)
	if !s.LoadedAt.IsZero() {
		gauge("dataset_last_load_timestamp_seconds", "Unix time of the last load attempt.",
			float64(s.LoadedAt.UnixNano())/1e9)
	}

	out = append(out,
		family("ws_clients", "Connected WebSocket clients.", dto.MetricType_GAUGE, gaugeMetric(nil, float64(s.WSClients))),
		family("alerts_firing", "Currently firing alerts.", dto.MetricType_GAUGE, gaugeMetric(nil, float64(s.AlertsFiring))),
	)

	sort.Slice(out, func(i, j int) bool { return out[i].GetName() < out[j].GetName() })
	return out
}

// Write encodes s in the Prometheus text exposition format.
func Write(w io.Writer, s Sample) error {
	enc := expfmt.NewEncoder(w, format)
	for _, mf := range Families(s) {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

var format = expfmt.NewFormat(expfmt.TypeTextPlain)

// Handler serves the samples returned by read on every scrape.
func Handler(read func() Sample) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", string(format))
		if err := Write(w, read()); err != nil {
			slog.Error("telemetry: encode failed", "err", err)
		}
	})
}

func family(name, help string, typ dto.MetricType, metrics ...*dto.Metric) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(namespace + name),
		Help:   proto.String(help),
		Type:   typ.Enum(),
		Metric: metrics,
	}
}

func gaugeMetric(labels []*dto.LabelPair, v float64) *dto.Metric {
	return &dto.Metric{Label: labels, Gauge: &dto.Gauge{Value: proto.Float64(v)}}
}

func counterMetric(labels []*dto.LabelPair, v float64) *dto.Metric {
	return &dto.Metric{Label: labels, Counter: &dto.Counter{Value: proto.Float64(v)}}
}

func label(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: proto.String(name), Value: proto.String(value)}
}
