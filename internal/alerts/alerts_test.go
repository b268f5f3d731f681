package alerts

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surstitch/leadboard/internal/compute"
	"github.com/surstitch/leadboard/internal/config"
)

var baseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func input(s compute.Snapshot) Input {
	return Input{Dataset: "person_master", Snapshot: s, Health: compute.Health(s)}
}

func TestParseCondition(t *testing.T) {
	valid := []string{
		"lead_to_convert_pct < 2",
		"health_score <= 40",
		"lead_count == 0",
		"speed_to_lead_minutes > 240",
		"load_failed > 0",
		"state == critical",
		"state != healthy",
	}
	for _, c := range valid {
		_, err := parseCondition(c)
		assert.NoError(t, err, c)
	}

	invalid := []string{
		"",
		"health_score < ",
		"drop_pct > 10",
		"health_score ~ 4",
		"health_score < low",
		"state > critical",
	}
	for _, c := range invalid {
		_, err := parseCondition(c)
		assert.Error(t, err, c)
	}
}

func TestConditionEval(t *testing.T) {
	s := compute.Snapshot{
		LeadCount:         10,
		ConvertedCount:    1,
		LeadToConvertPct:  10,
		ActivityCountAvg:  0.5,
		MedianSpeedToLead: "05:00",
	}
	tests := []struct {
		cond      string
		wantFire  bool
		wantValue float64
	}{
		{"lead_to_convert_pct < 2", false, 10},
		{"lead_to_convert_pct >= 10", true, 10},
		{"activity_count_avg < 1", true, 0.5},
		{"speed_to_lead_minutes > 240", true, 300},
		{"lead_count != 10", false, 10},
		{"load_failed > 0", false, 0},
	}
	for _, tc := range tests {
		c, err := parseCondition(tc.cond)
		require.NoError(t, err)
		fires, v := c.eval(input(s))
		assert.Equal(t, tc.wantFire, fires, tc.cond)
		assert.InDelta(t, tc.wantValue, v, 1e-9, tc.cond)
	}
}

func TestConditionEval_UnparseableSpeedNeverFires(t *testing.T) {
	c, err := parseCondition("speed_to_lead_minutes >= 0")
	require.NoError(t, err)
	fires, _ := c.eval(input(compute.Snapshot{MedianSpeedToLead: "n/a"}))
	assert.False(t, fires)
}

func TestConditionEval_StateAndLoadFailure(t *testing.T) {
	c, err := parseCondition("state == critical")
	require.NoError(t, err)
	fires, _ := c.eval(input(compute.Empty()))
	assert.True(t, fires, "an empty table scores 0")

	c, err = parseCondition("load_failed > 0")
	require.NoError(t, err)
	in := input(compute.Empty())
	in.LoadError = "leads: malformed csv"
	fires, v := c.eval(in)
	assert.True(t, fires)
	assert.Equal(t, 1.0, v)
}

func TestNew_SkipsBadRules(t *testing.T) {
	e := New(config.AlertsConfig{Rules: []config.AlertRule{
		{Name: "ok", Condition: "health_score < 40"},
		{Name: "bad", Condition: "nonsense"},
	}})
	assert.Equal(t, 1, e.Rules())
}

func TestEvaluate_FireResolveCooldown(t *testing.T) {
	e := New(config.AlertsConfig{Rules: []config.AlertRule{
		{Name: "low-conversion", Condition: "lead_to_convert_pct < 2", Severity: "critical", Cooldown: 10 * time.Minute},
	}})
	clock := baseTime
	e.now = func() time.Time { return clock }

	bad := input(compute.Snapshot{LeadCount: 100, ConvertedCount: 1, LeadToConvertPct: 1})
	good := input(compute.Snapshot{LeadCount: 100, ConvertedCount: 5, LeadToConvertPct: 5})

	e.Evaluate(bad)
	active := e.Active()
	require.Len(t, active, 1)
	first := active[0]
	assert.Equal(t, StateFiring, first.State)
	assert.Equal(t, "critical", first.Severity)
	assert.Equal(t, "person_master", first.Dataset)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, 1, e.Firing())

	// Still firing: no duplicate.
	clock = clock.Add(time.Minute)
	e.Evaluate(bad)
	require.Len(t, e.Active(), 1)

	// Resolve.
	clock = clock.Add(time.Minute)
	e.Evaluate(good)
	active = e.Active()
	require.Len(t, active, 1)
	assert.Equal(t, StateResolved, active[0].State)
	require.NotNil(t, active[0].ResolvedAt)
	assert.Equal(t, 0, e.Firing())

	// Within cooldown of the first fire: suppressed.
	clock = clock.Add(time.Minute)
	e.Evaluate(bad)
	assert.Equal(t, 0, e.Firing())

	// After cooldown: fires again with a new ID.
	clock = baseTime.Add(11 * time.Minute)
	e.Evaluate(bad)
	assert.Equal(t, 1, e.Firing())
	active = e.Active()
	require.Len(t, active, 2)
	assert.Equal(t, StateFiring, active[0].State, "newest first")
	assert.NotEqual(t, first.ID, active[0].ID)
}

func TestActive_DropsOldResolved(t *testing.T) {
	e := New(config.AlertsConfig{Rules: []config.AlertRule{{Name: "r", Condition: "lead_count == 0"}}})
	clock := baseTime
	e.now = func() time.Time { return clock }

	e.Evaluate(input(compute.Empty()))
	e.Evaluate(input(compute.Snapshot{LeadCount: 3}))
	require.Len(t, e.Active(), 1)

	clock = clock.Add(2 * time.Hour)
	assert.Empty(t, e.Active())
}

func TestEvaluate_NoRulesIsNoop(t *testing.T) {
	e := New(config.AlertsConfig{})
	e.Evaluate(input(compute.Empty()))
	assert.Empty(t, e.Active())
}

func TestWebhooks_DeliverFireAndResolve(t *testing.T) {
	var mu sync.Mutex
	bodies := map[string][]map[string]any{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var m map[string]any
		_ = json.Unmarshal(raw, &m)
		mu.Lock()
		bodies[r.URL.Path] = append(bodies[r.URL.Path], m)
		mu.Unlock()
	}))
	defer srv.Close()

	t.Setenv("TEST_SLACK_URL", srv.URL+"/slack")
	t.Setenv("TEST_TEAMS_URL", srv.URL+"/teams")
	t.Setenv("TEST_HTTP_URL", srv.URL+"/http")

	e := New(config.AlertsConfig{
		Rules: []config.AlertRule{{Name: "empty", Condition: "lead_count == 0", Severity: "warning"}},
		Webhooks: []config.WebhookConfig{
			{Type: "slack", URLEnv: "TEST_SLACK_URL"},
			{Type: "teams", URLEnv: "TEST_TEAMS_URL"},
			{Type: "http", URLEnv: "TEST_HTTP_URL"},
			{Type: "http", URLEnv: "TEST_UNSET_URL"},
		},
	})

	e.Evaluate(input(compute.Empty()))
	e.Evaluate(input(compute.Snapshot{LeadCount: 1}))
	e.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies["/slack"], 2)
	require.Len(t, bodies["/teams"], 2)
	require.Len(t, bodies["/http"], 2)

	texts := []string{bodies["/slack"][0]["text"].(string), bodies["/slack"][1]["text"].(string)}
	assert.Contains(t, texts[0]+texts[1], "[WARNING]")
	assert.Contains(t, texts[0]+texts[1], "[RESOLVED]")
	assert.Equal(t, "MessageCard", bodies["/teams"][0]["@type"])
	assert.Contains(t, bodies["/http"][0], "alert")
}

func TestPost_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	e := New(config.AlertsConfig{})
	err := e.post(srv.URL, []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSetRules_ReplacesRulesAndDropsOrphans(t *testing.T) {
	e := New(config.AlertsConfig{Rules: []config.AlertRule{
		{Name: "empty", Condition: "lead_count == 0"},
		{Name: "unhealthy", Condition: "health_score < 40"},
	}})
	e.now = func() time.Time { return baseTime }

	e.Evaluate(input(compute.Empty()))
	require.Equal(t, 2, e.Firing())

	e.SetRules(config.AlertsConfig{Rules: []config.AlertRule{
		{Name: "unhealthy", Condition: "health_score < 40"},
		{Name: "broken", Condition: "lead_count >"},
	}})
	assert.Equal(t, 1, e.Rules())
	assert.Equal(t, 1, e.Firing())
	require.Len(t, e.Active(), 1)
	assert.Equal(t, "unhealthy", e.Active()[0].RuleName)
}
