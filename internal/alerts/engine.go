package alerts

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/surstitch/leadboard/internal/config"
)

const (
	defaultCooldown = config.DefaultAlertCooldown
	maxHistoryLen   = 200
	recentWindow    = time.Hour
)

// Alert states.
const (
	StateFiring   = "firing"
	StateResolved = "resolved"
)

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	Dataset    string     `json:"dataset"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"`
}

type rule struct {
	config.AlertRule
	cond condition
}

// Engine evaluates alert rules against each reload's KPIs and delivers
// webhook notifications when rules fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	client *http.Client
	now    func() time.Time

	mu       sync.Mutex
	rules    []rule
	webhooks []config.WebhookConfig
	active   map[string]*Alert    // key: "ruleName:dataset"
	lastFire map[string]time.Time // last fire time per key (for cooldown)
	history  []*Alert             // recently resolved alerts

	deliveries sync.WaitGroup
}

// New creates an Engine from the alert configuration. Rules whose condition
// does not parse are logged and skipped. An Engine with no rules is valid;
// Evaluate becomes a no-op.
func New(cfg config.AlertsConfig) *Engine {
	e := &Engine{
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
	}
	e.SetRules(cfg)
	return e
}

// SetRules replaces the rules and webhooks, as on a config reload. Firing
// alerts of rules that no longer exist are dropped without a resolve
// notification.
func (e *Engine) SetRules(cfg config.AlertsConfig) {
	var rules []rule
	names := make(map[string]bool, len(cfg.Rules))
	for _, r := range cfg.Rules {
		c, err := parseCondition(r.Condition)
		if err != nil {
			slog.Warn("alerts: skipping rule", "rule", r.Name, "err", err)
			continue
		}
		rules = append(rules, rule{AlertRule: r, cond: c})
		names[r.Name] = true
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = rules
	e.webhooks = cfg.Webhooks
	for key, a := range e.active {
		if !names[a.RuleName] {
			delete(e.active, key)
		}
	}
}

// Rules returns the number of active rules.
func (e *Engine) Rules() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.rules)
}

// Evaluate tests all configured rules against in.
// Alerts that fire are stored and webhook delivery is triggered asynchronously.
// Alerts that were firing but whose condition is now false are resolved.
func (e *Engine) Evaluate(in Input) {
	e.mu.Lock()
	rules, hooks := e.rules, e.webhooks
	e.mu.Unlock()
	if len(rules) == 0 {
		return
	}

	now := e.now()
	for _, r := range rules {
		key := r.Name + ":" + in.Dataset
		fires, value := r.cond.eval(in)

		e.mu.Lock()
		var notify *Alert
		if fires {
			cooldown := r.Cooldown
			if cooldown <= 0 {
				cooldown = defaultCooldown
			}
			_, firing := e.active[key]
			if !firing && now.Sub(e.lastFire[key]) > cooldown {
				sev := r.Severity
				if sev == "" {
					sev = "warning"
				}
				a := &Alert{
					ID:       uuid.NewString(),
					RuleName: r.Name,
					Dataset:  in.Dataset,
					Severity: sev,
					Value:    value,
					Message: fmt.Sprintf("[%s] %s fired on %s: %s (value %.2f)",
						sev, r.Name, in.Dataset, r.Condition, value),
					FiredAt: now,
					State:   StateFiring,
				}
				e.active[key] = a
				e.lastFire[key] = now
				cp := *a
				notify = &cp

				slog.Warn("alerts: fired",
					"rule", r.Name,
					"dataset", in.Dataset,
					"value", value,
					"severity", sev,
				)
			} else if a, ok := e.active[key]; ok {
				a.Value = value
			}
		} else if a, ok := e.active[key]; ok {
			resolved := now
			a.State = StateResolved
			a.ResolvedAt = &resolved
			delete(e.active, key)

			e.history = append(e.history, a)
			if len(e.history) > maxHistoryLen {
				e.history = e.history[len(e.history)-maxHistoryLen:]
			}
			cp := *a
			notify = &cp

			slog.Info("alerts: resolved", "rule", r.Name, "dataset", in.Dataset)
		}
		e.mu.Unlock()

		if notify != nil && len(hooks) > 0 {
			e.deliveries.Add(1)
			go func(a *Alert) {
				defer e.deliveries.Done()
				e.deliver(a, hooks)
			}(notify)
		}
	}
}

// Wait blocks until every in-flight webhook delivery has finished.
func (e *Engine) Wait() { e.deliveries.Wait() }

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour, newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindow)
	out := make([]*Alert, 0, len(e.active))

	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiredAt.After(out[j].FiredAt) })
	return out
}

// Firing returns the number of currently firing alerts.
func (e *Engine) Firing() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}
