// Package alerts implements the threshold rule engine and webhook delivery.
// Rules are evaluated against the full-table KPIs after every dataset reload;
// webhooks are delivered to Slack, Teams or generic HTTP targets.
package alerts
