// Package alerts implements the rule evaluation engine and webhook delivery
// for serialbridge-server alerting. Rules are evaluated on a timer against
// per-source traffic summaries; webhooks are delivered to Slack, Teams, or
// generic HTTP targets.
package alerts
