package alert

// Config defines a webhook alert destination.
type Config struct {
	URL     string            `yaml:"url"     json:"url"`
	Format  string            `yaml:"format"  json:"format"` // "generic", "slack", "pagerduty"
	Events  []string          `yaml:"events"  json:"events"` // ["rejected", "pending_approval", "timeout", "oom_killed"]
	Headers map[string]string `yaml:"headers" json:"headers"`
}

// Event is the payload sent to webhook endpoints.
type Event struct {
	Timestamp string `json:"timestamp"`
	RequestID string `json:"request_id"`
	Caller    string `json:"caller"`
	Tool      string `json:"tool"`
	Stage     string `json:"stage"`
	Verdict   string `json:"verdict"`
	Category  string `json:"category,omitempty"`
	RiskTier  string `json:"risk_tier"`
	Reason    string `json:"reason"`
}
