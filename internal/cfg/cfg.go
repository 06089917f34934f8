package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/linnemanlabs/carecheck/internal/symptom"
)

// notifyOff disables assessment notifications.
const notifyOff = "none"

// Config adds app-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	AnalysisDelayMs       int
	SuggestionLimit       int
	NotifyMinLevel        string
	SlackWebhookURL       string
	APIToken              string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.IntVar(&c.AnalysisDelayMs, "analysis-delay-ms", 0, "milliseconds to hold an assessment before evaluating it (0..30000)")
	fs.IntVar(&c.SuggestionLimit, "suggestion-limit", symptom.DefaultSuggestionLimit, "maximum symptom suggestions per lookup (1..14)")
	fs.StringVar(&c.NotifyMinLevel, "notify-min-level", string(symptom.LevelUrgent), "lowest triage level sent to Slack (urgent|soon|routine|none)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for notifications")
	fs.StringVar(&c.APIToken, "api-token", "", "comma-separated bearer tokens required on /api (empty = no auth)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	if c.AnalysisDelayMs < 0 || c.AnalysisDelayMs > 30000 {
		errs = append(errs, fmt.Errorf("invalid ANALYSIS_DELAY_MS %d (must be 0..30000)", c.AnalysisDelayMs))
	}

	// no point offering more suggestions than the catalog holds
	if n := len(symptom.Catalog()); c.SuggestionLimit < 1 || c.SuggestionLimit > n {
		errs = append(errs, fmt.Errorf("invalid SUGGESTION_LIMIT %d (must be 1..%d)", c.SuggestionLimit, n))
	}

	if _, err := c.NotifyLevel(); err != nil {
		errs = append(errs, fmt.Errorf("invalid NOTIFY_MIN_LEVEL: %w", err))
	}

	if c.SlackWebhookURL != "" {
		u, err := url.Parse(c.SlackWebhookURL)
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			errs = append(errs, errors.New("SLACK_WEBHOOK_URL must be an absolute http(s) URL"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// AnalysisDelay returns the configured analysis delay.
func (c *Config) AnalysisDelay() time.Duration {
	return time.Duration(c.AnalysisDelayMs) * time.Millisecond
}

// NotifyLevel parses NotifyMinLevel. An empty level means notifications are off.
func (c *Config) NotifyLevel() (symptom.Level, error) {
	if s := strings.TrimSpace(c.NotifyMinLevel); s == "" || strings.EqualFold(s, notifyOff) {
		return "", nil
	}
	return symptom.ParseLevel(c.NotifyMinLevel)
}

// APITokens splits APIToken into the accepted bearer tokens.
func (c *Config) APITokens() []string {
	var out []string
	for _, t := range strings.Split(c.APIToken, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
