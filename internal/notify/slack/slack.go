// Package slack sends assessment notifications to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/carecheck/internal/symptom"
	"github.com/linnemanlabs/carecheck/internal/triage"
)

const (
	maxSectionLen = 3000
	maxCandidates = 5
	httpTimeout   = 10 * time.Second
)

// Notifier sends assessment results to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
	logger     log.Logger
}

// New creates a new Slack notifier. If webhookURL is empty, Send is a no-op.
func New(webhookURL string, logger log.Logger) *Notifier {
	if logger == nil {
		logger = log.Nop()
	}
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
		logger:     logger,
	}
}

// Send posts an assessment to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Send(ctx context.Context, result *triage.Result) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := buildMessage(result)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}

	n.logger.Info(ctx, "slack notification sent", "assessment_id", result.ID, "level", result.Level)
	return nil
}

func buildMessage(r *triage.Result) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(r),
			{"type": "divider"},
			fieldsBlock(r),
			{"type": "divider"},
			recommendationBlock(r),
			{"type": "divider"},
			contextBlock(r),
		},
	}
}

func headerBlock(r *triage.Result) map[string]any {
	emoji := levelEmoji(r.Status, r.Level)
	title := "Assessment Complete"
	if r.Status == triage.StatusFailed {
		title = "Assessment Failed"
	}
	text := title
	if r.Level != "" {
		text = fmt.Sprintf("%s: %s", title, strings.ToUpper(string(r.Level)))
	}

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": emoji + " " + text,
		},
	}
}

func fieldsBlock(r *triage.Result) map[string]any {
	symptoms := "_none_"
	if len(r.Symptoms) > 0 {
		symptoms = escape(strings.Join(r.Symptoms, ", "))
	}

	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Status:* %s", r.Status),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Level:* %s", r.Level),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Symptoms:* %s", truncate(symptoms, maxSectionLen/2)),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Severity:* %s", escape(r.Answers[symptom.QuestionSeverity])),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Fever:* %s", escape(r.Answers[symptom.QuestionFeverTemp])),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Medical history:* %s", escape(r.Answers[symptom.QuestionMedicalHistory])),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func recommendationBlock(r *triage.Result) map[string]any {
	var b strings.Builder
	if r.Recommendation != nil {
		fmt.Fprintf(&b, "*%s*\n%s\n", r.Recommendation.Headline, r.Recommendation.Action)
	} else if r.Error != "" {
		fmt.Fprintf(&b, "*Error*\n%s\n", escape(r.Error))
	} else {
		b.WriteString("_No recommendation available._\n")
	}

	if len(r.Candidates) > 0 {
		b.WriteString("\n*Possible conditions*\n")
		for i, c := range r.Candidates {
			if i == maxCandidates {
				fmt.Fprintf(&b, "_and %d more_\n", len(r.Candidates)-maxCandidates)
				break
			}
			fmt.Fprintf(&b, "• %s (%d%%)\n", escape(c.Condition), c.Probability)
		}
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": truncate(strings.TrimRight(b.String(), "\n"), maxSectionLen),
		},
	}
}

func contextBlock(r *triage.Result) map[string]any {
	ts := r.CompletedAt
	if ts.IsZero() {
		ts = r.CreatedAt
	}

	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("carecheck • assessment %s • %s", r.ID, ts.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}
	if r.Disclaimer != "" {
		elements = append(elements, map[string]any{
			"type": "mrkdwn",
			"text": "_" + r.Disclaimer + "_",
		})
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func levelEmoji(status triage.Status, level symptom.Level) string {
	if status == triage.StatusFailed {
		return "⚠️" // warning sign
	}
	switch level {
	case symptom.LevelUrgent:
		return "\U0001f534" // red circle
	case symptom.LevelSoon:
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

// mrkdwn control characters; symptoms can be free text.
var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escape(s string) string {
	return escaper.Replace(s)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
