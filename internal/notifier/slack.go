package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/amishk599/jobsignal/internal/aggregate"
)

// Ensure SlackNotifier implements Notifier.
var _ Notifier = (*SlackNotifier)(nil)

// SlackNotifier posts the digest to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackNotifier returns a notifier that posts the digest to Slack via webhook.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Notify sends the digest as a single Block Kit message. A 429 is retried
// once after the Retry-After delay.
func (s *SlackNotifier) Notify(ctx context.Context, d Digest) error {
	body, err := json.Marshal(buildPayload(d))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	status, retryAfter, err := s.post(ctx, body)
	if err != nil {
		return err
	}
	if status == http.StatusTooManyRequests {
		s.logger.Warn("slack rate limited, retrying", "retry_after", retryAfter)
		select {
		case <-ctx.Done():
			return fmt.Errorf("slack retry cancelled: %w", ctx.Err())
		case <-time.After(retryAfter):
		}
		status, _, err = s.post(ctx, body)
		if err != nil {
			return fmt.Errorf("retry: %w", err)
		}
	}
	if status != http.StatusOK {
		return fmt.Errorf("slack returned %d", status)
	}
	s.logger.Info("slack digest sent", "date", d.Date, "total", d.Total)
	return nil
}

func (s *SlackNotifier) post(ctx context.Context, body []byte) (int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, 0, fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
	if secs <= 0 {
		secs = 1
	}
	return resp.StatusCode, time.Duration(secs) * time.Second, nil
}

// Block Kit payload types.

type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func share(n, total int) string {
	if total == 0 {
		return "0%"
	}
	return strconv.Itoa(n*100/total) + "%"
}

func rankingText(title string, counts []aggregate.Count) string {
	var b strings.Builder
	b.WriteString("*" + title + ":*")
	if len(counts) == 0 {
		b.WriteString("\n_none_")
	}
	for i, c := range counts {
		fmt.Fprintf(&b, "\n%d. %s (%s)", i+1, c.Key, humanize.Comma(int64(c.N)))
	}
	return b.String()
}

func buildPayload(d Digest) slackPayload {
	headline := fmt.Sprintf("%s IT job listings on %s", humanize.Comma(int64(d.Total)), d.Date)

	levelParts := make([]string, 0, len(d.Levels))
	for _, c := range d.Levels {
		levelParts = append(levelParts, fmt.Sprintf("%s %d", c.Key, c.N))
	}

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: "📊 " + headline},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Full-time:*\n%d (%s)", d.FullTime, share(d.FullTime, d.Total))},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Remote:*\n%d (%s)", d.Remote, share(d.Remote, d.Total))},
			},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: rankingText("Top technologies", d.TopTechnologies)},
				{Type: "mrkdwn", Text: rankingText("Top roles", d.TopRoles)},
			},
		},
		{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: "*Levels:* " + strings.Join(levelParts, " · ")},
		},
		{Type: "divider"},
	}
	return slackPayload{Text: headline, Blocks: blocks}
}
