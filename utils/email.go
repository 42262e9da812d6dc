package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"time"

	"github.com/phillip/group-contributions-go/config"
	"github.com/phillip/group-contributions-go/logger"
)

// email request payload for ZeptoMail API
type emailRequest struct {
	From     emailAddress  `json:"from"`
	To       []toRecipient `json:"to"`
	Subject  string        `json:"subject"`
	HtmlBody string        `json:"htmlbody"`
}

type emailAddress struct {
	Address string `json:"address"`
}

type toRecipient struct {
	Email emailWithName `json:"email_address"`
}

type emailWithName struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// ZeptoMailer sends HTML mail through the ZeptoMail HTTP API.
type ZeptoMailer struct {
	apiURL string
	apiKey string
	from   string
	client *http.Client
	log    *logger.Logger
}

func NewZeptoMailer(cfg *config.Config, log *logger.Logger) *ZeptoMailer {
	return &ZeptoMailer{
		apiURL: cfg.ZeptoAPIURL,
		apiKey: cfg.ZeptoAPIKey,
		from:   cfg.EmailFrom,
		client: &http.Client{Timeout: 15 * time.Second},
		log:    log.With("component", "ZeptoMailer"),
	}
}

func (m *ZeptoMailer) SendEmail(ctx context.Context, to, subject, body string) error {
	if m.apiURL == "" || m.apiKey == "" || m.from == "" {
		return fmt.Errorf("missing required email config")
	}

	payload := emailRequest{
		From:     emailAddress{Address: m.from},
		To:       []toRecipient{{Email: emailWithName{Address: to}}},
		Subject:  subject,
		HtmlBody: body,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("zeptomail API error: %s", resp.Status)
	}

	m.log.Info("Email sent", "to", to, "subject", subject)
	return nil
}

// ReportEmailBody is the HTML body used when sharing a report link.
func ReportEmailBody(title, link string) string {
	return fmt.Sprintf(
		`<p>%s is ready.</p><p><a href="%s">Download the report</a></p>`,
		html.EscapeString(title), html.EscapeString(link),
	)
}
