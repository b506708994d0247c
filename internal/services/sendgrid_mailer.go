package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/clubedasmusas/backend/internal/models"
)

type SendGridMailer struct {
	APIKey     string
	FromEmail  string
	ToEmail    string
	HTTPClient *http.Client
	Endpoint   string
}

func NewSendGridMailer(apiKey string, fromEmail string, toEmail string) *SendGridMailer {
	to := strings.TrimSpace(toEmail)
	if to == "" {
		to = "moderacao@clubedasmusas.com"
	}
	return &SendGridMailer{
		APIKey:    strings.TrimSpace(apiKey),
		FromEmail: strings.TrimSpace(fromEmail),
		ToEmail:   to,
		Endpoint:  "https://api.sendgrid.com/v3/mail/send",
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type sendGridEmailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridPersonalization struct {
	To         []sendGridEmailAddress `json:"to"`
	Subject    string                 `json:"subject"`
	CustomArgs map[string]string      `json:"custom_args,omitempty"`
}

type sendGridMailSendRequest struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridEmailAddress      `json:"from"`
	ReplyTo          *sendGridEmailAddress     `json:"reply_to,omitempty"`
	Content          []sendGridContent         `json:"content"`
}

// SendReportEmail forwards an abuse report to the moderation inbox so the
// team sees it without opening the admin panel.
func (m *SendGridMailer) SendReportEmail(ctx context.Context, report *models.Report, reporterEmail string) error {
	if m == nil {
		return fmt.Errorf("sendgrid mailer not configured")
	}
	if m.APIKey == "" {
		return fmt.Errorf("missing SENDGRID_API_KEY")
	}
	if m.FromEmail == "" {
		return fmt.Errorf("missing REPORT_FROM_EMAIL")
	}
	if m.ToEmail == "" {
		return fmt.Errorf("missing REPORT_TO_EMAIL")
	}

	subject := fmt.Sprintf("Abuse Report: #%s", report.ID)
	reason := strings.TrimSpace(report.Reason)
	if reason == "" {
		reason = "(no reason given)"
	}

	plain := fmt.Sprintf(
		"Report: %s\nReporter: %s <%s>\nTarget user: %s\nTarget post: %s\n\nReason:\n%s\n",
		report.ID,
		report.ReporterID,
		strings.TrimSpace(reporterEmail),
		report.TargetUserID,
		report.TargetPostID,
		reason,
	)

	reqBody := sendGridMailSendRequest{
		Personalizations: []sendGridPersonalization{
			{
				To:      []sendGridEmailAddress{{Email: m.ToEmail}},
				Subject: subject,
				CustomArgs: map[string]string{
					"report": report.ID,
				},
			},
		},
		From: sendGridEmailAddress{
			Email: m.FromEmail,
			Name:  "Clube das Musas Reports",
		},
		Content: []sendGridContent{
			{Type: "text/plain", Value: plain},
		},
	}
	if e := strings.TrimSpace(reporterEmail); e != "" {
		reqBody.ReplyTo = &sendGridEmailAddress{Email: e}
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := m.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// SendGrid returns 202 Accepted on success.
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("sendgrid mail send http %d", resp.StatusCode)
	}
	return nil
}
