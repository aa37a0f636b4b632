package notifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"sort"
	"strings"
	"time"

	"pipelinehealth/pkg/core/config"

	jsoniter "github.com/json-iterator/go"
)

var errEmailNotConfigured = errors.New("Email transporter not configured")

// Mailer 邮件投递，默认实现为 SMTP
type Mailer interface {
	SendMail(ctx context.Context, from string, to []string, subject, html string) error
}

const emailTemplate = `<h2 style="color: {{.Color}}">{{.Severity}} Alert</h2>
<p><strong>Message:</strong> {{.Message}}</p>
<p><strong>Severity:</strong> {{.Severity}}</p>
<p><strong>Timestamp:</strong> {{.Timestamp}}</p>
{{if .Metadata}}<table style="border-collapse: collapse;">
<tr><th align="left">Field</th><th align="left">Value</th></tr>
{{range .Metadata}}<tr><td>{{.Key}}</td><td><pre>{{.Value}}</pre></td></tr>
{{end}}</table>{{end}}
<hr>
<p><em>This is an automated message from the CI/CD Pipeline Health Dashboard</em></p>
`

var emailBody = template.Must(template.New("email").Parse(emailTemplate))

type metadataRow struct {
	Key   string
	Value string
}

type emailView struct {
	Severity  Severity
	Color     string
	Message   string
	Timestamp string
	Metadata  []metadataRow
}

func emailSubject(s Severity) string {
	return fmt.Sprintf("[%s] CI/CD Pipeline Alert", s)
}

func renderEmail(req Request, now time.Time) (string, error) {
	view := emailView{
		Severity:  req.Severity,
		Color:     colorOf(req.Severity),
		Message:   req.Message,
		Timestamp: now.Format("2006-01-02 15:04:05 MST"),
	}

	keys := make([]string, 0, len(req.Metadata))
	for k := range req.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		view.Metadata = append(view.Metadata, metadataRow{Key: k, Value: formatValue(req.Metadata[k])})
	}

	var buf bytes.Buffer
	if err := emailBody.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	}
	b, err := jsoniter.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// SmtpMailer PLAIN 认证，服务器支持时自动 STARTTLS
type SmtpMailer struct {
	cfg config.SmtpConfig
}

func NewSmtpMailer(cfg config.SmtpConfig) *SmtpMailer {
	return &SmtpMailer{cfg: cfg}
}

func (m *SmtpMailer) SendMail(ctx context.Context, from string, to []string, subject, html string) error {
	var msg bytes.Buffer
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(to, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(html)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, from, to, msg.Bytes())
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
