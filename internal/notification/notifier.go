package notification

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"

	"TrafficLens/internal/config"
	"TrafficLens/internal/model"
)

// EmailSender delivers daily reports over SMTP.
type EmailSender struct {
	cfg  config.SMTPConfig
	auth smtp.Auth
}

// NewEmailSender creates an EmailSender from the SMTP configuration.
func NewEmailSender(cfg config.SMTPConfig) *EmailSender {
	// PlainAuth will not send credentials until the server identifies itself as a trusted one.
	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	return &EmailSender{cfg: cfg, auth: auth}
}

// Send sends an HTML email without attachments to the configured recipients.
func (s *EmailSender) Send(subject, body string) error {
	return s.send(subject, body, nil)
}

// SendDailyReport sends the traffic summary for one date, attaching the
// generated report files.
func (s *EmailSender) SendDailyReport(date model.Date, records []model.TrafficRecord, attachments []string) error {
	subject := fmt.Sprintf("%s - %s", s.cfg.SubjectPrefix, date.ISO())
	return s.send(subject, dailyBody(date, records), attachments)
}

func (s *EmailSender) send(subject, body string, attachments []string) error {
	msg, err := buildMessage(s.cfg.From, s.cfg.To, subject, body, attachments)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	recipients := strings.Split(s.cfg.To, ",")
	for i := range recipients {
		recipients[i] = strings.TrimSpace(recipients[i])
	}

	if err := smtp.SendMail(addr, s.auth, s.cfg.From, recipients, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

const mimeBoundary = "trafficlens-report-boundary"

// buildMessage constructs the raw RFC 5322 message: a plain HTML body when
// there are no attachments, a multipart/mixed message otherwise.
func buildMessage(from, to, subject, body string, attachments []string) ([]byte, error) {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")

	if len(attachments) == 0 {
		b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		b.WriteString(body)
		return []byte(b.String()), nil
	}

	b.WriteString("Content-Type: multipart/mixed; boundary=" + mimeBoundary + "\r\n\r\n")

	b.WriteString("--" + mimeBoundary + "\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")

	for _, path := range attachments {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read attachment %s: %w", path, err)
		}
		b.WriteString("--" + mimeBoundary + "\r\n")
		b.WriteString("Content-Type: application/octet-stream\r\n")
		b.WriteString("Content-Transfer-Encoding: base64\r\n")
		b.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=%q\r\n\r\n", filepath.Base(path)))
		b.WriteString(wrapBase64(base64.StdEncoding.EncodeToString(data)))
		b.WriteString("\r\n")
	}
	b.WriteString("--" + mimeBoundary + "--\r\n")

	return []byte(b.String()), nil
}

// wrapBase64 folds encoded content at 76 columns per RFC 2045.
func wrapBase64(s string) string {
	var b strings.Builder
	for len(s) > 76 {
		b.WriteString(s[:76])
		b.WriteString("\r\n")
		s = s[76:]
	}
	b.WriteString(s)
	return b.String()
}

// dailyBody renders a compact HTML digest of the day's traffic.
func dailyBody(date model.Date, records []model.TrafficRecord) string {
	processes := make(map[string]struct{})
	remotes := make(map[string]struct{})
	var upload, download uint64
	for _, r := range records {
		processes[r.ProcessName] = struct{}{}
		remotes[r.RemoteAddress] = struct{}{}
		upload += r.UploadBps
		download += r.DownloadBps
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("<h2>Network traffic report for %s</h2>", date.ISO()))
	b.WriteString("<ul>")
	b.WriteString(fmt.Sprintf("<li>Records: %d</li>", len(records)))
	b.WriteString(fmt.Sprintf("<li>Processes: %d</li>", len(processes)))
	b.WriteString(fmt.Sprintf("<li>Remote addresses: %d</li>", len(remotes)))
	b.WriteString(fmt.Sprintf("<li>Total upload: %.2f MB</li>", float64(upload)/(1024*1024)))
	b.WriteString(fmt.Sprintf("<li>Total download: %.2f MB</li>", float64(download)/(1024*1024)))
	b.WriteString("</ul>")
	return b.String()
}
