package service

import (
	"context"
	"fmt"
	"net/smtp"
	"net/url"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/idgate/internal/config"
	appErr "github.com/xxxsen/idgate/internal/pkg/errors"
)

type EmailSender interface {
	Send(to, subject, body string) error
}

type smtpSender struct {
	cfg config.MailConfig
}

func NewEmailSender(cfg config.MailConfig) EmailSender {
	return &smtpSender{cfg: cfg}
}

func (s *smtpSender) Send(to, subject, body string) error {
	from := strings.TrimSpace(s.cfg.From)
	if s.cfg.Host == "" || s.cfg.Port == 0 || from == "" {
		return appErr.ErrInvalid
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	return smtp.SendMail(addr, auth, from, []string{to}, buildMessage(from, to, subject, body))
}

func buildMessage(from, to, subject, body string) []byte {
	return []byte("From: " + from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" + body)
}

// VerificationMailer delivers a one-time code together with the signed link
// token that identifies the same record.
type VerificationMailer interface {
	SendVerificationMessage(ctx context.Context, email, signedToken, otpCode string) error
}

type verificationMailer struct {
	sender   EmailSender
	linkBase string
}

func NewVerificationMailer(sender EmailSender, linkBase string) VerificationMailer {
	return &verificationMailer{sender: sender, linkBase: strings.TrimSpace(linkBase)}
}

func (m *verificationMailer) SendVerificationMessage(ctx context.Context, email, signedToken, otpCode string) error {
	return m.sender.Send(email, "Your verification code", verificationBody(m.linkBase, signedToken, otpCode))
}

func verificationBody(linkBase, signedToken, otpCode string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your verification code is %s. It expires in %d minutes.\r\n", otpCode, int(verificationTTL.Minutes()))
	if linkBase != "" {
		fmt.Fprintf(&b, "\r\nOr open this link to continue:\r\n%s?token=%s\r\n", linkBase, url.QueryEscape(signedToken))
	}
	return b.String()
}

type logMailer struct{}

// NewLogMailer writes verification messages to the log instead of sending
// them. Only meant for local runs without an SMTP relay.
func NewLogMailer() VerificationMailer {
	return logMailer{}
}

func (logMailer) SendVerificationMessage(ctx context.Context, email, signedToken, otpCode string) error {
	logutil.GetLogger(ctx).Info("verification message",
		zap.String("email", email),
		zap.String("code", otpCode),
		zap.String("token", signedToken),
	)
	return nil
}
