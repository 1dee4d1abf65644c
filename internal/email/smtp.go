package email

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/highlandgames/gathering/internal/database"
)

// SMTPServerConfig holds all the necessary configuration for connecting to an SMTP server.
type SMTPServerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string // The "From" email address
	// Timeout bounds the whole SMTP exchange, from dial to QUIT.
	// Zero means DefaultTimeout.
	Timeout time.Duration
}

// DefaultTimeout is used when SMTPServerConfig.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// sendFunc has the shape of smtp.SendMail so tests can capture outgoing mail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailService notifies competitors about moderation decisions.
// A service built with an empty Host is disabled and sends nothing.
type EmailService struct {
	config SMTPServerConfig
	auth   smtp.Auth
	send   sendFunc
}

// NewEmailService creates a new service for sending emails.
func NewEmailService(config SMTPServerConfig) *EmailService {
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	s := &EmailService{
		config: config,
		auth:   auth,
	}
	s.send = s.sendMail
	return s
}

// Enabled reports whether an SMTP host is configured.
func (s *EmailService) Enabled() bool {
	return s != nil && s.config.Host != ""
}

// NotifyRegistrationStatus tells the competitor that their registration was
// approved or rejected. Pending is never announced.
func (s *EmailService) NotifyRegistrationStatus(reg *database.Registration) error {
	if !s.Enabled() || reg == nil {
		return nil
	}

	var verdict string
	switch reg.Status {
	case database.StatusApproved:
		verdict = "has been approved. We look forward to seeing you on the field!"
	case database.StatusRejected:
		verdict = "could not be accepted this time. Please contact the organisers if you have any questions."
	default:
		return nil
	}

	eventName := headerSafe(reg.EventName)
	if eventName == "" {
		eventName = reg.EventID
	}

	subject := fmt.Sprintf("Your registration for %s", eventName)
	body := fmt.Sprintf(
		"Hi %s,\n\nYour registration for %s %s\n\nThe Games Committee",
		reg.FirstName,
		eventName,
		verdict,
	)

	message := []byte(
		"To: " + headerSafe(reg.Email) + "\r\n" +
			"From: " + s.config.Sender + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"\r\n" +
			body + "\r\n")

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	if err := s.send(addr, s.auth, s.config.Sender, []string{reg.Email}, message); err != nil {
		return fmt.Errorf("smtp error: %w", err)
	}
	return nil
}

// headerSafe strips line breaks so user-supplied values cannot inject headers.
func headerSafe(v string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(v)
}

// sendMail follows the same steps as smtp.SendMail, but on a connection with a
// deadline, so a silent or unreachable server cannot block the caller forever.
func (s *EmailService) sendMail(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	// 1. Dial with a timeout and put a deadline on every later read and write.
	conn, err := net.DialTimeout("tcp", addr, s.config.Timeout)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := conn.SetDeadline(time.Now().Add(s.config.Timeout)); err != nil {
		return err
	}

	// 2. Read the greeting and say hello. A server that never greets fails here
	// once the deadline passes.
	c, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return err
	}
	defer c.Close()

	// 3. Upgrade to TLS when offered, then authenticate if credentials are configured.
	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.config.Host}); err != nil {
			return err
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errors.New("server does not support AUTH")
		}
		if err := c.Auth(a); err != nil {
			return err
		}
	}

	// 4. Envelope, body and a clean QUIT.
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
