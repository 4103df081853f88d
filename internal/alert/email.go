package alert

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SMTPConfig holds the mail transport configuration for the email channel.
type SMTPConfig struct {
	Host        string
	Port        string
	Username    string
	Password    string
	SenderEmail string
	SenderName  string
	UseTLS      bool
	Timeout     time.Duration
}

// EmailSender delivers alert emails over SMTP. Construction fails fast on an
// incomplete configuration; Send never returns an error, only a success flag
// and a message.
type EmailSender struct {
	cfg  SMTPConfig
	auth smtp.Auth
	log  *zap.Logger
}

// NewEmailSender creates an email sender. Host, port and sender identity are
// required.
func NewEmailSender(cfg SMTPConfig, log *zap.Logger) (*EmailSender, error) {
	if cfg.Host == "" || cfg.Port == "" || cfg.SenderEmail == "" {
		return nil, fmt.Errorf("missing required SMTP configuration (host, port, sender email)")
	}
	if cfg.SenderName == "" {
		cfg.SenderName = "CronPulse"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return &EmailSender{
		cfg:  cfg,
		auth: auth,
		log:  log.With(zap.String("component", "alert.email")),
	}, nil
}

// Send delivers one email. Transport and authentication failures are
// reported through the return values, never raised.
func (e *EmailSender) Send(toEmail, toName, subject, htmlBody string) (bool, string) {
	msg := e.buildMessage(toEmail, toName, subject, htmlBody)
	addr := net.JoinHostPort(e.cfg.Host, e.cfg.Port)

	start := time.Now()
	var err error
	if e.cfg.UseTLS {
		err = e.sendTLS(addr, toEmail, msg)
	} else {
		err = e.sendPlain(addr, toEmail, msg)
	}
	if err != nil {
		e.log.Error("email send failed",
			zap.String("to", toEmail),
			zap.String("subject", subject),
			zap.Error(err))
		return false, err.Error()
	}

	e.log.Info("email sent",
		zap.String("to", toEmail),
		zap.String("subject", subject),
		zap.Duration("elapsed", time.Since(start)))
	return true, "sent"
}

func (e *EmailSender) buildMessage(toEmail, toName, subject, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", e.cfg.SenderName, e.cfg.SenderEmail)
	if toName != "" {
		fmt.Fprintf(&b, "To: %s <%s>\r\n", toName, toEmail)
	} else {
		fmt.Fprintf(&b, "To: %s\r\n", toEmail)
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	b.WriteString("\r\n")
	return []byte(b.String())
}

func (e *EmailSender) sendPlain(addr, to string, msg []byte) error {
	dialer := net.Dialer{Timeout: e.cfg.Timeout}
	conn, err := dialer.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	// Deadline bounds the whole exchange, not just the dial
	conn.SetDeadline(time.Now().Add(e.cfg.Timeout))

	c, err := smtp.NewClient(conn, e.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp client failed: %w", err)
	}
	defer c.Close()

	return e.transact(c, to, msg)
}

func (e *EmailSender) sendTLS(addr, to string, msg []byte) error {
	dialer := net.Dialer{Timeout: e.cfg.Timeout}
	conn, err := tls.DialWithDialer(&dialer, "tcp", addr, &tls.Config{ServerName: e.cfg.Host})
	if err != nil {
		return fmt.Errorf("tls dial failed: %w", err)
	}
	conn.SetDeadline(time.Now().Add(e.cfg.Timeout))

	c, err := smtp.NewClient(conn, e.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp client failed: %w", err)
	}
	defer c.Close()

	return e.transact(c, to, msg)
}

func (e *EmailSender) transact(c *smtp.Client, to string, msg []byte) error {
	if e.auth != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(e.auth); err != nil {
				return fmt.Errorf("smtp auth failed: %w", err)
			}
		}
	}
	if err := c.Mail(e.cfg.SenderEmail); err != nil {
		return fmt.Errorf("smtp MAIL FROM failed: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("smtp RCPT TO failed: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA failed: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close failed: %w", err)
	}
	return c.Quit()
}
