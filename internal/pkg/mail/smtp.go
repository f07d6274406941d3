package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrSMTPHostPortRequired is returned when Host or Port is missing.
	ErrSMTPHostPortRequired = errors.New("mail: smtp host and port are required")
	// ErrSMTPNoRecipients is returned when To, Cc and Bcc are all empty.
	ErrSMTPNoRecipients = errors.New("mail: no recipients provided")
	// ErrSMTPNoSender is returned when neither the message nor the config has a sender.
	ErrSMTPNoSender = errors.New("mail: no sender provided")
)

const defaultSMTPTimeout = 10 * time.Second

// SMTPConfig configures the SMTP transport.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// From is the default sender, e.g. "EstateBite <no-reply@estatebite.com>".
	From string
	// ImplicitTLS dials TLS directly (port 465 style). Otherwise STARTTLS is
	// used when the server offers it.
	ImplicitTLS bool
	// Timeout bounds one Send when ctx has no earlier deadline.
	Timeout time.Duration
}

// SMTP sends every message over a fresh connection.
type SMTP struct {
	cfg  SMTPConfig
	addr string
	now  func() time.Time
}

// NewSMTP constructs an SMTP transport. No connection is made until Send.
func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, ErrSMTPHostPortRequired
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSMTPTimeout
	}

	return &SMTP{
		cfg:  cfg,
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		now:  time.Now,
	}, nil
}

// Close is a no-op; connections do not outlive Send.
func (s *SMTP) Close() error {
	return nil
}

func (s *SMTP) Send(ctx context.Context, msg Message) error {
	rcpts := msg.recipients()
	if len(rcpts) == 0 {
		return ErrSMTPNoRecipients
	}
	if msg.From == "" {
		msg.From = s.cfg.From
	}
	if msg.From == "" {
		return ErrSMTPNoSender
	}

	sender, err := mail.ParseAddress(msg.From)
	if err != nil {
		return fmt.Errorf("mail: parse sender: %w", err)
	}
	raw, err := compose(msg, s.now())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	client, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := s.handshake(client); err != nil {
		return err
	}
	if err := client.Mail(sender.Address); err != nil {
		return fmt.Errorf("mail: smtp MAIL FROM: %w", err)
	}
	for _, rcpt := range rcpts {
		addr, err := mail.ParseAddress(rcpt)
		if err != nil {
			return fmt.Errorf("mail: parse recipient: %w", err)
		}
		if err := client.Rcpt(addr.Address); err != nil {
			return fmt.Errorf("mail: smtp RCPT TO: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("mail: smtp DATA: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("mail: smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("mail: smtp end data: %w", err)
	}
	return client.Quit()
}

func (s *SMTP) dial(ctx context.Context) (*smtp.Client, error) {
	var (
		conn net.Conn
		err  error
	)
	if s.cfg.ImplicitTLS {
		d := &tls.Dialer{Config: &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}}
		conn, err = d.DialContext(ctx, "tcp", s.addr)
	} else {
		var d net.Dialer
		conn, err = d.DialContext(ctx, "tcp", s.addr)
	}
	if err != nil {
		return nil, fmt.Errorf("mail: smtp dial: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline) //nolint:errcheck // a failed deadline surfaces as an I/O error
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("mail: smtp greeting: %w", err)
	}
	return client, nil
}

func (s *SMTP) handshake(client *smtp.Client) error {
	if err := client.Hello("localhost"); err != nil {
		return fmt.Errorf("mail: smtp EHLO: %w", err)
	}
	if ok, _ := client.Extension("STARTTLS"); ok && !s.cfg.ImplicitTLS {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("mail: smtp STARTTLS: %w", err)
		}
	}
	if s.cfg.Username == "" {
		return nil
	}
	if err := client.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
		return fmt.Errorf("mail: smtp AUTH: %w", err)
	}
	return nil
}

// compose renders msg as an RFC 5322 message. Bcc never appears in headers.
func compose(msg Message, now time.Time) ([]byte, error) {
	var buf bytes.Buffer

	header := textproto.MIMEHeader{}
	header.Set("From", msg.From)
	header.Set("To", strings.Join(msg.To, ", "))
	if len(msg.Cc) > 0 {
		header.Set("Cc", strings.Join(msg.Cc, ", "))
	}
	header.Set("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header.Set("Date", now.Format(time.RFC1123Z))
	header.Set("MIME-Version", "1.0")

	switch {
	case msg.HTMLBody != "" && msg.TextBody != "":
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		for _, part := range []struct{ ctype, content string }{
			{"text/plain; charset=utf-8", msg.TextBody},
			{"text/html; charset=utf-8", msg.HTMLBody},
		} {
			w, err := mw.CreatePart(textproto.MIMEHeader{
				"Content-Type":              {part.ctype},
				"Content-Transfer-Encoding": {"quoted-printable"},
			})
			if err != nil {
				return nil, fmt.Errorf("mail: compose part: %w", err)
			}
			if err := writeQP(w, part.content); err != nil {
				return nil, err
			}
		}
		if err := mw.Close(); err != nil {
			return nil, fmt.Errorf("mail: compose: %w", err)
		}

		header.Set("Content-Type", "multipart/alternative; boundary="+mw.Boundary())
		writeHeader(&buf, header)
		buf.Write(body.Bytes())
		return buf.Bytes(), nil

	case msg.HTMLBody != "":
		header.Set("Content-Type", "text/html; charset=utf-8")
	default:
		header.Set("Content-Type", "text/plain; charset=utf-8")
	}

	header.Set("Content-Transfer-Encoding", "quoted-printable")
	writeHeader(&buf, header)
	content := msg.TextBody
	if msg.HTMLBody != "" {
		content = msg.HTMLBody
	}
	if err := writeQP(&buf, content); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var headerOrder = []string{"From", "To", "Cc", "Subject", "Date", "MIME-Version", "Content-Type", "Content-Transfer-Encoding"}

func writeHeader(buf *bytes.Buffer, header textproto.MIMEHeader) {
	for _, k := range headerOrder {
		if v := header.Get(k); v != "" {
			fmt.Fprintf(buf, "%s: %s\r\n", k, v)
		}
	}
	buf.WriteString("\r\n")
}

func writeQP(w io.Writer, content string) error {
	qp := quotedprintable.NewWriter(w)
	if _, err := qp.Write([]byte(content)); err != nil {
		return fmt.Errorf("mail: encode body: %w", err)
	}
	if err := qp.Close(); err != nil {
		return fmt.Errorf("mail: encode body: %w", err)
	}
	return nil
}
