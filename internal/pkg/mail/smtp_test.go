package mail

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"
)

// fakeSMTP accepts one session and records the envelope and data.
type fakeSMTP struct {
	ln    net.Listener
	from  string
	rcpts []string
	data  string
	done  chan struct{}
}

func startFakeSMTP(t *testing.T) *fakeSMTP {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	f := &fakeSMTP{ln: ln, done: make(chan struct{})}
	t.Cleanup(func() { _ = ln.Close() })

	go f.serve()
	return f
}

func (f *fakeSMTP) port() int {
	return f.ln.Addr().(*net.TCPAddr).Port
}

func (f *fakeSMTP) serve() {
	defer close(f.done)

	conn, err := f.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	reply := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }

	reply("220 fake ESMTP")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.TrimSpace(line)
		switch upper := strings.ToUpper(cmd); {
		case strings.HasPrefix(upper, "EHLO"):
			reply("250-fake")
			reply("250 HELP")
		case strings.HasPrefix(upper, "MAIL FROM:"):
			f.from = strings.Trim(cmd[len("MAIL FROM:"):], "<> ")
			reply("250 OK")
		case strings.HasPrefix(upper, "RCPT TO:"):
			f.rcpts = append(f.rcpts, strings.Trim(cmd[len("RCPT TO:"):], "<> "))
			reply("250 OK")
		case upper == "DATA":
			reply("354 go ahead")
			var sb strings.Builder
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				sb.WriteString(l)
			}
			f.data = sb.String()
			reply("250 queued")
		case upper == "QUIT":
			reply("221 bye")
			return
		default:
			reply("250 OK")
		}
	}
}

func TestSMTP_Send(t *testing.T) {
	// Arrange
	srv := startFakeSMTP(t)
	s, err := NewSMTP(SMTPConfig{Host: "127.0.0.1", Port: srv.port(), From: "EstateBite <no-reply@estatebite.com>"})
	if err != nil {
		t.Fatalf("new smtp: %v", err)
	}

	// Act
	err = s.Send(context.Background(), Message{
		To:       []string{"Dana <dana@example.com>"},
		Bcc:      []string{"audit@estatebite.com"},
		Subject:  "Your verification code",
		TextBody: "Code: 123456",
	})

	// Assert
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case <-srv.done:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not finish")
	}
	if srv.from != "no-reply@estatebite.com" {
		t.Fatalf("expected bare envelope sender, got %q", srv.from)
	}
	if strings.Join(srv.rcpts, ",") != "dana@example.com,audit@estatebite.com" {
		t.Fatalf("unexpected recipients %v", srv.rcpts)
	}
	if strings.Contains(srv.data, "audit@estatebite.com") {
		t.Fatal("bcc leaked into the message")
	}
	if !strings.Contains(srv.data, "Code: 123456") {
		t.Fatalf("body missing from %q", srv.data)
	}
}

func TestSMTP_SendRejects(t *testing.T) {
	s, err := NewSMTP(SMTPConfig{Host: "127.0.0.1", Port: 1})
	if err != nil {
		t.Fatalf("new smtp: %v", err)
	}

	if err := s.Send(context.Background(), Message{}); !errors.Is(err, ErrSMTPNoRecipients) {
		t.Fatalf("expected ErrSMTPNoRecipients, got %v", err)
	}
	if err := s.Send(context.Background(), Message{To: []string{"a@b.c"}}); !errors.Is(err, ErrSMTPNoSender) {
		t.Fatalf("expected ErrSMTPNoSender, got %v", err)
	}
	if _, err := NewSMTP(SMTPConfig{Host: "localhost"}); !errors.Is(err, ErrSMTPHostPortRequired) {
		t.Fatalf("expected ErrSMTPHostPortRequired, got %v", err)
	}
}

func TestCompose(t *testing.T) {
	now := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

	t.Run("alternative parts", func(t *testing.T) {
		raw, err := compose(Message{
			From:     "a@estatebite.com",
			To:       []string{"b@example.com"},
			Subject:  "Kode verifikasi Anda",
			TextBody: "plain",
			HTMLBody: "<p>html</p>",
		}, now)
		if err != nil {
			t.Fatalf("compose: %v", err)
		}

		got := string(raw)
		for _, want := range []string{
			"Content-Type: multipart/alternative; boundary=",
			"Date: " + now.Format(time.RFC1123Z),
			"text/plain; charset=utf-8",
			"text/html; charset=utf-8",
			"<p>html</p>",
		} {
			if !strings.Contains(got, want) {
				t.Fatalf("expected %q in\n%s", want, got)
			}
		}
	})

	t.Run("non-ascii subject is encoded", func(t *testing.T) {
		raw, err := compose(Message{To: []string{"b@example.com"}, Subject: "Código 123", TextBody: "x"}, now)
		if err != nil {
			t.Fatalf("compose: %v", err)
		}
		if !strings.Contains(string(raw), "Subject: =?utf-8?q?") {
			t.Fatalf("expected encoded subject in %s", raw)
		}
	})
}

func TestSMTPConfig_Addr(t *testing.T) {
	s, err := NewSMTP(SMTPConfig{Host: "::1", Port: 2525})
	if err != nil {
		t.Fatalf("new smtp: %v", err)
	}
	if s.addr != "[::1]:"+strconv.Itoa(2525) {
		t.Fatalf("unexpected addr %q", s.addr)
	}
}
