package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"os"
	"strings"
	"time"

	"github.com/manthysbr/llmsender/internal/confmap"
)

// EmailNotifier delivers summaries over SMTP. Port 465 uses implicit TLS;
// any other port connects plain and upgrades via STARTTLS when the server
// offers it.
type EmailNotifier struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
}

// NewEmail builds an email notifier from a plugin configuration map.
// Recognized keys: host, port, username, password, from, to.
func NewEmail(config map[string]any) (any, error) {
	host := confmap.String(config, "host", "")
	if host == "" {
		return nil, fmt.Errorf("email notifier requires a host")
	}
	to := confmap.Strings(config, "to")
	if len(to) == 0 {
		return nil, fmt.Errorf("email notifier requires at least one recipient")
	}
	password := confmap.String(config, "password", "")
	if password == "" {
		password = os.Getenv("SMTP_PASSWORD")
	}
	username := confmap.String(config, "username", "")
	from := confmap.String(config, "from", username)
	if from == "" {
		return nil, fmt.Errorf("email notifier requires a from address")
	}
	return &EmailNotifier{
		host:     host,
		port:     confmap.Int(config, "port", 587),
		username: username,
		password: password,
		from:     from,
		to:       to,
	}, nil
}

func (n *EmailNotifier) Send(ctx context.Context, message, title string) error {
	addr := fmt.Sprintf("%s:%d", n.host, n.port)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(n.to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", title)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(message)

	client, err := n.connect(ctx, addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if n.username != "" {
		auth := smtp.PlainAuth("", n.username, n.password, n.host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth failed: %w", err)
		}
	}
	if err := client.Mail(n.from); err != nil {
		return fmt.Errorf("smtp MAIL failed: %w", err)
	}
	for _, rcpt := range n.to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT %s failed: %w", rcpt, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA failed: %w", err)
	}
	if _, err := w.Write([]byte(b.String())); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish message: %w", err)
	}
	return client.Quit()
}

func (n *EmailNotifier) connect(ctx context.Context, addr string) (*smtp.Client, error) {
	dialer := &net.Dialer{Timeout: 30 * time.Second}

	if n.port == 465 {
		conn, err := tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: n.host})
		if err != nil {
			return nil, fmt.Errorf("failed to dial smtp server: %w", err)
		}
		client, err := smtp.NewClient(conn, n.host)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("smtp handshake failed: %w", err)
		}
		return client, nil
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial smtp server: %w", err)
	}
	client, err := smtp.NewClient(conn, n.host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("smtp handshake failed: %w", err)
	}
	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: n.host}); err != nil {
			client.Close()
			return nil, fmt.Errorf("starttls failed: %w", err)
		}
	}
	return client, nil
}
