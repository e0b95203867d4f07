// Package smtp wraps the go-mail client behind the small surface the
// mailer needs: send one HTML message, or verify the relay is reachable
// with the configured credentials.
package smtp

import (
	"context"
	"fmt"
	"time"

	mail "github.com/wneessen/go-mail"
)

type ObserverFunc func(endpoint string, ok bool, duration time.Duration)

type Option func(*Client)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

type Client struct {
	client   *mail.Client
	from     string
	observer ObserverFunc
}

func WithObserver(observer ObserverFunc) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

func New(cfg Config, opts ...Option) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	mc, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	c := &Client{client: mc, from: cfg.From}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Send delivers one HTML message and returns the generated Message-ID.
func (c *Client) Send(ctx context.Context, to, subject, htmlBody string) (string, error) {
	started := time.Now()
	ok := false
	defer func() { c.observe("send", ok, time.Since(started)) }()

	msg := mail.NewMsg()
	if err := msg.FromFormat("Voice Agent", c.from); err != nil {
		return "", fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return "", fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	if err := c.client.DialAndSendWithContext(ctx, msg); err != nil {
		return "", err
	}
	ok = true
	return msg.GetMessageID(), nil
}

// Verify dials the relay and authenticates without sending anything.
func (c *Client) Verify(ctx context.Context) error {
	started := time.Now()
	ok := false
	defer func() { c.observe("verify", ok, time.Since(started)) }()

	if err := c.client.DialWithContext(ctx); err != nil {
		return err
	}
	ok = true
	return c.client.Close()
}

func (c *Client) observe(endpoint string, ok bool, duration time.Duration) {
	if c.observer != nil {
		c.observer(endpoint, ok, duration)
	}
}
