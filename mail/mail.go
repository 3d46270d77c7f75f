// Package mail provides goGate.Mailer implementations: an SMTP client for
// deployments and a zap-backed logger for development.
package mail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	goGate "github.com/MrEthical07/goGate"
	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

var ErrInvalidRecipient = errors.New("mail: invalid recipient")

// SMTPConfig holds the relay settings for [SMTPMailer].
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// Timeout caps a delivery when the caller's context has no deadline.
	Timeout time.Duration
}

type deliverFunc func(ctx context.Context, msg *gomail.Msg) error

// SMTPMailer delivers plain-text mail through an SMTP relay. STARTTLS is used
// when the relay offers it; PLAIN auth is enabled when a username is set.
type SMTPMailer struct {
	cfg     SMTPConfig
	deliver deliverFunc
	now     func() time.Time
}

var _ goGate.Mailer = (*SMTPMailer)(nil)

func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("mail: smtp host required")
	}
	if cfg.From == "" {
		return nil, errors.New("mail: from address required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	m := &SMTPMailer{cfg: cfg, now: time.Now}
	m.deliver = m.dialAndSend
	return m, nil
}

// Send builds the message and delivers it. The whole SMTP exchange, including
// the dial and the server greeting, is aborted when ctx ends.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if to == "" || strings.ContainsAny(to, "\r\n") {
		return ErrInvalidRecipient
	}

	msg := gomail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("mail: invalid sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecipient, err)
	}
	msg.Subject(subject)
	msg.SetDateWithValue(m.now())
	msg.SetBodyString(gomail.TypeTextPlain, body)

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancel()
	}
	if err := m.deliver(ctx, msg); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("smtp send aborted: %w", ctxErr)
		}
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (m *SMTPMailer) dialAndSend(ctx context.Context, msg *gomail.Msg) error {
	opts := []gomail.Option{
		gomail.WithPort(m.cfg.Port),
		gomail.WithTimeout(m.cfg.Timeout),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
		gomail.WithDialContextFunc(boundDialer(ctx)),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.cfg.Username),
			gomail.WithPassword(m.cfg.Password),
		)
	}
	client, err := gomail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// boundDialer ties every connection to ctx: reads and writes fail at the
// context deadline or as soon as ctx is cancelled.
func boundDialer(ctx context.Context) gomail.DialContextFunc {
	return func(dialCtx context.Context, network, address string) (net.Conn, error) {
		var d net.Dialer
		conn, err := d.DialContext(dialCtx, network, address)
		if err != nil {
			return nil, err
		}
		bc := &boundConn{Conn: conn, ctx: ctx}
		_ = bc.SetDeadline(time.Time{})
		bc.stop = context.AfterFunc(ctx, func() {
			_ = conn.SetDeadline(expired)
		})
		return bc, nil
	}
}

var expired = time.Unix(1, 0)

// boundConn clamps every deadline the SMTP client sets to the deadline of ctx.
type boundConn struct {
	net.Conn
	ctx  context.Context
	stop func() bool
}

func (c *boundConn) clamp(t time.Time) time.Time {
	if c.ctx.Err() != nil {
		return expired
	}
	if deadline, ok := c.ctx.Deadline(); ok && (t.IsZero() || deadline.Before(t)) {
		return deadline
	}
	return t
}

func (c *boundConn) SetDeadline(t time.Time) error {
	return c.Conn.SetDeadline(c.clamp(t))
}

func (c *boundConn) SetReadDeadline(t time.Time) error {
	return c.Conn.SetReadDeadline(c.clamp(t))
}

func (c *boundConn) SetWriteDeadline(t time.Time) error {
	return c.Conn.SetWriteDeadline(c.clamp(t))
}

func (c *boundConn) Close() error {
	if c.stop != nil {
		c.stop()
	}
	return c.Conn.Close()
}

// LogMailer writes mail to a zap logger instead of delivering it. The body is
// logged in full, so it must never be used in production.
type LogMailer struct {
	logger *zap.Logger
}

var _ goGate.Mailer = (*LogMailer)(nil)

func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.logger.Info("mail",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}
