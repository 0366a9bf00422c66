package mail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"mailgate/internal/config"
	"mailgate/pkg/logger"
)

// Message is one outgoing plain text email.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Sender delivers messages to a mail relay.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// DeliveryError is a failed hand-off to the relay.
// Code is the SMTP reply code when the relay gave one, otherwise a short
// symbolic reason.
type DeliveryError struct {
	Code string
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("mail delivery failed (%s): %v", e.Code, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// InvalidRecipientError is a recipient the message format rejects.
// Nothing is sent when a message carries one.
type InvalidRecipientError struct {
	Address string
	Err     error
}

func (e *InvalidRecipientError) Error() string {
	return fmt.Sprintf("invalid recipient %q: %v", e.Address, e.Err)
}

func (e *InvalidRecipientError) Unwrap() error {
	return e.Err
}

// Symbolic delivery failure codes.
const (
	CodeBuild      = "EMESSAGE"
	CodeTimeout    = "ETIMEDOUT"
	CodeConnection = "ECONNECTION"
	CodeSend       = "ESEND"
)

type dialer interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// SMTPSender sends mail through an SMTP relay.
type SMTPSender struct {
	client   dialer
	from     string
	fromName string
	log      *zap.Logger
}

// NewSMTPSender creates a sender for the relay described by cfg.
// STARTTLS is used when the relay offers it; AUTH PLAIN is used when a
// username is set.
func NewSMTPSender(cfg config.MailConfig, log *zap.Logger) (*SMTPSender, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.TimeoutSeconds > 0 {
		opts = append(opts, gomail.WithTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second))
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	return &SMTPSender{
		client:   client,
		from:     cfg.From,
		fromName: cfg.FromName,
		log:      log,
	}, nil
}

// Send delivers msg as one email addressed to every recipient.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	log := logger.WithContext(ctx, s.log)

	m, err := s.build(msg)
	if err != nil {
		log.Warn("failed to build message", zap.Error(err))
		var rcptErr *InvalidRecipientError
		if errors.As(err, &rcptErr) {
			return rcptErr
		}
		return &DeliveryError{Code: CodeBuild, Err: err}
	}

	start := time.Now()
	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		code := deliveryCode(err)
		log.Error("smtp delivery failed",
			zap.String("code", code),
			zap.Int("recipients", len(msg.To)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return &DeliveryError{Code: code, Err: err}
	}

	log.Info("smtp delivery succeeded",
		zap.Int("recipients", len(msg.To)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (s *SMTPSender) build(msg Message) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.FromFormat(s.fromName, s.from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", s.from, err)
	}
	for _, rcpt := range msg.To {
		if err := m.AddTo(rcpt); err != nil {
			return nil, &InvalidRecipientError{Address: rcpt, Err: err}
		}
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)
	return m, nil
}

func deliveryCode(err error) string {
	var sendErr *gomail.SendError
	if errors.As(err, &sendErr) && sendErr.ErrorCode() > 0 {
		return strconv.Itoa(sendErr.ErrorCode())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CodeTimeout
		}
		return CodeConnection
	}
	return CodeSend
}
