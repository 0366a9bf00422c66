package notification

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"mailgate/internal/adapter/mail"
	apperrors "mailgate/pkg/errors"
	"mailgate/pkg/logger"
	"mailgate/pkg/security"
)

// Usecase defines the email dispatch operation.
type Usecase interface {
	SendEmail(ctx context.Context, in SendEmailRequest) (*SendEmailResponse, error)
}

// Service validates dashboard submissions and hands them to a mail sender.
type Service struct {
	sender   mail.Sender
	log      *zap.Logger
	validate *validator.Validate
}

// New creates a dispatch service.
func New(sender mail.Sender, log *zap.Logger) *Service {
	return &Service{
		sender:   sender,
		log:      log,
		validate: validator.New(),
	}
}

// SendEmail sends one message to every address in the request.
func (s *Service) SendEmail(ctx context.Context, in SendEmailRequest) (*SendEmailResponse, error) {
	log := logger.WithContext(ctx, s.log)

	if err := s.validate.Struct(in); err != nil {
		log.Warn("send email missing fields", zap.Error(err))
		return nil, apperrors.NewValidationError("", "All fields are required")
	}

	recipients := security.ParseRecipients(in.Emails)
	if len(recipients) == 0 {
		return nil, apperrors.NewValidationError("emails", "Please provide at least one valid email")
	}
	if err := security.ValidateRecipients(recipients); err != nil {
		log.Warn("invalid recipient", zap.Error(err))
		return nil, apperrors.NewValidationError("emails", err.Error())
	}

	log.Info("sending email", zap.Int("recipients", len(recipients)))

	err := s.sender.Send(ctx, mail.Message{
		To:      recipients,
		Subject: in.Subject,
		Body:    in.Message,
	})
	var rcptErr *mail.InvalidRecipientError
	if errors.As(err, &rcptErr) {
		log.Warn("recipient rejected by mailer", zap.Error(err))
		return nil, apperrors.NewValidationError("emails", "Invalid email format: "+rcptErr.Address)
	}
	if err != nil {
		log.Error("failed to send email", zap.Error(err))
		internal := apperrors.NewInternalError("failed to send email", err)
		var dErr *mail.DeliveryError
		if errors.As(err, &dErr) {
			internal.WithCode(dErr.Code)
		}
		return nil, internal
	}

	log.Info("email sent", zap.Int("recipients", len(recipients)))
	return &SendEmailResponse{Recipients: len(recipients)}, nil
}
