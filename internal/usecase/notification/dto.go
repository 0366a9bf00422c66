package notification

// SendEmailRequest is one bulk send submitted from the dashboard.
// Emails is a comma separated recipient list. Whitespace counts as content
// here; a blank Emails fails later as having no valid recipient.
type SendEmailRequest struct {
	Emails  string `validate:"required"`
	Subject string `validate:"required"`
	Message string `validate:"required"`
}

// SendEmailResponse reports how many recipients the message was addressed to.
type SendEmailResponse struct {
	Recipients int
}
