package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailgate/internal/usecase/notification"
	"mailgate/pkg/logger"
)

// EmailHandler handles the dashboard's bulk send.
type EmailHandler struct {
	uc  notification.Usecase
	log *zap.Logger
}

// NewEmailHandler creates a new EmailHandler instance
func NewEmailHandler(uc notification.Usecase, log *zap.Logger) *EmailHandler {
	return &EmailHandler{
		uc:  uc,
		log: log,
	}
}

// SendEmailRequest represents the HTTP request body for a bulk send
type SendEmailRequest struct {
	Emails  string `json:"emails"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// SendEmail handles POST /api/send-email
func (h *EmailHandler) SendEmail(c *gin.Context) {
	log := logger.WithContext(c.Request.Context(), h.log)

	var req SendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid send email request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "All fields are required"})
		return
	}

	resp, err := h.uc.SendEmail(c.Request.Context(), notification.SendEmailRequest{
		Emails:  req.Emails,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		writeError(c, err, true)
		return
	}

	log.Info("Bulk email sent", zap.Int("recipients", resp.Recipients))
	c.JSON(http.StatusOK, gin.H{"success": true})
}
