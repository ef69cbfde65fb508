package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/academic-panel/pkg/errors"
	"github.com/noah-isme/academic-panel/pkg/nonce"
	"github.com/noah-isme/academic-panel/pkg/response"
)

// NonceHeader carries the request token on script-initiated calls.
const NonceHeader = "X-Panel-Nonce"

// NonceField carries the request token on plain form submissions and download links.
const NonceField = "_nonce"

// Panel actions a nonce can be bound to.
const (
	ActionApproveEnrollment = "approve_enrollment"
	ActionApproveBatch      = "approve_batch"
	ActionUpdateCallStatus  = "update_call_status"
	ActionUpdateProfile     = "update_profile"
	ActionCreateStudent     = "create_student"
	ActionCreateEnrollment  = "create_enrollment"
	ActionExportReports     = "export_reports"
	ActionSendBulkEmail     = "send_bulk_email"
	ActionRecordPayment     = "record_payment"
	ActionSaveConcept       = "save_concept"
	ActionSaveCourse        = "save_course"
)

// PanelActions lists every action the shell embeds a nonce for.
var PanelActions = []string{
	ActionApproveEnrollment, ActionApproveBatch, ActionUpdateCallStatus, ActionUpdateProfile,
	ActionCreateStudent, ActionCreateEnrollment, ActionExportReports, ActionSendBulkEmail,
	ActionRecordPayment, ActionSaveConcept, ActionSaveCourse,
}

type nonceVerifier interface {
	Verify(token, userID, action string) error
}

// RequireNonce rejects requests without a valid nonce for action bound to the current user.
func RequireNonce(verifier nonceVerifier, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := requestNonce(c)
		if token == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrInvalidNonce, "missing request token"))
			c.Abort()
			return
		}
		if err := verifier.Verify(token, ActorID(c), action); err != nil {
			message := appErrors.ErrInvalidNonce.Message
			if errors.Is(err, nonce.ErrExpired) {
				message = "request token expired, reload the panel"
			}
			response.Error(c, appErrors.Clone(appErrors.ErrInvalidNonce, message))
			c.Abort()
			return
		}
		c.Next()
	}
}

func requestNonce(c *gin.Context) string {
	if token := strings.TrimSpace(c.GetHeader(NonceHeader)); token != "" {
		return token
	}
	if token := strings.TrimSpace(c.PostForm(NonceField)); token != "" {
		return token
	}
	return strings.TrimSpace(c.Query(NonceField))
}
