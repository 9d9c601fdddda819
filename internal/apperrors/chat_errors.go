package apperrors

var (
	// Domain errors surfaced to the originating connection as error events.
	ErrInvalidMessageData = Validation("invalid message data")
	ErrReceiverNotFound   = NotFound("receiver not found")
	ErrUserNotFound       = NotFound("user not found")
	ErrMessageNotFound    = NotFound("message not found")
	ErrUnableToSend       = Forbidden("unable to send message")
	ErrSameRole           = Forbidden("messaging is only available between artists and buyers")
	ErrNotMessageSender   = Forbidden("only the sender can modify this message")
	ErrSelfTarget         = Validation("cannot target yourself")
	ErrSendFailed         = Internal("failed to send message")
)

// ContentRejected builds the rejection error for a message that failed the
// safety filter, carrying the triggered violation categories.
func ContentRejected(violations []string) error {
	return &AppError{
		Code:       CodeContentRejected,
		Message:    "message violates the content policy",
		Violations: violations,
	}
}
