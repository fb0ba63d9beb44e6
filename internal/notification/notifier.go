// Package notification defines the channel used to deliver verification
// challenges and review outcome notices. Delivery failures never roll back
// the state transition that triggered them; the engine reports them so the
// caller can offer a manual resend.
package notification

import (
	"context"
	"log/slog"
)

// Template identifies the message rendered for a send.
type Template string

const (
	TemplateEmailVerification Template = "email_verification"
	TemplateReviewApproved    Template = "review_approved"
	TemplateReviewRejected    Template = "review_rejected"
)

// Notifier sends one message to a recipient address. Payload carries
// template variables (token, entity name, review notes).
type Notifier interface {
	Send(ctx context.Context, recipient string, template Template, payload map[string]string) error
}

// LogNotifier writes sends to the log instead of delivering them. Used in
// development and as the fallback when no channel is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, recipient string, template Template, payload map[string]string) error {
	args := []any{"recipient", recipient, "template", string(template)}
	for k, v := range payload {
		if k == "token" {
			// Tokens are secrets; log presence, not value.
			v = "<redacted>"
		}
		args = append(args, k, v)
	}
	n.logger.InfoContext(ctx, "notification send", args...)
	return nil
}
