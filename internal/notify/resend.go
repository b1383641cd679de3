package notify

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"github.com/sirupsen/logrus"
)

// ResendSender sends emails via the Resend API.
type ResendSender struct {
	logger *logrus.Logger
	client *resend.Client
	from   string
}

func NewResendSender(logger *logrus.Logger, client *resend.Client, from string) *ResendSender {
	return &ResendSender{
		logger: logger,
		client: client,
		from:   from,
	}
}

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
	}
	if msg.ReplyTo != "" {
		params.ReplyTo = msg.ReplyTo
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("resend send failed: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"message_id": sent.Id,
		"to":         msg.To,
		"subject":    msg.Subject,
	}).Info("email sent")

	return nil
}
