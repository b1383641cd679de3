package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/sirupsen/logrus"
)

type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender sends emails through Amazon SES.
type SESSender struct {
	logger *logrus.Logger
	client SESAPI
	from   string
}

func NewSESSender(logger *logrus.Logger, client SESAPI, from string) *SESSender {
	return &SESSender{
		logger: logger,
		client: client,
		from:   from,
	}
}

func (s *SESSender) Send(ctx context.Context, msg Message) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination: &sestypes.Destination{
			ToAddresses: msg.To,
		},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{
					Data:    aws.String(msg.Subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &sestypes.Body{
					Html: &sestypes.Content{
						Data:    aws.String(msg.HTML),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}
	if msg.ReplyTo != "" {
		input.ReplyToAddresses = []string{msg.ReplyTo}
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %v: %w", msg.To, err)
	}

	s.logger.WithFields(logrus.Fields{
		"message_id": aws.ToString(result.MessageId),
		"to":         msg.To,
		"subject":    msg.Subject,
	}).Info("email sent")

	return nil
}
