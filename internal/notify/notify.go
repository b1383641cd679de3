package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"volunteerhub/pkg/types"

	"github.com/sirupsen/logrus"
)

// Message is one outgoing email.
type Message struct {
	To      []string
	Subject string
	HTML    string
	ReplyTo string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// DisabledSender drops every message. Used when no mail provider is set.
type DisabledSender struct {
	logger *logrus.Logger
}

func NewDisabledSender(logger *logrus.Logger) *DisabledSender {
	return &DisabledSender{logger: logger}
}

func (d *DisabledSender) Send(_ context.Context, msg Message) error {
	d.logger.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("skipping email send, mail disabled")
	return nil
}

var mailTemplates = template.Must(template.New("").Parse(`
{{define "status"}}<p>Hi {{.User.FullName}},</p>
{{if eq .Status "APPROVED"}}<p>Your volunteer account has been approved. You can now sign up for events from your <a href="{{.BaseURL}}/dashboard">dashboard</a>.</p>
{{else}}<p>Your volunteer account request was not approved. Reply to this email if you think this is a mistake.</p>{{end}}{{end}}
{{define "contact"}}<p><strong>{{.Name}}</strong> &lt;{{.Email}}&gt; wrote:</p>
<p style="white-space: pre-wrap">{{.Message}}</p>{{end}}
`))

// Notifier composes the site's emails and hands them to a Sender.
type Notifier struct {
	logger       *logrus.Logger
	sender       Sender
	baseURL      string
	contactInbox string
}

func NewNotifier(logger *logrus.Logger, sender Sender, baseURL, contactInbox string) *Notifier {
	return &Notifier{
		logger:       logger,
		sender:       sender,
		baseURL:      baseURL,
		contactInbox: contactInbox,
	}
}

// UserStatusChanged tells a volunteer their account was approved or rejected.
func (n *Notifier) UserStatusChanged(ctx context.Context, user *types.User, status types.UserStatus) error {
	if status != types.UserStatusApproved && status != types.UserStatusRejected {
		return nil
	}

	body, err := render("status", map[string]any{
		"User":    user,
		"Status":  string(status),
		"BaseURL": n.baseURL,
	})
	if err != nil {
		return err
	}

	subject := "Your volunteer account was approved"
	if status == types.UserStatusRejected {
		subject = "Your volunteer account request"
	}

	return n.sender.Send(ctx, Message{
		To:      []string{user.Email},
		Subject: subject,
		HTML:    body,
	})
}

// ContactReceived forwards a contact form message to the organization inbox.
func (n *Notifier) ContactReceived(ctx context.Context, msg *types.ContactMessage) error {
	if n.contactInbox == "" {
		n.logger.WithField("contact_id", msg.ID).Debug("no contact inbox configured")
		return nil
	}

	body, err := render("contact", msg)
	if err != nil {
		return err
	}

	return n.sender.Send(ctx, Message{
		To:      []string{n.contactInbox},
		Subject: fmt.Sprintf("Website message from %s", msg.Name),
		HTML:    body,
		ReplyTo: msg.Email,
	})
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := mailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s email: %w", name, err)
	}
	return buf.String(), nil
}
