// Package mailer notifies the support team and the user when the
// conversation resolves into a follow-up action. Delivery walks an
// ordered sender list, mirroring the model provider fallback: SendGrid
// first, plain SMTP second.
package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Kind selects the notification flavor.
type Kind string

const (
	KindMeetingRequest Kind = "meeting_request"
	KindSupportRequest Kind = "support_request"
)

// Sender delivers a single email.
type Sender interface {
	Name() string
	Send(ctx context.Context, from, to, subject, body string) error
}

// Notification is the result of a successful Notify call.
type Notification struct {
	Kind        Kind
	MeetingLink string
}

// Mailer is the notification collaborator the orchestrator depends on.
type Mailer interface {
	Notify(ctx context.Context, kind Kind, userEmail, transcript string) (Notification, error)
}

// Notifier composes and delivers follow-up notifications.
type Notifier struct {
	senders      []Sender
	senderEmail  string
	supportEmail string
	logger       *logrus.Logger
}

// NewNotifier creates a Notifier over the given senders in fallback
// order.
func NewNotifier(senders []Sender, senderEmail, supportEmail string, logger *logrus.Logger) *Notifier {
	return &Notifier{
		senders:      senders,
		senderEmail:  senderEmail,
		supportEmail: supportEmail,
		logger:       logger,
	}
}

// Notify emails the support team and the user for the given kind. For a
// meeting request a fresh meeting link is generated and included in both
// emails and in the returned Notification.
func (n *Notifier) Notify(ctx context.Context, kind Kind, userEmail, transcript string) (Notification, error) {
	switch kind {
	case KindMeetingRequest:
		link := MeetingLink()
		teamBody := fmt.Sprintf("Meeting scheduled by user.\nUser email: %s\nJoin here: %s\n\nMessage history:\n%s", userEmail, link, transcript)
		userBody := fmt.Sprintf("Your meeting request has been received. Our team will contact you soon. Meeting link: %s", link)

		if err := n.deliver(ctx, n.supportEmail, "Meeting Request", teamBody); err != nil {
			return Notification{}, err
		}
		if err := n.deliver(ctx, userEmail, "Meeting Scheduled", userBody); err != nil {
			return Notification{}, err
		}
		return Notification{Kind: kind, MeetingLink: link}, nil

	case KindSupportRequest:
		teamBody := fmt.Sprintf("User requested support.\nUser email: %s\n\nMessage history:\n%s", userEmail, transcript)

		if err := n.deliver(ctx, n.supportEmail, "Support Request", teamBody); err != nil {
			return Notification{}, err
		}
		if err := n.deliver(ctx, userEmail, "Support Request Received", "Your request has been received. Our team will contact you soon."); err != nil {
			return Notification{}, err
		}
		return Notification{Kind: kind}, nil

	default:
		return Notification{}, fmt.Errorf("unknown notification kind: %s", kind)
	}
}

// deliver walks the sender list until one accepts the message.
func (n *Notifier) deliver(ctx context.Context, to, subject, body string) error {
	var lastErr error
	for _, sender := range n.senders {
		err := sender.Send(ctx, n.senderEmail, to, subject, body)
		if err == nil {
			n.logger.WithFields(logrus.Fields{
				"sender":  sender.Name(),
				"subject": subject,
			}).Info("Email sent")
			return nil
		}
		n.logger.WithError(err).WithField("sender", sender.Name()).Warn("Email send failed, trying next sender")
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no email senders configured")
	}
	return fmt.Errorf("all email senders failed: %w", lastErr)
}

// MeetingLink generates a fresh Jitsi Meet room URL.
func MeetingLink() string {
	room := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return "https://meet.jit.si/" + room
}
