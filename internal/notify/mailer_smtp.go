package notify

import (
	"context"
	"fmt"
	"strconv"

	"github.com/wneessen/go-mail"
)

// SMTPMailer delivers notifications over SMTP.
type SMTPMailer struct {
	client *mail.Client
	from   string
}

// NewSMTPMailer builds an SMTP-backed mailer. Port is a string because it
// comes straight from config.
func NewSMTPMailer(host, port, user, pass, from string) (*SMTPMailer, error) {
	p, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("invalid smtp port %q: %w", port, err)
	}

	opts := []mail.Option{mail.WithPort(p)}
	if user != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(user),
			mail.WithPassword(pass),
		)
	}

	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: from}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, n Notification) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return err
	}
	if err := msg.To(n.Recipient); err != nil {
		return err
	}

	subject, body := render(n)
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	return m.client.DialAndSendWithContext(ctx, msg)
}

// render produces plain-text mail content per template kind. Param keys are
// set by the services that dispatch each kind.
func render(n Notification) (subject, body string) {
	p := n.Params
	name := p["name"]
	switch n.Kind {
	case KindVerification:
		return "Verify your email address",
			fmt.Sprintf("Hello %s,\n\nYour verification code is %s. It expires in 24 hours.\n", name, p["code"])
	case KindWelcome:
		return "Welcome to StreetWatch",
			fmt.Sprintf("Hello %s,\n\nYour email address has been verified. You can now sign in.\n", name)
	case KindPasswordReset:
		return "Password reset requested",
			fmt.Sprintf("Hello %s,\n\nUse this token to reset your password: %s\nIf you did not request a reset, ignore this message.\n", name, p["token"])
	case KindCredentials:
		return "Your StreetWatch account",
			fmt.Sprintf("Hello %s,\n\nAn account was created for you.\nEmail: %s\nTemporary password: %s\n", name, p["email"], p["password"])
	case KindAccountUpdated:
		return "Your account was updated",
			fmt.Sprintf("Hello %s,\n\nYour account details were changed by an administrator: %s.\n", name, p["changes"])
	case KindStatusUpdate:
		return fmt.Sprintf("Incident %q: %s", p["title"], p["new_status"]),
			fmt.Sprintf("Hello %s,\n\nYour incident %q moved from %s to %s.\n", name, p["title"], p["old_status"], p["new_status"])
	case KindAssignment:
		return fmt.Sprintf("Incident assigned: %q", p["title"]),
			fmt.Sprintf("Hello %s,\n\nYou have been assigned incident %q (category %s, priority %s).\n", name, p["title"], p["category"], p["priority"])
	default:
		return "StreetWatch notification", fmt.Sprintf("Hello %s,\n", name)
	}
}
