// Package notify is the fire-and-forget notification side-channel.
//
// Services hand notifications to the Dispatcher and move on: delivery
// happens on a background worker, outside any transactional boundary, and a
// delivery failure is logged but never surfaced to the operation that
// triggered it. The contract "failure is invisible to the caller" is
// structural here, not a try/catch convention.
package notify

// Kind selects the template a mailer renders.
type Kind string

const (
	KindVerification   Kind = "verification"
	KindWelcome        Kind = "welcome"
	KindPasswordReset  Kind = "password_reset"
	KindCredentials    Kind = "credentials"
	KindAccountUpdated Kind = "account_updated"
	KindStatusUpdate   Kind = "status_update"
	KindAssignment     Kind = "assignment"
)

// Notification is one message to one recipient. Params carry the
// template-specific values (names, codes, incident titles, statuses).
type Notification struct {
	Kind      Kind
	Recipient string
	Params    map[string]string
}
