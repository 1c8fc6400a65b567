// Package notify delivers emails and SMS through ordered provider chains.
// Each channel is configured with a list of providers tried in order; the
// first successful send wins and the winning provider's name is recorded
// with the notification.
package notify

import "context"

// Channels a Message can be delivered on.
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Message is a channel-agnostic notification payload. Email providers use
// To as an address with Subject/Body/HTMLBody; SMS providers use To as an
// E.164 phone number with Body only.
type Message struct {
	To       string
	From     string
	Subject  string
	Body     string
	HTMLBody string
}

// Provider sends one message over one delivery mechanism. Implementations
// must be safe for concurrent use.
type Provider interface {
	Name() string
	Send(ctx context.Context, msg *Message) error
}
