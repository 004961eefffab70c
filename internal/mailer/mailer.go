package mailer

import "context"

// Mailer delivers a plain-text message to one recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Func adapts a function to the Mailer interface.
type Func func(ctx context.Context, to, subject, body string) error

// Send calls the adapted function.
func (f Func) Send(ctx context.Context, to, subject, body string) error {
	return f(ctx, to, subject, body)
}
