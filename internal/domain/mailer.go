package domain

import "context"

// EmailMessage is one transactional email.
type EmailMessage struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer sends transactional email through the external provider.
type Mailer interface {
	Send(ctx context.Context, msg *EmailMessage) (id string, err error)
}
