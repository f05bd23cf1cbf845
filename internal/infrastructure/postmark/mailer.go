package postmark

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

var ErrSendFailed = errors.New("postmark: send failed")

type client interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

// Mailer delivers HTML email through the Postmark API.
type Mailer struct {
	client client
	from   string
	tag    string
}

func NewMailer(serverToken, accountToken, from string) *Mailer {
	return &Mailer{
		client: postmark.NewClient(serverToken, accountToken),
		from:   from,
		tag:    "auth",
	}
}

func (m *Mailer) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	resp, err := m.client.SendEmail(ctx, postmark.Email{
		From:       m.from,
		To:         to,
		Subject:    subject,
		Tag:        m.tag,
		HTMLBody:   htmlBody,
		TrackOpens: false,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		return fmt.Errorf("%w: code %d: %s", ErrSendFailed, resp.ErrorCode, resp.Message)
	}
	return nil
}
