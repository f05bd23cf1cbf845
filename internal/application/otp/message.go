package otp

import (
	"fmt"
	"time"

	"github.com/authkeeper/internal/domain"
)

func message(intent domain.Intent, code string, expiry time.Duration) (subject, body string) {
	switch intent {
	case domain.IntentAccountActivation:
		subject = "Activate your account"
	case domain.IntentTwoFactor:
		subject = "Your sign-in code"
	case domain.IntentPasswordReset:
		subject = "Reset your password"
	default:
		subject = "Verify your email"
	}
	body = fmt.Sprintf(
		`<p>Your verification code is:</p><p style="font-size:24px;letter-spacing:4px"><strong>%s</strong></p><p>It expires in %d minutes. If you did not request it, ignore this email.</p>`,
		code, int(expiry.Minutes()),
	)
	return subject, body
}
