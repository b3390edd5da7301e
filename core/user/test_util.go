package user

import (
	"context"
	"time"

	"github.com/ricardious/semestrix/core"
)

type serviceMock struct {
	service
}

// NewServiceMock returns a Service whose password reset runs synchronously.
func NewServiceMock(repo Repository, mailSvc core.EmailService, conf *core.Config) Service {
	secretKey = []byte(conf.SecretKey)
	passwordResetTimeoutDelta = conf.PasswordResetTimeoutDelta
	return &serviceMock{
		service: service{
			repo:    repo,
			mailSvc: mailSvc,
		},
	}
}

func (svc *serviceMock) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
	if err != nil {
		return err
	}
	// run synchronously
	svc.sendPasswordResetMail(usr)
	return nil
}

// MakeResetToken exposes token generation for tests.
func MakeResetToken(usr User) (string, error) {
	return makeToken(usr)
}

// FreezeTokenClock pins the token timestamp clock; returns a restore func.
func FreezeTokenClock(t time.Time) func() {
	nowFunc = func() time.Time { return t }
	return func() { nowFunc = time.Now }
}
