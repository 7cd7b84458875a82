package notify

import (
	"context"
	"fmt"
	"os"

	apperrors "impedancecli/internal/errors"
	"impedancecli/pkg/contracts/domain"
)

// CredentialProvider resolves the SMTP credentials at send time
type CredentialProvider interface {
	Credentials(ctx context.Context) (domain.MailCredentials, error)
}

// EnvCredentials reads the username and password from two environment
// variables.
type EnvCredentials struct {
	UsernameEnv string
	PasswordEnv string
}

// Credentials implements CredentialProvider
func (e EnvCredentials) Credentials(ctx context.Context) (domain.MailCredentials, error) {
	creds := domain.MailCredentials{
		Username: os.Getenv(e.UsernameEnv),
		Password: os.Getenv(e.PasswordEnv),
	}
	if !creds.Complete() {
		return domain.MailCredentials{}, apperrors.NewConfigError(
			fmt.Sprintf("mail credentials missing: set %s and %s", e.UsernameEnv, e.PasswordEnv), nil)
	}
	return creds, nil
}

// StaticCredentials always returns the same credentials
type StaticCredentials domain.MailCredentials

// Credentials implements CredentialProvider
func (s StaticCredentials) Credentials(ctx context.Context) (domain.MailCredentials, error) {
	return domain.MailCredentials(s), nil
}
