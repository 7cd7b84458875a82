// Command seal-credentials writes the encrypted SMTP credentials file read
// by impedance-report when mail.credential_store is "file".
//
//	echo '{"username":"lab@example.com","password":"app-password"}' | \
//	    IMPEDANCE_SEAL_KEY=... seal-credentials -out credentials.sealed
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"impedancecli/internal/config"
	apperrors "impedancecli/internal/errors"
	"impedancecli/internal/security"
	"impedancecli/pkg/contracts/domain"
)

func main() {
	out := flag.String("out", config.DefaultCredentialsFile, "path of the sealed credentials file")
	keyEnv := flag.String("key-env", config.EnvPrefix+"_SEAL_KEY", "environment variable holding the passphrase")
	flag.Parse()

	if err := seal(os.Stdin, *out, os.Getenv(*keyEnv)); err != nil {
		slog.Error("failed to seal credentials", "error", err, "error_type", string(apperrors.TypeOf(err)))
		os.Exit(1)
	}
	fmt.Printf("credentials sealed to %s\n", *out)
}

// seal reads {"username","password"} JSON from r and writes it encrypted
// under passphrase to path
func seal(r io.Reader, path, passphrase string) error {
	if passphrase == "" {
		return apperrors.NewConfigError("seal passphrase is empty", nil)
	}

	var creds domain.MailCredentials
	if err := json.NewDecoder(io.LimitReader(r, 1<<16)).Decode(&creds); err != nil {
		return apperrors.NewAppError(apperrors.ErrTypeValidation, "credentials must be a JSON object with username and password", err)
	}
	return security.WriteSealedFile(path, creds, []byte(passphrase), security.DefaultEncryptionConfig())
}
