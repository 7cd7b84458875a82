package security

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"impedancecli/internal/config"
	apperrors "impedancecli/internal/errors"
	"impedancecli/pkg/contracts/domain"
)

// FileCredentials loads mail credentials from a sealed file. The passphrase
// is read from an environment variable on every call and never cached.
type FileCredentials struct {
	path       string
	passEnv    string
	encryption *EncryptionConfig
	logger     *slog.Logger
}

// NewFileCredentials creates a provider for the sealed file at path whose
// passphrase is held in the environment variable passEnv.
func NewFileCredentials(path, passEnv string, logger *slog.Logger) *FileCredentials {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileCredentials{
		path:       path,
		passEnv:    passEnv,
		encryption: DefaultEncryptionConfig(),
		logger:     logger,
	}
}

// WithEncryptionConfig overrides the key derivation parameters
func (f *FileCredentials) WithEncryptionConfig(cfg *EncryptionConfig) *FileCredentials {
	f.encryption = cfg
	return f
}

// Credentials decrypts the sealed file
func (f *FileCredentials) Credentials(ctx context.Context) (domain.MailCredentials, error) {
	passphrase := os.Getenv(f.passEnv)
	if passphrase == "" {
		return domain.MailCredentials{}, apperrors.NewConfigError(
			fmt.Sprintf("environment variable %s is not set", f.passEnv), nil)
	}

	raw, err := os.ReadFile(f.path)
	if err != nil {
		return domain.MailCredentials{}, apperrors.NewConfigError("failed to read sealed credentials", err).
			WithContext("path", f.path)
	}

	var payload EncryptedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.MailCredentials{}, apperrors.NewConfigError("sealed credentials file is malformed", err).
			WithContext("path", f.path)
	}

	secret, err := Open(&payload, []byte(passphrase), f.encryption)
	if err != nil {
		f.logger.WarnContext(ctx, "credential access failed",
			slog.String("path", f.path),
			slog.String("error", err.Error()))
		return domain.MailCredentials{}, apperrors.NewConfigError("failed to open sealed credentials", err)
	}
	defer secret.Clear()

	var creds domain.MailCredentials
	if err := json.Unmarshal(secret.Data(), &creds); err != nil {
		return domain.MailCredentials{}, apperrors.NewConfigError("sealed credentials are not valid JSON", err)
	}
	if !creds.Complete() {
		return domain.MailCredentials{}, apperrors.NewConfigError("sealed credentials lack username or password", nil)
	}

	f.logger.DebugContext(ctx, "credentials loaded", slog.String("path", f.path))
	return creds, nil
}

// WriteSealedFile encrypts creds under passphrase and writes the payload to
// path with owner-only permissions.
func WriteSealedFile(path string, creds domain.MailCredentials, passphrase []byte, cfg *EncryptionConfig) error {
	if !creds.Complete() {
		return apperrors.NewAppValidationError("username and password are required")
	}

	plaintext, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	defer func() {
		for i := range plaintext {
			plaintext[i] = 0
		}
	}()

	payload, err := Seal(plaintext, passphrase, cfg)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, config.DirPermissions); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return os.WriteFile(path, data, 0600)
}
