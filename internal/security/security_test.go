package security

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "impedancecli/internal/errors"
	"impedancecli/pkg/contracts/domain"
)

// fastConfig keeps scrypt cheap in tests
func fastConfig() *EncryptionConfig {
	cfg := DefaultEncryptionConfig()
	cfg.SCryptN = 1024
	return cfg
}

func TestSealOpenRoundTrip(t *testing.T) {
	payload, err := Seal([]byte("secret"), []byte("passphrase"), fastConfig())
	require.NoError(t, err)
	assert.Len(t, payload.Salt, 32)
	assert.Len(t, payload.Nonce, 12)
	assert.Len(t, payload.AuthTag, 16)

	secret, err := Open(payload, []byte("passphrase"), fastConfig())
	require.NoError(t, err)
	assert.Equal(t, "secret", string(secret.Data()))

	secret.Clear()
	assert.Nil(t, secret.Data())
}

func TestOpenRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *EncryptedPayload) []byte
	}{
		{
			name:   "wrong passphrase",
			mutate: func(p *EncryptedPayload) []byte { return []byte("other") },
		},
		{
			name: "tampered ciphertext",
			mutate: func(p *EncryptedPayload) []byte {
				p.Ciphertext[0] ^= 0xFF
				return []byte("passphrase")
			},
		},
		{
			name: "unknown version",
			mutate: func(p *EncryptedPayload) []byte {
				p.Version = 9
				return []byte("passphrase")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := Seal([]byte("secret"), []byte("passphrase"), fastConfig())
			require.NoError(t, err)

			_, err = Open(payload, tt.mutate(payload), fastConfig())
			assert.Error(t, err)
		})
	}
}

func TestSealValidatesInput(t *testing.T) {
	_, err := Seal(nil, []byte("p"), fastConfig())
	assert.Error(t, err)
	_, err = Seal([]byte("x"), nil, fastConfig())
	assert.Error(t, err)
	_, err = Open(nil, []byte("p"), fastConfig())
	assert.Error(t, err)
}

func TestValidateEncryptionConfig(t *testing.T) {
	assert.NoError(t, ValidateEncryptionConfig(DefaultEncryptionConfig()))
	assert.Error(t, ValidateEncryptionConfig(nil))

	bad := DefaultEncryptionConfig()
	bad.SCryptN = 1000
	assert.Error(t, ValidateEncryptionConfig(bad))

	bad = DefaultEncryptionConfig()
	bad.NonceSize = 16
	assert.Error(t, ValidateEncryptionConfig(bad))
}

func TestFileCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets", "credentials.sealed")
	creds := domain.MailCredentials{Username: "lab@example.com", Password: "app-password"}
	require.NoError(t, WriteSealedFile(path, creds, []byte("seal-key"), fastConfig()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "app-password")
	var payload EncryptedPayload
	require.NoError(t, json.Unmarshal(raw, &payload))

	t.Setenv("TEST_SEAL_KEY", "seal-key")
	provider := NewFileCredentials(path, "TEST_SEAL_KEY", nil).WithEncryptionConfig(fastConfig())
	got, err := provider.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, creds, got)
}

func TestFileCredentialsErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.sealed")
	require.NoError(t, WriteSealedFile(path, domain.MailCredentials{Username: "u", Password: "p"}, []byte("right"), fastConfig()))

	tests := []struct {
		name string
		path string
		key  string
	}{
		{name: "missing passphrase", path: path, key: ""},
		{name: "wrong passphrase", path: path, key: "wrong"},
		{name: "missing file", path: filepath.Join(dir, "absent"), key: "right"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_SEAL_KEY", tt.key)
			_, err := NewFileCredentials(tt.path, "TEST_SEAL_KEY", nil).
				WithEncryptionConfig(fastConfig()).
				Credentials(context.Background())
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
		})
	}
}

func TestWriteSealedFileRequiresBothFields(t *testing.T) {
	err := WriteSealedFile(filepath.Join(t.TempDir(), "c"), domain.MailCredentials{Username: "u"}, []byte("k"), fastConfig())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}
