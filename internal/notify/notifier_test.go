package notify

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"impedancecli/internal/config"
	apperrors "impedancecli/internal/errors"
	"impedancecli/internal/shared/testutil"
	"impedancecli/pkg/contracts/domain"
)

type fakeSender struct {
	sent []*mail.Msg
	err  error
}

func (f *fakeSender) DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, messages...)
	return nil
}

func newTestNotifier(t *testing.T, sender *fakeSender) *Notifier {
	t.Helper()
	cfg := config.Default().Mail
	cfg.Recipient = "pi@example.com"
	logger, _ := testutil.NewTestLogger(t)
	factory := func(config.MailConfig, domain.MailCredentials) (Sender, error) { return sender, nil }
	return NewNotifier(cfg, StaticCredentials{Username: "lab@example.com", Password: "pw"}, factory, logger)
}

func testWeek(t *testing.T) *config.WeekLayout {
	t.Helper()
	week, err := config.NewWeekLayout(t.TempDir(), time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return week
}

func render(t *testing.T, msg *mail.Msg) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func TestSendWeekly(t *testing.T) {
	sender := &fakeSender{}
	week := testWeek(t)
	testutil.WriteFile(t, filepath.Dir(week.ArchivePath), filepath.Base(week.ArchivePath), "PK-zip-bytes")

	require.NoError(t, newTestNotifier(t, sender).SendWeekly(context.Background(), week))
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, []string{"Impedance values for the week of 2024-03-11 to 2024-03-15"}, msg.GetGenHeader(mail.HeaderSubject))

	rcpts, err := msg.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"pi@example.com"}, rcpts)

	attachments := msg.GetAttachments()
	require.Len(t, attachments, 1)
	assert.Equal(t, "2024-03-11 to 2024-03-15.zip", attachments[0].Name)

	raw := render(t, msg)
	assert.Contains(t, raw, "application/zip")
	assert.Contains(t, raw, "lab@example.com")
}

func TestSendWeeklyRequiresArchive(t *testing.T) {
	sender := &fakeSender{}
	err := newTestNotifier(t, sender).SendWeekly(context.Background(), testWeek(t))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
	assert.Empty(t, sender.sent)
}

func TestSendEmpty(t *testing.T) {
	sender := &fakeSender{}
	require.NoError(t, newTestNotifier(t, sender).SendEmpty(context.Background()))
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, []string{"No impedance values this week"}, msg.GetGenHeader(mail.HeaderSubject))
	assert.Empty(t, msg.GetAttachments())
	assert.Contains(t, render(t, msg), "No arrays were impedance tested this week")
}

func TestTransportFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("535 authentication failed")}
	n := newTestNotifier(t, sender)

	err := n.SendEmpty(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeMailTransport))
	assert.Contains(t, err.Error(), "535 authentication failed")
}

func TestFactoryFailure(t *testing.T) {
	cfg := config.Default().Mail
	cfg.Recipient = "pi@example.com"
	factory := func(config.MailConfig, domain.MailCredentials) (Sender, error) {
		return nil, errors.New("bad host")
	}
	n := NewNotifier(cfg, StaticCredentials{Username: "u@example.com", Password: "p"}, factory, nil)

	err := n.SendEmpty(context.Background())
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeMailTransport))
}

func TestFromOverride(t *testing.T) {
	sender := &fakeSender{}
	n := newTestNotifier(t, sender)
	n.cfg.From = "reports@example.com"

	require.NoError(t, n.SendEmpty(context.Background()))
	from := sender.sent[0].GetFromString()
	require.Len(t, from, 1)
	assert.Contains(t, from[0], "reports@example.com")
}

func TestEnvCredentials(t *testing.T) {
	provider := EnvCredentials{UsernameEnv: "TEST_SMTP_USER", PasswordEnv: "TEST_SMTP_PASS"}

	t.Setenv("TEST_SMTP_USER", "lab@example.com")
	t.Setenv("TEST_SMTP_PASS", "")
	_, err := provider.Credentials(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))

	t.Setenv("TEST_SMTP_PASS", "secret")
	creds, err := provider.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.MailCredentials{Username: "lab@example.com", Password: "secret"}, creds)
}

func TestNewSMTPSender(t *testing.T) {
	sender, err := NewSMTPSender(config.Default().Mail, domain.MailCredentials{Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.IsType(t, &mail.Client{}, sender)
}

type deadlineSender struct {
	deadline time.Time
	ok       bool
}

func (d *deadlineSender) DialAndSendWithContext(ctx context.Context, _ ...*mail.Msg) error {
	d.deadline, d.ok = ctx.Deadline()
	return nil
}

func TestSendAppliesTimeout(t *testing.T) {
	cfg := config.Default().Mail
	cfg.Recipient = "pi@example.com"
	cfg.Timeout = 3 * time.Second
	sender := &deadlineSender{}
	factory := func(config.MailConfig, domain.MailCredentials) (Sender, error) { return sender, nil }
	n := NewNotifier(cfg, StaticCredentials{Username: "lab@example.com", Password: "pw"}, factory, nil)

	start := time.Now()
	require.NoError(t, n.SendEmpty(context.Background()))
	require.True(t, sender.ok, "send context must carry a deadline")
	assert.WithinDuration(t, start.Add(cfg.Timeout), sender.deadline, time.Second)
}
