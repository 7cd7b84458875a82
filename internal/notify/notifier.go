package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/wneessen/go-mail"

	"impedancecli/internal/config"
	apperrors "impedancecli/internal/errors"
	"impedancecli/pkg/contracts/domain"
)

const (
	weeklySubject = "Impedance values for the week of %s"
	emptySubject  = "No impedance values this week"

	weeklyBody = "This is an automated weekly report.\n" +
		"Attached are the array impedance values for the week of %s.\n"
	emptyBody = "No arrays were impedance tested this week " +
		"(or their text files were not put into the input folder).\n\n" +
		"This is an automated weekly report.\n"

	zipContentType mail.ContentType = "application/zip"
)

// Sender delivers composed messages. *mail.Client satisfies it.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SenderFactory builds a Sender for one delivery
type SenderFactory func(cfg config.MailConfig, creds domain.MailCredentials) (Sender, error)

// NewSMTPSender builds a go-mail client with SMTP PLAIN auth, mandatory
// STARTTLS and the configured dial timeout.
func NewSMTPSender(cfg config.MailConfig, creds domain.MailCredentials) (Sender, error) {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(creds.Username),
		mail.WithPassword(creds.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(cfg.Timeout),
	)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Notifier composes and sends the weekly mails
type Notifier struct {
	cfg     config.MailConfig
	creds   CredentialProvider
	factory SenderFactory
	logger  *slog.Logger
}

// NewNotifier creates a notifier. A nil factory means real SMTP delivery.
func NewNotifier(cfg config.MailConfig, creds CredentialProvider, factory SenderFactory, logger *slog.Logger) *Notifier {
	if factory == nil {
		factory = NewSMTPSender
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{cfg: cfg, creds: creds, factory: factory, logger: logger}
}

// SendWeekly mails the week's archive to the recipient
func (n *Notifier) SendWeekly(ctx context.Context, week *config.WeekLayout) error {
	if _, err := os.Stat(week.ArchivePath); err != nil {
		return apperrors.NewStorageError("archive missing before notification", err)
	}

	creds, err := n.credentials(ctx)
	if err != nil {
		return err
	}

	msg, err := WeeklyMessage(n.from(creds), n.cfg.Recipient, week)
	if err != nil {
		return apperrors.NewMailTransportError("failed to compose weekly mail", err)
	}
	return n.send(ctx, creds, msg, "weekly")
}

// SendEmpty mails the no-measurements notice
func (n *Notifier) SendEmpty(ctx context.Context) error {
	creds, err := n.credentials(ctx)
	if err != nil {
		return err
	}

	msg, err := EmptyMessage(n.from(creds), n.cfg.Recipient)
	if err != nil {
		return apperrors.NewMailTransportError("failed to compose empty-week mail", err)
	}
	return n.send(ctx, creds, msg, "empty")
}

// WeeklyMessage builds the mail carrying the archive as <week>.zip
func WeeklyMessage(from, to string, week *config.WeekLayout) (*mail.Msg, error) {
	msg, err := newMessage(from, to, fmt.Sprintf(weeklySubject, week.Name))
	if err != nil {
		return nil, err
	}
	msg.SetBodyString(mail.TypeTextPlain, fmt.Sprintf(weeklyBody, week.Name))
	msg.AttachFile(week.ArchivePath,
		mail.WithFileName(week.ArchiveName()),
		mail.WithFileContentType(zipContentType))
	return msg, nil
}

// EmptyMessage builds the mail sent when no files were found
func EmptyMessage(from, to string) (*mail.Msg, error) {
	msg, err := newMessage(from, to, emptySubject)
	if err != nil {
		return nil, err
	}
	msg.SetBodyString(mail.TypeTextPlain, emptyBody)
	return msg, nil
}

func newMessage(from, to, subject string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid from address %q: %w", from, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetDate()
	return msg, nil
}

func (n *Notifier) credentials(ctx context.Context) (domain.MailCredentials, error) {
	if n.creds == nil {
		return domain.MailCredentials{}, apperrors.NewConfigError("no mail credential provider configured", nil)
	}
	return n.creds.Credentials(ctx)
}

func (n *Notifier) from(creds domain.MailCredentials) string {
	if n.cfg.From != "" {
		return n.cfg.From
	}
	return creds.Username
}

func (n *Notifier) send(ctx context.Context, creds domain.MailCredentials, msg *mail.Msg, kind string) error {
	sender, err := n.factory(n.cfg, creds)
	if err != nil {
		return apperrors.NewMailTransportError("failed to create SMTP client", err).
			WithContext("host", n.cfg.Host)
	}

	if n.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.cfg.Timeout)
		defer cancel()
	}

	if err := sender.DialAndSendWithContext(ctx, msg); err != nil {
		n.logger.ErrorContext(ctx, "mail delivery failed",
			slog.String("kind", kind),
			slog.String("host", n.cfg.Host),
			slog.Int("port", n.cfg.Port),
			slog.String("error", err.Error()))
		return apperrors.NewMailTransportError(fmt.Sprintf("failed to deliver %s mail", kind), err).
			WithContext("host", n.cfg.Host).
			WithContext("recipient", n.cfg.Recipient)
	}

	n.logger.InfoContext(ctx, "mail delivered",
		slog.String("kind", kind),
		slog.String("recipient", n.cfg.Recipient))
	return nil
}
