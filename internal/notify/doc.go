// Package notify delivers the weekly report mail over authenticated SMTP
// with mandatory STARTTLS.
//
// A Notifier sends either the weekly mail with the archive attached or the
// empty-week mail without an attachment. Credentials are resolved per send
// through a CredentialProvider and the transport is built by a
// SenderFactory, so tests substitute both without touching the network.
package notify
