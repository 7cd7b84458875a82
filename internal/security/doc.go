// Package security seals and opens the SMTP credentials file.
//
// A sealed file is a JSON EncryptedPayload: AES-256-GCM ciphertext under a
// key derived with SCRYPT from a passphrase, plus a SHA-256 integrity hash
// over ciphertext, salt and nonce. The passphrase lives in an environment
// variable and is never written to disk.
package security
