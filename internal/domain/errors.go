package domain

import "errors"

var (
	// ErrInvalidSignature means a certificate failed authority
	// verification. The certificate is not stored and no session may be
	// created with that peer.
	ErrInvalidSignature = errors.New("certificate signature invalid")

	// ErrUnknownSender means no accepted certificate exists for the
	// named peer.
	ErrUnknownSender = errors.New("no accepted certificate for peer")

	// ErrTamper means authenticated decryption failed. The message is
	// dropped; session state stays decryptable for future messages.
	ErrTamper = errors.New("message authentication failed")

	// ErrBeyondSkipLimit means the key for a late message was evicted
	// from the skipped-key cache, or the message is too far ahead of
	// the receiving chain to catch up. The message is permanently
	// undeliverable.
	ErrBeyondSkipLimit = errors.New("message key beyond skip limit")

	// ErrUndeliverable means the message index was already consumed
	// (replay or duplicate delivery).
	ErrUndeliverable = errors.New("message key already consumed")
)
