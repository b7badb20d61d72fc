package wire

import (
	"cachet/internal/crypto"
	"cachet/internal/domain"
	"cachet/internal/protocol/escrow"
	"cachet/internal/session"
	"cachet/internal/util/memzero"
)

// BuildMessage advances the session's sending chain and assembles an
// outgoing message: fresh IVs, the escrow wrap of the message key, and
// the AEAD over the plaintext with the exact header bytes as associated
// data.
func BuildMessage(sess *session.Session, escrowKey domain.X25519Public, plaintext []byte) (domain.Message, error) {
	mk, h, err := sess.AdvanceSend()
	if err != nil {
		return domain.Message{}, err
	}
	defer memzero.Zero(mk[:])

	if h.ReceiverIV, err = crypto.NewIV(); err != nil {
		return domain.Message{}, err
	}
	if h.EscrowIV, err = crypto.NewIV(); err != nil {
		return domain.Message{}, err
	}
	if h.EscrowPub, h.EscrowWrapped, err = escrow.Wrap(escrowKey, mk, h.EscrowIV); err != nil {
		return domain.Message{}, err
	}

	ct, err := crypto.SealGCM(mk, h.ReceiverIV, EncodeHeader(h), plaintext)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{Header: h, Cipher: ct}, nil
}

// OpenMessage resolves the message key for the header, verifies and
// decrypts the ciphertext, and commits the ratchet advance only after
// the tag checks out. A forged message therefore cannot desynchronize
// the session, and a failed open returns domain.ErrTamper with no
// partial plaintext.
func OpenMessage(sess *session.Session, msg domain.Message) ([]byte, error) {
	staged, err := sess.StageRecv(msg.Header)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(staged.Key[:])

	pt, err := crypto.OpenGCM(staged.Key, msg.Header.ReceiverIV, EncodeHeader(msg.Header), msg.Cipher)
	if err != nil {
		return nil, domain.ErrTamper
	}
	staged.Commit()
	return pt, nil
}
