package wire

import (
	"encoding/binary"
	"errors"

	"cachet/internal/domain"
	"cachet/internal/protocol/escrow"
)

// Header layout, fixed order and fixed size. The header is bound as
// associated data, so any deviation between the two ends changes the
// tag and decryption fails.
//
//	dh_public          32
//	prev_chain_length   4  (big endian)
//	message_index       4  (big endian)
//	receiver_iv        12
//	v_gov              32
//	iv_gov             12
//	c_gov              48
const HeaderLen = 32 + 4 + 4 + 12 + 32 + 12 + escrow.WrappedLen

var errBadHeader = errors.New("wire: malformed header")

// EncodeHeader serializes h into its canonical wire bytes.
func EncodeHeader(h domain.Header) []byte {
	out := make([]byte, 0, HeaderLen)
	out = append(out, h.DHPublic.Slice()...)
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], h.PrevChainLen)
	out = append(out, b[:]...)
	binary.BigEndian.PutUint32(b[:], h.N)
	out = append(out, b[:]...)
	out = append(out, h.ReceiverIV.Slice()...)
	out = append(out, h.EscrowPub.Slice()...)
	out = append(out, h.EscrowIV.Slice()...)
	out = append(out, h.EscrowWrapped...)
	return out
}

// DecodeHeader parses canonical wire bytes. Encode(Decode(b)) == b, so
// a parsed header re-encodes to the exact received associated data.
func DecodeHeader(b []byte) (domain.Header, error) {
	if len(b) != HeaderLen {
		return domain.Header{}, errBadHeader
	}
	var h domain.Header
	off := 0
	copy(h.DHPublic[:], b[off:off+32])
	off += 32
	h.PrevChainLen = binary.BigEndian.Uint32(b[off : off+4])
	off += 4
	h.N = binary.BigEndian.Uint32(b[off : off+4])
	off += 4
	copy(h.ReceiverIV[:], b[off:off+12])
	off += 12
	copy(h.EscrowPub[:], b[off:off+32])
	off += 32
	copy(h.EscrowIV[:], b[off:off+12])
	off += 12
	h.EscrowWrapped = append([]byte(nil), b[off:]...)
	return h, nil
}
