// Package messenger is the client facade: certificate issuance and
// acceptance, session lookup and creation, and the send/receive entry
// points that tie the ratchet, codec and escrow layers together.
package messenger
