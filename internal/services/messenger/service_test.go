package messenger_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cachet/internal/crypto"
	"cachet/internal/domain"
	"cachet/internal/protocol/escrow"
	"cachet/internal/services/messenger"
	"cachet/internal/trust"
	"cachet/internal/wire"
)

// world wires up a certificate authority, an escrow authority, and any
// number of enrolled users who all trust both.
type world struct {
	caPriv  domain.Ed25519Private
	caPub   domain.Ed25519Public
	govPriv domain.X25519Private
	govPub  domain.X25519Public

	users map[domain.Username]*messenger.Service
}

func newWorld(t *testing.T, names ...string) *world {
	t.Helper()
	caPriv, caPub, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	govPriv, govPub, err := crypto.GenerateX25519()
	require.NoError(t, err)

	w := &world{
		caPriv: caPriv, caPub: caPub,
		govPriv: govPriv, govPub: govPub,
		users: make(map[domain.Username]*messenger.Service),
	}
	for _, name := range names {
		w.enroll(t, name)
	}
	// Everyone learns everyone's certificate through the signature gate.
	for _, svc := range w.users {
		for _, peer := range w.users {
			if peer == svc {
				continue
			}
			cert := peer.Certificate()
			require.NoError(t, svc.ReceiveCertificate(cert, trust.Sign(w.caPriv, cert)))
		}
	}
	return w
}

func (w *world) enroll(t *testing.T, name string) *messenger.Service {
	t.Helper()
	svc := messenger.New(w.caPub, w.govPub)
	_, err := svc.GenerateCertificate(domain.Username(name))
	require.NoError(t, err)
	w.users[domain.Username(name)] = svc
	return svc
}

func (w *world) user(name string) *messenger.Service {
	return w.users[domain.Username(name)]
}

func TestService_RoundTrip(t *testing.T) {
	w := newWorld(t, "alice", "bob")

	msg, err := w.user("alice").Send("bob", []byte("hi bob"))
	require.NoError(t, err)

	pt, err := w.user("bob").Receive("alice", msg)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi bob"), pt)
}

func TestService_Conversation(t *testing.T) {
	w := newWorld(t, "alice", "bob")
	alice, bob := w.user("alice"), w.user("bob")

	for i := 0; i < 5; i++ {
		out := []byte(fmt.Sprintf("a->b %d", i))
		msg, err := alice.Send("bob", out)
		require.NoError(t, err)
		pt, err := bob.Receive("alice", msg)
		require.NoError(t, err)
		assert.Equal(t, out, pt)

		back := []byte(fmt.Sprintf("b->a %d", i))
		msg, err = bob.Send("alice", back)
		require.NoError(t, err)
		pt, err = alice.Receive("bob", msg)
		require.NoError(t, err)
		assert.Equal(t, back, pt)
	}
}

func TestService_ThreePartiesIndependent(t *testing.T) {
	w := newWorld(t, "alice", "bob", "carol")
	alice := w.user("alice")

	mb, err := alice.Send("bob", []byte("for bob"))
	require.NoError(t, err)
	mc, err := alice.Send("carol", []byte("for carol"))
	require.NoError(t, err)

	pt, err := w.user("bob").Receive("alice", mb)
	require.NoError(t, err)
	assert.Equal(t, []byte("for bob"), pt)

	// Carol cannot read bob's message even knowing it came from alice.
	_, err = w.user("carol").Receive("alice", mb)
	assert.Error(t, err)

	pt, err = w.user("carol").Receive("alice", mc)
	require.NoError(t, err)
	assert.Equal(t, []byte("for carol"), pt)
}

func TestService_UnknownPeerRejected(t *testing.T) {
	w := newWorld(t, "alice")

	_, err := w.user("alice").Send("stranger", []byte("hi"))
	assert.ErrorIs(t, err, domain.ErrUnknownSender)

	_, err = w.user("alice").Receive("stranger", domain.Message{})
	assert.ErrorIs(t, err, domain.ErrUnknownSender)
}

func TestService_CertificateGate(t *testing.T) {
	w := newWorld(t, "alice")
	alice := w.user("alice")

	// A certificate signed by someone other than the authority is
	// rejected and the peer stays unknown.
	rogueCA, _, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	_, mPub, err := crypto.GenerateX25519()
	require.NoError(t, err)
	cert := domain.Certificate{Username: "mallory", ExchangeKey: mPub}

	err = alice.ReceiveCertificate(cert, trust.Sign(rogueCA, cert))
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	_, err = alice.Send("mallory", []byte("hi"))
	assert.ErrorIs(t, err, domain.ErrUnknownSender)
}

func TestService_OutOfOrderDelivery(t *testing.T) {
	w := newWorld(t, "alice", "bob")
	alice, bob := w.user("alice"), w.user("bob")

	var msgs []domain.Message
	for i := 0; i < 3; i++ {
		m, err := alice.Send("bob", []byte(fmt.Sprintf("m%d", i)))
		require.NoError(t, err)
		msgs = append(msgs, m)
	}

	// Deliver 0, 2, 1.
	pt, err := bob.Receive("alice", msgs[0])
	require.NoError(t, err)
	assert.Equal(t, []byte("m0"), pt)

	pt, err = bob.Receive("alice", msgs[2])
	require.NoError(t, err)
	assert.Equal(t, []byte("m2"), pt)

	pt, err = bob.Receive("alice", msgs[1])
	require.NoError(t, err)
	assert.Equal(t, []byte("m1"), pt)
}

func TestService_TamperDetected(t *testing.T) {
	w := newWorld(t, "alice", "bob")
	alice, bob := w.user("alice"), w.user("bob")

	msg, err := alice.Send("bob", []byte("genuine"))
	require.NoError(t, err)

	bad := msg
	bad.Cipher = append([]byte(nil), msg.Cipher...)
	bad.Cipher[len(bad.Cipher)-1] ^= 1
	_, err = bob.Receive("alice", bad)
	assert.ErrorIs(t, err, domain.ErrTamper)

	// Header tampering breaks the associated data binding the same way.
	bad = msg
	bad.Header.PrevChainLen++
	_, err = bob.Receive("alice", bad)
	assert.Error(t, err)

	// After both forgeries the genuine message still goes through.
	pt, err := bob.Receive("alice", msg)
	require.NoError(t, err)
	assert.Equal(t, []byte("genuine"), pt)
}

func TestService_ReplayRejected(t *testing.T) {
	w := newWorld(t, "alice", "bob")

	msg, err := w.user("alice").Send("bob", []byte("once"))
	require.NoError(t, err)

	_, err = w.user("bob").Receive("alice", msg)
	require.NoError(t, err)
	_, err = w.user("bob").Receive("alice", msg)
	assert.ErrorIs(t, err, domain.ErrUndeliverable)
}

func TestService_EscrowRecoversEveryMessage(t *testing.T) {
	w := newWorld(t, "alice", "bob")
	alice, bob := w.user("alice"), w.user("bob")

	for i := 0; i < 4; i++ {
		want := []byte(fmt.Sprintf("escrowed %d", i))
		msg, err := alice.Send("bob", want)
		require.NoError(t, err)

		// The authority recovers the message key from the header alone
		// and reads the same plaintext the receiver does.
		mk, err := escrow.Recover(w.govPriv, msg.Header.EscrowPub, msg.Header.EscrowWrapped, msg.Header.EscrowIV)
		require.NoError(t, err)
		pt, err := crypto.OpenGCM(mk, msg.Header.ReceiverIV, wire.EncodeHeader(msg.Header), msg.Cipher)
		require.NoError(t, err)
		assert.Equal(t, want, pt)

		pt, err = bob.Receive("alice", msg)
		require.NoError(t, err)
		assert.Equal(t, want, pt)
	}
}

func TestService_EscrowFieldsFreshPerMessage(t *testing.T) {
	w := newWorld(t, "alice", "bob")

	m1, err := w.user("alice").Send("bob", []byte("one"))
	require.NoError(t, err)
	m2, err := w.user("alice").Send("bob", []byte("two"))
	require.NoError(t, err)

	assert.NotEqual(t, m1.Header.EscrowPub, m2.Header.EscrowPub)
	assert.NotEqual(t, m1.Header.EscrowIV, m2.Header.EscrowIV)
	assert.NotEqual(t, m1.Header.ReceiverIV, m2.Header.ReceiverIV)
}

func TestService_ForwardSecrecy(t *testing.T) {
	w := newWorld(t, "alice", "bob")
	alice, bob := w.user("alice"), w.user("bob")

	old, err := alice.Send("bob", []byte("old secret"))
	require.NoError(t, err)
	pt, err := bob.Receive("alice", old)
	require.NoError(t, err)
	assert.Equal(t, []byte("old secret"), pt)

	// Compromise bob's complete state after the message was consumed.
	leaked, ok := bob.ExportSession("alice")
	require.True(t, ok)

	evil := messenger.New(w.caPub, w.govPub)
	cert := alice.Certificate()
	require.NoError(t, evil.ReceiveCertificate(cert, trust.Sign(w.caPriv, cert)))
	evil.ImportSession(leaked)

	// The consumed message key is gone from the state; the captured
	// ciphertext stays unreadable.
	_, err = evil.Receive("alice", old)
	assert.Error(t, err)
}

func TestService_BreakInRecovery(t *testing.T) {
	w := newWorld(t, "alice", "bob")
	alice, bob := w.user("alice"), w.user("bob")

	m, err := alice.Send("bob", []byte("warmup"))
	require.NoError(t, err)
	_, err = bob.Receive("alice", m)
	require.NoError(t, err)

	// Full compromise of bob's ratchet state at this point.
	leaked, ok := bob.ExportSession("alice")
	require.True(t, ok)

	evil := messenger.New(w.caPub, w.govPub)
	cert := alice.Certificate()
	require.NoError(t, evil.ReceiveCertificate(cert, trust.Sign(w.caPriv, cert)))
	evil.ImportSession(leaked)

	// Bob replies and alice answers. Bob's ratchet pair at this point is
	// still the leaked one, so the attacker can follow this far.
	m, err = bob.Send("alice", []byte("reply"))
	require.NoError(t, err)
	_, err = alice.Receive("bob", m)
	require.NoError(t, err)
	exposed, err := alice.Send("bob", []byte("still exposed"))
	require.NoError(t, err)
	_, err = bob.Receive("alice", exposed)
	require.NoError(t, err)
	pt, err := evil.Receive("alice", exposed)
	require.NoError(t, err)
	assert.Equal(t, []byte("still exposed"), pt)

	// Receiving alice's new key made bob generate a pair the leak never
	// saw. One more round trip keys alice to it and the attacker's copy
	// falls off the conversation.
	m, err = bob.Send("alice", []byte("reply 2"))
	require.NoError(t, err)
	_, err = alice.Receive("bob", m)
	require.NoError(t, err)
	healed, err := alice.Send("bob", []byte("post-compromise"))
	require.NoError(t, err)

	_, err = evil.Receive("alice", healed)
	assert.Error(t, err, "leaked state must not follow the conversation past a ratchet")

	// The real bob reads it fine.
	pt, err = bob.Receive("alice", healed)
	require.NoError(t, err)
	assert.Equal(t, []byte("post-compromise"), pt)
}

func TestService_SkippedKeyEviction(t *testing.T) {
	w := newWorld(t, "alice", "bob")
	alice, bob := w.user("alice"), w.user("bob")

	var msgs []domain.Message
	for i := 0; i < 302; i++ {
		m, err := alice.Send("bob", []byte(fmt.Sprintf("m%d", i)))
		require.NoError(t, err)
		msgs = append(msgs, m)
	}

	// Receiving index 300 first caches 300 keys, evicting the oldest
	// past the cache bound.
	pt, err := bob.Receive("alice", msgs[300])
	require.NoError(t, err)
	assert.Equal(t, []byte("m300"), pt)

	// Index 0's key was pushed out before it arrived.
	_, err = bob.Receive("alice", msgs[0])
	assert.ErrorIs(t, err, domain.ErrBeyondSkipLimit)

	// A recent index is still cached.
	pt, err = bob.Receive("alice", msgs[299])
	require.NoError(t, err)
	assert.Equal(t, []byte("m299"), pt)
}

func TestService_SessionLifecycle(t *testing.T) {
	w := newWorld(t, "alice", "bob")
	alice, bob := w.user("alice"), w.user("bob")

	assert.False(t, alice.HasSession("bob"))
	m, err := alice.Send("bob", []byte("hi"))
	require.NoError(t, err)
	assert.True(t, alice.HasSession("bob"))

	_, err = bob.Receive("alice", m)
	require.NoError(t, err)

	assert.True(t, bob.DeleteSession("alice"))
	assert.False(t, bob.HasSession("alice"))
	assert.False(t, bob.DeleteSession("alice"))

	// With the session gone the ratchet restarts from the handshake;
	// a fresh exchange works.
	m, err = alice.Send("bob", []byte("again"))
	require.NoError(t, err)
	_, err = bob.Receive("alice", m)
	require.NoError(t, err)
}

func TestService_ExportImportRoundTrip(t *testing.T) {
	w := newWorld(t, "alice", "bob")
	alice, bob := w.user("alice"), w.user("bob")

	m, err := alice.Send("bob", []byte("first"))
	require.NoError(t, err)
	_, err = bob.Receive("alice", m)
	require.NoError(t, err)

	st, ok := bob.ExportSession("alice")
	require.True(t, ok)

	// A new process restores the session and keeps decrypting.
	bob2 := messenger.New(w.caPub, w.govPub)
	bob2.UseIdentity("bob", bob.Identity())
	cert := alice.Certificate()
	require.NoError(t, bob2.ReceiveCertificate(cert, trust.Sign(w.caPriv, cert)))
	bob2.ImportSession(st)

	m, err = alice.Send("bob", []byte("second"))
	require.NoError(t, err)
	pt, err := bob2.Receive("alice", m)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), pt)
}
