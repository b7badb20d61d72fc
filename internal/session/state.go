package session

import "cachet/internal/domain"

// State is a serializable snapshot of a session, used to carry ratchet
// state across process restarts. It contains live secrets and must only
// be persisted inside an encrypted envelope.
type State struct {
	Peer string `json:"peer"`

	RootKey domain.SymmetricKey `json:"root_key"`

	DHPriv domain.X25519Private `json:"dh_priv"`
	DHPub  domain.X25519Public  `json:"dh_pub"`

	RemotePub  domain.X25519Public `json:"remote_pub"`
	HaveRemote bool                `json:"have_remote"`

	SendCK   domain.SymmetricKey `json:"send_ck"`
	HaveSend bool                `json:"have_send"`
	RecvCK   domain.SymmetricKey `json:"recv_ck"`
	HaveRecv bool                `json:"have_recv"`

	Ns uint32 `json:"ns"`
	Nr uint32 `json:"nr"`
	PN uint32 `json:"pn"`

	Skipped []SkippedEntry `json:"skipped,omitempty"`
}

// Snapshot exports the current state.
func (s *Session) Snapshot() State {
	return State{
		Peer:       s.peer,
		RootKey:    s.root,
		DHPriv:     s.dhPriv,
		DHPub:      s.dhPub,
		RemotePub:  s.remotePub,
		HaveRemote: s.haveRemote,
		SendCK:     s.sendCK,
		HaveSend:   s.haveSend,
		RecvCK:     s.recvCK,
		HaveRecv:   s.haveRecv,
		Ns:         s.ns,
		Nr:         s.nr,
		PN:         s.pn,
		Skipped:    s.skipped.export(),
	}
}

// FromState rebuilds a session from a snapshot.
func FromState(st State) *Session {
	s := &Session{
		peer: st.Peer,
		core: core{
			root:       st.RootKey,
			dhPriv:     st.DHPriv,
			dhPub:      st.DHPub,
			remotePub:  st.RemotePub,
			haveRemote: st.HaveRemote,
			sendCK:     st.SendCK,
			haveSend:   st.HaveSend,
			recvCK:     st.RecvCK,
			haveRecv:   st.HaveRecv,
			ns:         st.Ns,
			nr:         st.Nr,
			pn:         st.PN,
		},
		skipped: NewSkippedKeys(DefaultMaxSkipped),
	}
	s.skipped.restore(st.Skipped)
	return s
}
