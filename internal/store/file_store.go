package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"cachet/internal/domain"
	"cachet/internal/session"
	"cachet/internal/util/memzero"
)

const (
	idFile      = "identity.enc"
	certsFile   = "certificates.json" // []domain.CertificateRecord
	sessionsExt = ".session.enc"      // one encrypted file per peer
)

// FileStore persists the local identity, accepted certificates and
// session snapshots under one directory. Identity and session files are
// sealed with the passphrase; certificates are public and stored as
// plain JSON together with their signatures so they can be re-verified
// on load.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) *FileStore { return &FileStore{dir: dir} }

// ---------- Identity ----------

func (s *FileStore) SaveIdentity(passphrase string, id domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw := append(append([]byte(nil), id.XPriv.Slice()...), id.XPub.Slice()...)
	defer memzero.Zero(raw)

	N, r, p := scryptParamsDefault()
	blob, err := encrypt(passphrase, raw, N, r, p)
	if err != nil {
		return err
	}
	return writeFile(filepath.Join(s.dir, idFile), blob, 0o600)
}

func (s *FileStore) LoadIdentity(passphrase string) (domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := os.ReadFile(filepath.Join(s.dir, idFile))
	if err != nil {
		return domain.Identity{}, err
	}
	raw, err := decrypt(passphrase, blob)
	if err != nil {
		return domain.Identity{}, err
	}
	defer memzero.Zero(raw)
	if len(raw) != 64 {
		return domain.Identity{}, errWrongPassphrase
	}
	return domain.Identity{
		XPriv: domain.MustX25519Private(raw[:32]),
		XPub:  domain.MustX25519Public(raw[32:]),
	}, nil
}

// ---------- Certificates ----------

// SaveCertificates stores the accepted certificate records.
func (s *FileStore) SaveCertificates(recs []domain.CertificateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(filepath.Join(s.dir, certsFile), recs, 0o600)
}

// LoadCertificates returns the stored records. Callers re-add them
// through the trust gate so tampered files cannot smuggle a
// certificate past verification.
func (s *FileStore) LoadCertificates() ([]domain.CertificateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var recs []domain.CertificateRecord
	if err := readJSON(filepath.Join(s.dir, certsFile), &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// ---------- Sessions ----------

// SaveSession seals a session snapshot for peer.
func (s *FileStore) SaveSession(passphrase string, st session.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := marshalState(st)
	if err != nil {
		return err
	}
	defer memzero.Zero(raw)

	N, r, p := scryptParamsDefault()
	blob, err := encrypt(passphrase, raw, N, r, p)
	if err != nil {
		return err
	}
	return writeFile(s.sessionPath(st.Peer), blob, 0o600)
}

// LoadSession returns the snapshot for peer, if one was saved.
func (s *FileStore) LoadSession(passphrase string, peer domain.Username) (session.State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := readFile(s.sessionPath(peer))
	if err != nil {
		return session.State{}, false, err
	}
	if blob == nil {
		return session.State{}, false, nil
	}
	raw, err := decrypt(passphrase, blob)
	if err != nil {
		return session.State{}, false, err
	}
	defer memzero.Zero(raw)

	st, err := unmarshalState(raw)
	if err != nil {
		return session.State{}, false, err
	}
	return st, true, nil
}

// DeleteSession removes the snapshot for peer.
func (s *FileStore) DeleteSession(peer domain.Username) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.sessionPath(peer))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *FileStore) sessionPath(peer domain.Username) string {
	return filepath.Join(s.dir, "peer-"+sanitize(peer)+sessionsExt)
}

func marshalState(st session.State) ([]byte, error) { return json.Marshal(st) }

func unmarshalState(raw []byte) (session.State, error) {
	var st session.State
	err := json.Unmarshal(raw, &st)
	return st, err
}

func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// Compile-time assertion that FileStore implements domain.IdentityStore.
var _ domain.IdentityStore = (*FileStore)(nil)
