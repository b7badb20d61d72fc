package app

import (
	"encoding/hex"
	"fmt"

	"go.uber.org/zap"

	"cachet/internal/domain"
	"cachet/internal/relay"
	"cachet/internal/services/messenger"
	"cachet/internal/store"
)

// Wire bundles the stores, services and clients for the CLI.
type Wire struct {
	Store     *store.FileStore
	Relay     domain.RelayClient
	Messenger *messenger.Service
	Log       *zap.Logger
}

// NewWire constructs the dependency graph from cfg. Certificates that
// were accepted in earlier runs are re-verified through the trust gate
// on load.
func NewWire(cfg Config) (*Wire, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	authority, err := parseKey32(cfg.AuthorityKey, "authority key")
	if err != nil {
		return nil, err
	}
	escrowKey, err := parseKey32(cfg.EscrowKey, "escrow key")
	if err != nil {
		return nil, err
	}

	fs := store.NewFileStore(cfg.Home)

	var rc domain.RelayClient
	if cfg.RelayURL != "" {
		rc = relay.NewHTTP(cfg.RelayURL, cfg.HTTP)
	}

	msgr := messenger.New(
		domain.Ed25519Public(authority),
		domain.X25519Public(escrowKey),
		messenger.WithLogger(log),
	)

	recs, err := fs.LoadCertificates()
	if err != nil {
		return nil, fmt.Errorf("load certificates: %w", err)
	}
	for _, rec := range recs {
		if err := msgr.ReceiveCertificate(rec.Certificate, rec.Signature); err != nil {
			log.Warn("stored certificate no longer verifies",
				zap.String("peer", rec.Certificate.Username),
				zap.Error(err))
		}
	}

	return &Wire{Store: fs, Relay: rc, Messenger: msgr, Log: log}, nil
}

func parseKey32(hexKey, what string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return out, fmt.Errorf("%s: %w", what, err)
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("%s: want 32 bytes, got %d", what, len(raw))
	}
	copy(out[:], raw)
	return out, nil
}
