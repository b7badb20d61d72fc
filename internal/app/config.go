package app

import (
	"net/http"

	"go.uber.org/zap"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	Home         string // config directory, e.g. $HOME/.cachet
	RelayURL     string // relay base URL, e.g. http://127.0.0.1:8080
	AuthorityKey string // hex Ed25519 public key of the certificate authority
	EscrowKey    string // hex X25519 public key of the escrow authority

	HTTP   *http.Client // optional; defaults to http.DefaultClient
	Logger *zap.Logger  // optional; defaults to a no-op logger
}
