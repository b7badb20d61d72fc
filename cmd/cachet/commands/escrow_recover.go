package commands

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cachet/internal/crypto"
	"cachet/internal/domain"
	"cachet/internal/protocol/escrow"
	"cachet/internal/wire"
)

// escrow-recover is the escrow authority's tool: given the authority
// private key and a captured header, it unwraps the message key, and
// with the ciphertext also decrypts the payload. The conversing parties
// never run this path.
func escrowRecoverCmd() *cobra.Command {
	var keyHex, headerFile, cipherFile string
	cmd := &cobra.Command{
		Use:   "escrow-recover",
		Short: "Recover a message key from a captured header (authority only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := hex.DecodeString(strings.TrimSpace(keyHex))
			if err != nil || len(raw) != 32 {
				return fmt.Errorf("escrow private key must be 32 hex-encoded bytes")
			}
			priv := domain.MustX25519Private(raw)

			hb, err := readHexFile(headerFile)
			if err != nil {
				return err
			}
			h, err := wire.DecodeHeader(hb)
			if err != nil {
				return err
			}

			mk, err := escrow.Recover(priv, h.EscrowPub, h.EscrowWrapped, h.EscrowIV)
			if err != nil {
				return fmt.Errorf("unwrap failed: %w", err)
			}
			fmt.Printf("message key: %x\n", mk.Slice())

			if cipherFile == "" {
				return nil
			}
			ct, err := readHexFile(cipherFile)
			if err != nil {
				return err
			}
			pt, err := crypto.OpenGCM(mk, h.ReceiverIV, wire.EncodeHeader(h), ct)
			if err != nil {
				return fmt.Errorf("payload decrypt failed: %w", err)
			}
			fmt.Printf("plaintext: %s\n", pt)
			return nil
		},
	}
	cmd.Flags().StringVar(&keyHex, "key", "", "escrow authority private key (hex)")
	cmd.Flags().StringVar(&headerFile, "header", "", "file with the hex-encoded header")
	cmd.Flags().StringVar(&cipherFile, "cipher", "", "optional file with the hex-encoded ciphertext")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("header")
	return cmd
}

func readHexFile(path string) ([]byte, error) {
	b, err := readAll(path)
	if err != nil {
		return nil, err
	}
	out, err := hex.DecodeString(strings.TrimSpace(string(b)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}
