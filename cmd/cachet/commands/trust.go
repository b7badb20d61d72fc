package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cachet/internal/crypto"
	"cachet/internal/domain"
)

// trust accepts a peer certificate, verifying the authority signature
// before anything is stored. The record comes from the relay by
// username, or from a file for offline exchange.
func trustCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "trust [username]",
		Short: "Verify and accept a peer's certificate",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireApp(); err != nil {
				return err
			}

			var rec domain.CertificateRecord
			switch {
			case file != "":
				r, err := readRecord(file)
				if err != nil {
					return err
				}
				rec = r
			case len(args) == 1:
				if appCtx.Relay == nil {
					return fmt.Errorf("no relay configured, use --relay or --file")
				}
				r, err := appCtx.Relay.FetchCertificate(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				rec = r
			default:
				return fmt.Errorf("give a username to fetch from the relay, or --file")
			}

			if err := appCtx.Messenger.ReceiveCertificate(rec.Certificate, rec.Signature); err != nil {
				return err
			}

			// Persist alongside previously accepted records.
			recs, err := appCtx.Store.LoadCertificates()
			if err != nil {
				return err
			}
			recs = upsertRecord(recs, rec)
			if err := appCtx.Store.SaveCertificates(recs); err != nil {
				return err
			}

			fmt.Printf("trusted %q (%s)\n",
				rec.Certificate.Username,
				crypto.Fingerprint(rec.Certificate.ExchangeKey.Slice()))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to a signed certificate record (JSON)")
	return cmd
}

func upsertRecord(recs []domain.CertificateRecord, rec domain.CertificateRecord) []domain.CertificateRecord {
	for i := range recs {
		if recs[i].Certificate.Username == rec.Certificate.Username {
			recs[i] = rec
			return recs
		}
	}
	return append(recs, rec)
}

func readAll(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return b, nil
}
