package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"cachet/internal/crypto"
	"cachet/internal/domain"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init <username>",
		Short: "Generate identity keys and a certificate for <username>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireApp(); err != nil {
				return err
			}
			if err := requirePassphrase(); err != nil {
				return err
			}
			cert, err := appCtx.Messenger.GenerateCertificate(args[0])
			if err != nil {
				return err
			}
			if err := appCtx.Store.SaveIdentity(passphrase, appCtx.Messenger.Identity()); err != nil {
				return err
			}

			out, err := json.MarshalIndent(cert, "", "  ")
			if err != nil {
				return err
			}
			fmt.Printf("Identity created.\nFingerprint: %s\n", crypto.Fingerprint(cert.ExchangeKey.Slice()))
			fmt.Printf("Certificate (have the authority sign it, then publish the record):\n%s\n", out)
			return nil
		},
	}
}

func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Show the fingerprint of the local identity key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireApp(); err != nil {
				return err
			}
			if err := requirePassphrase(); err != nil {
				return err
			}
			id, err := appCtx.Store.LoadIdentity(passphrase)
			if err != nil {
				return err
			}
			fmt.Println(crypto.Fingerprint(id.XPub.Slice()))
			return nil
		},
	}
}

func publishCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a signed certificate record to the relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireApp(); err != nil {
				return err
			}
			if appCtx.Relay == nil {
				return fmt.Errorf("no relay configured, use --relay")
			}
			rec, err := readRecord(file)
			if err != nil {
				return err
			}
			if err := appCtx.Relay.PublishCertificate(cmd.Context(), rec); err != nil {
				return err
			}
			fmt.Printf("published certificate for %q\n", rec.Certificate.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to the signed certificate record (JSON)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readRecord(path string) (domain.CertificateRecord, error) {
	var rec domain.CertificateRecord
	b, err := readAll(path)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(b, &rec); err != nil {
		return rec, fmt.Errorf("parse certificate record: %w", err)
	}
	return rec, nil
}
