package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cachet/internal/app"
)

var (
	home       string
	passphrase string
	relayURL   string
	caKey      string
	escrowKey  string
	username   string
	verbose    bool

	appCtx *app.Wire
)

func Execute() error {
	root := &cobra.Command{
		Use:   "cachet",
		Short: "End-to-end encrypted messaging with mandatory key escrow",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".cachet")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}

			// Commands that only operate on local key material
			// (escrow-recover) run without the trust configuration.
			if caKey == "" || escrowKey == "" {
				return nil
			}

			var log *zap.Logger
			if verbose {
				l, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				log = l
			}
			w, err := app.NewWire(app.Config{
				Home:         home,
				RelayURL:     relayURL,
				AuthorityKey: caKey,
				EscrowKey:    escrowKey,
				Logger:       log,
			})
			if err != nil {
				return err
			}
			appCtx = w
			return nil
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.cachet)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting local keys")
	root.PersistentFlags().StringVar(&relayURL, "relay", "", "relay base URL (e.g. http://127.0.0.1:8080)")
	root.PersistentFlags().StringVar(&caKey, "ca-key", "", "certificate authority public key (hex)")
	root.PersistentFlags().StringVar(&escrowKey, "escrow-key", "", "escrow authority public key (hex)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	root.AddCommand(
		initCmd(),
		fingerprintCmd(),
		trustCmd(),
		publishCmd(),
		sendCmd(),
		recvCmd(),
		escrowRecoverCmd(),
	)
	return root.Execute()
}

func requireApp() error {
	if appCtx == nil {
		return fmt.Errorf("this command needs --ca-key and --escrow-key")
	}
	return nil
}

func requirePassphrase() error {
	if passphrase == "" {
		return fmt.Errorf("passphrase required (-p)")
	}
	return nil
}
