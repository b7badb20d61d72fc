package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cachet/internal/domain"
	"cachet/internal/wire"
)

// send <peer> <message>: encrypt and send a message to <peer>.
func sendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <peer> <message>",
		Short: "Encrypt and send a message to a peer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireApp(); err != nil {
				return err
			}
			if err := requirePassphrase(); err != nil {
				return err
			}
			if appCtx.Relay == nil {
				return fmt.Errorf("no relay configured, use --relay")
			}
			peer := args[0]

			id, err := appCtx.Store.LoadIdentity(passphrase)
			if err != nil {
				return err
			}
			appCtx.Messenger.UseIdentity(username, id)

			if st, ok, err := appCtx.Store.LoadSession(passphrase, peer); err != nil {
				return err
			} else if ok {
				appCtx.Messenger.ImportSession(st)
			}

			msg, err := appCtx.Messenger.Send(peer, []byte(args[1]))
			if err != nil {
				return err
			}

			// Persist the advanced ratchet state before handing the
			// message to the relay, so a crash cannot reuse a key.
			if st, ok := appCtx.Messenger.ExportSession(peer); ok {
				if err := appCtx.Store.SaveSession(passphrase, st); err != nil {
					return err
				}
			}

			env := domain.Envelope{
				From:        username,
				To:          peer,
				HeaderBytes: wire.EncodeHeader(msg.Header),
				Cipher:      msg.Cipher,
				Timestamp:   time.Now().Unix(),
			}
			if err := appCtx.Relay.SendEnvelope(cmd.Context(), env); err != nil {
				return err
			}
			fmt.Println("sent")
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "your username (as registered)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}
