package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"cachet/internal/domain"
	"cachet/internal/wire"
)

// recv: fetch queued envelopes, decrypt them in order and ack what was
// handled. Undeliverable messages (tamper, replay, evicted keys) are
// dropped and acked so they do not wedge the queue.
func recvCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recv",
		Short: "Fetch and decrypt pending messages",
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

			id, err := appCtx.Store.LoadIdentity(passphrase)
			if err != nil {
				return err
			}
			appCtx.Messenger.UseIdentity(username, id)

			envs, err := appCtx.Relay.FetchEnvelopes(cmd.Context(), username, limit)
			if err != nil {
				return err
			}

			processed := 0
			for _, env := range envs {
				h, err := wire.DecodeHeader(env.HeaderBytes)
				if err != nil {
					fmt.Printf("dropped malformed message from %q\n", env.From)
					processed++
					continue
				}

				if !appCtx.Messenger.HasSession(env.From) {
					if st, ok, err := appCtx.Store.LoadSession(passphrase, env.From); err != nil {
						return err
					} else if ok {
						appCtx.Messenger.ImportSession(st)
					}
				}

				pt, err := appCtx.Messenger.Receive(env.From, domain.Message{Header: h, Cipher: env.Cipher})
				switch {
				case err == nil:
					fmt.Printf("[%s] %s\n", env.From, pt)
				case errors.Is(err, domain.ErrTamper),
					errors.Is(err, domain.ErrUndeliverable),
					errors.Is(err, domain.ErrBeyondSkipLimit):
					fmt.Printf("dropped message from %q: %v\n", env.From, err)
				default:
					// Leave this and later envelopes queued.
					if ackErr := ack(cmd, processed); ackErr != nil {
						return ackErr
					}
					return err
				}
				processed++

				if st, ok := appCtx.Messenger.ExportSession(env.From); ok {
					if err := appCtx.Store.SaveSession(passphrase, st); err != nil {
						return err
					}
				}
			}
			return ack(cmd, processed)
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "your username (as registered)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum messages to fetch (0 = all)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func ack(cmd *cobra.Command, processed int) error {
	if processed == 0 {
		return nil
	}
	return appCtx.Relay.AckEnvelopes(cmd.Context(), username, processed)
}
