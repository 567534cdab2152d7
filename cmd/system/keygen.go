package system

import (
	"fmt"

	"github.com/spf13/cobra"

	pasetotoken "github.com/bazaarhq/bazaar_backend/pkg/paseto"
)

func NewKeygenCommand() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate PASETO key material for the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch pasetotoken.Mode(mode) {
			case pasetotoken.ModeLocal:
				keys := pasetotoken.NewLocalKeys()
				fmt.Printf("authentication.paseto.local_key_hex: %s\n", keys.Symmetric.ExportHex())

			case pasetotoken.ModePublic:
				keys := pasetotoken.NewPublicKeys()
				fmt.Printf("authentication.paseto.secret_key_hex: %s\n", keys.Secret.ExportHex())
				fmt.Printf("authentication.paseto.public_key_hex: %s\n", keys.Public.ExportHex())

			default:
				return fmt.Errorf("unknown mode %q (use local or public)", mode)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "local", "key mode: local (v4.local) or public (v4.public)")

	return cmd
}
