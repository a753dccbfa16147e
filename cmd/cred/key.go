package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"xdao.co/cred/keys"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage issuer keys and pinned verification keys",
		Long: `Manage issuer keys and pinned verification keys.

Keys live under --keystore (default ~/.xdao/cred/keys) as
<name>/private.pem (0600) and <name>/public.pem. A name with only a public
key is a pinned verification key.`,
		DisableAutoGenTag: true,
	}

	generate := &cobra.Command{
		Use:   "generate name",
		Short: "Generate a new signing key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			curveName, _ := cmd.Flags().GetString("curve")
			force, _ := cmd.Flags().GetBool("force")
			curve, err := keys.ParseCurve(curveName)
			if err != nil {
				return err
			}
			ks, err := openKeyStore(cmd)
			if err != nil {
				return err
			}
			priv, err := ks.Generate(args[0], curve, force)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), priv.Public.Fingerprint())
			return err
		},
		DisableAutoGenTag: true,
	}
	generate.Flags().String("curve", string(keys.Secp256k1), fmt.Sprintf("curve, one of %v", keys.Curves()))
	generate.Flags().Bool("force", false, "overwrite an existing key")

	importCmd := &cobra.Command{
		Use:   "import name file",
		Short: "Import a private key PEM (SEC1 or PKCS#8)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			text, err := readFileArg(cmd, args[1])
			if err != nil {
				return err
			}
			ks, err := openKeyStore(cmd)
			if err != nil {
				return err
			}
			priv, err := ks.ImportPrivate(args[0], text, force)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), priv.Public.Fingerprint())
			return err
		},
		DisableAutoGenTag: true,
	}
	importCmd.Flags().Bool("force", false, "overwrite an existing key")

	pin := &cobra.Command{
		Use:   "pin name file",
		Short: "Pin a public key PEM for offline verification",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			text, err := readFileArg(cmd, args[1])
			if err != nil {
				return err
			}
			ks, err := openKeyStore(cmd)
			if err != nil {
				return err
			}
			pub, err := ks.Pin(args[0], text, force)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), pub.Fingerprint())
			return err
		},
		DisableAutoGenTag: true,
	}
	pin.Flags().Bool("force", false, "overwrite an existing key")

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ks, err := openKeyStore(cmd)
			if err != nil {
				return err
			}
			entries, err := ks.List()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tCURVE\tPRIVATE\tFINGERPRINT")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", e.Name, e.Curve, e.HasPrivate, e.Fingerprint)
			}
			return tw.Flush()
		},
		DisableAutoGenTag: true,
	}

	export := &cobra.Command{
		Use:   "export name",
		Short: "Print a stored public key as PEM, or as a DNS TXT record value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ks, err := openKeyStore(cmd)
			if err != nil {
				return err
			}
			if txt, _ := cmd.Flags().GetBool("txt"); txt {
				pub, err := ks.LoadPublic(args[0])
				if err != nil {
					return err
				}
				rec, err := pub.TXTRecord()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), rec)
				return err
			}
			text, err := ks.PublicPEM(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), text)
			return err
		},
		DisableAutoGenTag: true,
	}
	export.Flags().Bool("txt", false, "print the unarmored base64 body for a DNS TXT record")

	cmd.AddCommand(generate, importCmd, pin, list, export)
	return cmd
}
