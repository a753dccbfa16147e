package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	slogcontext "github.com/veqryn/slog-context"

	"xdao.co/cred/cred"
	"xdao.co/cred/keys"
)

func newSignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign --type TYPE --version VERSION --key-id KEYID (--key NAME | --key-file FILE) [field...]",
		Short: "Sign fields and print the packed credential URI",
		Long: `Sign fields and print the packed credential URI.

Fields are given positionally, in schema order. An empty argument is an empty
field. TYPE, VERSION and KEYID are upper-cased.`,
		RunE:              runSign,
		DisableAutoGenTag: true,
	}
	cmd.Flags().String("type", "", "credential type")
	cmd.Flags().String("version", "", "credential schema version")
	cmd.Flags().String("key-id", "", "issuer key id, usually a domain publishing the key")
	cmd.Flags().String("key", "", "name of a private key in the key store")
	cmd.Flags().String("key-file", "", "path to a private key PEM (SEC1 or PKCS#8)")
	cmd.MarkFlagsMutuallyExclusive("key", "key-file")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("version")
	_ = cmd.MarkFlagRequired("key-id")
	return cmd
}

func runSign(cmd *cobra.Command, fields []string) error {
	credType, _ := cmd.Flags().GetString("type")
	version, _ := cmd.Flags().GetString("version")
	keyID, _ := cmd.Flags().GetString("key-id")

	priv, err := loadSigningKey(cmd)
	if err != nil {
		return err
	}
	env, err := cred.SignWithKey(credType, version, priv, keyID, fields)
	if err != nil {
		return err
	}
	uri, err := env.Pack()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	slogcontext.FromCtx(ctx).DebugContext(ctx, "signed credential",
		slog.String("type", env.Type), slog.String("key_id", env.KeyID), slog.Int("fields", len(fields)))
	_, err = fmt.Fprintln(cmd.OutOrStdout(), uri)
	return err
}

func loadSigningKey(cmd *cobra.Command) (*keys.PrivateKey, error) {
	if path, _ := cmd.Flags().GetString("key-file"); path != "" {
		text, err := readFileArg(cmd, path)
		if err != nil {
			return nil, err
		}
		return keys.ParsePrivateKeyPEM(text)
	}
	name, _ := cmd.Flags().GetString("key")
	if name == "" {
		return nil, errors.New("one of --key or --key-file is required")
	}
	ks, err := openKeyStore(cmd)
	if err != nil {
		return nil, err
	}
	return ks.LoadPrivate(name)
}
