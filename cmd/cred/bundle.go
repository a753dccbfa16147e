package main

import (
	"errors"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"
	slogcontext "github.com/veqryn/slog-context"

	"xdao.co/cred/cidutil"
	"xdao.co/cred/config"
	"xdao.co/cred/keybundle"
	"xdao.co/cred/resolver"
	"xdao.co/cred/storage"
)

func newBundleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Pin resolved keys into content-addressed bundles for offline verification",
		Long: `Pin resolved keys into content-addressed bundles for offline verification.

Bundles are stored in the --cas-dir stores. List a bundle CID under
"bundles" in the config file to preload its keys into the resolver cache.`,
		DisableAutoGenTag: true,
	}

	create := &cobra.Command{
		Use:   "create keyid...",
		Short: "Resolve keys, store them as a bundle and print the bundle CID",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openBundleRuntime(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			records := make([]resolver.KeyRecord, 0, len(args))
			for _, keyID := range args {
				rec, err := rt.Resolver.Resolve(ctx, keyID)
				if err != nil {
					return err
				}
				records = append(records, rec)
			}
			id, err := keybundle.Store(rt.CAS, records)
			if err != nil {
				return err
			}
			slogcontext.FromCtx(ctx).InfoContext(ctx, "stored key bundle",
				slog.String("cid", id.String()), slog.Int("keys", len(records)))
			_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
			return err
		},
		DisableAutoGenTag: true,
	}

	show := &cobra.Command{
		Use:   "show cid",
		Short: "List the keys in a stored bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cidutil.Parse(args[0])
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cas, err := requireCAS(cfg)
			if err != nil {
				return err
			}
			b, err := keybundle.Load(cas, id)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEYID\tSOURCE\tORIGIN")
			for _, e := range b.Keys {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.KeyID, e.Source, e.Origin)
			}
			return tw.Flush()
		},
		DisableAutoGenTag: true,
	}

	cmd.AddCommand(create, show)
	return cmd
}

var errNoCAS = errors.New("no bundle store configured (set cas_dirs or --cas-dir)")

func requireCAS(cfg config.Config) (storage.CAS, error) {
	cas, err := cfg.OpenCAS()
	if err != nil {
		return nil, err
	}
	if cas == nil {
		return nil, errNoCAS
	}
	return cas, nil
}

func openBundleRuntime(cmd *cobra.Command) (*config.Runtime, error) {
	rt, err := openRuntime(cmd)
	if err != nil {
		return nil, err
	}
	if rt.CAS == nil {
		return nil, errNoCAS
	}
	return rt, nil
}
