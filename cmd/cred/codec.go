package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"xdao.co/cred/cred"
	"xdao.co/cred/schema"
)

func newHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash [field...]",
		Short: "Print the base32 SHA-256 fingerprint of a field list",
		Long: `Print the base32 SHA-256 fingerprint of a field list.

Fields are upper-cased and joined with the record separator (0x1E) before
hashing; this is independent of the signed payload encoding.`,
		RunE: func(cmd *cobra.Command, fields []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), cred.HashPayload(fields))
			return err
		},
		DisableAutoGenTag: true,
	}
}

func newPackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pack type version signature keyid payload",
		Short: "Join envelope parts into a credential URI",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			uri, err := cred.Pack(append([]string{cred.SchemaTag}, args...))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), uri)
			return err
		},
		DisableAutoGenTag: true,
	}
}

func newUnpackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unpack uri",
		Short: "Split a credential URI into its parts without verifying it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cred.ParseEnvelope(args[0])
			if err != nil {
				return err
			}
			fields, err := env.Fields()
			if err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"type":      env.Type,
					"version":   env.Version,
					"signature": env.Signature,
					"keyId":     env.KeyID,
					"payload":   env.Payload,
					"fields":    fields,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "type:      %s\n", env.Type)
			fmt.Fprintf(out, "version:   %s\n", env.Version)
			fmt.Fprintf(out, "signature: %s\n", env.Signature)
			fmt.Fprintf(out, "keyId:     %s\n", env.KeyID)
			for i, f := range fields {
				fmt.Fprintf(out, "field %02d:  %s\n", i+1, f)
			}
			return nil
		},
		DisableAutoGenTag: true,
	}
	cmd.Flags().Bool("json", false, "print JSON")
	return cmd
}

func newSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "schema",
		Short:             "Inspect and apply field schemas",
		DisableAutoGenTag: true,
	}

	parse := &cobra.Command{
		Use:   "parse file",
		Short: "Validate a schema file and print it normalized",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readFileArg(cmd, args[0])
			if err != nil {
				return err
			}
			nodes, err := schema.Parse(text)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), schema.String(nodes))
			return err
		},
		DisableAutoGenTag: true,
	}

	show := &cobra.Command{
		Use:   "show type version",
		Short: "Fetch the schema for a credential type and print it normalized",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			nodes, err := schema.Load(cmd.Context(), rt.Schemas, args[0], args[1])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), schema.String(nodes))
			return err
		},
		DisableAutoGenTag: true,
	}

	mapCmd := &cobra.Command{
		Use:   "map file [field...]",
		Short: "Map unsigned fields onto a schema file and print the record as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readFileArg(cmd, args[0])
			if err != nil {
				return err
			}
			nodes, err := schema.Parse(text)
			if err != nil {
				return err
			}
			fields := args[1:]
			if len(fields) == 1 && strings.Contains(fields[0], cred.FieldSeparator) {
				if fields, err = cred.ParsePayload(fields[0]); err != nil {
					return err
				}
			}
			rec, err := schema.Map(fields, nodes)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), rec)
		},
		DisableAutoGenTag: true,
	}

	cmd.AddCommand(parse, show, mapCmd)
	return cmd
}
