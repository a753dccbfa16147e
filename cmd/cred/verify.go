package main

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	slogcontext "github.com/veqryn/slog-context"
	"golang.org/x/sync/errgroup"

	"xdao.co/cred/model"
)

const flagConcurrency = "concurrency"

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify [uri...]",
		Short: "Verify one or more credential URIs",
		Long: `Verify one or more credential URIs.

URIs are read from the arguments, or one per line from stdin when none are
given. One result line is printed per URI, in input order:

	OK   <TYPE>:<VERSION> <KEYID> <source>
	FAIL <uri> <code> <message>

The command fails if any URI does not verify.`,
		RunE:              runVerify,
		DisableAutoGenTag: true,
	}
	cmd.Flags().String("public-key", "", "verify against this public key PEM instead of resolving KEYID")
	cmd.Flags().Int(flagConcurrency, 8, "maximum number of URIs verified in parallel")
	return cmd
}

func runVerify(cmd *cobra.Command, args []string) error {
	uris := args
	if len(uris) == 0 {
		if path, _ := cmd.Flags().GetString("public-key"); path == "-" {
			return errors.New("--public-key - needs the URIs as arguments; stdin cannot carry both")
		}
		var err error
		if uris, err = readLines(cmd); err != nil {
			return err
		}
	}
	if len(uris) == 0 {
		return fmt.Errorf("no credential URIs given")
	}

	svc, pubPEM, err := verifyService(cmd)
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt(flagConcurrency)

	ctx := cmd.Context()
	logger := slogcontext.FromCtx(ctx)
	start := time.Now()

	results := make([]string, len(uris))
	failed := make([]bool, len(uris))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, uri := range uris {
		i, uri := i, uri
		g.Go(func() error {
			resp, err := svc.Verify(gctx, model.VerifyRequest{URI: uri, PublicKey: pubPEM})
			if err != nil {
				ce := model.FromError(err)
				failed[i] = true
				results[i] = fmt.Sprintf("FAIL %s %s %s", uri, ce.Code, ce.Message)
				return nil
			}
			results[i] = fmt.Sprintf("OK   %s:%s %s %s", resp.Type, resp.Version, resp.Key.KeyID, sourceLabel(resp.Key))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	nFailed := 0
	for i, line := range results {
		if failed[i] {
			nFailed++
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	logger.DebugContext(ctx, "verified credentials",
		slog.Int("total", len(uris)), slog.Int("failed", nFailed), elapsed(start))
	if nFailed > 0 {
		return errFailed
	}
	return nil
}

func sourceLabel(k model.KeyRecord) string {
	if k.Source == "" {
		return "supplied"
	}
	return k.Source
}

// verifyService opens the runtime unless --public-key makes resolution unnecessary.
func verifyService(cmd *cobra.Command) (model.Service, string, error) {
	var pubPEM string
	if path, _ := cmd.Flags().GetString("public-key"); path != "" {
		text, err := readFileArg(cmd, path)
		if err != nil {
			return model.Service{}, "", err
		}
		pubPEM = text
	}
	rt, err := openRuntime(cmd)
	if err != nil {
		return model.Service{}, "", err
	}
	return model.Service{Verifier: rt.Verifier}, pubPEM, nil
}

func readLines(cmd *cobra.Command) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(cmd.InOrStdin())
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}

func newDecodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode uri",
		Short: "Verify a credential and print its schema-mapped record as JSON",
		Long: `Verify a credential and print its schema-mapped record as JSON.

The schema is looked up as <type>.<version>.fields in --schema-dir, then in
the schema repository. Without a schema, fields are named "Undefined NN".
The payload is never decoded unless the signature verifies.`,
		Args:              cobra.ExactArgs(1),
		RunE:              runDecode,
		DisableAutoGenTag: true,
	}
	cmd.Flags().String("public-key", "", "verify against this public key PEM instead of resolving KEYID")
	return cmd
}

func runDecode(cmd *cobra.Command, args []string) error {
	svc, pubPEM, err := verifyService(cmd)
	if err != nil {
		return err
	}
	resp, err := svc.Decode(cmd.Context(), model.VerifyRequest{URI: args[0], PublicKey: pubPEM})
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), resp)
}

func newResolveKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "resolve-key keyid",
		Short:             "Resolve an issuer public key and print it",
		Args:              cobra.ExactArgs(1),
		RunE:              runResolveKey,
		DisableAutoGenTag: true,
	}
	cmd.Flags().Bool("json", false, "print the key record as JSON instead of PEM")
	cmd.Flags().String("pin", "", "also pin the resolved key in the key store under this name")
	return cmd
}

func runResolveKey(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	svc := model.Service{Verifier: rt.Verifier}
	rec, err := svc.ResolveKey(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if name, _ := cmd.Flags().GetString("pin"); name != "" {
		ks, err := openKeyStore(cmd)
		if err != nil {
			return err
		}
		if _, err := ks.Pin(name, rec.PEM, false); err != nil {
			return err
		}
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(cmd.OutOrStdout(), rec)
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), rec.PEM)
	return err
}
