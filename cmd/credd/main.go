// Command credd serves credential verification over HTTP and gRPC.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	slogcontext "github.com/veqryn/slog-context"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"xdao.co/cred/config"
	"xdao.co/cred/grpcapi"
	"xdao.co/cred/httpapi"
	"xdao.co/cred/model"
)

const (
	defaultHTTPAddr = "127.0.0.1:8080"
	defaultGRPCAddr = "127.0.0.1:7777"
	shutdownTimeout = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credd",
		Short: "Serve credential verification over HTTP and gRPC",
		Long: `credd serves the credential verifier.

HTTP:  POST /v1/verify, POST /v1/decode, GET /v1/keys/{keyId}, POST /v1/hash
gRPC:  xdao.cred.v1.Verifier (Verify, Decode, ResolveKey, HashPayload)

Listen addresses come from the config file "listen" section or the flags.
An empty --grpc disables the gRPC listener.`,
		Args:              cobra.NoArgs,
		RunE:              runServe,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}
	cmd.Flags().String("config", "", "path to a YAML or JSON config file")
	cmd.Flags().String("http", "", "HTTP listen address (default "+defaultHTTPAddr+")")
	cmd.Flags().String("grpc", "", "gRPC listen address (default "+defaultGRPCAddr+")")
	cmd.Flags().String("log-level", "", "log level: debug, info, warn or error (overrides config)")
	cmd.Flags().StringSlice("cors-origin", nil, "allowed CORS origin for the HTTP API, repeatable")
	cmd.Flags().Bool("access-log", false, "write combined access log lines to stderr")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			return err
		}
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if cmd.Flags().Changed("http") {
		cfg.Listen.HTTP, _ = cmd.Flags().GetString("http")
	} else if cfg.Listen.HTTP == "" {
		cfg.Listen.HTTP = defaultHTTPAddr
	}
	if cmd.Flags().Changed("grpc") {
		cfg.Listen.GRPC, _ = cmd.Flags().GetString("grpc")
	} else if cfg.Listen.GRPC == "" {
		cfg.Listen.GRPC = defaultGRPCAddr
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	ctx := slogcontext.NewCtx(cmd.Context(), logger)

	d := &daemon{Config: cfg, Logger: logger}
	d.CORSOrigins, _ = cmd.Flags().GetStringSlice("cors-origin")
	if accessLog, _ := cmd.Flags().GetBool("access-log"); accessLog {
		d.AccessLog = cmd.ErrOrStderr()
	}
	return d.serve(ctx)
}

type daemon struct {
	Config      config.Config
	Logger      *slog.Logger
	CORSOrigins []string
	AccessLog   io.Writer

	// ready, when set, receives the bound addresses once both listeners are open.
	ready func(httpAddr, grpcAddr net.Addr)
}

// serve runs until ctx is cancelled, then shuts both servers down.
func (d *daemon) serve(ctx context.Context) error {
	rt, err := d.Config.Open(ctx)
	if err != nil {
		return err
	}
	svc := model.Service{Verifier: rt.Verifier}

	var lc net.ListenConfig
	httpLis, err := lc.Listen(ctx, "tcp", d.Config.Listen.HTTP)
	if err != nil {
		return err
	}
	api := &httpapi.Server{Service: svc, Logger: d.Logger, AllowedOrigins: d.CORSOrigins, AccessLog: d.AccessLog}
	httpSrv := &http.Server{
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	var (
		grpcLis net.Listener
		grpcSrv *grpc.Server
	)
	if d.Config.Listen.GRPC != "" {
		grpcLis, err = lc.Listen(ctx, "tcp", d.Config.Listen.GRPC)
		if err != nil {
			_ = httpLis.Close()
			return err
		}
		grpcSrv = grpc.NewServer(grpc.UnaryInterceptor(grpcapi.LoggingInterceptor(d.Logger)))
		grpcapi.RegisterVerifierServer(grpcSrv, &grpcapi.Server{Service: svc})
	}

	var grpcAddr net.Addr
	if grpcLis != nil {
		grpcAddr = grpcLis.Addr()
	}
	d.Logger.InfoContext(ctx, "credd listening",
		slog.String("http", httpLis.Addr().String()), slog.Any("grpc", grpcAddr))
	if d.ready != nil {
		d.ready(httpLis.Addr(), grpcAddr)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpSrv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if grpcSrv != nil {
		g.Go(func() error {
			return grpcSrv.Serve(grpcLis)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		d.Logger.InfoContext(ctx, "credd shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if grpcSrv != nil {
			grpcSrv.GracefulStop()
		}
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
