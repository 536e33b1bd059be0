// Command vol2bird-server exposes the binding over gRPC, with Prometheus
// metrics and archive debug pages on a separate HTTP listener.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"

	"github.com/bmvandoren/vol2bird/internal/bindingrpc"
	"github.com/bmvandoren/vol2bird/internal/config"
	"github.com/bmvandoren/vol2bird/internal/db"
	"github.com/bmvandoren/vol2bird/internal/engine/replay"
	"github.com/bmvandoren/vol2bird/internal/fsutil"
	"github.com/bmvandoren/vol2bird/internal/monitoring"
	"github.com/bmvandoren/vol2bird/internal/version"
)

type serverOptions struct {
	grpcListen string
	httpListen string
	configPath string
	dbPath     string
	root       string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		log.Fatalf("vol2bird-server: %v", err)
	}
}

func parseFlags(args []string, stderr io.Writer) (*serverOptions, error) {
	o := &serverOptions{}
	fs := flag.NewFlagSet("vol2bird-server", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.grpcListen, "listen", ":50051", "gRPC listen address")
	fs.StringVar(&o.httpListen, "http", ":8080", "HTTP listen address for /metrics and /debug/")
	fs.StringVar(&o.configPath, "config", os.Getenv(config.EnvConfigPath), "engine options file applied to every session")
	fs.StringVar(&o.dbPath, "db", "", "archive computed profiles in this sqlite database")
	fs.StringVar(&o.root, "root", "", "only open volumes inside this directory (relative paths resolve against it)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return o, nil
}

// run serves until ctx is cancelled.
func run(ctx context.Context, args []string, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	log.Printf("vol2bird-server %s", version.String())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.NewMetrics(reg)

	srvOpts := []bindingrpc.Option{bindingrpc.WithMetrics(metrics)}
	if o.root != "" {
		srvOpts = append(srvOpts, bindingrpc.WithRoot(o.root))
	}
	if o.configPath != "" {
		cfg, err := config.Load(o.configPath)
		if err != nil {
			return err
		}
		srvOpts = append(srvOpts, bindingrpc.WithConfig(cfg))
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	if o.dbPath != "" {
		archive, err := db.NewDB(o.dbPath, db.WithMetrics(metrics))
		if err != nil {
			return fmt.Errorf("failed to open archive: %w", err)
		}
		defer archive.Close()
		if err := archive.AttachAdminRoutes(mux); err != nil {
			return err
		}
		srvOpts = append(srvOpts, bindingrpc.WithArchive(archive))
	}

	binding := bindingrpc.NewServer(replay.New(), fsutil.OSFileSystem{}, srvOpts...)
	defer binding.Shutdown()

	lis, err := net.Listen("tcp", o.grpcListen)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	gs := grpc.NewServer()
	bindingrpc.Register(gs, binding)

	httpServer := &http.Server{
		Addr:              o.httpListen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		monitoring.Logf("[rpc] listening on %s", lis.Addr())
		if err := gs.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		monitoring.Logf("[http] listening on %s", o.httpListen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("[http] shutdown: %v", err)
	}
	gs.GracefulStop()
	wg.Wait()
	return runErr
}
