package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"os/signal"
	"syscall"
	"time"

	"github.com/BigDEM0N/net-work-lab/config"
	"github.com/BigDEM0N/net-work-lab/device/tun"
	"github.com/BigDEM0N/net-work-lab/log"
	"github.com/BigDEM0N/net-work-lab/metrics"
	"github.com/BigDEM0N/net-work-lab/stack"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Create the TUN interface and run the stack",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.ParseRawConfig(path)
		if err != nil {
			return err
		}
		log.UpdateLogger(c.ParseLog())
		defer log.CloseLogger()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return run(ctx, c)
	},
}

func run(ctx context.Context, c *config.Config) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	dev, err := tun.Open(tun.Config{
		Name:   c.Interface.Name,
		Prefix: c.Interface.Prefix,
		Peer:   c.Interface.Peer,
		MTU:    c.Interface.MTU,
	})
	if err != nil {
		log.Error("[Run] failed to open device", zap.Error(err))
		return err
	}

	s, err := stack.New(c, dev, reg)
	if err != nil {
		dev.Close()
		return err
	}

	var srv *http.Server
	if c.Metrics.Enable {
		srv = serveMetrics(c.Metrics, reg)
	}

	err = s.Run(ctx)
	log.Info("[EXIT] Closing")

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("[EXIT] timeout, force closing", zap.Error(err))
		}
	}
	log.Info("[EXIT] Bye")
	return err
}

func serveMetrics(c config.Metrics, g prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(c.Path, metrics.Handler(g))
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)

	srv := &http.Server{
		Addr:              c.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("[Metrics] listening", zap.String("addr", c.Listen), zap.String("path", c.Path))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("[Metrics] server stopped", zap.Error(err))
		}
	}()
	return srv
}
