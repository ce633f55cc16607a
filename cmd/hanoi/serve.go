package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/hanoi"
	httpAdapter "github.com/aretw0/hanoi/pkg/adapters/http"
	redisAdapter "github.com/aretw0/hanoi/pkg/adapters/redis"
	"github.com/aretw0/hanoi/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP control server",
	Long: `Serves the learning engine over HTTP: start/stop/reset, policy and Q-table
inspection, a server-sent event stream and Prometheus metrics. With --redis every
event is also published to Redis pub/sub.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")
		redisAddr, _ := cmd.Flags().GetString("redis")
		withMetrics, _ := cmd.Flags().GetBool("metrics")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var (
			engineOpts  []hanoi.Option
			handlerOpts []httpAdapter.Option
		)

		if withMetrics {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			metrics, err := observability.NewMetrics(reg)
			if err != nil {
				return fmt.Errorf("failed to register metrics: %w", err)
			}
			engineOpts = append(engineOpts, hanoi.WithLifecycleHooks(metrics.Hooks()))
			handlerOpts = append(handlerOpts, httpAdapter.WithMetrics(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
		}

		if redisAddr != "" {
			client := redis.NewClient(&redis.Options{Addr: redisAddr})
			defer client.Close()
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("failed to reach redis at %s: %w", redisAddr, err)
			}
			publisher := redisAdapter.NewPublisher(client)
			defer publisher.Close()
			engineOpts = append(engineOpts, hanoi.WithSink(publisher))
		}

		eng, logger, err := newEngine(cmd, engineOpts...)
		if err != nil {
			return err
		}
		if redisAddr != "" {
			logger.Info("publishing events to redis", "address", redisAddr)
		}

		handlerOpts = append(handlerOpts, httpAdapter.WithLogger(logger))
		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           httpAdapter.NewHandler(ctx, eng, handlerOpts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("starting hanoi server", "address", srv.Addr)
			fmt.Fprintf(cmd.OutOrStdout(), "Starting hanoi server on %s\n", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			eng.StopLearning()

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				return srv.Close()
			}
			fmt.Fprintln(cmd.OutOrStdout(), "hanoi server stopped gracefully")
			return nil
		})
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("redis", "", "Redis address (host:port) to publish events to")
	serveCmd.Flags().Bool("metrics", true, "Expose Prometheus metrics on /metrics")
}
