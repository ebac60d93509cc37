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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arloliu/go-kotel/boiler"
	"github.com/arloliu/go-kotel/internal/observability"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Polls the boiler and prints every status until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
		quiet := viper.GetBool("quiet")

		s, err := openSession(cmd,
			boiler.WithStatusInterval(viper.GetDuration("status-interval")),
			boiler.WithStatsInterval(viper.GetDuration("stats-interval")),
			boiler.WithStatusHandler(func(st *boiler.Status) {
				if !quiet {
					fmt.Printf("%s  %-9s out %-8s in %-8s fan %3d%%  pump %-3s  tray %d kg\n",
						st.Time.Format("15:04:05"), st.Mode, st.Output, st.Input, st.Fan, onOff(st.Pump), st.TrayFillKg)
				}
			}),
			boiler.WithErrorHandler(func(op string, err error) {
				fmt.Fprintf(os.Stderr, "%s: %v\n", op, err)
			}),
		)
		if err != nil {
			return err
		}
		defer s.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if addr := viper.GetString("metrics-addr"); addr != "" {
			srv, err := serveMetrics(addr, s)
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}

		if err := s.ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}

		return nil
	},
}

func init() {
	watchCmd.Flags().Duration("status-interval", time.Second, wrapString("Status polling period"))
	watchCmd.Flags().Duration("stats-interval", 30*time.Second, wrapString("Statistics polling period"))
	watchCmd.Flags().String("metrics-addr", "", wrapString("Serve prometheus metrics on this address, e.g. :9108"))
	watchCmd.Flags().Bool("quiet", false, wrapString("Don't print the status lines"))
}

func serveMetrics(addr string, s *session) (*http.Server, error) {
	reg := prometheus.NewRegistry()
	client := s.ctrl.Client()
	if err := observability.RegisterClientMetrics(reg, client.Metrics(), client.State); err != nil {
		return nil, err
	}
	if err := observability.RegisterStatus(reg, s.ctrl.LastStatus); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()

	return srv, nil
}
