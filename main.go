package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tournevent/xpsrate/internal/server"
	"github.com/tournevent/xpsrate/pkg/shipper"
	"go.uber.org/zap"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "xpsrate",
	Short:   "XPS checkout shipping rate service",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the rate HTTP server",
	RunE:  runServe,
}

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List the eligible services of every shipping method",
	RunE:  runServices,
}

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Calculate rates for a shipment read from a JSON file",
	RunE:  runQuote,
}

func init() {
	servicesCmd.Flags().Bool("refresh", false, "bypass the catalog cache")
	quoteCmd.Flags().StringP("file", "f", "-", "shipment JSON file, - for stdin")
	quoteCmd.Flags().StringSlice("methods", nil, "shipping method IDs, default all")

	rootCmd.AddCommand(serveCmd, servicesCmd, quoteCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	app, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	app.logger.Info("Starting XPS rate service",
		zap.Int("port", app.cfg.Port),
		zap.String("version", app.cfg.Version),
		zap.Strings("methods", app.registry.Names()),
	)

	// Start HTTP server
	srv := server.New(server.Config{Port: app.cfg.Port, Metrics: app.metrics}, app.registry, app.logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runServices(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	app, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	if refresh, _ := cmd.Flags().GetBool("refresh"); refresh {
		for _, err := range app.registry.RefreshAll(ctx) {
			app.logger.Warn("Refresh failed", zap.Error(err))
		}
	}

	type method struct {
		ID       string                    `json:"id"`
		Services []shipper.ShippingService `json:"services"`
	}
	out := make([]method, 0, app.registry.Count())
	for _, s := range app.registry.All() {
		out = append(out, method{ID: s.Name(), Services: s.Services()})
	}
	return writeJSON(cmd.OutOrStdout(), out)
}

func runQuote(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	path, _ := cmd.Flags().GetString("file")
	methods, _ := cmd.Flags().GetStringSlice("methods")

	shipment, err := readShipment(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}

	app, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	result, err := app.registry.CalculateFor(ctx, shipment, methods)
	if err != nil {
		return fmt.Errorf("calculating rates: %w", err)
	}

	errs := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		errs = append(errs, e.Error())
	}
	return writeJSON(cmd.OutOrStdout(), struct {
		Rates  []shipper.Rate `json:"rates"`
		Errors []string       `json:"errors"`
	}{Rates: result.Rates, Errors: errs})
}

func readShipment(stdin io.Reader, path string) (*shipper.Shipment, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening shipment file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var shipment shipper.Shipment
	if err := json.NewDecoder(r).Decode(&shipment); err != nil {
		return nil, fmt.Errorf("decoding shipment: %w", err)
	}
	return &shipment, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
