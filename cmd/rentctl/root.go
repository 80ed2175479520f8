package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"rentcore/internal/blob"
	"rentcore/internal/config"
	"rentcore/internal/core"
	"rentcore/pkg/domain"
)

// app holds what a single rentctl invocation needs.
type app struct {
	configPath  string
	showMetrics bool

	cfg      config.Config
	store    core.PersistentStore
	svc      *core.Service
	registry *prometheus.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "rentctl",
		Short:         "Manage properties, tenants, contracts, payments and tickets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context(), cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().BoolVar(&a.showMetrics, "metrics", false, "print operation metrics to stderr on exit")

	root.AddCommand(
		propertyCmd(a),
		ownerCmd(a),
		tenantCmd(a),
		contractorCmd(a),
		contractCmd(a),
		paymentCmd(a),
		ticketCmd(a),
		reportCmd(a),
		notificationsCmd(a),
	)
	closeAfterRun(root, a)
	return root
}

// closeAfterRun wraps every runnable command so the store is closed whether
// or not the command failed; cobra skips post-run hooks after an error.
func closeAfterRun(c *cobra.Command, a *app) {
	if run := c.RunE; run != nil {
		c.RunE = func(cmd *cobra.Command, args []string) error {
			err := run(cmd, args)
			if cerr := a.close(cmd.ErrOrStderr()); cerr != nil {
				return errors.Join(err, cerr)
			}
			return err
		}
	}
	for _, sub := range c.Commands() {
		closeAfterRun(sub, a)
	}
}

func (a *app) open(ctx context.Context, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	logger := config.NewLogger(cfg.Log, stderr)

	store, err := core.OpenPersistentStore(ctx, core.StorageConfig{
		Driver:         core.StorageDriver(cfg.Storage.Driver),
		SQLitePath:     cfg.Storage.SQLitePath,
		PostgresDSN:    cfg.Storage.PostgresDSN,
		BadgerPath:     cfg.Storage.BadgerPath,
		BadgerInMemory: cfg.Storage.BadgerInMemory,
		Logger:         logger,
	}, core.NewDefaultRulesEngine())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	blobs, err := blob.Open(ctx, blob.Config{
		Driver:    blob.Driver(cfg.Blob.Driver),
		FSRoot:    cfg.Blob.FSRoot,
		FSBaseURL: cfg.Blob.FSBaseURL,
		S3: blob.S3Config{
			Region:          cfg.Blob.S3.Region,
			Bucket:          cfg.Blob.S3.Bucket,
			Endpoint:        cfg.Blob.S3.Endpoint,
			AccessKeyID:     cfg.Blob.S3.AccessKeyID,
			SecretAccessKey: cfg.Blob.S3.SecretAccessKey,
			PathStyle:       cfg.Blob.S3.PathStyle,
			PublicBaseURL:   cfg.Blob.S3.PublicBaseURL,
		},
	})
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("open blob store: %w", err)
	}

	a.registry = prometheus.NewRegistry()
	metrics, err := core.NewPrometheusMetricsRecorder(a.registry)
	if err != nil {
		_ = store.Close()
		return err
	}
	a.store = store
	a.svc = core.NewService(store,
		core.WithLogger(logger),
		core.WithAuditRecorder(core.NewSlogAuditRecorder(logger)),
		core.WithMetricsRecorder(metrics),
		core.WithTracer(core.NewOTelTracer(nil)),
		core.WithBlobStore(blobs),
		core.WithDefaultUrgency(domain.Urgency(cfg.Tickets.DefaultUrgency)),
		core.WithSingleOwner(cfg.Deployment.SingleOwner),
	)
	return nil
}

func (a *app) close(stderr io.Writer) error {
	if a.showMetrics && a.registry != nil {
		families, err := a.registry.Gather()
		if err != nil {
			return fmt.Errorf("gather metrics: %w", err)
		}
		for _, mf := range families {
			if _, err := expfmt.MetricFamilyToText(stderr, mf); err != nil {
				return fmt.Errorf("write metrics: %w", err)
			}
		}
	}
	if a.store == nil {
		return nil
	}
	store := a.store
	a.store = nil
	return store.Close()
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitCode maps domain failures to distinct process exit codes.
func exitCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return 2
	case errors.Is(err, domain.ErrNotFound):
		return 3
	case errors.Is(err, domain.ErrConflict):
		return 4
	case errors.Is(err, domain.ErrUnauthorized):
		return 5
	}
	return 1
}
