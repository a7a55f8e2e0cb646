package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/vlei-verifier-client/internal/config"
	"github.com/samvad-hq/vlei-verifier-client/internal/logger"
	"github.com/samvad-hq/vlei-verifier-client/internal/storage"
	"github.com/samvad-hq/vlei-verifier-client/pkg/publishers"
	"github.com/samvad-hq/vlei-verifier-client/pkg/verifier"
)

// Call is one verifier operation executed by the Runner.
type Call func(ctx context.Context, client *verifier.Client) (*verifier.Response, error)

// Runner wires the verifier client, its route cache and the result publishers.
type Runner struct {
	cfg    *config.Config
	client *verifier.Client
	store  storage.Store
	fanout *publishers.Fanout
	log    logger.Logger
}

// NewRunner builds a runner from config.
func NewRunner(ctx context.Context, cfg *config.Config, log logger.Logger) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := storage.NewStore(cfg.RouteCache, cfg.BBoltPath, storage.Options{
		RouteTTL:        cfg.RouteCacheTTL,
		CleanupInterval: cfg.RouteCacheCleanup,
	})
	if err != nil {
		return nil, fmt.Errorf("init route cache: %w", err)
	}

	opts := []verifier.Option{
		verifier.WithLogger(log),
		verifier.WithTimeout(cfg.RequestTimeout),
	}
	if storage.Enabled(store) {
		opts = append(opts, verifier.WithRouteCache(store))
		log.InfoObj("route cache initialized", "route_cache_config", map[string]any{
			"type":        cfg.RouteCache,
			"path":        cfg.BBoltPath,
			"ttl_seconds": int(cfg.RouteCacheTTL.Seconds()),
		})
	}

	client, err := verifier.NewClient(cfg.VerifierBaseURL, opts...)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init verifier client: %w", err)
	}

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &Runner{
		cfg:    cfg,
		client: client,
		store:  store,
		fanout: fanout,
		log:    log,
	}, nil
}

func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	if cfg.PublishersFile == "" {
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabled := publisherReg.Enabled()
	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubClients), nil
}

// Client exposes the configured verifier client.
func (r *Runner) Client() *verifier.Client { return r.client }

// Run executes call, logs the outcome and publishes it to every configured sink.
// Publishing failures are logged and never change the returned result.
func (r *Runner) Run(ctx context.Context, operation, identifier string, call Call) (*verifier.Response, error) {
	if r == nil || r.client == nil {
		return nil, fmt.Errorf("runner is not initialized")
	}

	start := time.Now()
	res, err := call(ctx, r.client)
	if err != nil {
		r.log.ErrorObj("verifier operation failed", "operation_error", map[string]any{
			"operation":  operation,
			"identifier": identifier,
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("%s: %w", operation, err)
	}

	r.log.InfoObj("verifier operation completed", "operation_result", map[string]any{
		"operation":  operation,
		"identifier": identifier,
		"code":       res.Code,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})

	if r.fanout.Size() > 0 {
		delivered, perr := r.fanout.Publish(ctx, publishers.NewEvent(operation, identifier, res))
		if perr != nil {
			r.log.WarnObj("publishing verifier result failed", "publish_error", map[string]any{
				"operation": operation,
				"delivered": delivered,
				"error":     perr.Error(),
			})
		}
	}
	return res, nil
}

// Close releases publishers and the route cache.
func (r *Runner) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if err := r.fanout.Close(); err != nil {
		errs = append(errs, err)
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close route cache: %w", err))
		}
	}
	return errors.Join(errs...)
}
