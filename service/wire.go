package service

import (
	"context"

	"github.com/ocobra/meeting-minutes-sub000/database"
	"github.com/ocobra/meeting-minutes-sub000/diarization"
	"github.com/ocobra/meeting-minutes-sub000/diarization/local"
	"github.com/ocobra/meeting-minutes-sub000/diarization/pyannote"
	"github.com/ocobra/meeting-minutes-sub000/errors"
	"github.com/ocobra/meeting-minutes-sub000/identification"
	"github.com/ocobra/meeting-minutes-sub000/llm"
	"github.com/ocobra/meeting-minutes-sub000/llm/ollama"
	"github.com/ocobra/meeting-minutes-sub000/llm/openai"
	"github.com/ocobra/meeting-minutes-sub000/logger"
	"github.com/ocobra/meeting-minutes-sub000/observability"
	"github.com/ocobra/meeting-minutes-sub000/provider"
	"github.com/ocobra/meeting-minutes-sub000/resource"
	"github.com/ocobra/meeting-minutes-sub000/store"
	"github.com/ocobra/meeting-minutes-sub000/store/gormstore"
	"github.com/ocobra/meeting-minutes-sub000/store/memory"
)

// CloseFunc releases what Build opened.
type CloseFunc func(ctx context.Context) error

// Build opens the store, constructs the configured backends and returns
// a ready Service. The returned CloseFunc stops jobs and closes the store.
func Build(ctx context.Context, cfg Config, log *logger.Logger) (*Service, CloseFunc, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if log == nil {
		log = logger.Nop()
	}

	var (
		deps    = Dependencies{Logger: log}
		closers []func(context.Context) error
	)

	st, db, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	deps.Store = st
	if db != nil {
		deps.Probes = append(deps.Probes, Probe{Provider: db})
		closers = append(closers, func(context.Context) error { return db.Close() })
	}

	deps.Segmenters, err = buildSegmenters(cfg.Backends)
	if err != nil {
		return nil, nil, closeAll(ctx, closers, err)
	}
	if deps.Segmenters.Local != nil {
		deps.Probes = append(deps.Probes, Probe{Provider: deps.Segmenters.Local})
	}
	if deps.Segmenters.External != nil {
		deps.Probes = append(deps.Probes, Probe{Provider: deps.Segmenters.External, Optional: true})
	}

	localLLM, externalLLM, err := buildLLMs(cfg.Backends)
	if err != nil {
		return nil, nil, closeAll(ctx, closers, err)
	}
	if localLLM != nil {
		deps.Identifiers.Local = identification.NewLLMIdentifier(localLLM, cfg.Backends.Identification)
		deps.Probes = append(deps.Probes, Probe{Provider: deps.Identifiers.Local, Optional: true})
		closers = append(closers, localLLM.Close)
	}
	if externalLLM != nil {
		deps.Identifiers.External = identification.NewLLMIdentifier(externalLLM, cfg.Backends.Identification)
		deps.Probes = append(deps.Probes, Probe{Provider: deps.Identifiers.External, Optional: true})
		closers = append(closers, externalLLM.Close)
	}

	deps.Monitor = resource.NewMonitor(cfg.Resource, nil, log)
	metrics, err := observability.NewMetrics(observability.Meter(cfg.Name))
	if err != nil {
		log.Warn("metrics disabled", logger.Fields(logger.FieldError, err.Error()))
		metrics = observability.NopMetrics()
	}
	deps.Metrics = metrics

	svc, err := New(cfg, deps)
	if err != nil {
		return nil, nil, closeAll(ctx, closers, err)
	}

	closeFn := func(ctx context.Context) error {
		return closeAll(ctx, closers, svc.Close(ctx))
	}
	log.Info("diarizer service built", logger.Fields(
		"store", cfg.Store.Driver,
		"local_segmenter", deps.Segmenters.Local != nil,
		"external_segmenter", deps.Segmenters.External != nil,
		"local_identifier", deps.Identifiers.Local != nil,
		"external_identifier", deps.Identifiers.External != nil,
	))
	return svc, closeFn, nil
}

func openStore(ctx context.Context, cfg Config, log *logger.Logger) (store.Store, *database.DB, error) {
	if cfg.Store.Driver == StoreMemory {
		return memory.New(), nil, nil
	}
	db, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return nil, nil, err
	}
	st, err := gormstore.New(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return st, db, nil
}

// buildSegmenters creates the segmenters named in cfg through the
// provider registry.
func buildSegmenters(cfg BackendsConfig) (diarization.Backends[diarization.Segmenter], error) {
	var out diarization.Backends[diarization.Segmenter]

	reg := provider.NewRegistry[diarization.Segmenter]()
	reg.RegisterFactory(local.ProviderName, local.Factory())
	reg.RegisterFactory(pyannote.ProviderName, pyannote.Factory())

	if cfg.Local.Binary != "" {
		seg, err := reg.Create(local.ProviderName, map[string]any{
			"binary":  cfg.Local.Binary,
			"args":    cfg.Local.Args,
			"env":     cfg.Local.Env,
			"timeout": cfg.Local.Timeout,
		})
		if err != nil {
			return out, errors.InvalidInput("backends.local", err.Error())
		}
		out.Local = seg
	}
	if cfg.Pyannote.BaseURL != "" {
		seg, err := reg.Create(pyannote.ProviderName, map[string]any{
			"base_url": cfg.Pyannote.BaseURL,
			"timeout":  cfg.Pyannote.Timeout,
			"api_key":  cfg.Pyannote.APIKey,
		})
		if err != nil {
			return out, errors.InvalidInput("backends.pyannote", err.Error())
		}
		out.External = seg
	}
	return out, nil
}

func buildLLMs(cfg BackendsConfig) (localLLM, externalLLM *llm.Adapter, err error) {
	if cfg.LocalLLM.Enabled() {
		if localLLM, err = newLLM(cfg.LocalLLM, ollama.DialectName); err != nil {
			return nil, nil, errors.InvalidInput("backends.local_llm", err.Error())
		}
	}
	if cfg.ExternalLLM.Enabled() {
		if externalLLM, err = newLLM(cfg.ExternalLLM, openai.DialectName); err != nil {
			return nil, nil, errors.InvalidInput("backends.external_llm", err.Error())
		}
	}
	return localLLM, externalLLM, nil
}

func newLLM(cfg llm.Config, fallback string) (*llm.Adapter, error) {
	if cfg.Dialect == "" {
		cfg.Dialect = fallback
	}
	switch cfg.Dialect {
	case ollama.DialectName:
		return ollama.New(cfg)
	case openai.DialectName:
		return openai.New(cfg)
	}
	return llm.New(cfg)
}

// closeAll runs closers in reverse order and joins their errors with err.
func closeAll(ctx context.Context, closers []func(context.Context) error, err error) error {
	errs := []error{err}
	for i := len(closers) - 1; i >= 0; i-- {
		errs = append(errs, closers[i](ctx))
	}
	return errors.Join(errs...)
}
