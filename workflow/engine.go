// Copyright 2026 The Authzee Authors
// SPDX-License-Identifier: Apache-2.0

// Package workflow implements C5: the common prelude shared by the
// Audit and Authorize workflows, and the two workflows themselves
// (spec §4.5). Engine is the single entry point a host constructs once
// and calls repeatedly with different definitions/grants/requests.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/authzee/authzee/definition"
	"github.com/authzee/authzee/internal/config"
	"github.com/authzee/authzee/internal/logging"
	"github.com/authzee/authzee/jsonval"
	"github.com/authzee/authzee/model"
	"github.com/authzee/authzee/schemagen"
	"github.com/authzee/authzee/validate"
)

// LoggingOptions is the koanf-tagged, config-loadable counterpart to
// logging.Config (which carries no koanf tags of its own, matching the
// teacher's own split between a generic logging.Config and a
// host-specific, tagged wrapper around it).
type LoggingOptions struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `koanf:"level"`
	// Format is the log output format (json, text).
	Format string `koanf:"format"`
	// AddSource includes source file and line number in log entries.
	AddSource bool `koanf:"add_source"`
}

// ToLoggingConfig converts to the logging package's own config type.
func (o LoggingOptions) ToLoggingConfig() logging.Config {
	return logging.Config{Level: o.Level, Format: o.Format, AddSource: o.AddSource}
}

// Validate checks that Level and Format are one of the values
// logging.New understands.
func (o LoggingOptions) Validate(path *config.Path) config.ValidationErrors {
	var errs config.ValidationErrors
	if err := config.MustBeOneOf(path.Child("level"), o.Level, []string{"debug", "info", "warn", "error"}); err != nil {
		errs = append(errs, err)
	}
	if err := config.MustBeOneOf(path.Child("format"), o.Format, []string{"json", "text"}); err != nil {
		errs = append(errs, err)
	}
	return errs
}

// EngineOptions configures an Engine. Zero value is usable but
// DefaultEngineOptions is the recommended starting point; LoadEngineOptions
// loads one from the environment or a file via internal/config.
type EngineOptions struct {
	Logging LoggingOptions `koanf:"logging"`

	// SchemaCacheEnabled, when true, memoizes the grant/request/error
	// schemas generated by C2 between calls that share identical
	// identity and resource definitions (by content), invalidating the
	// cache whenever the definitions change (spec §5).
	SchemaCacheEnabled bool `koanf:"schemacacheenabled"`

	// QueryCacheEnabled also turns on the generated-schema cache above:
	// that cache is used whenever either flag is true, so the two are
	// not tunable independently. Neither flag reaches the compiled-form
	// caches inside the injected adapters (jsonschemax, jmespathx),
	// which always cache.
	QueryCacheEnabled bool `koanf:"querycacheenabled"`

	// ShortCircuitDenies selects between the two Authorize strategies
	// spec.md §9 leaves open: true stops at the first applicable deny
	// grant (pass 1 of §4.5); false evaluates every deny grant in the
	// input set before deciding, so the accumulated error bundle
	// reflects every deny grant's side effects, not only the first.
	// Either choice is spec-conformant; default true.
	ShortCircuitDenies bool `koanf:"shortcircuitdenies"`

	// MetricsEnabled registers Prometheus counters/histograms for
	// workflow call counts, halts, and Authorize outcomes on a
	// registry private to the Engine (see Engine.MetricsHandler).
	MetricsEnabled bool `koanf:"metricsenabled"`
}

// DefaultEngineOptions returns the options a host gets when it does
// not load its own via internal/config.
func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		Logging:            LoggingOptions{Level: "info", Format: "json"},
		SchemaCacheEnabled: true,
		QueryCacheEnabled:  true,
		ShortCircuitDenies: true,
		MetricsEnabled:     false,
	}
}

// Validate implements internal/config.Validator.
func (o EngineOptions) Validate() error {
	errs := o.Logging.Validate(config.NewPath("logging"))
	return errs.OrNil()
}

// Engine is the workflow entry point: it owns the two injected
// collaborators (spec §1, §6) and the generated-schema cache, and
// exposes Audit, Authorize, and the supplemented Explain.
type Engine struct {
	validator model.SchemaValidator
	searcher  model.Searcher
	logger    *slog.Logger
	options   EngineOptions
	metrics   *metrics

	mu          sync.Mutex
	schemaCache map[string]generatedSchemas
}

type generatedSchemas struct {
	grant   any
	request any
	errorS  any
}

// NewEngine constructs an Engine. validator and searcher must not be
// nil; they are the host-supplied adapters for the JSON Schema and
// JMESPath contracts (model.SchemaValidator, model.Searcher).
func NewEngine(validator model.SchemaValidator, searcher model.Searcher, opts EngineOptions) (*Engine, error) {
	if validator == nil {
		return nil, errors.New("workflow: validator must not be nil")
	}
	if searcher == nil {
		return nil, errors.New("workflow: searcher must not be nil")
	}
	return &Engine{
		validator:   validator,
		searcher:    searcher,
		logger:      logging.New(opts.Logging.ToLoggingConfig()),
		options:     opts,
		metrics:     newMetrics(opts.MetricsEnabled),
		schemaCache: make(map[string]generatedSchemas),
	}, nil
}

// loggerFrom prefers a logger attached to ctx (via logging.NewContext)
// over the Engine's own, falling back to the Engine's when ctx carries
// none, so a host can correlate one workflow call's log lines with its
// own request-scoped logger.
func (e *Engine) loggerFrom(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return e.logger
	}
	if logger := logging.FromContext(ctx); logger != slog.Default() {
		return logger
	}
	return e.logger
}

// schemasFor returns the generated grant/request/error schemas for the
// given definitions, consulting the content-addressed cache when
// either cache option is enabled (spec §5).
func (e *Engine) schemasFor(ids []model.IdentityDef, rds []model.ResourceDef) generatedSchemas {
	cacheable := e.options.SchemaCacheEnabled || e.options.QueryCacheEnabled
	var key string
	if cacheable {
		key = jsonval.ContentHash(map[string]any{"identity_defs": ids, "resource_defs": rds})

		e.mu.Lock()
		cached, ok := e.schemaCache[key]
		e.mu.Unlock()
		if ok {
			return cached
		}
	}

	generated := generatedSchemas{
		grant:   schemagen.GrantSchema(rds),
		request: schemagen.RequestSchema(ids, rds),
		errorS:  schemagen.ErrorSchema(rds),
	}

	if cacheable {
		e.mu.Lock()
		e.schemaCache[key] = generated
		e.mu.Unlock()
	}
	return generated
}

// prelude runs C1 through C3 (spec §4.5, "Common prelude"). ok=false
// means a caller should return immediately with the accompanying
// errors and completed=false. Once C1 has passed, the generated
// grant/request schemas are returned even when ok=false, so a partial
// Audit/Authorize response can embed them if a caller chooses to; on a
// C1 failure the schemas are not generated and are returned empty.
func (e *Engine) prelude(
	ids []model.IdentityDef,
	rds []model.ResourceDef,
	grants []model.Grant,
	req model.Request,
) (schemas generatedSchemas, bundle model.ErrorBundle, ok bool, err error) {
	bundle = model.NewErrorBundle()

	defErrs, err := definition.Validate(e.validator, ids, rds)
	if err != nil {
		return schemas, bundle, false, fmt.Errorf("workflow: definition validation: %w", err)
	}
	if len(defErrs) > 0 {
		for _, entry := range defErrs {
			bundle.Append(entry)
		}
		return schemas, bundle, false, nil
	}

	schemas = e.schemasFor(ids, rds)

	grantErrs, err := validate.Grants(e.validator, schemas.grant, grants)
	if err != nil {
		return schemas, bundle, false, fmt.Errorf("workflow: grant validation: %w", err)
	}
	if len(grantErrs) > 0 {
		for _, entry := range grantErrs {
			bundle.Append(entry)
		}
		return schemas, bundle, false, nil
	}

	reqErrs, err := validate.Request(e.validator, schemas.request, req)
	if err != nil {
		return schemas, bundle, false, fmt.Errorf("workflow: request validation: %w", err)
	}
	if len(reqErrs) > 0 {
		for _, entry := range reqErrs {
			bundle.Append(entry)
		}
		return schemas, bundle, false, nil
	}

	return schemas, bundle, true, nil
}
