// Copyright 2026 The Authzee Authors
// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"context"

	"github.com/authzee/authzee/evaluate"
	"github.com/authzee/authzee/model"
)

const (
	messageDenyApplicable  = "A deny grant is applicable; the request is not authorized."
	messageAllowApplicable = "An allow grant is applicable to the request, and no deny grants are applicable; the request is authorized."
	messageImplicitDeny    = "No applicable grants; implicit deny."
	messageHalted          = "Workflow halted on critical error."
)

// Authorize runs the common prelude, then decides a single
// allow/deny/implicit-deny outcome by evaluating deny grants before
// allow grants (spec §4.5, "Authorize workflow").
func (e *Engine) Authorize(ctx context.Context, ids []model.IdentityDef, rds []model.ResourceDef, grants []model.Grant, req model.Request) (model.AuthorizeResponse, error) {
	logger := e.loggerFrom(ctx)

	schemas, bundle, ok, err := e.prelude(ids, rds, grants, req)
	if err != nil {
		return model.AuthorizeResponse{}, err
	}
	if !ok {
		logger.Warn("authorize halted during prelude validation")
		e.metrics.observeAuthorize(outcomeHalted, 0)
		return model.AuthorizeResponse{Completed: false, Errors: bundle}, nil
	}
	_ = schemas

	var firstDeny *model.Grant
	evaluated := 0
	for i := range grants {
		if grants[i].Effect != model.EffectDeny {
			continue
		}
		result, err := evaluate.Grant(e.searcher, e.validator, grants[i], req)
		if err != nil {
			return model.AuthorizeResponse{}, err
		}
		evaluated++
		for _, entry := range result.Errors {
			bundle.Append(entry)
		}
		if result.Halt {
			logger.Warn("authorize halted on critical grant evaluation error", "grant_index", i)
			e.metrics.observeHalt("authorize")
			e.metrics.observeAuthorize(outcomeHalted, i+1)
			return model.AuthorizeResponse{Completed: false, Message: messageHalted, Errors: bundle}, nil
		}
		if result.Applicable && firstDeny == nil {
			g := grants[i]
			firstDeny = &g
			if e.options.ShortCircuitDenies {
				break
			}
		}
	}
	if firstDeny != nil {
		logger.Debug("authorize denied", "reason", "deny_grant_applicable")
		e.metrics.observeAuthorize(outcomeDenied, evaluated)
		return model.AuthorizeResponse{
			Authorized: false,
			Completed:  true,
			Grant:      firstDeny,
			Message:    messageDenyApplicable,
			Errors:     bundle,
		}, nil
	}

	for i := range grants {
		if grants[i].Effect != model.EffectAllow {
			continue
		}
		result, err := evaluate.Grant(e.searcher, e.validator, grants[i], req)
		if err != nil {
			return model.AuthorizeResponse{}, err
		}
		evaluated++
		for _, entry := range result.Errors {
			bundle.Append(entry)
		}
		if result.Halt {
			logger.Warn("authorize halted on critical grant evaluation error", "grant_index", i)
			e.metrics.observeHalt("authorize")
			e.metrics.observeAuthorize(outcomeHalted, i+1)
			return model.AuthorizeResponse{Completed: false, Message: messageHalted, Errors: bundle}, nil
		}
		if result.Applicable {
			g := grants[i]
			logger.Debug("authorize allowed", "grant_index", i)
			e.metrics.observeAuthorize(outcomeAuthorized, evaluated)
			return model.AuthorizeResponse{
				Authorized: true,
				Completed:  true,
				Grant:      &g,
				Message:    messageAllowApplicable,
				Errors:     bundle,
			}, nil
		}
	}

	logger.Debug("authorize implicit deny")
	e.metrics.observeAuthorize(outcomeImplicitDeny, evaluated)
	return model.AuthorizeResponse{
		Authorized: false,
		Completed:  true,
		Message:    messageImplicitDeny,
		Errors:     bundle,
	}, nil
}
