// Copyright 2026 The Authzee Authors
// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"context"

	"github.com/authzee/authzee/evaluate"
	"github.com/authzee/authzee/model"
)

// GrantTrace records, for one grant considered during Explain, whether
// it was applicable and — when it was not — the pipeline stage that
// excluded it. This is additive instrumentation over Audit (see
// SUPPLEMENTED FEATURES); it carries no invariant of its own and does
// not change AuditResponse's contract.
type GrantTrace struct {
	Grant      model.Grant
	Applicable bool
	// Excluded is empty when Applicable is true, and otherwise
	// describes the stage that made the grant not applicable.
	Excluded string
}

// Explain runs the same pipeline as Audit and additionally returns one
// GrantTrace per evaluated grant in input order, recording why grants
// that did not apply were excluded. When the prelude fails no traces
// are returned; on a critical halt the traces cover only the grants
// before the one that halted.
func (e *Engine) Explain(ctx context.Context, ids []model.IdentityDef, rds []model.ResourceDef, grants []model.Grant, req model.Request) (model.AuditResponse, []GrantTrace, error) {
	logger := e.loggerFrom(ctx)

	schemas, bundle, ok, err := e.prelude(ids, rds, grants, req)
	if err != nil {
		return model.AuditResponse{}, nil, err
	}
	if !ok {
		logger.Warn("explain halted during prelude validation")
		return model.AuditResponse{Completed: false, Grants: []model.Grant{}, Errors: bundle}, nil, nil
	}
	_ = schemas

	applicable := []model.Grant{}
	traces := make([]GrantTrace, 0, len(grants))
	for i := range grants {
		result, err := evaluate.Grant(e.searcher, e.validator, grants[i], req)
		if err != nil {
			return model.AuditResponse{}, nil, err
		}
		for _, entry := range result.Errors {
			bundle.Append(entry)
		}
		if result.Halt {
			logger.Warn("explain halted on critical grant evaluation error", "grant_index", i)
			e.metrics.observeHalt("explain")
			return model.AuditResponse{Completed: false, Grants: applicable, Errors: bundle}, traces, nil
		}

		trace := GrantTrace{Grant: grants[i], Applicable: result.Applicable}
		if !result.Applicable {
			trace.Excluded = explainExclusion(e.validator, grants[i], req, result)
		}
		traces = append(traces, trace)

		if result.Applicable {
			applicable = append(applicable, grants[i])
		}
	}

	return model.AuditResponse{Completed: true, Grants: applicable, Errors: bundle}, traces, nil
}

// explainExclusion re-derives which pipeline stage of C4 (spec §4.4)
// excluded a grant already known to be not applicable, for diagnostic
// purposes only; it never changes an applicability decision.
func explainExclusion(validator model.SchemaValidator, g model.Grant, req model.Request, result evaluate.Result) string {
	if len(g.Actions) > 0 && !containsAction(g.Actions, req.Action) {
		return "action gate: request action is not in the grant's actions list"
	}

	cv := req.ContextValidation
	if cv == model.ModeGrant {
		cv = g.ContextValidation
	}
	if cv != model.ModeNone {
		ok, _, _ := validator.Validate(g.ContextSchema, req.Context)
		if !ok {
			return "context check: request context does not conform to the grant's context schema"
		}
	}

	for _, entry := range result.Errors {
		if entry.Kind == model.ErrorKindJMESPath {
			return "query evaluation: " + entry.Message
		}
	}

	return "query equality: the query result did not equal the grant's configured equality value"
}

func containsAction(actions []string, action string) bool {
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}
