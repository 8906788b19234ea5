// Copyright 2026 The Authzee Authors
// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"context"

	"github.com/authzee/authzee/evaluate"
	"github.com/authzee/authzee/model"
)

// Audit runs the common prelude and then, for every grant in input
// order, records whether it is applicable to req (spec §4.5, "Audit
// workflow").
func (e *Engine) Audit(ctx context.Context, ids []model.IdentityDef, rds []model.ResourceDef, grants []model.Grant, req model.Request) (model.AuditResponse, error) {
	logger := e.loggerFrom(ctx)

	schemas, bundle, ok, err := e.prelude(ids, rds, grants, req)
	if err != nil {
		return model.AuditResponse{}, err
	}
	if !ok {
		logger.Warn("audit halted during prelude validation")
		e.metrics.observeAudit(false, 0)
		return model.AuditResponse{Completed: false, Grants: []model.Grant{}, Errors: bundle}, nil
	}
	_ = schemas

	applicable := []model.Grant{}
	for i := range grants {
		result, err := evaluate.Grant(e.searcher, e.validator, grants[i], req)
		if err != nil {
			return model.AuditResponse{}, err
		}
		for _, entry := range result.Errors {
			bundle.Append(entry)
		}
		if result.Halt {
			logger.Warn("audit halted on critical grant evaluation error", "grant_index", i)
			e.metrics.observeHalt("audit")
			e.metrics.observeAudit(false, i+1)
			return model.AuditResponse{Completed: false, Grants: applicable, Errors: bundle}, nil
		}
		if result.Applicable {
			applicable = append(applicable, grants[i])
		}
	}

	logger.Debug("audit completed", "grant_count", len(grants), "applicable_count", len(applicable))
	e.metrics.observeAudit(true, len(grants))
	return model.AuditResponse{Completed: true, Grants: applicable, Errors: bundle}, nil
}
