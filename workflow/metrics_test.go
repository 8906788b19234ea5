// Copyright 2026 The Authzee Authors
// SPDX-License-Identifier: Apache-2.0

package workflow_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/authzee/authzee/jmespathx"
	"github.com/authzee/authzee/jsonschemax"
	"github.com/authzee/authzee/model"
	"github.com/authzee/authzee/workflow"
)

func TestMetricsHandlerNilWhenDisabled(t *testing.T) {
	e := newEngine(t)
	if e.MetricsHandler() != nil {
		t.Error("expected a nil handler when MetricsEnabled is false")
	}
}

func TestMetricsHandlerExposesWorkflowCounters(t *testing.T) {
	opts := workflow.DefaultEngineOptions()
	opts.MetricsEnabled = true
	e, err := workflow.NewEngine(jsonschemax.New(), jmespathx.New(), opts)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	ids, rds := balloonDefs()
	grant := model.Grant{
		Effect:            model.EffectAllow,
		Actions:           []string{"pop"},
		Query:             "`true`",
		QueryValidation:   model.ModeError,
		Equality:          true,
		Data:              map[string]any{},
		ContextSchema:     map[string]any{"type": "object"},
		ContextValidation: model.ModeNone,
	}
	if _, err := e.Audit(context.Background(), ids, rds, []model.Grant{grant}, requestFor("admin", map[string]any{})); err != nil {
		t.Fatalf("Audit() error = %v", err)
	}

	handler := e.MetricsHandler()
	if handler == nil {
		t.Fatal("expected a non-nil handler when MetricsEnabled is true")
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	if rr.Code != 200 {
		t.Fatalf("metrics endpoint status = %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "authzee_audit_total") {
		t.Errorf("expected authzee_audit_total in metrics output, got:\n%s", body)
	}
}
