// Copyright 2026 The Authzee Authors
// SPDX-License-Identifier: Apache-2.0

package workflow_test

import (
	"context"
	"testing"

	"github.com/authzee/authzee/jmespathx"
	"github.com/authzee/authzee/jsonschemax"
	"github.com/authzee/authzee/model"
	"github.com/authzee/authzee/workflow"
)

func newEngine(t *testing.T) *workflow.Engine {
	t.Helper()
	e, err := workflow.NewEngine(jsonschemax.New(), jmespathx.New(), workflow.DefaultEngineOptions())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

func balloonDefs() ([]model.IdentityDef, []model.ResourceDef) {
	ids := []model.IdentityDef{
		{IdentityType: "User", Schema: map[string]any{
			"type":     "object",
			"required": []any{"role"},
			"properties": map[string]any{
				"role": map[string]any{"type": "string"},
			},
		}},
	}
	rds := []model.ResourceDef{
		{
			ResourceType: "Balloon",
			Actions:      []string{"pop", "inflate"},
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"size": map[string]any{"type": "string"},
				},
			},
			ParentTypes: []string{},
			ChildTypes:  []string{},
		},
	}
	return ids, rds
}

func requestFor(role string, resource map[string]any) model.Request {
	return model.Request{
		Identities:        map[string][]any{"User": {map[string]any{"role": role}}},
		ResourceType:      "Balloon",
		Action:            "pop",
		Resource:          resource,
		Parents:           map[string][]any{},
		Children:          map[string][]any{},
		QueryValidation:   model.ModeGrant,
		Context:           map[string]any{},
		ContextValidation: model.ModeGrant,
	}
}

// S1: admin-pop allow.
func TestAuthorizeAdminPopIsAuthorized(t *testing.T) {
	e := newEngine(t)
	ids, rds := balloonDefs()
	grant := model.Grant{
		Effect:            model.EffectAllow,
		Actions:           []string{"pop"},
		Query:             "request.identities.User[0].role == 'admin'",
		QueryValidation:   model.ModeError,
		Equality:          true,
		Data:              map[string]any{},
		ContextSchema:     map[string]any{"type": "object"},
		ContextValidation: model.ModeNone,
	}

	resp, err := e.Authorize(context.Background(), ids, rds, []model.Grant{grant}, requestFor("admin", map[string]any{}))
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}
	if !resp.Completed || !resp.Authorized {
		t.Fatalf("expected an authorized, completed response, got %+v", resp)
	}
	if resp.Grant == nil || resp.Grant.Query != grant.Query {
		t.Errorf("expected the S1 grant to be named, got %+v", resp.Grant)
	}
}

// S2: a deny grant beats an applicable allow grant.
func TestAuthorizeDenyBeatsAllow(t *testing.T) {
	e := newEngine(t)
	ids, rds := balloonDefs()
	allow := model.Grant{
		Effect:            model.EffectAllow,
		Actions:           []string{"pop"},
		Query:             "request.identities.User[0].role == 'admin'",
		QueryValidation:   model.ModeError,
		Equality:          true,
		Data:              map[string]any{},
		ContextSchema:     map[string]any{"type": "object"},
		ContextValidation: model.ModeNone,
	}
	deny := model.Grant{
		Effect:            model.EffectDeny,
		Actions:           []string{},
		Query:             "request.resource.size == 'large'",
		QueryValidation:   model.ModeError,
		Equality:          true,
		Data:              map[string]any{},
		ContextSchema:     map[string]any{"type": "object"},
		ContextValidation: model.ModeNone,
	}

	resp, err := e.Authorize(context.Background(), ids, rds, []model.Grant{allow, deny}, requestFor("admin", map[string]any{"size": "large"}))
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}
	if resp.Authorized {
		t.Fatalf("expected the deny grant to override the allow grant, got %+v", resp)
	}
	if resp.Grant == nil || resp.Grant.Effect != model.EffectDeny {
		t.Errorf("expected the deny grant to be named, got %+v", resp.Grant)
	}
}

// S3: implicit deny when no grant is applicable.
func TestAuthorizeImplicitDeny(t *testing.T) {
	e := newEngine(t)
	ids, rds := balloonDefs()
	grant := model.Grant{
		Effect:            model.EffectAllow,
		Actions:           []string{"pop"},
		Query:             "request.identities.User[0].role == 'admin'",
		QueryValidation:   model.ModeError,
		Equality:          true,
		Data:              map[string]any{},
		ContextSchema:     map[string]any{"type": "object"},
		ContextValidation: model.ModeNone,
	}

	resp, err := e.Authorize(context.Background(), ids, rds, []model.Grant{grant}, requestFor("guest", map[string]any{}))
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}
	if resp.Authorized || resp.Grant != nil {
		t.Fatalf("expected an implicit deny with no named grant, got %+v", resp)
	}
	if !resp.Completed {
		t.Error("expected completed=true for an implicit deny")
	}
}

// S4: a critical JMESPath error halts the workflow.
func TestAuthorizeCriticalJMESPathErrorHalts(t *testing.T) {
	e := newEngine(t)
	ids, rds := balloonDefs()
	grant := model.Grant{
		Effect:            model.EffectAllow,
		Actions:           []string{"pop"},
		Query:             "nonexistent_fn(x)",
		QueryValidation:   model.ModeCritical,
		Equality:          true,
		Data:              map[string]any{},
		ContextSchema:     map[string]any{"type": "object"},
		ContextValidation: model.ModeNone,
	}

	resp, err := e.Authorize(context.Background(), ids, rds, []model.Grant{grant}, requestFor("admin", map[string]any{}))
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}
	if resp.Completed {
		t.Fatalf("expected completed=false after a critical halt, got %+v", resp)
	}
	if len(resp.Errors.JMESPath) != 1 || !resp.Errors.JMESPath[0].Critical {
		t.Errorf("expected one critical jmespath error, got %+v", resp.Errors.JMESPath)
	}
}

// S5: a non-critical context-validation error.
func TestAuditContextValidationErrorIsNonCritical(t *testing.T) {
	e := newEngine(t)
	ids, rds := balloonDefs()
	grant := model.Grant{
		Effect:          model.EffectAllow,
		Actions:         []string{"pop"},
		Query:           "`true`",
		QueryValidation: model.ModeError,
		Equality:        true,
		Data:            map[string]any{},
		ContextSchema: map[string]any{
			"type":     "object",
			"required": []any{"request_source"},
			"properties": map[string]any{
				"request_source": map[string]any{"type": "string"},
			},
		},
		ContextValidation: model.ModeError,
	}

	resp, err := e.Audit(context.Background(), ids, rds, []model.Grant{grant}, requestFor("admin", map[string]any{}))
	if err != nil {
		t.Fatalf("Audit() error = %v", err)
	}
	if !resp.Completed {
		t.Fatalf("expected completed=true for a non-critical error, got %+v", resp)
	}
	if len(resp.Grants) != 0 {
		t.Errorf("expected no applicable grants, got %v", resp.Grants)
	}
	if len(resp.Errors.Context) != 1 || resp.Errors.Context[0].Critical {
		t.Errorf("expected one non-critical context error, got %+v", resp.Errors.Context)
	}
}

func TestAuthorizeEmptyGrantSetIsExplicitImplicitDeny(t *testing.T) {
	e := newEngine(t)
	ids, rds := balloonDefs()

	resp, err := e.Authorize(context.Background(), ids, rds, nil, requestFor("admin", map[string]any{}))
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}
	if resp.Authorized || resp.Grant != nil || !resp.Completed {
		t.Errorf("expected an explicit implicit deny, got %+v", resp)
	}
}

func TestExplainRecordsExclusionReasonForActionGate(t *testing.T) {
	e := newEngine(t)
	ids, rds := balloonDefs()
	grant := model.Grant{
		Effect:            model.EffectAllow,
		Actions:           []string{"inflate"},
		Query:             "`true`",
		QueryValidation:   model.ModeError,
		Equality:          true,
		Data:              map[string]any{},
		ContextSchema:     map[string]any{"type": "object"},
		ContextValidation: model.ModeNone,
	}

	_, traces, err := e.Explain(context.Background(), ids, rds, []model.Grant{grant}, requestFor("admin", map[string]any{}))
	if err != nil {
		t.Fatalf("Explain() error = %v", err)
	}
	if len(traces) != 1 || traces[0].Applicable {
		t.Fatalf("expected one inapplicable trace, got %+v", traces)
	}
	if traces[0].Excluded == "" {
		t.Error("expected a non-empty exclusion reason")
	}
}

func TestAuditHaltsOnDefinitionError(t *testing.T) {
	e := newEngine(t)
	ids := []model.IdentityDef{
		{IdentityType: "User", Schema: map[string]any{"type": "object"}},
		{IdentityType: "User", Schema: map[string]any{"type": "object"}},
	}

	resp, err := e.Audit(context.Background(), ids, nil, nil, model.Request{})
	if err != nil {
		t.Fatalf("Audit() error = %v", err)
	}
	if resp.Completed {
		t.Fatalf("expected completed=false on a definition error, got %+v", resp)
	}
	if len(resp.Errors.Definition) == 0 {
		t.Error("expected at least one definition error")
	}
}
