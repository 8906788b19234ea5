// Copyright 2026 The Authzee Authors
// SPDX-License-Identifier: Apache-2.0

// Package evaluate implements C4, the grant evaluator: given one
// validated grant and one validated request, it decides applicability
// and side-records the context/query errors the decision produced
// (spec §4.4).
package evaluate

import (
	"fmt"
	"strings"

	"github.com/authzee/authzee/jsonval"
	"github.com/authzee/authzee/model"
)

// Result is what C4 hands back to its caller (C5): whether the grant
// is applicable, any errors observed while deciding that, and whether
// the workflow must halt.
type Result struct {
	Applicable bool
	Errors     []model.ErrorEntry
	Halt       bool
}

// Grant runs the seven-step algorithm of spec §4.4 against one grant and
// one request. searcher and validator are the two external
// collaborators the engine depends on only through their contracts.
func Grant(searcher model.Searcher, validator model.SchemaValidator, g model.Grant, req model.Request) (Result, error) {
	// Step 1: action gate.
	if len(g.Actions) > 0 && !actionAllowed(g.Actions, req.Action) {
		return Result{Applicable: false}, nil
	}

	// Step 2: context-validation mode.
	cv := req.ContextValidation
	if cv == model.ModeGrant {
		cv = g.ContextValidation
	}

	// Step 3: context check.
	if cv != model.ModeNone {
		ok, violations, err := validator.Validate(g.ContextSchema, req.Context)
		if err != nil {
			violations = []string{err.Error()}
			ok = false
		}
		if !ok {
			grant := g
			switch cv {
			case model.ModeValidate:
				return Result{Applicable: false}, nil
			case model.ModeError:
				return Result{Applicable: false, Errors: []model.ErrorEntry{{
					Kind:     model.ErrorKindContext,
					Message:  fmt.Sprintf("context failed the grant's context schema: %s", strings.Join(violations, "; ")),
					Critical: false,
					Grant:    &grant,
				}}}, nil
			case model.ModeCritical:
				return Result{Applicable: false, Halt: true, Errors: []model.ErrorEntry{{
					Kind:     model.ErrorKindContext,
					Message:  fmt.Sprintf("context failed the grant's context schema: %s", strings.Join(violations, "; ")),
					Critical: true,
					Grant:    &grant,
				}}}, nil
			}
		}
	}

	// Step 5: query-validation mode.
	qv := req.QueryValidation
	if qv == model.ModeGrant {
		qv = g.QueryValidation
	}

	// Step 6: query.
	queryInput, err := buildQueryInput(g, req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to build the query input for the search callback: %w", err)
	}

	value, searchErr := searcher.Search(g.Query, queryInput)
	if searchErr != nil {
		grant := g
		switch qv {
		case model.ModeValidate:
			return Result{Applicable: false}, nil
		case model.ModeError:
			return Result{Applicable: false, Errors: []model.ErrorEntry{{
				Kind:     model.ErrorKindJMESPath,
				Message:  fmt.Sprintf("query %q failed: %s", g.Query, searchErr.Error()),
				Critical: false,
				Grant:    &grant,
			}}}, nil
		case model.ModeCritical:
			return Result{Applicable: false, Halt: true, Errors: []model.ErrorEntry{{
				Kind:     model.ErrorKindJMESPath,
				Message:  fmt.Sprintf("query %q failed: %s", g.Query, searchErr.Error()),
				Critical: true,
				Grant:    &grant,
			}}}, nil
		default:
			return Result{Applicable: false}, nil
		}
	}

	// Step 7: equality.
	return Result{Applicable: jsonval.DeepEqual(value, g.Equality)}, nil
}

func actionAllowed(actions []string, action string) bool {
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}

// buildQueryInput assembles the {"grant": ..., "request": ...} value
// handed to the search callback (spec §6, "Query-input shape").
func buildQueryInput(g model.Grant, req model.Request) (map[string]any, error) {
	grantJSON, err := jsonval.Normalize(g)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize grant: %w", err)
	}
	requestJSON, err := jsonval.Normalize(req)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize request: %w", err)
	}
	return map[string]any{
		"grant":   grantJSON,
		"request": requestJSON,
	}, nil
}
