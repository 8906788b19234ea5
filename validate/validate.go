// Copyright 2026 The Authzee Authors
// SPDX-License-Identifier: Apache-2.0

// Package validate implements C3, the input validators: it checks
// grants against the generated grant schema and a request against the
// generated request schema, both via the injected model.SchemaValidator
// (spec §4.3).
package validate

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/authzee/authzee/jsonval"
	"github.com/authzee/authzee/model"
)

// tagValidate checks the Authzee-owned control fields (Effect, the
// ValidationMode fields, Query) against their `validate` struct tags,
// ahead of the generated-schema check, which only covers the
// host-defined payload fields (Data, ContextSchema, Resource, Context).
var tagValidate = validator.New(validator.WithRequiredStructEnabled())

// Grants validates every grant against grantSchema, in input order,
// returning one critical model.ErrorEntry (Kind == Grant) per grant
// that fails either the struct-tag check or the generated schema.
func Grants(validator model.SchemaValidator, grantSchema any, grants []model.Grant) ([]model.ErrorEntry, error) {
	var errs []model.ErrorEntry
	for i := range grants {
		if err := tagValidate.Struct(grants[i]); err != nil {
			g := grants[i]
			errs = append(errs, model.ErrorEntry{
				Kind:     model.ErrorKindGrant,
				Message:  fmt.Sprintf("grant at index %d failed field validation: %s", i, err.Error()),
				Critical: true,
				Grant:    &g,
			})
			continue
		}

		raw, err := jsonval.Normalize(grants[i])
		if err != nil {
			return nil, fmt.Errorf("failed to normalize grant at index %d: %w", i, err)
		}

		ok, violations, err := validator.Validate(grantSchema, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to validate grant at index %d against the generated grant schema: %w", i, err)
		}
		if !ok {
			g := grants[i]
			errs = append(errs, model.ErrorEntry{
				Kind:     model.ErrorKindGrant,
				Message:  fmt.Sprintf("grant at index %d failed grant-schema validation: %s", i, strings.Join(violations, "; ")),
				Critical: true,
				Grant:    &g,
			})
		}
	}
	return errs, nil
}

// Request validates req against requestSchema, returning critical
// model.ErrorEntry values (Kind == Request): a single entry covering
// every failing field when the struct-tag check fails, otherwise one
// entry per schema violation found.
func Request(validator model.SchemaValidator, requestSchema any, req model.Request) ([]model.ErrorEntry, error) {
	if err := tagValidate.Struct(req); err != nil {
		return []model.ErrorEntry{{
			Kind:     model.ErrorKindRequest,
			Message:  fmt.Sprintf("request failed field validation: %s", err.Error()),
			Critical: true,
		}}, nil
	}

	raw, err := jsonval.Normalize(req)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize request: %w", err)
	}

	ok, violations, err := validator.Validate(requestSchema, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to validate request against the generated request schema: %w", err)
	}
	if ok {
		return nil, nil
	}

	errs := make([]model.ErrorEntry, 0, len(violations))
	for _, v := range violations {
		errs = append(errs, model.ErrorEntry{
			Kind:     model.ErrorKindRequest,
			Message:  v,
			Critical: true,
		})
	}
	if len(errs) == 0 {
		errs = append(errs, model.ErrorEntry{
			Kind:     model.ErrorKindRequest,
			Message:  "request failed request-schema validation",
			Critical: true,
		})
	}
	return errs, nil
}
