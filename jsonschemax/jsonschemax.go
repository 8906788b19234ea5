// Copyright 2026 The Authzee Authors
// SPDX-License-Identifier: Apache-2.0

// Package jsonschemax is the reference model.SchemaValidator adapter,
// backed by github.com/santhosh-tekuri/jsonschema/v6. The engine never
// imports this package directly (spec §1, §9: the validator is an
// external collaborator referenced only through its contract) — hosts
// wire it in at construction time, or supply their own.
package jsonschemax

import (
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/authzee/authzee/jsonval"
)

// Validator compiles and caches Draft 2020-12 schemas, keyed by a
// content hash of the source schema document (spec §5: "compiled
// schema... caches are permitted and must be invalidated whenever the
// definition/grant set changes in content" — content-addressing gives
// that invalidation for free).
type Validator struct {
	mu    sync.Mutex
	cache map[string]*jsonschema.Schema
}

// New returns a Validator with an empty compiled-schema cache.
func New() *Validator {
	return &Validator{cache: make(map[string]*jsonschema.Schema)}
}

// Validate implements model.SchemaValidator.
func (v *Validator) Validate(schema any, instance any) (bool, []string, error) {
	compiled, err := v.compile(schema)
	if err != nil {
		return false, nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	if err := compiled.Validate(instance); err != nil {
		if verr, ok := err.(*jsonschema.ValidationError); ok {
			return false, flattenViolations(verr), nil
		}
		return false, []string{err.Error()}, nil
	}
	return true, nil, nil
}

func (v *Validator) compile(schema any) (*jsonschema.Schema, error) {
	key := jsonval.ContentHash(schema)

	v.mu.Lock()
	defer v.mu.Unlock()

	if cached, ok := v.cache[key]; ok {
		return cached, nil
	}

	c := jsonschema.NewCompiler()
	url := "authzee://schema/" + key
	if err := c.AddResource(url, schema); err != nil {
		return nil, err
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, err
	}

	v.cache[key] = compiled
	return compiled, nil
}

// flattenViolations turns the validator's tree of causes into a flat,
// human-readable list: one entry per leaf violation, prefixed with the
// instance location it applies to.
func flattenViolations(verr *jsonschema.ValidationError) []string {
	var out []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := "#"
			if len(e.InstanceLocation) > 0 {
				loc = "#/" + joinLocation(e.InstanceLocation)
			}
			out = append(out, fmt.Sprintf("%s: %s", loc, e.Error()))
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(verr)
	return out
}

func joinLocation(segments []string) string {
	out := ""
	for i, s := range segments {
		if i > 0 {
			out += "/"
		}
		out += s
	}
	return out
}
