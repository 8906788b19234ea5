// Copyright 2026 The Authzee Authors
// SPDX-License-Identifier: Apache-2.0

package model

// SchemaValidator is the Draft 2020-12 JSON Schema validator contract
// the engine depends on without implementing (spec §1, §6, §9). Hosts
// supply an implementation at construction time; package jsonschemax
// ships a reference adapter.
type SchemaValidator interface {
	// Validate reports whether instance conforms to schema. On a
	// structural mismatch it returns ok=false with one message per
	// violation; a non-nil error indicates the schema itself could not
	// be compiled (a host configuration problem, not an instance
	// validation failure).
	Validate(schema any, instance any) (ok bool, violations []string, err error)
}

// Searcher is the JMESPath search callback contract (spec §1, §4.4,
// §9, "Callback for JMESPath"). Package jmespathx ships a reference
// adapter backed by jmespath/go-jmespath.
type Searcher interface {
	Search(expression string, data any) (any, error)
}
