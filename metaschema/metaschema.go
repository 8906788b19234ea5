// Copyright 2026 The Authzee Authors
// SPDX-License-Identifier: Apache-2.0

// Package metaschema embeds the two built-in meta-schemas used to
// validate identity and resource definitions (spec §6): the
// IdentityDef meta-schema and the ResourceDef meta-schema.
package metaschema

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed identity_def.schema.json
var identityDefSchemaJSON []byte

//go:embed resource_def.schema.json
var resourceDefSchemaJSON []byte

// IdentityDef returns a fresh decode of the IdentityDef meta-schema.
// A fresh decode is returned on every call so that callers may freely
// mutate the result without corrupting the package-level embed.
func IdentityDef() (map[string]any, error) {
	return decode(identityDefSchemaJSON)
}

// ResourceDef returns a fresh decode of the ResourceDef meta-schema.
func ResourceDef() (map[string]any, error) {
	return decode(resourceDefSchemaJSON)
}

func decode(raw []byte) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to parse embedded meta-schema: %w", err)
	}
	return out, nil
}
