// Copyright 2026 The Authzee Authors
// SPDX-License-Identifier: Apache-2.0

// Package schemagen implements C2, the schema generator: from a set of
// validated identity and resource definitions it deterministically
// derives the grant schema, the error schema, the request schema, and
// the Audit/Authorize response schemas (spec §4.2, §6).
//
// Generation is pure: the same definitions, compared by content,
// always produce byte-equal schemas (spec §8, P1). The action union
// and the request schema's anyOf branches follow resource-def order,
// then action-def order; the required lists of identity, parent and
// child type names are sorted.
package schemagen

import (
	"sort"

	"github.com/authzee/authzee/model"
)

// Actions returns the ordered union of every action name across rds,
// de-duplicated, preserving first-seen order (spec §3 invariant).
func Actions(rds []model.ResourceDef) []string {
	seen := make(map[string]bool)
	var out []string
	for _, rd := range rds {
		for _, action := range rd.Actions {
			if !seen[action] {
				seen[action] = true
				out = append(out, action)
			}
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// GrantSchema builds the grant schema template from spec §6, with
// properties.actions.items.enum set to the deterministic action union.
func GrantSchema(rds []model.ResourceDef) map[string]any {
	actions := toAnySlice(Actions(rds))

	return map[string]any{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type":    "object",
		"required": []any{
			"effect", "actions", "query", "query_validation",
			"equality", "data", "context_schema", "context_validation",
		},
		"additionalProperties": false,
		"properties": map[string]any{
			"effect": map[string]any{"enum": []any{"allow", "deny"}},
			"actions": map[string]any{
				"type":        "array",
				"uniqueItems": true,
				"items":       map[string]any{"enum": actions},
			},
			"query":            map[string]any{"type": "string"},
			"query_validation": map[string]any{"enum": []any{"validate", "error", "critical"}},
			"equality":         map[string]any{},
			"data":             map[string]any{"type": "object"},
			"context_schema":   map[string]any{"type": "object"},
			"context_validation": map[string]any{
				"enum": []any{"none", "validate", "error", "critical"},
			},
		},
	}
}

// errorEntrySchema builds the schema for one ErrorEntry of the given
// kind. grantCarrying kinds (context, grant, jmespath) additionally
// require a "grant" property referencing $defs/grant.
func errorEntrySchema(grantCarrying bool, extra map[string]any) map[string]any {
	required := []any{"message", "critical"}
	properties := map[string]any{
		"message":  map[string]any{"type": "string"},
		"critical": map[string]any{"type": "boolean"},
	}
	if grantCarrying {
		required = append(required, "grant")
		properties["grant"] = map[string]any{"$ref": "#/$defs/grant"}
	}
	for k, v := range extra {
		required = append(required, k)
		properties[k] = v
	}
	return map[string]any{
		"type":                 "object",
		"required":             required,
		"additionalProperties": false,
		"properties":           properties,
	}
}

// ErrorSchema builds the error schema template from spec §6, with the
// $defs.grant slot set to the freshly generated grant schema.
func ErrorSchema(rds []model.ResourceDef) map[string]any {
	definitionEntry := errorEntrySchema(false, map[string]any{
		"definition_type": map[string]any{"enum": []any{"identity", "resource"}},
		"definition":       map[string]any{},
	})
	requestEntry := errorEntrySchema(false, nil)
	grantEntry := errorEntrySchema(true, nil)
	contextEntry := errorEntrySchema(true, nil)
	jmespathEntry := errorEntrySchema(true, nil)

	return map[string]any{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type":    "object",
		"required": []any{
			"context", "definition", "grant", "jmespath", "request",
		},
		"additionalProperties": false,
		"properties": map[string]any{
			"context":    map[string]any{"type": "array", "items": contextEntry},
			"definition": map[string]any{"type": "array", "items": definitionEntry},
			"grant":      map[string]any{"type": "array", "items": grantEntry},
			"jmespath":   map[string]any{"type": "array", "items": jmespathEntry},
			"request":    map[string]any{"type": "array", "items": requestEntry},
		},
		"$defs": map[string]any{
			"grant": GrantSchema(rds),
		},
	}
}

// RequestSchema builds the request schema from spec §4.2: a top-level
// anyOf across resource types, sharing identities/query_validation/
// context/context_validation definitions and one $defs entry per
// resource type's own schema (referenced by itself, and by any other
// resource def that names it as a parent or child type).
func RequestSchema(ids []model.IdentityDef, rds []model.ResourceDef) map[string]any {
	defs := map[string]any{
		"identities":         identitiesDef(ids),
		"query_validation":   map[string]any{"enum": []any{"grant", "validate", "error", "critical"}},
		"context":            contextDef(),
		"context_validation": map[string]any{"enum": []any{"grant", "none", "validate", "error", "critical"}},
	}
	for _, rd := range rds {
		defs[rd.ResourceType] = rd.Schema
	}

	var branches []any
	for _, rd := range rds {
		branches = append(branches, resourceBranch(rd))
	}

	return map[string]any{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"anyOf":   branches,
		"$defs":   defs,
	}
}

func identitiesDef(ids []model.IdentityDef) map[string]any {
	names := make([]string, 0, len(ids))
	properties := make(map[string]any, len(ids))
	for _, id := range ids {
		names = append(names, id.IdentityType)
		properties[id.IdentityType] = map[string]any{
			"type":  "array",
			"items": id.Schema,
		}
	}
	sort.Strings(names)

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             toAnySlice(names),
		"properties":           properties,
	}
}

func contextDef() map[string]any {
	return map[string]any{
		"type": "object",
		"patternProperties": map[string]any{
			"^[a-zA-Z0-9_]{1,256}$": map[string]any{},
		},
		"additionalProperties": false,
	}
}

func resourceBranch(rd model.ResourceDef) map[string]any {
	parents := sortedCopy(rd.ParentTypes)
	children := sortedCopy(rd.ChildTypes)

	return map[string]any{
		"type": "object",
		"required": []any{
			"identities", "resource_type", "action", "resource",
			"parents", "children", "query_validation", "context",
			"context_validation",
		},
		"additionalProperties": false,
		"properties": map[string]any{
			"identities":    map[string]any{"$ref": "#/$defs/identities"},
			"resource_type": map[string]any{"const": rd.ResourceType},
			"action":        map[string]any{"enum": toAnySlice(rd.Actions)},
			"resource":      map[string]any{"$ref": "#/$defs/" + rd.ResourceType},
			"parents":       relatedResourcesDef(parents),
			"children":      relatedResourcesDef(children),
			"query_validation":   map[string]any{"$ref": "#/$defs/query_validation"},
			"context":            map[string]any{"$ref": "#/$defs/context"},
			"context_validation": map[string]any{"$ref": "#/$defs/context_validation"},
		},
	}
}

func relatedResourcesDef(sortedTypes []string) map[string]any {
	properties := make(map[string]any, len(sortedTypes))
	for _, t := range sortedTypes {
		properties[t] = map[string]any{
			"type":  "array",
			"items": map[string]any{"$ref": "#/$defs/" + t},
		}
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             toAnySlice(sortedTypes),
		"properties":           properties,
	}
}

// AuditResponseSchema builds the schema the Audit response conforms to
// (spec §6): {completed, grants, errors}.
func AuditResponseSchema(rds []model.ResourceDef) map[string]any {
	return map[string]any{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type":    "object",
		"required": []any{"completed", "grants", "errors"},
		"additionalProperties": false,
		"properties": map[string]any{
			"completed": map[string]any{"type": "boolean"},
			"grants":    map[string]any{"type": "array", "items": map[string]any{"$ref": "#/$defs/grant"}},
			"errors":    map[string]any{"$ref": "#/$defs/error"},
		},
		"$defs": map[string]any{
			"grant": GrantSchema(rds),
			"error": ErrorSchema(rds),
		},
	}
}

// AuthorizeResponseSchema builds the schema the Authorize response
// conforms to (spec §6): {authorized, completed, grant, message, errors}.
func AuthorizeResponseSchema(rds []model.ResourceDef) map[string]any {
	return map[string]any{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type":    "object",
		"required": []any{"authorized", "completed", "message", "errors"},
		"additionalProperties": false,
		"properties": map[string]any{
			"authorized": map[string]any{"type": "boolean"},
			"completed":  map[string]any{"type": "boolean"},
			"grant": map[string]any{
				"anyOf": []any{
					map[string]any{"$ref": "#/$defs/grant"},
					map[string]any{"type": "null"},
				},
			},
			"message": map[string]any{"type": "string"},
			"errors":  map[string]any{"$ref": "#/$defs/error"},
		},
		"$defs": map[string]any{
			"grant": GrantSchema(rds),
			"error": ErrorSchema(rds),
		},
	}
}

func sortedCopy(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
