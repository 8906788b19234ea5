// Copyright 2026 The Authzee Authors
// SPDX-License-Identifier: Apache-2.0

// Package jsonval implements the dynamically-typed JSON comparator the
// engine uses to decide grant applicability (spec §6, "JSON equality")
// and the content-addressing helper used to key compiled-schema and
// compiled-query caches (spec §5).
package jsonval

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// DeepEqual reports whether a and b are equal under the type-strict,
// order-sensitive JSON equality rules of spec §6:
//   - null equals only null
//   - booleans are never equal to numbers
//   - numbers compare by numeric value
//   - strings compare by code-point sequence
//   - arrays compare element-wise in order
//   - objects compare by key-set and recursive value equality
func DeepEqual(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !DeepEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, ok := bv[k]
			if !ok || !DeepEqual(v, other) {
				return false
			}
		}
		return true
	default:
		// Unreachable for values produced by encoding/json, but kept
		// defensive for hand-built test fixtures using other numeric
		// Go types.
		return a == b
	}
}

// Clone returns a deep copy of a JSON value tree.
func Clone(v any) any {
	switch vv := v.(type) {
	case []any:
		out := make([]any, len(vv))
		for i, e := range vv {
			out[i] = Clone(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(vv))
		for k, e := range vv {
			out[k] = Clone(e)
		}
		return out
	default:
		return v
	}
}

// Normalize converts an arbitrary Go value (typically a tagged struct
// like model.Grant or model.Request) into the dynamic JSON
// representation (map[string]any, []any, string, float64, bool, nil)
// the engine operates on everywhere else, by round-tripping it through
// encoding/json.
func Normalize(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ContentHash returns a stable, content-addressed identifier for a JSON
// value, suitable for keying compiled-schema caches: byte-equal source
// schemas (spec §5, P1) always hash identically, since encoding/json
// marshals map[string]any keys in sorted order.
func ContentHash(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		// Values produced by the engine are always JSON-marshalable;
		// a failure here indicates a caller-supplied value escaped
		// the dynamic-JSON contract.
		b = nil
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
