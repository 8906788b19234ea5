// Copyright 2026 The Authzee Authors
// SPDX-License-Identifier: Apache-2.0

package metaschema

import "testing"

func TestIdentityDefDecodes(t *testing.T) {
	s, err := IdentityDef()
	if err != nil {
		t.Fatalf("IdentityDef() error = %v", err)
	}
	if s["type"] != "object" {
		t.Errorf("expected object schema, got %v", s["type"])
	}
}

func TestResourceDefDecodes(t *testing.T) {
	s, err := ResourceDef()
	if err != nil {
		t.Fatalf("ResourceDef() error = %v", err)
	}
	required, ok := s["required"].([]any)
	if !ok || len(required) != 5 {
		t.Errorf("expected 5 required fields, got %v", s["required"])
	}
}

func TestEachCallReturnsIndependentCopy(t *testing.T) {
	a, _ := IdentityDef()
	b, _ := IdentityDef()

	a["type"] = "mutated"

	if b["type"] == "mutated" {
		t.Error("mutating one decode must not affect another")
	}
}
