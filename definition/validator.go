// Copyright 2026 The Authzee Authors
// SPDX-License-Identifier: Apache-2.0

// Package definition implements C1, the definition validator: it checks
// identity and resource definitions against the built-in meta-schemas,
// enforces identity_type/resource_type uniqueness, and checks that
// every parent/child type name resolves to a defined resource type
// (spec §4.1).
package definition

import (
	"fmt"

	"github.com/authzee/authzee/jsonval"
	"github.com/authzee/authzee/metaschema"
	"github.com/authzee/authzee/model"
)

// Validate runs every C1 check, in the order spec §4.1 lists them, and
// returns one critical model.ErrorEntry (Kind == Definition) per
// violation. A nil/empty result means the definitions are well-formed.
func Validate(validator model.SchemaValidator, identityDefs []model.IdentityDef, resourceDefs []model.ResourceDef) ([]model.ErrorEntry, error) {
	var errs []model.ErrorEntry

	identitySchema, err := metaschema.IdentityDef()
	if err != nil {
		return nil, fmt.Errorf("failed to load identity definition meta-schema: %w", err)
	}
	resourceSchema, err := metaschema.ResourceDef()
	if err != nil {
		return nil, fmt.Errorf("failed to load resource definition meta-schema: %w", err)
	}

	// 1 & 2: identity defs against the meta-schema, then uniqueness.
	seenIdentityTypes := make(map[string]bool, len(identityDefs))
	for _, id := range identityDefs {
		raw, err := jsonval.Normalize(id)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize identity definition: %w", err)
		}

		ok, violations, err := validator.Validate(identitySchema, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to validate identity definition against meta-schema: %w", err)
		}
		if !ok {
			errs = append(errs, model.ErrorEntry{
				Kind:           model.ErrorKindDefinition,
				Message:        fmt.Sprintf("identity definition failed meta-schema validation: %v", violations),
				Critical:       true,
				DefinitionType: model.DefinitionTypeIdentity,
				Definition:     raw,
			})
			continue
		}

		if seenIdentityTypes[id.IdentityType] {
			errs = append(errs, model.ErrorEntry{
				Kind:           model.ErrorKindDefinition,
				Message:        fmt.Sprintf("duplicate identity_type %q", id.IdentityType),
				Critical:       true,
				DefinitionType: model.DefinitionTypeIdentity,
				Definition:     raw,
			})
			continue
		}
		seenIdentityTypes[id.IdentityType] = true
	}

	// 3 & 4: resource defs against the meta-schema, then uniqueness.
	seenResourceTypes := make(map[string]bool, len(resourceDefs))
	for _, rd := range resourceDefs {
		raw, err := jsonval.Normalize(rd)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize resource definition: %w", err)
		}

		ok, violations, err := validator.Validate(resourceSchema, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to validate resource definition against meta-schema: %w", err)
		}
		if !ok {
			errs = append(errs, model.ErrorEntry{
				Kind:           model.ErrorKindDefinition,
				Message:        fmt.Sprintf("resource definition failed meta-schema validation: %v", violations),
				Critical:       true,
				DefinitionType: model.DefinitionTypeResource,
				Definition:     raw,
			})
			continue
		}

		if seenResourceTypes[rd.ResourceType] {
			errs = append(errs, model.ErrorEntry{
				Kind:           model.ErrorKindDefinition,
				Message:        fmt.Sprintf("duplicate resource_type %q", rd.ResourceType),
				Critical:       true,
				DefinitionType: model.DefinitionTypeResource,
				Definition:     raw,
			})
			continue
		}
		seenResourceTypes[rd.ResourceType] = true
	}

	// 5: referential integrity of parent_types/child_types.
	for _, rd := range resourceDefs {
		raw, err := jsonval.Normalize(rd)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize resource definition: %w", err)
		}
		for _, name := range rd.ParentTypes {
			if !seenResourceTypes[name] {
				errs = append(errs, model.ErrorEntry{
					Kind:           model.ErrorKindDefinition,
					Message:        fmt.Sprintf("resource_type %q declares parent_types entry %q, which is not a defined resource_type", rd.ResourceType, name),
					Critical:       true,
					DefinitionType: model.DefinitionTypeResource,
					Definition:     raw,
				})
			}
		}
		for _, name := range rd.ChildTypes {
			if !seenResourceTypes[name] {
				errs = append(errs, model.ErrorEntry{
					Kind:           model.ErrorKindDefinition,
					Message:        fmt.Sprintf("resource_type %q declares child_types entry %q, which is not a defined resource_type", rd.ResourceType, name),
					Critical:       true,
					DefinitionType: model.DefinitionTypeResource,
					Definition:     raw,
				})
			}
		}
	}

	return errs, nil
}
