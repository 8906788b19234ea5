// Copyright 2026 The Authzee Authors
// SPDX-License-Identifier: Apache-2.0

// Package jmespathx is the reference model.Searcher adapter, backed by
// github.com/jmespath/go-jmespath. The grant evaluator never imports
// this package directly (spec §1, §9: the search function is "passed
// in as a callback") — hosts wire it in at construction time, or
// supply their own (e.g. to register custom JMESPath functions).
package jmespathx

import (
	"fmt"
	"sync"

	"github.com/jmespath/go-jmespath"

	"github.com/authzee/authzee/jsonval"
)

// Searcher compiles and caches JMESPath expressions, keyed by a content
// hash of the expression text (spec §5: compiled-query caches are
// permitted, invalidated on content change).
type Searcher struct {
	mu    sync.Mutex
	cache map[string]*jmespath.JMESPath
}

// New returns a Searcher with an empty compiled-expression cache.
func New() *Searcher {
	return &Searcher{cache: make(map[string]*jmespath.JMESPath)}
}

// Search implements model.Searcher.
func (s *Searcher) Search(expression string, data any) (any, error) {
	compiled, err := s.compile(expression)
	if err != nil {
		return nil, fmt.Errorf("failed to compile JMESPath expression %q: %w", expression, err)
	}

	result, err := compiled.Search(data)
	if err != nil {
		return nil, fmt.Errorf("JMESPath search failed for expression %q: %w", expression, err)
	}
	return result, nil
}

func (s *Searcher) compile(expression string) (*jmespath.JMESPath, error) {
	key := jsonval.ContentHash(expression)

	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.cache[key]; ok {
		return cached, nil
	}

	compiled, err := jmespath.Compile(expression)
	if err != nil {
		return nil, err
	}

	s.cache[key] = compiled
	return compiled, nil
}
