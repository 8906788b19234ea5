// Copyright 2025 The Authzee Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"log/slog"
)

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger used for the loader's own debug output
// (which source each load step pulled from); defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}
