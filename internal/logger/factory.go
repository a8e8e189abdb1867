// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

package logger

import (
	"github.com/rs/zerolog"
)

// Static logger getters that map directly to config log.levels keys.
// These keep logger names consistent across the codebase.

// GetStoryLogger returns a logger for graph/patch operations.
func GetStoryLogger() zerolog.Logger {
	return GetLogger("story")
}

// GetValidateLogger returns a logger for the validator.
func GetValidateLogger() zerolog.Logger {
	return GetLogger("validate")
}

// GetRulesLogger returns a logger for the rule engine.
func GetRulesLogger() zerolog.Logger {
	return GetLogger("rules")
}

// GetCoverageLogger returns a logger for coverage computation.
func GetCoverageLogger() zerolog.Logger {
	return GetLogger("coverage")
}

// GetVersionLogger returns a logger for the version store.
func GetVersionLogger() zerolog.Logger {
	return GetLogger("version")
}

// GetAPILogger returns a logger for API operations.
func GetAPILogger() zerolog.Logger {
	return GetLogger("api")
}

// GetCLILogger returns a logger for CLI commands.
func GetCLILogger() zerolog.Logger {
	return GetLogger("cli")
}
