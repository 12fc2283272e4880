// Package modkit provides module wiring and core deps
package modkit

import (
	"commitpipe/internal/platform/config"
	"commitpipe/internal/platform/logger"
)

// Deps holds core dependencies passed to modules
// sink stores are opened by the module that needs them, not here
type Deps struct {
	Log      logger.Logger
	Cfg      config.Conf
	Settings config.Settings
}
