package browser

import (
	"clickmap/internal/config"
	"clickmap/internal/ports"
)

// New returns the collaborator selected by BROWSER_ENGINE.
func New(params Params) ports.BrowserManager {
	if params.Config.BrowserConfig.Engine == config.EngineRod {
		return NewRodManager(params)
	}

	return NewManager(params)
}
