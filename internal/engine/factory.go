package engine

import (
	"fmt"

	"github.com/valpere/scrapping/internal/config"
	"github.com/valpere/scrapping/internal/errkind"
	"github.com/valpere/scrapping/internal/obslog"
	"github.com/valpere/scrapping/internal/ratelimit"
)

// New builds the engine named by d.Engine.Type ("http", "browser",
// "hybrid"). It takes the full source descriptor, not just the engine
// config, because HybridEngine's fallback decision needs the detail-page
// parse config and the quality stage's min_text_len threshold.
func New(d config.Descriptor, log *obslog.Logger) (Engine, error) {
	cfg := d.Engine
	rl := ratelimit.NewRegistry(ratelimit.Policy{
		RPS: cfg.RPS, Burst: cfg.Burst, MinDelayS: cfg.MinDelayS, JitterS: cfg.JitterS,
	})

	switch cfg.Type {
	case "http":
		return NewHTTPEngine(cfg, rl, log)
	case "browser":
		return NewBrowserEngine(cfg, rl, log)
	case "hybrid":
		h, err := NewHTTPEngine(cfg, rl, log)
		if err != nil {
			return nil, err
		}
		b, err := NewBrowserEngine(cfg, rl, log)
		if err != nil {
			h.Close()
			return nil, err
		}
		return NewHybridEngine(h, b, log, d.Parse, d.Quality.MinTextLen), nil
	default:
		return nil, errkind.New(errkind.EngineConstruction, "engine.new", fmt.Errorf("unknown engine type %q", cfg.Type))
	}
}
