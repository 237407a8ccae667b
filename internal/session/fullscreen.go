package session

import (
	"context"

	"github.com/rs/zerolog"
)

// DisplayAPI abstracts one exclusive-presentation-mode API variant (the
// primary API or a vendor-prefixed fallback).
type DisplayAPI interface {
	Name() string
	RequestFullscreen(ctx context.Context) error
}

// Grant is the resolution of an exclusive-mode request. It always resolves
// granted: on success, on API absence, and on any acquisition error. The
// surrounding product requirement is a soft deterrent, not a hard security
// boundary, so the gate fails open.
type Grant struct {
	Granted bool
	API     string // variant that succeeded; empty when failed open
	Err     error  // last acquisition error, informational only
}

// FullscreenGate blocks session start until an exclusive presentation mode
// request has resolved at least once. Involuntary exits from the mode are
// observed and logged but never trigger a submission; only the focus
// monitor's switch counting does that.
type FullscreenGate struct {
	apis []DisplayAPI
	log  zerolog.Logger
}

// NewFullscreenGate creates a gate that tries the given API variants in
// order. An empty list means the platform has no exclusive-mode API.
func NewFullscreenGate(log zerolog.Logger, apis ...DisplayAPI) *FullscreenGate {
	return &FullscreenGate{
		apis: apis,
		log:  log.With().Str("component", "fullscreen_gate").Logger(),
	}
}

// RequestExclusiveMode attempts each API variant in order and resolves the
// grant.
func (g *FullscreenGate) RequestExclusiveMode(ctx context.Context) Grant {
	if len(g.apis) == 0 {
		g.log.Debug().Msg("No exclusive-mode API, assuming granted")
		return Grant{Granted: true}
	}

	var lastErr error
	for _, api := range g.apis {
		if err := api.RequestFullscreen(ctx); err != nil {
			lastErr = err
			g.log.Debug().
				Str("api", api.Name()).
				Err(err).
				Msg("Exclusive-mode variant failed, trying next")
			continue
		}
		return Grant{Granted: true, API: api.Name()}
	}

	g.log.Warn().Err(lastErr).Msg("All exclusive-mode variants failed, failing open")
	return Grant{Granted: true, Err: lastErr}
}

// NotifyModeChange records an observed change of the exclusive mode. Exits
// are informational.
func (g *FullscreenGate) NotifyModeChange(active bool) {
	if !active {
		g.log.Info().Msg("Exclusive mode exited")
	}
}
