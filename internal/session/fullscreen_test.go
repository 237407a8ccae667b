package session

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

type stubDisplayAPI struct {
	name string
	err  error
}

func (a stubDisplayAPI) Name() string { return a.name }

func (a stubDisplayAPI) RequestFullscreen(ctx context.Context) error { return a.err }

func TestGateGrantsWithoutAPIs(t *testing.T) {
	gate := NewFullscreenGate(zerolog.Nop())
	grant := gate.RequestExclusiveMode(context.Background())
	if !grant.Granted {
		t.Fatal("gate denied on a platform without an exclusive-mode API")
	}
	if grant.API != "" || grant.Err != nil {
		t.Fatalf("unexpected grant detail: %+v", grant)
	}
}

func TestGateFallsBackToVendorVariant(t *testing.T) {
	gate := NewFullscreenGate(zerolog.Nop(),
		stubDisplayAPI{name: "standard", err: errors.New("not allowed")},
		stubDisplayAPI{name: "webkit"},
	)
	grant := gate.RequestExclusiveMode(context.Background())
	if !grant.Granted || grant.API != "webkit" {
		t.Fatalf("got %+v, want grant via webkit variant", grant)
	}
}

func TestGateFailsOpenWhenEveryVariantFails(t *testing.T) {
	lastErr := errors.New("blocked by policy")
	gate := NewFullscreenGate(zerolog.Nop(),
		stubDisplayAPI{name: "standard", err: errors.New("not allowed")},
		stubDisplayAPI{name: "webkit", err: lastErr},
	)
	grant := gate.RequestExclusiveMode(context.Background())
	if !grant.Granted {
		t.Fatal("gate denied; acquisition failures must fail open")
	}
	if !errors.Is(grant.Err, lastErr) {
		t.Fatalf("grant carries %v, want the last acquisition error", grant.Err)
	}
	if grant.API != "" {
		t.Fatalf("failed-open grant names API %q", grant.API)
	}
}
