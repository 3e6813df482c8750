package tunnel

import (
	"context"
	"errors"
	"testing"

	"tunedeck/internal/config"
	"tunedeck/internal/logging"
)

func TestDisabledTunnel(t *testing.T) {
	svc, err := NewService(&config.TunnelConfig{Enabled: false}, logging.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc != nil {
		t.Fatal("expected nil service when the tunnel is disabled")
	}

	// nil service is a no-op
	if err := svc.Start(context.Background(), "http://127.0.0.1:1306"); err != nil {
		t.Errorf("Start on disabled tunnel: %v", err)
	}
	if url := svc.PublicURL(); url != "" {
		t.Errorf("PublicURL on disabled tunnel = %q, want empty", url)
	}
	if err := svc.Stop(); err != nil {
		t.Errorf("Stop on disabled tunnel: %v", err)
	}
}

func TestEnabledTunnelRequiresToken(t *testing.T) {
	_, err := NewService(&config.TunnelConfig{Enabled: true}, logging.Discard())
	if !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestStopBeforeStart(t *testing.T) {
	svc := &Service{config: &config.TunnelConfig{}, logger: logging.Discard()}
	if err := svc.Stop(); err != nil {
		t.Errorf("Stop before Start: %v", err)
	}
	if url := svc.PublicURL(); url != "" {
		t.Errorf("PublicURL before Start = %q, want empty", url)
	}
}
