package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/fnecore/corehost/internal/config"
)

func makeValidConfig() config.Config {
	return config.Config{
		LogLevel: config.LogLevelInfo,
		Sites: []config.Site{
			{
				Name:               "site1",
				Protocol:           config.ProtocolDMR,
				ChannelPool:        []uint16{1, 2, 3},
				FrameLossThreshold: 5,
				Beacon: config.Beacon{
					BCCHCount:         1,
					CCCHPagingCount:   1,
					CCCHMultiCount:    1,
					RCCHGroupingCount: 1,
					RCCHIterateCount:  1,
				},
			},
		},
		REST: config.REST{
			Bind:         "[::]",
			Port:         9990,
			AuthTokenTTL: 15 * time.Minute,
		},
	}
}

func TestConfigValidateValid(t *testing.T) {
	t.Parallel()
	if err := makeValidConfig().Validate(); err != nil {
		t.Errorf("expected nil error for a valid config, got %v", err)
	}
}

func TestConfigValidateInvalidLogLevel(t *testing.T) {
	t.Parallel()
	c := makeValidConfig()
	c.LogLevel = "bogus"
	if !errors.Is(c.Validate(), config.ErrInvalidLogLevel) {
		t.Errorf("expected ErrInvalidLogLevel, got %v", c.Validate())
	}
}

func TestConfigValidateNoSites(t *testing.T) {
	t.Parallel()
	c := makeValidConfig()
	c.Sites = nil
	if !errors.Is(c.Validate(), config.ErrNoSites) {
		t.Errorf("expected ErrNoSites, got %v", c.Validate())
	}
}

// --- Site validation ---

func TestSiteValidateInvalidProtocol(t *testing.T) {
	t.Parallel()
	s := config.Site{Protocol: "bogus", ChannelPool: []uint16{1}, FrameLossThreshold: 1}
	if !errors.Is(s.Validate(), config.ErrInvalidSiteProtocol) {
		t.Errorf("expected ErrInvalidSiteProtocol, got %v", s.Validate())
	}
}

func TestSiteValidateEmptyChannelPool(t *testing.T) {
	t.Parallel()
	s := config.Site{Protocol: config.ProtocolP25, FrameLossThreshold: 1}
	if !errors.Is(s.Validate(), config.ErrEmptyChannelPool) {
		t.Errorf("expected ErrEmptyChannelPool, got %v", s.Validate())
	}
}

func TestSiteValidateInvalidFrameLossThreshold(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		threshold int
	}{
		{"zero", 0},
		{"negative", -1},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := config.Site{Protocol: config.ProtocolNXDN, ChannelPool: []uint16{1}, FrameLossThreshold: tt.threshold}
			if !errors.Is(s.Validate(), config.ErrInvalidFrameLossThreshold) {
				t.Errorf("expected ErrInvalidFrameLossThreshold, got %v", s.Validate())
			}
		})
	}
}

// --- Beacon validation ---

func TestBeaconValidateRejectsZeroCounts(t *testing.T) {
	t.Parallel()
	valid := config.Beacon{BCCHCount: 1, CCCHPagingCount: 1, CCCHMultiCount: 1, RCCHGroupingCount: 1, RCCHIterateCount: 1}
	if err := valid.Validate(); err != nil {
		t.Errorf("expected nil error for valid beacon counts, got %v", err)
	}

	zeroed := valid
	zeroed.RCCHIterateCount = 0
	if !errors.Is(zeroed.Validate(), config.ErrInvalidBeaconCounts) {
		t.Errorf("expected ErrInvalidBeaconCounts, got %v", zeroed.Validate())
	}
}

// --- PeerNetwork validation ---

func TestPeerNetworkValidateDisabled(t *testing.T) {
	t.Parallel()
	p := config.PeerNetwork{Enabled: false}
	if err := p.Validate(); err != nil {
		t.Errorf("expected nil error for disabled peer network, got %v", err)
	}
}

func TestPeerNetworkValidateInvalidPort(t *testing.T) {
	t.Parallel()
	p := config.PeerNetwork{Enabled: true, Port: 0}
	if !errors.Is(p.Validate(), config.ErrInvalidPeerNetworkPort) {
		t.Errorf("expected ErrInvalidPeerNetworkPort, got %v", p.Validate())
	}
}

func TestPeerNetworkValidatePasswordRequired(t *testing.T) {
	t.Parallel()
	p := config.PeerNetwork{Enabled: true, Port: 62030, AuthMode: config.PeerAuthModePassword}
	if !errors.Is(p.Validate(), config.ErrPeerPasswordRequired) {
		t.Errorf("expected ErrPeerPasswordRequired, got %v", p.Validate())
	}
}

func TestPeerNetworkValidateInvalidAuthMode(t *testing.T) {
	t.Parallel()
	p := config.PeerNetwork{Enabled: true, Port: 62030, AuthMode: "bogus"}
	if !errors.Is(p.Validate(), config.ErrInvalidPeerAuthMode) {
		t.Errorf("expected ErrInvalidPeerAuthMode, got %v", p.Validate())
	}
}

// --- REST validation ---

func TestRESTValidateInvalidPort(t *testing.T) {
	t.Parallel()
	r := config.REST{Port: 70000, AuthTokenTTL: time.Minute}
	if !errors.Is(r.Validate(), config.ErrInvalidRESTPort) {
		t.Errorf("expected ErrInvalidRESTPort, got %v", r.Validate())
	}
}

func TestRESTValidateInvalidTokenTTL(t *testing.T) {
	t.Parallel()
	r := config.REST{Port: 9990, AuthTokenTTL: 0}
	if !errors.Is(r.Validate(), config.ErrInvalidRESTAuthTokenTTL) {
		t.Errorf("expected ErrInvalidRESTAuthTokenTTL, got %v", r.Validate())
	}
}

// --- Metrics validation ---

func TestMetricsValidateDisabled(t *testing.T) {
	t.Parallel()
	m := config.Metrics{Enabled: false}
	if err := m.Validate(); err != nil {
		t.Errorf("expected nil error for disabled metrics, got %v", err)
	}
}

func TestMetricsValidateInvalidPort(t *testing.T) {
	t.Parallel()
	m := config.Metrics{Enabled: true, Bind: "[::]", Port: -1}
	if !errors.Is(m.Validate(), config.ErrInvalidMetricsPort) {
		t.Errorf("expected ErrInvalidMetricsPort, got %v", m.Validate())
	}
}

// --- PProf validation ---

func TestPProfValidateDisabled(t *testing.T) {
	t.Parallel()
	p := config.PProf{Enabled: false}
	if err := p.Validate(); err != nil {
		t.Errorf("expected nil error for disabled pprof, got %v", err)
	}
}

func TestPProfValidateMissingBind(t *testing.T) {
	t.Parallel()
	p := config.PProf{Enabled: true, Port: 6060}
	if !errors.Is(p.Validate(), config.ErrInvalidPProfBindAddress) {
		t.Errorf("expected ErrInvalidPProfBindAddress, got %v", p.Validate())
	}
}
