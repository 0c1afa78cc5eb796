package config

import (
	"errors"
	"time"
)

var (
	// ErrInvalidLogLevel indicates that the provided log level is not valid.
	ErrInvalidLogLevel = errors.New("invalid log level provided")
	// ErrNoSites indicates that no site controllers were configured.
	ErrNoSites = errors.New("at least one site must be configured")
	// ErrInvalidSiteProtocol indicates that a site names an unsupported protocol.
	ErrInvalidSiteProtocol = errors.New("invalid site protocol provided")
	// ErrEmptyChannelPool indicates that a site has no RF channels to grant.
	ErrEmptyChannelPool = errors.New("site channel pool must not be empty")
	// ErrInvalidFrameLossThreshold indicates a non-positive loss threshold.
	ErrInvalidFrameLossThreshold = errors.New("frame loss threshold must be at least 1")
	// ErrInvalidBeaconCounts indicates a beacon count below 1.
	ErrInvalidBeaconCounts = errors.New("beacon cycle counts must all be at least 1")
	// ErrInvalidPeerNetworkPort indicates an out-of-range peer network port.
	ErrInvalidPeerNetworkPort = errors.New("invalid peer network port provided")
	// ErrInvalidPeerAuthMode indicates an unrecognized peer auth mode.
	ErrInvalidPeerAuthMode = errors.New("invalid peer network auth mode provided")
	// ErrPeerPasswordRequired indicates password auth was selected with no password set.
	ErrPeerPasswordRequired = errors.New("peer network password is required when auth mode is password")
	// ErrInvalidRESTPort indicates an out-of-range REST port.
	ErrInvalidRESTPort = errors.New("invalid REST port provided")
	// ErrInvalidRESTAuthTokenTTL indicates a sub-second (or negative) token TTL.
	ErrInvalidRESTAuthTokenTTL = errors.New("REST auth token TTL must be at least one second")
	// ErrInvalidMetricsBindAddress indicates an empty metrics bind address.
	ErrInvalidMetricsBindAddress = errors.New("invalid metrics server bind address provided")
	// ErrInvalidMetricsPort indicates an out-of-range metrics port.
	ErrInvalidMetricsPort = errors.New("invalid metrics server port provided")
	// ErrInvalidPProfBindAddress indicates an empty pprof bind address.
	ErrInvalidPProfBindAddress = errors.New("invalid pprof server bind address provided")
	// ErrInvalidPProfPort indicates an out-of-range pprof port.
	ErrInvalidPProfPort = errors.New("invalid pprof server port provided")
	// ErrInvalidRedisHost indicates an empty Redis host when Redis is enabled.
	ErrInvalidRedisHost = errors.New("invalid Redis host provided")
	// ErrInvalidRedisPort indicates an out-of-range Redis port.
	ErrInvalidRedisPort = errors.New("invalid Redis port provided")
)

// Validate validates one site's configuration.
func (s Site) Validate() error {
	switch s.Protocol {
	case ProtocolDMR, ProtocolP25, ProtocolNXDN:
	default:
		return ErrInvalidSiteProtocol
	}
	if len(s.ChannelPool) == 0 {
		return ErrEmptyChannelPool
	}
	if s.FrameLossThreshold <= 0 {
		return ErrInvalidFrameLossThreshold
	}
	return s.Beacon.Validate()
}

// Validate validates the beacon cycle counts; every count must be at
// least 1 so the cycle advances (spec.md §9's open question, testable
// property 11).
func (b Beacon) Validate() error {
	if b.BCCHCount < 1 || b.CCCHPagingCount < 1 || b.CCCHMultiCount < 1 ||
		b.RCCHGroupingCount < 1 || b.RCCHIterateCount < 1 {
		return ErrInvalidBeaconCounts
	}
	return nil
}

// Validate validates the peer network configuration.
func (p PeerNetwork) Validate() error {
	if !p.Enabled {
		return nil
	}
	if p.Port <= 0 || p.Port > 65535 {
		return ErrInvalidPeerNetworkPort
	}
	switch p.AuthMode {
	case PeerAuthModePassword:
		if p.Password == "" {
			return ErrPeerPasswordRequired
		}
	case PeerAuthModeNone:
	default:
		return ErrInvalidPeerAuthMode
	}
	return nil
}

// Validate validates the REST control plane configuration, including the
// auth token TTL resolving spec.md §9's default-TTL open question.
func (r REST) Validate() error {
	if r.Port <= 0 || r.Port > 65535 {
		return ErrInvalidRESTPort
	}
	if r.AuthTokenTTL < time.Second {
		return ErrInvalidRESTAuthTokenTTL
	}
	return nil
}

// Validate validates the metrics server configuration.
func (m Metrics) Validate() error {
	if !m.Enabled {
		return nil
	}
	if m.Bind == "" {
		return ErrInvalidMetricsBindAddress
	}
	if m.Port <= 0 || m.Port > 65535 {
		return ErrInvalidMetricsPort
	}
	return nil
}

// Validate validates the pprof server configuration.
func (p PProf) Validate() error {
	if !p.Enabled {
		return nil
	}
	if p.Bind == "" {
		return ErrInvalidPProfBindAddress
	}
	if p.Port <= 0 || p.Port > 65535 {
		return ErrInvalidPProfPort
	}
	return nil
}

// Validate validates the optional Redis-backed pubsub configuration.
func (r Redis) Validate() error {
	if !r.Enabled {
		return nil
	}
	if r.Host == "" {
		return ErrInvalidRedisHost
	}
	if r.Port <= 0 || r.Port > 65535 {
		return ErrInvalidRedisPort
	}
	return nil
}

// Validate validates the full configuration, per testable property 11:
// every field this repository requires to be non-empty/in-range yields a
// non-nil sentinel error.
func (c Config) Validate() error {
	if c.LogLevel != LogLevelDebug && c.LogLevel != LogLevelInfo &&
		c.LogLevel != LogLevelWarn && c.LogLevel != LogLevelError {
		return ErrInvalidLogLevel
	}
	if len(c.Sites) == 0 {
		return ErrNoSites
	}
	for _, s := range c.Sites {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	if err := c.PeerNetwork.Validate(); err != nil {
		return err
	}
	if err := c.REST.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	if err := c.Redis.Validate(); err != nil {
		return err
	}
	return nil
}
