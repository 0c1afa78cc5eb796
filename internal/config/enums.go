package config

// LogLevel represents the logging level for the application.
type LogLevel string

const (
	// LogLevelDebug is the debug logging level, providing detailed information.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo is the informational logging level, providing general information.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn is the warning logging level, indicating potential issues.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError is the error logging level, indicating serious issues.
	LogLevelError LogLevel = "error"
)

// Protocol names a supported over-the-air protocol stack, one per
// configured site controller.
type Protocol string

const (
	// ProtocolDMR is the Digital Mobile Radio protocol.
	ProtocolDMR Protocol = "dmr"
	// ProtocolP25 is the Project 25 Phase 1 protocol.
	ProtocolP25 Protocol = "p25"
	// ProtocolNXDN is the NXDN protocol.
	ProtocolNXDN Protocol = "nxdn"
)

// PeerAuthMode selects how an inbound peer login on the peer network is
// authenticated.
type PeerAuthMode string

const (
	// PeerAuthModePassword requires the SHA-256 challenge/salt handshake.
	PeerAuthModePassword PeerAuthMode = "password"
	// PeerAuthModeNone accepts any peer login unconditionally.
	PeerAuthModeNone PeerAuthMode = "none"
)
