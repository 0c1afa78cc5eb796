// Package config defines the corehostd configuration shape loaded by
// github.com/USA-RedDragon/configulator's generic Load/LoadWithoutValidation,
// mirroring the sibling repeater-network codebase's Config/Validate split.
package config

import "time"

// Config is the top-level corehostd configuration. Fields carry yaml tags
// since configulator's file source unmarshals the same struct that its
// flag and environment sources populate.
type Config struct {
	LogLevel LogLevel `yaml:"log_level"`

	Sites       []Site      `yaml:"sites"`
	PeerNetwork PeerNetwork `yaml:"peer_network"`
	REST        REST        `yaml:"rest"`
	Lookup      Lookup      `yaml:"lookup"`
	Metrics     Metrics     `yaml:"metrics"`
	PProf       PProf       `yaml:"pprof"`
	Redis       Redis       `yaml:"redis"`
}

// Redis optionally backs the inter-process pubsub bus (internal/pubsub)
// that fans out inbound RF traffic across multiple corehostd processes
// sharing a site array. Disabled by default, in which case pubsub runs
// entirely in-process.
type Redis struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
}

// Site configures one per-protocol site controller instance (spec.md §4.4).
type Site struct {
	Name          string   `yaml:"name"`
	Protocol      Protocol `yaml:"protocol"`
	Authoritative bool     `yaml:"authoritative"`
	ChannelPool   []uint16 `yaml:"channel_pool"`

	FrameLossThreshold int           `yaml:"frame_loss_threshold"`
	RFDeadBeatDelay    time.Duration `yaml:"rf_dead_beat_delay"`
	RFTGHang           time.Duration `yaml:"rf_tg_hang"`
	NetTGHang          time.Duration `yaml:"net_tg_hang"`
	AdjacentSiteUpdate time.Duration `yaml:"adjacent_site_update"`
	Beacon             Beacon        `yaml:"beacon"`

	AffiliationTimeout   time.Duration `yaml:"affiliation_timeout"`
	GrantTimeout         time.Duration `yaml:"grant_timeout"`
	UnitRegTimeout       time.Duration `yaml:"unit_reg_timeout"`
	DisableUnitRegTimers bool          `yaml:"disable_unit_reg_timers"`
}

// Beacon configures the control-channel beacon cycle (spec.md §9's open
// question, resolved as explicit counts rather than hard-coded constants).
type Beacon struct {
	Interval          time.Duration `yaml:"interval"`
	BCCHCount         int           `yaml:"bcch_count"`
	CCCHPagingCount   int           `yaml:"ccch_paging_count"`
	CCCHMultiCount    int           `yaml:"ccch_multi_count"`
	RCCHGroupingCount int           `yaml:"rcch_grouping_count"`
	RCCHIterateCount  int           `yaml:"rcch_iterate_count"`
}

// PeerNetwork configures the C6 peer-network UDP transport (spec.md §4.6).
type PeerNetwork struct {
	Enabled      bool          `yaml:"enabled"`
	Bind         string        `yaml:"bind"`
	Port         int           `yaml:"port"`
	ID           uint32        `yaml:"id"`
	AuthMode     PeerAuthMode  `yaml:"auth_mode"`
	Password     string        `yaml:"password"`
	PingInterval time.Duration `yaml:"ping_interval"`
	PingsMissed  int           `yaml:"pings_missed"`
	Promiscuous  bool          `yaml:"promiscuous"`
	PacketKey    string        `yaml:"packet_key"`
}

// REST configures the C7 bearer-token control plane (spec.md §4.7).
type REST struct {
	Bind         string        `yaml:"bind"`
	Port         int           `yaml:"port"`
	Password     string        `yaml:"password"`
	AuthTokenTTL time.Duration `yaml:"auth_token_ttl"`
	CORSOrigins  []string      `yaml:"cors_origins"`
	PProf        bool          `yaml:"pprof"`
}

// Lookup configures the external radio-ACL and talkgroup-rules files
// consumed through the internal/lookup interfaces (spec.md §1 non-goal:
// the files themselves are loaded and watched by an external collaborator,
// not by this repository).
type Lookup struct {
	RadioACLPath       string `yaml:"radio_acl_path"`
	TalkgroupRulesPath string `yaml:"talkgroup_rules_path"`
}

// Metrics configures the Prometheus/OTLP exporters.
type Metrics struct {
	Enabled      bool   `yaml:"enabled"`
	Bind         string `yaml:"bind"`
	Port         int    `yaml:"port"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// PProf configures the debug profiling server.
type PProf struct {
	Enabled bool   `yaml:"enabled"`
	Bind    string `yaml:"bind"`
	Port    int    `yaml:"port"`
}
