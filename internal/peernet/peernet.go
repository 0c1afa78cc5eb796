// Package peernet implements the peer network transport (C6, spec.md
// §4.6): the UDP login/auth/config handshake, keep-alives, RTP-style
// stream/sequence tracking for forwarded traffic, activity/diagnostic
// log forwarding, and the deflate-compressed Peer-Link bulk transfer of
// ACL/talkgroup-rule tables. Grounded on the sibling repo's
// internal/dmr/servers/hbrp package — the same RPTL/RPTK/RPTC
// challenge/auth/config session lifecycle, generalized from a
// fixed-width-field, single-protocol, database-and-Redis-backed master
// into a protocol-agnostic, JSON-config, in-process (or Redis pub/sub)
// one.
package peernet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fnecore/corehost/internal/config"
	"github.com/fnecore/corehost/internal/protoconst"
)

// SessionState is a peer's position in the login/auth/config handshake,
// per spec.md §4.6's "Session lifecycle".
type SessionState int

const (
	StateWaitAuth SessionState = iota
	StateWaitConfig
	StateRunning
)

func (s SessionState) String() string {
	switch s {
	case StateWaitAuth:
		return "WAIT_AUTH"
	case StateWaitConfig:
		return "WAIT_CONFIG"
	case StateRunning:
		return "RUNNING"
	default:
		return "UNKNOWN"
	}
}

// Flags are the feature flags a peer negotiates in its RPTC payload.
type Flags struct {
	DMR           bool `json:"dmr"`
	P25           bool `json:"p25"`
	NXDN          bool `json:"nxdn"`
	Slot1         bool `json:"slot1"`
	Slot2         bool `json:"slot2"`
	Activity      bool `json:"activity"`
	Diagnostic    bool `json:"diagnostic"`
	LookupUpdates bool `json:"lookupUpdates"`
	PeerLink      bool `json:"peerLink"`
}

// PeerConfig is the JSON payload a peer sends in its RPTC frame:
// identity, frequency/channel data, REST endpoint, and feature flags
// (spec.md §4.6 step 3).
type PeerConfig struct {
	Callsign     string  `json:"callsign"`
	RXFrequency  uint32  `json:"rxFrequency"`
	TXFrequency  uint32  `json:"txFrequency"`
	ChannelID    uint16  `json:"channelId"`
	RESTEndpoint string  `json:"restEndpoint"`
	Flags        Flags   `json:"flags"`
}

// Peer is one authenticated peer-network session.
type Peer struct {
	ID   uint32
	Addr string

	mu            sync.Mutex
	state         SessionState
	salt          uint32
	lastPing      time.Time
	missedPings   int
	cfg           PeerConfig
	promiscuous   bool
	streamSeq     map[uint32]uint16 // streamId -> next rtpSeq to emit
	transfers     map[protoconst.PeerLinkKind]*bulkAccumulator
	liveTableHash map[protoconst.PeerLinkKind]uint64
}

func newPeer(id uint32, addr string) *Peer {
	return &Peer{
		ID:            id,
		Addr:          addr,
		state:         StateWaitAuth,
		streamSeq:     make(map[uint32]uint16),
		transfers:     make(map[protoconst.PeerLinkKind]*bulkAccumulator),
		liveTableHash: make(map[protoconst.PeerLinkKind]uint64),
	}
}

// State returns the peer's current handshake state.
func (p *Peer) State() SessionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Config returns the peer's negotiated RPTC configuration.
func (p *Peer) Config() PeerConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

// nextStreamSeq allocates the next RTP sequence for a stream id,
// assigning it on first use (spec.md §4.6 "Stream IDs").
func (p *Peer) nextStreamSeq(streamID uint32) uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	seq := p.streamSeq[streamID]
	p.streamSeq[streamID] = seq + 1
	return seq
}

// endStream drops the sequence counter for a finished stream id,
// keyed on the RTPEndOfCallSeq sentinel terminating it.
func (p *Peer) endStream(streamID uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.streamSeq, streamID)
}

var (
	errAuthFailed   = errors.New("peernet: authentication failed")
	errBadState     = errors.New("peernet: frame received out of sequence for the peer's session state")
	errShortPacket  = errors.New("peernet: packet too short for its opcode")
	errUnknownPeer  = errors.New("peernet: peer id not recognized")
	errMismatchAddr = errors.New("peernet: frame address does not match the registered peer")
)

// wrapPacketKey AES-GCM seals payload under the configured 32-byte
// packet key (spec.md §4.6 "Encryption"). When a key is configured,
// handleRPTC opens the RPTC payload with unwrapPacketKey; RPTK frames
// are not wrapped, and the server seals none of its replies.
func wrapPacketKey(key, payload []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("peernet: packet key cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("peernet: packet key gcm: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("peernet: packet key nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, payload, nil), nil
}

// unwrapPacketKey reverses wrapPacketKey.
func unwrapPacketKey(key, sealed []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("peernet: packet key cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("peernet: packet key gcm: %w", err)
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, errShortPacket
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

// resolvePacketKey decodes the configured packet key, if any, into the
// 32 raw bytes AES-256-GCM expects.
func resolvePacketKey(cfg config.PeerNetwork) ([]byte, error) {
	if cfg.PacketKey == "" {
		return nil, nil
	}
	if len(cfg.PacketKey) != 32 {
		return nil, fmt.Errorf("peernet: packet key must be exactly 32 bytes, got %d", len(cfg.PacketKey))
	}
	return []byte(cfg.PacketKey), nil
}
