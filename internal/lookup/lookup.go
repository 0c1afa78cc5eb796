// Package lookup defines the external-collaborator boundary spec.md §1
// names explicitly out of scope: "lookups persisted to disk, presented
// to the core as an interface." Peer-Link (§4.6) and REST reload
// endpoints (§4.7) decode an inbound table and call Swap on it; nothing
// in this repository reads or writes a filesystem directly.
package lookup

import (
	"encoding/json"
	"sync"
)

// TalkgroupRules answers whether a talkgroup is permitted and what
// priority it carries. Swap atomically replaces the underlying
// table from a decoded Peer-Link or REST payload.
type TalkgroupRules interface {
	Allowed(talkgroupID uint32) bool
	Priority(talkgroupID uint32) int
	Swap(decoded []byte) error
}

// RadioACL answers whether a radio id is permitted onto the system. Swap
// atomically replaces the underlying table.
type RadioACL interface {
	Allowed(radioID uint32) bool
	Swap(decoded []byte) error
}

// IdentityTable resolves a channel id to the Rx/Tx frequency pair a
// trunked site broadcasts in its channel-grant messages.
type IdentityTable interface {
	Frequencies(channelID uint16) (rx, tx uint32, ok bool)
	Swap(decoded []byte) error
}

// IdentityEntry is one row of an IdentityTable: base frequency (Hz),
// channel spacing (kHz), tx offset (MHz), and bandwidth (kHz), per
// spec.md's IdentityTable entry.
type IdentityEntry struct {
	ChannelID    uint16 `json:"channelId"`
	BaseHz       uint32 `json:"baseHz"`
	ChSpaceKHz   uint32 `json:"chSpaceKHz"`
	TxOffsetMHz  int32  `json:"txOffsetMHz"`
	BandwidthKHz uint32 `json:"bandwidthKHz"`
}

// Frequencies computes the Rx/Tx pair for a channel number within this
// entry's band: rx = base + (chSpace*125*chNo) + txOffset*1e6, and tx is
// the same without the offset.
func (e IdentityEntry) Frequencies(chNo uint32) (rx, tx uint32) {
	tx = e.BaseHz + e.ChSpaceKHz*125*chNo
	rx = uint32(int64(tx) + int64(e.TxOffsetMHz)*1_000_000)
	return rx, tx
}

// MemoryIdentityTable is an in-memory IdentityTable implementation
// guarded by a read-mostly lock (spec.md §5: "reload path stops/swaps
// under a write lock; readers take a short read lock").
type MemoryIdentityTable struct {
	mu      sync.RWMutex
	entries map[uint16]IdentityEntry
}

// NewMemoryIdentityTable returns an empty table.
func NewMemoryIdentityTable() *MemoryIdentityTable {
	return &MemoryIdentityTable{entries: make(map[uint16]IdentityEntry)}
}

// Frequencies looks up channelID and computes its Rx/Tx pair at
// channel-number zero (callers combine this with a channel-number
// offset from the grant context).
func (t *MemoryIdentityTable) Frequencies(channelID uint16) (rx, tx uint32, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entry, found := t.entries[channelID]
	if !found {
		return 0, 0, false
	}
	rx, tx = entry.Frequencies(0)
	return rx, tx, true
}

// Swap replaces the table contents from an already-inflated JSON array
// of IdentityEntry values (the decompression itself happens in the
// Peer-Link or REST handler that calls Swap; this package never touches
// the wire format beyond this final unmarshal).
func (t *MemoryIdentityTable) Swap(decoded []byte) error {
	var entries []IdentityEntry
	if err := json.Unmarshal(decoded, &entries); err != nil {
		return err
	}
	m := make(map[uint16]IdentityEntry, len(entries))
	for _, e := range entries {
		m[e.ChannelID] = e
	}
	t.mu.Lock()
	t.entries = m
	t.mu.Unlock()
	return nil
}

// talkgroupRuleEntry is one row of a decoded talkgroup-rules table.
type talkgroupRuleEntry struct {
	TalkgroupID uint32 `json:"talkgroupId"`
	Priority    int    `json:"priority"`
}

// MemoryTalkgroupRules is an in-memory TalkgroupRules implementation.
// Talkgroups absent from the table are denied; a zero priority is
// normalized to protoconst.DefaultPriority on lookup.
type MemoryTalkgroupRules struct {
	mu    sync.RWMutex
	rules map[uint32]int
}

// NewMemoryTalkgroupRules returns an empty table (nothing permitted
// until the first Swap).
func NewMemoryTalkgroupRules() *MemoryTalkgroupRules {
	return &MemoryTalkgroupRules{rules: make(map[uint32]int)}
}

func (t *MemoryTalkgroupRules) Allowed(talkgroupID uint32) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.rules[talkgroupID]
	return ok
}

func (t *MemoryTalkgroupRules) Priority(talkgroupID uint32) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.rules[talkgroupID]
	if !ok || p == 0 {
		return defaultPriority
	}
	return p
}

// Size returns the number of talkgroups currently in the table, for the
// REST control plane's commit/diagnostic endpoints.
func (t *MemoryTalkgroupRules) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rules)
}

// Swap replaces the table from an already-inflated JSON array of
// talkgroupRuleEntry values.
func (t *MemoryTalkgroupRules) Swap(decoded []byte) error {
	var entries []talkgroupRuleEntry
	if err := json.Unmarshal(decoded, &entries); err != nil {
		return err
	}
	m := make(map[uint32]int, len(entries))
	for _, e := range entries {
		m[e.TalkgroupID] = e.Priority
	}
	t.mu.Lock()
	t.rules = m
	t.mu.Unlock()
	return nil
}

// radioACLEntry is one row of a decoded radio ACL table.
type radioACLEntry struct {
	RadioID uint32 `json:"radioId"`
}

// MemoryRadioACL is an in-memory RadioACL implementation: a radio id is
// permitted iff it is present in the table (allow-list semantics).
type MemoryRadioACL struct {
	mu  sync.RWMutex
	ids map[uint32]struct{}
}

// NewMemoryRadioACL returns an empty table (nothing permitted until the
// first Swap).
func NewMemoryRadioACL() *MemoryRadioACL {
	return &MemoryRadioACL{ids: make(map[uint32]struct{})}
}

func (a *MemoryRadioACL) Allowed(radioID uint32) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.ids[radioID]
	return ok
}

// Size returns the number of radio ids currently allow-listed, for the
// REST control plane's commit/diagnostic endpoints.
func (a *MemoryRadioACL) Size() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.ids)
}

// Swap replaces the table from an already-inflated JSON array of
// radioACLEntry values.
func (a *MemoryRadioACL) Swap(decoded []byte) error {
	var entries []radioACLEntry
	if err := json.Unmarshal(decoded, &entries); err != nil {
		return err
	}
	m := make(map[uint32]struct{}, len(entries))
	for _, e := range entries {
		m[e.RadioID] = struct{}{}
	}
	a.mu.Lock()
	a.ids = m
	a.mu.Unlock()
	return nil
}

// defaultPriority mirrors protoconst.DefaultPriority; duplicated here
// rather than imported to keep this package free of a dependency on the
// wire-constants package it is itself a collaborator of.
const defaultPriority = 4
