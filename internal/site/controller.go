// Package site implements the per-protocol site controller (spec.md
// §4.4): the RF/network call state machines, the non-authoritative
// permit/grant gate, the control-channel beacon frame counter, and the
// adjacent-site update timer. One Controller instance serves one
// slot/channel of one protocol; DMR, P25, and NXDN hosts each own one.
// Grounded on the call lifecycle and timer bookkeeping in the sibling
// repo's call tracker (mutex-guarded in-flight state plus
// time.AfterFunc teardown), adapted from a database-backed call history
// to an in-memory trunking state machine.
package site

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fnecore/corehost/internal/lookup"
	"github.com/fnecore/corehost/internal/registry"
	"github.com/go-co-op/gocron/v2"
	"go.opentelemetry.io/otel"
)

// errACLDenied is returned by HandleRFVoiceHeader when the radio ACL
// rejects the source id (spec.md §7's ACLDenied error kind).
var errACLDenied = errors.New("site: source denied by radio ACL")

// RFState is the RF-side call state (spec.md §4.4).
type RFState int

const (
	RFListening RFState = iota
	RFAudio
	RFData
	RFRejected
)

func (s RFState) String() string {
	switch s {
	case RFListening:
		return "RF_LISTENING"
	case RFAudio:
		return "RF_AUDIO"
	case RFData:
		return "RF_DATA"
	case RFRejected:
		return "RF_REJECTED"
	default:
		return "RF_UNKNOWN"
	}
}

// NetState is the network-side call state.
type NetState int

const (
	NetIdle NetState = iota
	NetAudio
	NetData
)

func (s NetState) String() string {
	switch s {
	case NetIdle:
		return "NET_IDLE"
	case NetAudio:
		return "NET_AUDIO"
	case NetData:
		return "NET_DATA"
	default:
		return "NET_UNKNOWN"
	}
}

// RxStatus is the in-progress call record seeded on RF_AUDIO entry.
type RxStatus struct {
	Src   uint32
	Dst   uint32
	Slot  uint8
	Group bool
	Start time.Time
}

// BeaconCounts configures the control-channel beacon cycle, exposed as
// parameters per spec.md §9's open question rather than hard-coded.
type BeaconCounts struct {
	BCCHCount         int
	CCCHPagingCount   int
	CCCHMultiCount    int
	RCCHGroupingCount int
	RCCHIterateCount  int
}

func (b BeaconCounts) maxSeq() int {
	return b.BCCHCount + (b.CCCHPagingCount+b.CCCHMultiCount)*b.RCCHGroupingCount*b.RCCHIterateCount
}

// Config configures a Controller's timers and beacon cycle.
type Config struct {
	Authoritative       bool
	FrameLossThreshold  int
	RFDeadBeatDelay     time.Duration
	RFTGHang            time.Duration
	NetTGHang           time.Duration
	AdjacentSiteUpdate  time.Duration
	Beacon              BeaconCounts

	// OnActivityLog receives formatted activity-log lines (e.g.
	// "transmission lost, 2.1 s, BER 3.4%").
	OnActivityLog func(string)
	// OnBeaconFrame is invoked once per emitted beacon frame with the
	// wrapping frame counter and the within-cycle sequence number; the
	// caller is responsible for encoding and transmitting the actual
	// protocol burst.
	OnBeaconFrame func(frameCnt, seq int)
	// OnAdjacentSiteUpdate is invoked when the adjacent-site timer fires
	// while both sides are idle and a peer network is connected.
	OnAdjacentSiteUpdate func()
}

// Controller is one protocol/channel's RF and network state machine,
// control-channel beacon scheduler, and non-authoritative permit gate.
type Controller struct {
	log *slog.Logger
	reg *registry.Registry
	acl lookup.RadioACL

	cfg Config

	mu       sync.Mutex
	rfState  RFState
	netState NetState
	rx       *RxStatus

	lastCallSrc, lastCallDst uint32
	lastCallEnd              time.Time
	consecutiveLost          int

	lastRFTG       uint32
	rfTGHangTimer  *time.Timer
	lastNetTG      uint32
	netTGHangTimer *time.Timer

	ccRunning      bool
	ccHalted       bool
	ccFrameCnt     int
	ccSeq          int
	permittedDstID uint32
	peerConnected  bool

	scheduler gocron.Scheduler
	beaconJob gocron.Job
	adjJob    gocron.Job
}

// New builds a Controller bound to the given affiliation/grant registry
// and radio ACL.
func New(log *slog.Logger, reg *registry.Registry, acl lookup.RadioACL, cfg Config) *Controller {
	if cfg.FrameLossThreshold <= 0 {
		cfg.FrameLossThreshold = 5
	}
	if cfg.RFDeadBeatDelay <= 0 {
		cfg.RFDeadBeatDelay = 180 * time.Millisecond
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Error("failed to create site controller scheduler", "error", err)
	}
	return &Controller{
		log:       log,
		reg:       reg,
		acl:       acl,
		cfg:       cfg,
		rfState:   RFListening,
		netState:  NetIdle,
		scheduler: sched,
	}
}

// RFState returns the current RF-side state.
func (c *Controller) RFState() RFState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rfState
}

// NetState returns the current network-side state.
func (c *Controller) NetState() NetState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.netState
}

// HandleRFVoiceHeader processes an inbound voice/PI header burst: it
// consults the radio ACL and, if accepted, seeds an RxStatus and
// transitions to RF_AUDIO. A retransmitted header for the same
// src/dst/slot arriving within RFDeadBeatDelay of the previous call's
// end is treated as a continuation, not a new call (spec.md §4.4A, E8).
func (c *Controller) HandleRFVoiceHeader(ctx context.Context, src, dst uint32, slot uint8, group bool) error {
	_, span := otel.Tracer("corehost").Start(ctx, "site.Controller.HandleRFVoiceHeader")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rfState == RFAudio && c.rx != nil && c.rx.Src == src && c.rx.Dst == dst {
		return nil // same call already in progress
	}

	if c.acl != nil && !c.acl.Allowed(src) {
		c.rfState = RFRejected
		c.logActivity("RF call from %d to %d rejected by ACL", src, dst)
		return errACLDenied
	}

	if c.rfState == RFListening && !c.withinGraceWindow(src, dst) {
		c.rfState = RFAudio
		c.rx = &RxStatus{Src: src, Dst: dst, Slot: slot, Group: group, Start: time.Now()}
		c.consecutiveLost = 0
		c.lastRFTG = dst
		c.stopRFTGHangTimer()
	}
	return nil
}

// withinGraceWindow reports whether src/dst matches the last call that
// ended within RFDeadBeatDelay — the "same call retransmission" case.
func (c *Controller) withinGraceWindow(src, dst uint32) bool {
	if c.lastCallSrc != src || c.lastCallDst != dst {
		return false
	}
	return !c.lastCallEnd.IsZero() && time.Since(c.lastCallEnd) < c.cfg.RFDeadBeatDelay
}

// HandleRFBurst touches the active grant on each subsequent burst of
// the in-progress call and resets the loss counter.
func (c *Controller) HandleRFBurst(ctx context.Context) {
	_, span := otel.Tracer("corehost").Start(ctx, "site.Controller.HandleRFBurst")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rfState != RFAudio || c.rx == nil {
		return
	}
	c.consecutiveLost = 0
	if c.reg != nil {
		c.reg.TouchGrant(c.rx.Dst)
	}
}

// HandleTagLost records one TAG_LOST burst. Once FrameLossThreshold
// consecutive losses have accumulated, the call is torn down exactly as
// a terminator would (spec.md testable property 8).
func (c *Controller) HandleTagLost(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rfState != RFAudio {
		return
	}
	c.consecutiveLost++
	if c.consecutiveLost >= c.cfg.FrameLossThreshold {
		c.teardownLocked("transmission lost")
	}
}

// HandleRFTerminator tears down the in-progress call on receipt of a
// terminator burst. A terminator for the same call arriving within the
// grace window after an already-processed terminator is a no-op (E8).
func (c *Controller) HandleRFTerminator(_ context.Context, src, dst uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rfState != RFAudio {
		return // idle, or a duplicate terminator within the grace window
	}
	c.teardownLocked("call ended")
}

// HandleRFDataBurst processes an inbound control-data burst carrying a
// CSBK or TSBK link-control frame (internal/lc/dmrlc.CSBK,
// internal/lc/p25lc.TSBK) rather than voice: a radio-check response,
// registration, or similar transmission with no associated talkgroup
// grant. It consults the ACL exactly as HandleRFVoiceHeader does and
// transitions RF_LISTENING -> RF_DATA for the burst's duration; an
// in-progress voice call takes priority and the burst is ignored.
func (c *Controller) HandleRFDataBurst(ctx context.Context, src, dst uint32) error {
	_, span := otel.Tracer("corehost").Start(ctx, "site.Controller.HandleRFDataBurst")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rfState == RFData && c.lastCallSrc == src && c.lastCallDst == dst {
		return nil // continuation of the same data burst
	}
	if c.acl != nil && !c.acl.Allowed(src) {
		c.rfState = RFRejected
		c.logActivity("RF data burst from %d to %d rejected by ACL", src, dst)
		return errACLDenied
	}
	if c.rfState != RFListening {
		return nil // voice call in progress; data burst ignored
	}
	c.rfState = RFData
	c.lastCallSrc, c.lastCallDst = src, dst
	return nil
}

// HandleRFDataEnd ends an in-progress RF_DATA burst, returning the
// controller to RF_LISTENING.
func (c *Controller) HandleRFDataEnd(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rfState != RFData {
		return
	}
	c.rfState = RFListening
	c.logActivity("data burst ended")
}

func (c *Controller) teardownLocked(reason string) {
	if c.rx == nil {
		c.rfState = RFListening
		return
	}
	dst := c.rx.Dst
	src := c.rx.Src
	elapsed := time.Since(c.rx.Start)

	c.lastCallSrc, c.lastCallDst = src, dst
	c.lastCallEnd = time.Now()
	c.rx = nil
	c.rfState = RFListening

	c.startRFTGHangTimer(dst)

	if c.reg != nil {
		c.reg.ReleaseGrant(dst, true)
	}
	c.logActivity("%s, %.1f s", reason, elapsed.Seconds())
}

func (c *Controller) logActivity(format string, args ...any) {
	if c.cfg.OnActivityLog == nil {
		return
	}
	c.cfg.OnActivityLog(fmt.Sprintf(format, args...))
}

func (c *Controller) startRFTGHangTimer(dst uint32) {
	if c.cfg.RFTGHang <= 0 {
		return
	}
	c.stopRFTGHangTimer()
	c.rfTGHangTimer = time.AfterFunc(c.cfg.RFTGHang, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.lastRFTG == dst {
			c.lastRFTG = 0
		}
	})
}

func (c *Controller) stopRFTGHangTimer() {
	if c.rfTGHangTimer != nil {
		c.rfTGHangTimer.Stop()
		c.rfTGHangTimer = nil
	}
}

// LastRFTalkgroup returns the talkgroup of the most recently active RF
// call, or 0 if the hang timer has already expired.
func (c *Controller) LastRFTalkgroup() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRFTG
}

// HandleNetVoiceHeader transitions the network side to NET_AUDIO for an
// inbound peer-forwarded call, mirroring HandleRFVoiceHeader's RF-side
// bookkeeping (spec.md §4.4's "Network side" states).
func (c *Controller) HandleNetVoiceHeader(dst uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.netState == NetIdle {
		c.netState = NetAudio
		c.lastNetTG = dst
		c.stopNetTGHangTimer()
	}
}

// HandleNetTerminator returns the network side to NET_IDLE and starts
// the netTGHang timer that preserves "last TG" for non-authoritative
// routing.
func (c *Controller) HandleNetTerminator() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.netState == NetIdle {
		return
	}
	dst := c.lastNetTG
	c.netState = NetIdle
	c.startNetTGHangTimer(dst)
}

func (c *Controller) startNetTGHangTimer(dst uint32) {
	if c.cfg.NetTGHang <= 0 {
		return
	}
	c.stopNetTGHangTimer()
	c.netTGHangTimer = time.AfterFunc(c.cfg.NetTGHang, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.lastNetTG == dst {
			c.lastNetTG = 0
		}
	})
}

func (c *Controller) stopNetTGHangTimer() {
	if c.netTGHangTimer != nil {
		c.netTGHangTimer.Stop()
		c.netTGHangTimer = nil
	}
}

// LastNetTalkgroup returns the talkgroup of the most recently active
// network call, or 0 if the hang timer has already expired.
func (c *Controller) LastNetTalkgroup() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastNetTG
}

// PermitTG gates non-authoritative voice carrier onto RF for dstId,
// per spec.md §4.4's "m_permittedDstId" mechanism.
func (c *Controller) PermitTG(dstID uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.permittedDstID = dstID
}

// IsPermitted reports whether dstID is currently permitted onto RF. An
// authoritative host permits everything it is willing to grant.
func (c *Controller) IsPermitted(dstID uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg.Authoritative {
		return true
	}
	return c.permittedDstID == dstID
}

// GrantTG allocates a channel grant for src->dst and, on a
// non-authoritative host, records dst as the permitted destination so
// the caller's CC beacon can emit the corresponding grant message.
func (c *Controller) GrantTG(src, dst uint32, slot uint8) (registry.ChannelGrant, bool) {
	if c.reg == nil {
		return registry.ChannelGrant{}, false
	}
	grant, ok := c.reg.Grant(src, dst, slot)
	if ok && !c.cfg.Authoritative {
		c.PermitTG(dst)
	}
	return grant, ok
}

// SetPeerConnected marks whether a peer-network session is currently
// established; the adjacent-site update timer only fires affiliation
// announcements while true.
func (c *Controller) SetPeerConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.peerConnected = connected
}

// StartCCBeacon starts the control-channel beacon scheduler, emitting
// one OnBeaconFrame callback per tick at the given inter-frame interval
// while CC is enabled, not halted, and RF/net are idle.
func (c *Controller) StartCCBeacon(interval time.Duration) error {
	c.mu.Lock()
	c.ccRunning = true
	c.mu.Unlock()

	if c.scheduler == nil {
		return nil
	}
	job, err := c.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(c.tickBeacon),
	)
	if err != nil {
		return err
	}
	c.beaconJob = job
	c.scheduler.Start()
	return nil
}

// StopCCBeacon suspends the beacon.
func (c *Controller) StopCCBeacon() {
	c.mu.Lock()
	c.ccRunning = false
	c.mu.Unlock()
	if c.scheduler != nil && c.beaconJob != nil {
		_ = c.scheduler.RemoveJob(c.beaconJob.ID())
	}
}

// HaltCC suppresses beacon emission while a foreign RF/net burst
// interrupts CC; ResumeCC clears it once both sides return to idle.
func (c *Controller) HaltCC() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ccHalted = true
}

// ResumeCC clears the halted flag if RF and net are both idle.
func (c *Controller) ResumeCC() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rfState == RFListening && c.netState == NetIdle {
		c.ccHalted = false
	}
}

// CCStatus reports whether the control-channel beacon is currently
// scheduled and, if so, whether it is momentarily halted by foreign RF
// or network traffic — surfaced by the REST control plane's per-protocol
// CC status endpoints.
func (c *Controller) CCStatus() (running, halted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ccRunning, c.ccHalted
}

// tickBeacon advances the frame counter (wrapping at 254, per spec.md
// §4.4) and the per-cycle sequence counter (resetting at maxSeq, per
// §4.4A's supplemented frame-vs-cycle distinction), then invokes
// OnBeaconFrame if CC is running, not halted, and both sides idle.
func (c *Controller) tickBeacon() {
	c.mu.Lock()
	if !c.ccRunning || c.ccHalted || c.rfState != RFListening || c.netState != NetIdle {
		c.mu.Unlock()
		return
	}
	c.ccFrameCnt++
	if c.ccFrameCnt >= 254 {
		c.ccFrameCnt = 0
	}
	maxSeq := c.cfg.Beacon.maxSeq()
	c.ccSeq++
	if maxSeq > 0 && c.ccSeq >= maxSeq {
		c.ccSeq = 0
	}
	frameCnt, seq := c.ccFrameCnt, c.ccSeq
	cb := c.cfg.OnBeaconFrame
	c.mu.Unlock()

	if cb != nil {
		cb(frameCnt, seq)
	}
}

// StartAdjacentSiteUpdates starts the ~10s adjacent-site announcement
// timer (spec.md §4.4).
func (c *Controller) StartAdjacentSiteUpdates() error {
	if c.scheduler == nil || c.cfg.AdjacentSiteUpdate <= 0 {
		return nil
	}
	job, err := c.scheduler.NewJob(
		gocron.DurationJob(c.cfg.AdjacentSiteUpdate),
		gocron.NewTask(c.tickAdjacentSiteUpdate),
	)
	if err != nil {
		return err
	}
	c.adjJob = job
	c.scheduler.Start()
	return nil
}

func (c *Controller) tickAdjacentSiteUpdate() {
	c.mu.Lock()
	idle := c.rfState == RFListening && c.netState == NetIdle && c.peerConnected
	cb := c.cfg.OnAdjacentSiteUpdate
	c.mu.Unlock()
	if idle && cb != nil {
		cb()
	}
}

// Shutdown stops the scheduler and any in-flight hang timers.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	c.stopRFTGHangTimer()
	if c.netTGHangTimer != nil {
		c.netTGHangTimer.Stop()
	}
	c.mu.Unlock()
	if c.scheduler != nil {
		_ = c.scheduler.Shutdown()
	}
}
