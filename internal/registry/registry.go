// Package registry implements the affiliation and channel-grant registry
// (C5, spec.md §4.5): source→group affiliations with refreshable
// timeouts, a TG→granted-channel map with its own timeouts, and the
// release/dereg callback wiring C4 and C6 hook into. Grounded on the
// xsync.Map + caller-held-mutex pattern the sibling repo's hub package
// uses for its repeater/talkgroup subscription maps.
package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"go.opentelemetry.io/otel"
)

// Affiliation is a source-id to group-id mapping with a refreshable
// timeout, per spec.md §3 GLOSSARY.
type Affiliation struct {
	Source    uint32
	Group     uint32
	lastTouch time.Time
}

// ChannelGrant records an allocation of a voice channel to a talkgroup
// for the duration of a call (spec.md §3, §4.5).
type ChannelGrant struct {
	TalkgroupID uint32
	Source      uint32
	ChannelID   uint16
	ChannelNo   uint32
	Slot        uint8
	Start       time.Time
	lastTouch   time.Time
}

// ReleaseCallback is invoked when a grant times out or is explicitly
// released, with the channel number, talkgroup, and slot it freed.
type ReleaseCallback func(channelNo uint32, talkgroupID uint32, slot uint8)

// DeregCallback is invoked when a unit's affiliation or registration
// expires or is explicitly removed.
type DeregCallback func(source uint32)

// Registry is the affiliation and channel-grant registry for one
// protocol/site. All mutating methods are individually safe for
// concurrent use; Clock additionally takes the registry-wide mutex so
// expiry sweeps are serialized against concurrent grant/affiliate calls,
// per spec.md §5's "registry-wide mutex" requirement.
type Registry struct {
	log *slog.Logger

	mu sync.Mutex

	affiliations *xsync.Map[uint32, *Affiliation]
	unitRegs     *xsync.Map[uint32, time.Time]
	grants       *xsync.Map[uint32, *ChannelGrant] // keyed by talkgroup id
	channelInUse *xsync.Map[uint16, uint32]        // channel id -> talkgroup id

	channelPool []uint16

	affTimeout     time.Duration
	grantTimeout   time.Duration
	unitRegTimeout time.Duration
	disableUnitReg bool

	onRelease ReleaseCallback
	onDereg   DeregCallback
}

// Config configures the timeouts and callbacks a Registry is built with.
type Config struct {
	ChannelPool     []uint16
	AffTimeout      time.Duration
	GrantTimeout    time.Duration
	UnitRegTimeout  time.Duration
	DisableUnitReg  bool
	OnRelease       ReleaseCallback
	OnDereg         DeregCallback
}

// New builds a Registry over the given channel pool with the supplied
// timeouts and callbacks.
func New(log *slog.Logger, cfg Config) *Registry {
	return &Registry{
		log:            log,
		affiliations:   xsync.NewMap[uint32, *Affiliation](),
		unitRegs:       xsync.NewMap[uint32, time.Time](),
		grants:         xsync.NewMap[uint32, *ChannelGrant](),
		channelInUse:   xsync.NewMap[uint16, uint32](),
		channelPool:    append([]uint16(nil), cfg.ChannelPool...),
		affTimeout:     cfg.AffTimeout,
		grantTimeout:   cfg.GrantTimeout,
		unitRegTimeout: cfg.UnitRegTimeout,
		disableUnitReg: cfg.DisableUnitReg,
		onRelease:      cfg.OnRelease,
		onDereg:        cfg.OnDereg,
	}
}

// Affiliate records or refreshes src's affiliation with group, firing
// DeregCallback for any previously-held different group.
func (r *Registry) Affiliate(source, group uint32) {
	now := time.Now()
	prev, existed := r.affiliations.Load(source)
	if existed && prev.Group != group && r.onDereg != nil {
		r.onDereg(source)
	}
	r.affiliations.Store(source, &Affiliation{Source: source, Group: group, lastTouch: now})
	if !r.disableUnitReg {
		r.unitRegs.Store(source, now)
	}
}

// Deaffiliate removes src's affiliation, firing DeregCallback.
func (r *Registry) Deaffiliate(source uint32) {
	_, existed := r.affiliations.LoadAndDelete(source)
	if existed && r.onDereg != nil {
		r.onDereg(source)
	}
}

// TouchAffiliation refreshes source's affiliation timeout without
// changing its group.
func (r *Registry) TouchAffiliation(source uint32) {
	if aff, ok := r.affiliations.Load(source); ok {
		aff.lastTouch = time.Now()
	}
}

// IsAffiliated reports whether source is currently affiliated with
// group.
func (r *Registry) IsAffiliated(source, group uint32) bool {
	aff, ok := r.affiliations.Load(source)
	return ok && aff.Group == group
}

// GroupAffSize returns the number of active affiliations.
func (r *Registry) GroupAffSize() int {
	n := 0
	r.affiliations.Range(func(uint32, *Affiliation) bool { n++; return true })
	return n
}

// GrpAffTable returns a snapshot of source->group affiliations.
func (r *Registry) GrpAffTable() map[uint32]uint32 {
	out := make(map[uint32]uint32)
	r.affiliations.Range(func(src uint32, aff *Affiliation) bool {
		out[src] = aff.Group
		return true
	})
	return out
}

// Grant allocates a free voice channel from the RF-channel pool to
// talkgroup dst for a call from src on the given slot, refusing if the
// pool is exhausted or dst already holds a grant. ok is false on
// failure (spec.md's ResourceExhausted edge case).
func (r *Registry) Grant(src, dst uint32, slot uint8) (grant ChannelGrant, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.grants.Load(dst); exists {
		return ChannelGrant{}, false
	}

	var chosen uint16
	found := false
	for _, ch := range r.channelPool {
		if _, inUse := r.channelInUse.Load(ch); !inUse {
			chosen = ch
			found = true
			break
		}
	}
	if !found {
		return ChannelGrant{}, false
	}

	now := time.Now()
	g := &ChannelGrant{
		TalkgroupID: dst,
		Source:      src,
		ChannelID:   chosen,
		ChannelNo:   uint32(chosen),
		Slot:        slot,
		Start:       now,
		lastTouch:   now,
	}
	r.grants.Store(dst, g)
	r.channelInUse.Store(chosen, dst)
	return *g, true
}

// TouchGrant refreshes the last-touch time of dst's grant, if any.
func (r *Registry) TouchGrant(dst uint32) {
	if g, ok := r.grants.Load(dst); ok {
		g.lastTouch = time.Now()
	}
}

// ReleaseGrant removes dst's grant and invokes ReleaseCallback. force
// bypasses nothing today (the grant is always removed if present) but
// is kept as a parameter so callers can distinguish an explicit release
// from a timeout in logs.
func (r *Registry) ReleaseGrant(dst uint32, force bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.releaseGrantLocked(dst, force)
}

func (r *Registry) releaseGrantLocked(dst uint32, _ bool) bool {
	g, ok := r.grants.LoadAndDelete(dst)
	if !ok {
		return false
	}
	r.channelInUse.Delete(g.ChannelID)
	if r.onRelease != nil {
		r.onRelease(g.ChannelNo, dst, g.Slot)
	}
	return true
}

// IsGranted reports whether dst currently holds a grant.
func (r *Registry) IsGranted(dst uint32) bool {
	_, ok := r.grants.Load(dst)
	return ok
}

// GetGrantedCh returns dst's granted channel number, if any.
func (r *Registry) GetGrantedCh(dst uint32) (chNo uint32, ok bool) {
	g, ok := r.grants.Load(dst)
	if !ok {
		return 0, false
	}
	return g.ChannelNo, true
}

// GetGrantedSrcId returns the source id that opened dst's grant, if any.
func (r *Registry) GetGrantedSrcId(dst uint32) (src uint32, ok bool) {
	g, ok := r.grants.Load(dst)
	if !ok {
		return 0, false
	}
	return g.Source, true
}

// Grants returns a snapshot of all currently active channel grants, for
// the REST status/voice-channel listing endpoints.
func (r *Registry) Grants() []ChannelGrant {
	var out []ChannelGrant
	r.grants.Range(func(_ uint32, g *ChannelGrant) bool {
		out = append(out, *g)
		return true
	})
	return out
}

// ReleaseAllGrants force-releases every active grant, firing
// ReleaseCallback for each, for the REST /release-grants endpoint.
func (r *Registry) ReleaseAllGrants() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var dsts []uint32
	r.grants.Range(func(dst uint32, _ *ChannelGrant) bool {
		dsts = append(dsts, dst)
		return true
	})
	for _, dst := range dsts {
		r.releaseGrantLocked(dst, true)
	}
	return len(dsts)
}

// DeaffiliateAll removes every active affiliation, firing DeregCallback
// for each, for the REST /release-affs endpoint.
func (r *Registry) DeaffiliateAll() int {
	var srcs []uint32
	r.affiliations.Range(func(src uint32, _ *Affiliation) bool {
		srcs = append(srcs, src)
		return true
	})
	for _, src := range srcs {
		r.Deaffiliate(src)
	}
	return len(srcs)
}

// SetDisableUnitRegTimeout toggles whether Affiliate also refreshes a
// unit-registration timeout; when disabled, unit registrations never
// expire via Clock.
func (r *Registry) SetDisableUnitRegTimeout(disabled bool) {
	r.disableUnitReg = disabled
}

// Clock advances all timers, releasing expired grants, dropping stale
// affiliations, and deregistering expired unit registrations. It takes
// the registry-wide mutex for the duration of the sweep, serializing it
// against concurrent Grant/ReleaseGrant calls per spec.md §5.
func (r *Registry) Clock(ctx context.Context) {
	_, span := otel.Tracer("corehost").Start(ctx, "Registry.Clock")
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()

	var expiredGrants []uint32
	r.grants.Range(func(dst uint32, g *ChannelGrant) bool {
		if r.grantTimeout > 0 && now.Sub(g.lastTouch) >= r.grantTimeout {
			expiredGrants = append(expiredGrants, dst)
		}
		return true
	})
	for _, dst := range expiredGrants {
		r.releaseGrantLocked(dst, false)
	}

	if r.affTimeout > 0 {
		var staleAff []uint32
		r.affiliations.Range(func(src uint32, aff *Affiliation) bool {
			if now.Sub(aff.lastTouch) >= r.affTimeout {
				staleAff = append(staleAff, src)
			}
			return true
		})
		for _, src := range staleAff {
			if _, ok := r.affiliations.LoadAndDelete(src); ok && r.onDereg != nil {
				r.onDereg(src)
			}
		}
	}

	if r.disableUnitReg {
		return
	}
	var expiredUnits []uint32
	r.unitRegs.Range(func(src uint32, t time.Time) bool {
		if r.unitRegTimeout > 0 && now.Sub(t) >= r.unitRegTimeout {
			expiredUnits = append(expiredUnits, src)
		}
		return true
	})
	for _, src := range expiredUnits {
		r.unitRegs.Delete(src)
		if _, ok := r.affiliations.LoadAndDelete(src); ok && r.onDereg != nil {
			r.onDereg(src)
		}
	}
}
