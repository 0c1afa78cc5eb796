package registry_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fnecore/corehost/internal/registry"
	"github.com/stretchr/testify/require"
)

func TestGrantUniquenessPerTalkgroupAndChannel(t *testing.T) {
	t.Parallel()
	reg := registry.New(nil, registry.Config{ChannelPool: []uint16{7}})

	first, ok := reg.Grant(10001, 101, 0)
	require.True(t, ok)
	require.Equal(t, uint16(7), first.ChannelID)

	_, ok = reg.Grant(10002, 101, 0)
	require.False(t, ok, "a second grant for the same talkgroup must be refused")

	_, ok = reg.Grant(10003, 202, 0)
	require.False(t, ok, "the sole RF channel is already in use")
}

func TestAffiliateDeaffiliate(t *testing.T) {
	t.Parallel()
	var deregistered []uint32
	var mu sync.Mutex
	reg := registry.New(nil, registry.Config{
		OnDereg: func(source uint32) {
			mu.Lock()
			defer mu.Unlock()
			deregistered = append(deregistered, source)
		},
	})

	reg.Affiliate(10001, 101)
	require.True(t, reg.IsAffiliated(10001, 101))
	require.Equal(t, 1, reg.GroupAffSize())

	reg.Deaffiliate(10001)
	require.False(t, reg.IsAffiliated(10001, 101))
	require.Equal(t, 0, reg.GroupAffSize())

	mu.Lock()
	require.Equal(t, []uint32{10001}, deregistered)
	mu.Unlock()
}

// TestScenarioE4GrantLifecycle reproduces the affiliate/grant/touch/expire
// sequence: src 10001 affiliates with group 101, is granted channel 7,
// stays alive across a touch, and is released once callHang elapses with
// no further touches.
func TestScenarioE4GrantLifecycle(t *testing.T) {
	t.Parallel()

	const callHang = 30 * time.Millisecond

	released := make(chan struct {
		chNo uint32
		dst  uint32
		slot uint8
	}, 1)
	reg := registry.New(nil, registry.Config{
		GrantTimeout: callHang,
		ChannelPool:  []uint16{7},
		OnRelease: func(channelNo, talkgroupID uint32, slot uint8) {
			released <- struct {
				chNo uint32
				dst  uint32
				slot uint8
			}{channelNo, talkgroupID, slot}
		},
	})

	reg.Affiliate(10001, 101)
	require.True(t, reg.IsAffiliated(10001, 101))

	grant, ok := reg.Grant(10001, 101, 0)
	require.True(t, ok)
	require.Equal(t, uint32(7), grant.ChannelNo)

	time.Sleep(callHang / 2)
	reg.TouchGrant(101)
	reg.Clock(context.Background())
	require.True(t, reg.IsGranted(101), "a touched grant must survive a clock tick within its hang time")

	time.Sleep(callHang + 5*time.Millisecond)
	reg.Clock(context.Background())

	select {
	case ev := <-released:
		require.Equal(t, uint32(7), ev.chNo)
		require.Equal(t, uint32(101), ev.dst)
		require.Equal(t, uint8(0), ev.slot)
	default:
		t.Fatal("expected a release callback after the grant hang timer expired")
	}
	require.False(t, reg.IsGranted(101))
}

func TestClockReleasesStaleUnitRegistrations(t *testing.T) {
	t.Parallel()
	var deregistered []uint32
	reg := registry.New(nil, registry.Config{
		UnitRegTimeout: 20 * time.Millisecond,
		OnDereg: func(source uint32) {
			deregistered = append(deregistered, source)
		},
	})

	reg.Affiliate(10001, 101)
	time.Sleep(30 * time.Millisecond)
	reg.Clock(context.Background())

	require.False(t, reg.IsAffiliated(10001, 101))
	require.Equal(t, []uint32{10001}, deregistered)
}

func TestSetDisableUnitRegTimeoutPreventsExpiry(t *testing.T) {
	t.Parallel()
	reg := registry.New(nil, registry.Config{UnitRegTimeout: 10 * time.Millisecond})
	reg.SetDisableUnitRegTimeout(true)

	reg.Affiliate(10001, 101)
	time.Sleep(20 * time.Millisecond)
	reg.Clock(context.Background())

	require.True(t, reg.IsAffiliated(10001, 101))
}

func TestReleaseAllGrantsFiresCallbackForEach(t *testing.T) {
	t.Parallel()
	var released []uint32
	reg := registry.New(nil, registry.Config{
		ChannelPool: []uint16{1, 2},
		OnRelease: func(_ uint32, talkgroupID uint32, _ uint8) {
			released = append(released, talkgroupID)
		},
	})
	_, ok := reg.Grant(10001, 101, 0)
	require.True(t, ok)
	_, ok = reg.Grant(10002, 202, 0)
	require.True(t, ok)

	n := reg.ReleaseAllGrants()
	require.Equal(t, 2, n)
	require.ElementsMatch(t, []uint32{101, 202}, released)
	require.False(t, reg.IsGranted(101))
	require.False(t, reg.IsGranted(202))
}

func TestDeaffiliateAllFiresCallbackForEach(t *testing.T) {
	t.Parallel()
	var deregistered []uint32
	reg := registry.New(nil, registry.Config{
		OnDereg: func(source uint32) {
			deregistered = append(deregistered, source)
		},
	})
	reg.Affiliate(10001, 101)
	reg.Affiliate(10002, 101)

	n := reg.DeaffiliateAll()
	require.Equal(t, 2, n)
	require.ElementsMatch(t, []uint32{10001, 10002}, deregistered)
	require.False(t, reg.IsAffiliated(10001, 101))
}

func TestGrantsSnapshot(t *testing.T) {
	t.Parallel()
	reg := registry.New(nil, registry.Config{ChannelPool: []uint16{7}})
	_, ok := reg.Grant(10001, 101, 0)
	require.True(t, ok)

	grants := reg.Grants()
	require.Len(t, grants, 1)
	require.Equal(t, uint32(101), grants[0].TalkgroupID)
	require.Equal(t, uint32(10001), grants[0].Source)
}
