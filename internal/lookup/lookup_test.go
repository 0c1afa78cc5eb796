package lookup_test

import (
	"encoding/json"
	"testing"

	"github.com/fnecore/corehost/internal/lookup"
	"github.com/stretchr/testify/require"
)

func TestIdentityEntryFrequencies(t *testing.T) {
	t.Parallel()
	entry := lookup.IdentityEntry{
		ChannelID:   1,
		BaseHz:      851_000_000,
		ChSpaceKHz:  125,
		TxOffsetMHz: -45,
	}
	rx, tx := entry.Frequencies(10)
	require.Equal(t, uint32(851_000_000+125*125*10), tx)
	require.Equal(t, uint32(int64(tx)-45_000_000), rx)
}

func TestMemoryIdentityTableSwapAndLookup(t *testing.T) {
	t.Parallel()
	table := lookup.NewMemoryIdentityTable()

	_, _, ok := table.Frequencies(1)
	require.False(t, ok)

	entries := []lookup.IdentityEntry{{ChannelID: 1, BaseHz: 851_000_000, ChSpaceKHz: 125}}
	payload, err := json.Marshal(entries)
	require.NoError(t, err)
	require.NoError(t, table.Swap(payload))

	rx, tx, ok := table.Frequencies(1)
	require.True(t, ok)
	require.Equal(t, uint32(851_000_000), rx)
	require.Equal(t, uint32(851_000_000), tx)
}

func TestMemoryIdentityTableSwapRejectsInvalidJSON(t *testing.T) {
	t.Parallel()
	table := lookup.NewMemoryIdentityTable()
	require.Error(t, table.Swap([]byte("not json")))
}
