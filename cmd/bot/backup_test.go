package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPendingRestoreConsumedOnce(t *testing.T) {
	p := newPendingRestores()
	pending := &pendingRestore{guildID: "guild-1", snapshotID: "snap-1", ownerID: "owner-1"}
	p.put("token-1", pending)

	require.Same(t, pending, p.take("token-1"))

	// A consumed or unknown token resolves to nothing; the confirm button and
	// the expiry timer race for the same exchange and only one may win.
	require.Nil(t, p.take("token-1"))
	require.Nil(t, p.take("unknown"))
}
