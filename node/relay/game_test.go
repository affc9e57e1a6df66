// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package relay

import (
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/jaxnet/headermmr/database/memdb"
	"gitlab.com/jaxnet/headermmr/types/chainhash"
	"gitlab.com/jaxnet/headermmr/types/mmr"
)

var (
	testHasher = chainhash.DefaultHasher()
	epoch      = time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC)
	// settled is past the challenge window of claims affirmed at epoch.
	settled = epoch.Add(2 * time.Hour)
)

func rlpHeader(chain string, i int) []byte {
	return []byte(fmt.Sprintf("%s_header_%d", chain, i))
}

// buildChain returns a mountain range over n headers of the named chain.
func buildChain(t *testing.T, chain string, n int) *mmr.MountainRange {
	m, err := mmr.New(testHasher, memdb.New())
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		_, _, err := m.Append(rlpHeader(chain, i))
		require.NoError(t, err)
	}
	return m
}

func currentRoot(t *testing.T, m *mmr.MountainRange) chainhash.Hash {
	root, err := m.Root()
	require.NoError(t, err)
	return root
}

func TestHonestClaimConfirmed(t *testing.T) {
	honest := buildChain(t, "main", 12)
	game := NewGame(testHasher, time.Minute, time.Hour)

	id, err := game.Affirm("alice", 12, currentRoot(t, honest), epoch)
	require.NoError(t, err)

	for _, leaf := range []uint64{0, 5, 11} {
		deadline, err := game.Challenge(id, "bob", leaf, epoch)
		require.NoError(t, err)
		assert.Equal(t, epoch.Add(time.Minute), deadline)

		proof, err := honest.GenProof(leaf)
		require.NoError(t, err)
		status, err := game.Respond(id, "alice", leaf, rlpHeader("main", int(leaf)), proof)
		require.NoError(t, err)
		assert.Equal(t, Pending, status)
	}

	assert.Empty(t, game.Advance(epoch.Add(time.Hour)))
	require.NoError(t, game.Finalize(id, settled))

	claim, err := game.Claim(id)
	require.NoError(t, err)
	assert.Equal(t, Confirmed, claim.Status)
	assert.Len(t, claim.Challenges, 3)

	root, ok := game.ConfirmedRoot(12)
	assert.True(t, ok)
	assert.Equal(t, claim.Root, root)
}

func TestForgedClaimRejected(t *testing.T) {
	honest := buildChain(t, "main", 9)
	forged := buildChain(t, "fork", 9)
	game := NewGame(testHasher, time.Minute, time.Hour)

	honestID, err := game.Affirm("alice", 9, currentRoot(t, honest), epoch)
	require.NoError(t, err)
	forgedID, err := game.Affirm("mallory", 9, currentRoot(t, forged), epoch)
	require.NoError(t, err)

	_, err = game.Challenge(forgedID, "bob", 4, epoch)
	require.NoError(t, err)

	// the forger cannot show the canonical header under its root
	proof, err := forged.GenProof(4)
	require.NoError(t, err)
	status, err := game.Respond(forgedID, "mallory", 4, rlpHeader("main", 4), proof)
	require.NoError(t, err)
	assert.Equal(t, Rejected, status)

	claim, err := game.Claim(forgedID)
	require.NoError(t, err)
	assert.Equal(t, Rejected, claim.Status)
	assert.NotEmpty(t, claim.Reason)

	_, err = game.Respond(forgedID, "mallory", 4, rlpHeader("fork", 4), proof)
	assert.True(t, errors.Is(err, ErrClaimClosed))

	require.NoError(t, game.Finalize(honestID, settled))
}

func TestProofForOtherSizeRejects(t *testing.T) {
	honest := buildChain(t, "main", 10)
	game := NewGame(testHasher, time.Minute, time.Hour)

	id, err := game.Affirm("alice", 10, currentRoot(t, honest), epoch)
	require.NoError(t, err)
	_, err = game.Challenge(id, "bob", 2, epoch)
	require.NoError(t, err)

	proof, err := honest.GenProofAt(2, 8)
	require.NoError(t, err)
	status, err := game.Respond(id, "alice", 2, rlpHeader("main", 2), proof)
	require.NoError(t, err)
	assert.Equal(t, Rejected, status)

	id, err = game.Affirm("carol", 10, currentRoot(t, honest), epoch)
	require.NoError(t, err)
	_, err = game.Challenge(id, "bob", 2, epoch)
	require.NoError(t, err)
	status, err = game.Respond(id, "carol", 2, rlpHeader("main", 2), nil)
	require.NoError(t, err)
	assert.Equal(t, Rejected, status)
}

func TestTimeoutRejects(t *testing.T) {
	honest := buildChain(t, "main", 5)
	game := NewGame(testHasher, 0, 0)
	assert.Equal(t, DefaultResponseWindow, game.ResponseWindow())
	assert.Equal(t, DefaultChallengeWindow, game.ChallengeWindow())

	id, err := game.Affirm("alice", 5, currentRoot(t, honest), epoch)
	require.NoError(t, err)
	deadline, err := game.Challenge(id, "bob", 3, epoch)
	require.NoError(t, err)

	assert.True(t, errors.Is(game.Finalize(id, settled), ErrOpenChallenges))

	assert.Empty(t, game.Advance(deadline))
	assert.Equal(t, []chainhash.Hash{id}, game.Advance(deadline.Add(time.Second)))

	claim, err := game.Claim(id)
	require.NoError(t, err)
	assert.Equal(t, Rejected, claim.Status)

	assert.True(t, errors.Is(game.Finalize(id, settled), ErrClaimClosed))
}

func TestFinalizeRejectsCompetitors(t *testing.T) {
	honest := buildChain(t, "main", 7)
	game := NewGame(testHasher, time.Minute, time.Hour)

	winner, err := game.Affirm("alice", 7, currentRoot(t, honest), epoch)
	require.NoError(t, err)
	sameRoot, err := game.Affirm("dave", 7, currentRoot(t, honest), epoch)
	require.NoError(t, err)

	var losers []chainhash.Hash
	for i, chain := range []string{"fork_a", "fork_b"} {
		id, err := game.Affirm(fmt.Sprintf("relayer_%d", i), 7, currentRoot(t, buildChain(t, chain, 7)), epoch)
		require.NoError(t, err)
		losers = append(losers, id)
	}
	otherSize, err := game.Affirm("erin", 6, chainhash.Hash{1}, epoch)
	require.NoError(t, err)

	require.NoError(t, game.Finalize(winner, settled))

	for _, id := range losers {
		claim, err := game.Claim(id)
		require.NoError(t, err)
		assert.Equal(t, Rejected, claim.Status)
	}

	for _, id := range []chainhash.Hash{sameRoot, otherSize} {
		claim, err := game.Claim(id)
		require.NoError(t, err)
		assert.Equal(t, Pending, claim.Status)
	}

	_, err = game.Affirm("frank", 7, chainhash.Hash{2}, epoch)
	assert.True(t, errors.Is(err, ErrSizeFinalized))
}

func TestGameErrors(t *testing.T) {
	game := NewGame(testHasher, time.Minute, time.Hour)
	root := chainhash.Hash{7}

	tests := []struct {
		name    string
		run     func() error
		wantErr error
	}{
		{
			name:    "empty relayer",
			run:     func() error { _, err := game.Affirm("", 3, root, epoch); return err },
			wantErr: ErrInvalidClaim,
		},
		{
			name:    "zero size",
			run:     func() error { _, err := game.Affirm("alice", 0, root, epoch); return err },
			wantErr: ErrInvalidClaim,
		},
		{
			name:    "unknown claim",
			run:     func() error { _, err := game.Challenge(chainhash.Hash{}, "bob", 0, epoch); return err },
			wantErr: ErrClaimNotFound,
		},
		{
			name:    "unknown claim lookup",
			run:     func() error { _, err := game.Claim(chainhash.Hash{}); return err },
			wantErr: ErrClaimNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.run(), tt.wantErr))
		})
	}

	id, err := game.Affirm("alice", 3, root, epoch)
	require.NoError(t, err)
	_, err = game.Affirm("alice", 3, root, epoch)
	assert.True(t, errors.Is(err, ErrDuplicateClaim))

	_, err = game.Challenge(id, "bob", 3, epoch)
	assert.True(t, errors.Is(err, mmr.ErrIndexOutOfRange))

	_, err = game.Challenge(id, "bob", 1, epoch)
	require.NoError(t, err)
	_, err = game.Challenge(id, "carol", 1, epoch)
	assert.True(t, errors.Is(err, ErrDuplicateChallenge))

	_, err = game.Respond(id, "alice", 2, []byte("header"), &mmr.Proof{})
	assert.True(t, errors.Is(err, ErrChallengeNotFound))
}

func TestGameStats(t *testing.T) {
	honest := buildChain(t, "main", 4)
	game := NewGame(testHasher, time.Minute, time.Hour)

	winner, err := game.Affirm("alice", 4, currentRoot(t, honest), epoch)
	require.NoError(t, err)
	_, err = game.Affirm("mallory", 4, chainhash.Hash{9}, epoch)
	require.NoError(t, err)
	_, err = game.Affirm("alice", 2, chainhash.Hash{8}, epoch)
	require.NoError(t, err)
	require.NoError(t, game.Finalize(winner, settled))

	assert.Equal(t, map[string]float64{
		"claims_pending":   1,
		"claims_confirmed": 1,
		"claims_rejected":  1,
		"confirmed_sizes":  1,
	}, game.Stats())
}

func TestOnlyRelayerResponds(t *testing.T) {
	honest := buildChain(t, "main", 8)
	game := NewGame(testHasher, time.Minute, time.Hour)

	id, err := game.Affirm("alice", 8, currentRoot(t, honest), epoch)
	require.NoError(t, err)
	_, err = game.Challenge(id, "mallory", 3, epoch)
	require.NoError(t, err)

	for _, responder := range []string{"mallory", "", "Alice"} {
		status, err := game.Respond(id, responder, 3, []byte("garbage"), nil)
		assert.True(t, errors.Is(err, ErrNotRelayer), "responder %q: %v", responder, err)
		assert.Equal(t, Pending, status)
	}

	claim, err := game.Claim(id)
	require.NoError(t, err)
	assert.Equal(t, Pending, claim.Status)
	assert.Empty(t, claim.Reason)
	assert.False(t, claim.Challenges[0].Answered)

	proof, err := honest.GenProof(3)
	require.NoError(t, err)
	status, err := game.Respond(id, "alice", 3, rlpHeader("main", 3), proof)
	require.NoError(t, err)
	assert.Equal(t, Pending, status)
	require.NoError(t, game.Finalize(id, settled))
}

func TestChallengePeriod(t *testing.T) {
	honest := buildChain(t, "main", 8)
	game := NewGame(testHasher, time.Minute, 30*time.Minute)

	forged, err := game.Affirm("mallory", 8, testHasher.Sum([]byte("forged")), epoch)
	require.NoError(t, err)
	honestID, err := game.Affirm("alice", 8, currentRoot(t, honest), epoch.Add(10*time.Minute))
	require.NoError(t, err)

	tests := []struct {
		name    string
		id      chainhash.Hash
		now     time.Time
		wantErr error
	}{
		{name: "right after affirm", id: forged, now: epoch, wantErr: ErrChallengePeriod},
		{name: "window end", id: forged, now: epoch.Add(30 * time.Minute), wantErr: ErrChallengePeriod},
		{name: "later claim still open", id: honestID, now: epoch.Add(31 * time.Minute), wantErr: ErrChallengePeriod},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := game.Finalize(tt.id, tt.now)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}

	_, ok := game.ConfirmedRoot(8)
	assert.False(t, ok)

	// a challenger catches the forgery inside the window
	_, err = game.Challenge(forged, "bob", 5, epoch.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []chainhash.Hash{forged}, game.Advance(epoch.Add(3*time.Minute)))

	require.NoError(t, game.Finalize(honestID, epoch.Add(41*time.Minute)))
	root, ok := game.ConfirmedRoot(8)
	assert.True(t, ok)
	assert.Equal(t, currentRoot(t, honest), root)
}

func TestGameState(t *testing.T) {
	honest := buildChain(t, "main", 6)
	game := NewGame(testHasher, time.Minute, time.Hour)

	winner, err := game.Affirm("alice", 6, currentRoot(t, honest), epoch)
	require.NoError(t, err)
	loser, err := game.Affirm("mallory", 6, chainhash.Hash{3}, epoch)
	require.NoError(t, err)
	open, err := game.Affirm("carol", 4, chainhash.Hash{4}, epoch)
	require.NoError(t, err)
	_, err = game.Challenge(open, "bob", 1, epoch.Add(time.Second))
	require.NoError(t, err)
	require.NoError(t, game.Finalize(winner, settled))

	data, err := game.MarshalBinary()
	require.NoError(t, err)
	again, err := game.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, data, again)

	loaded := NewGame(testHasher, time.Minute, time.Hour)
	require.NoError(t, loaded.UnmarshalBinary(data))
	assert.Equal(t, game.Stats(), loaded.Stats())

	root, ok := loaded.ConfirmedRoot(6)
	assert.True(t, ok)
	assert.Equal(t, currentRoot(t, honest), root)

	claims := loaded.Claims()
	require.Len(t, claims, 3)
	for _, claim := range claims {
		want, err := game.Claim(claim.ID)
		require.NoError(t, err)
		assert.Equal(t, want.Status, claim.Status)
		assert.True(t, want.AffirmedAt.Equal(claim.AffirmedAt))
		require.Len(t, claim.Challenges, len(want.Challenges))
		for i := range want.Challenges {
			assert.True(t, want.Challenges[i].Deadline.Equal(claim.Challenges[i].Deadline))
		}
	}

	lost, err := loaded.Claim(loser)
	require.NoError(t, err)
	assert.Equal(t, Rejected, lost.Status)

	// the open challenge still times out after a reload
	assert.Equal(t, []chainhash.Hash{open}, loaded.Advance(epoch.Add(2*time.Minute)))

	assert.True(t, errors.Is(loaded.UnmarshalBinary([]byte{0xff}), ErrBadState))
}
