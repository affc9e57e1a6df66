// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package relay

import (
	"encoding/binary"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gitlab.com/jaxnet/headermmr/types/chainhash"
	"gitlab.com/jaxnet/headermmr/types/mmr"
)

const (
	// DefaultResponseWindow is the time a relayer has to answer a challenge.
	DefaultResponseWindow = 10 * time.Minute

	// DefaultChallengeWindow is the time a claim stays open to challengers
	// before it can be finalized.
	DefaultChallengeWindow = time.Hour
)

var (
	ErrInvalidClaim       = errors.New("relay: invalid claim")
	ErrDuplicateClaim     = errors.New("relay: claim already affirmed")
	ErrClaimNotFound      = errors.New("relay: claim not found")
	ErrClaimClosed        = errors.New("relay: claim is not pending")
	ErrSizeFinalized      = errors.New("relay: size already has a confirmed root")
	ErrDuplicateChallenge = errors.New("relay: leaf already challenged")
	ErrChallengeNotFound  = errors.New("relay: no open challenge for leaf")
	ErrOpenChallenges     = errors.New("relay: claim has open challenges")
	ErrNotRelayer         = errors.New("relay: only the claim's relayer can respond")
	ErrChallengePeriod    = errors.New("relay: challenge period has not ended")
)

// ClaimStatus is the state of a claim in the game.
type ClaimStatus uint8

const (
	Pending ClaimStatus = iota
	Confirmed
	Rejected
)

func (s ClaimStatus) String() string {
	switch s {
	case Pending:
		return "pending"
	case Confirmed:
		return "confirmed"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Challenge asks the relayer to reveal one header of its claim.
type Challenge struct {
	Challenger string    `cbor:"1,keyasint"`
	LeafIndex  uint64    `cbor:"2,keyasint"`
	Deadline   time.Time `cbor:"3,keyasint"`
	Answered   bool      `cbor:"4,keyasint"`
}

// Claim is a relayer's commitment to the MMR root of the first Size headers.
type Claim struct {
	ID         chainhash.Hash `cbor:"1,keyasint"`
	Relayer    string         `cbor:"2,keyasint"`
	Size       uint64         `cbor:"3,keyasint"`
	Root       chainhash.Hash `cbor:"4,keyasint"`
	AffirmedAt time.Time      `cbor:"5,keyasint"`
	Status     ClaimStatus    `cbor:"6,keyasint"`
	Reason     string         `cbor:"7,keyasint"`
	Challenges []Challenge    `cbor:"8,keyasint"`
}

func (c *Claim) openChallenge(leafIndex uint64) int {
	for i := range c.Challenges {
		if c.Challenges[i].LeafIndex == leafIndex && !c.Challenges[i].Answered {
			return i
		}
	}
	return -1
}

func (c *Claim) hasOpenChallenges() bool {
	for i := range c.Challenges {
		if !c.Challenges[i].Answered {
			return true
		}
	}
	return false
}

// Game adjudicates competing header-chain claims by sampling headers and
// checking the relayer's inclusion proofs against the claimed root.
// The MMR proof is the only evidence the game accepts.
type Game struct {
	sync.Mutex
	hasher          chainhash.Hasher
	responseWindow  time.Duration
	challengeWindow time.Duration
	claims         map[chainhash.Hash]*Claim
	confirmed      map[uint64]chainhash.Hash
}

// NewGame creates a game that verifies proofs with hasher.
// Zero windows fall back to DefaultResponseWindow and DefaultChallengeWindow.
func NewGame(hasher chainhash.Hasher, responseWindow, challengeWindow time.Duration) *Game {
	if responseWindow <= 0 {
		responseWindow = DefaultResponseWindow
	}
	if challengeWindow <= 0 {
		challengeWindow = DefaultChallengeWindow
	}
	return &Game{
		hasher:          hasher,
		responseWindow:  responseWindow,
		challengeWindow: challengeWindow,
		claims:          make(map[chainhash.Hash]*Claim),
		confirmed:       make(map[uint64]chainhash.Hash),
	}
}

// ResponseWindow returns the time a relayer has to answer a challenge.
func (g *Game) ResponseWindow() time.Duration { return g.responseWindow }

// ChallengeWindow returns the time a claim stays open to challengers.
func (g *Game) ChallengeWindow() time.Duration { return g.challengeWindow }

func (g *Game) claimID(relayer string, size uint64, root chainhash.Hash) chainhash.Hash {
	buf := make([]byte, 0, len(relayer)+8+chainhash.HashSize)
	buf = append(buf, relayer...)
	buf = binary.BigEndian.AppendUint64(buf, size)
	buf = append(buf, root[:]...)
	return g.hasher.Sum(buf)
}

// Affirm registers a relayer's claim that root commits to the first size
// headers of the chain. The claim can be finalized once the challenge
// window after now has passed.
func (g *Game) Affirm(relayer string, size uint64, root chainhash.Hash, now time.Time) (chainhash.Hash, error) {
	if relayer == "" || size == 0 {
		return chainhash.Hash{}, errors.Wrapf(ErrInvalidClaim, "relayer %q, size %d", relayer, size)
	}

	g.Lock()
	defer g.Unlock()

	if final, ok := g.confirmed[size]; ok {
		return chainhash.Hash{}, errors.Wrapf(ErrSizeFinalized, "size %d has root %s", size, final)
	}

	id := g.claimID(relayer, size, root)
	if _, ok := g.claims[id]; ok {
		return chainhash.Hash{}, errors.Wrapf(ErrDuplicateClaim, "claim %s", id)
	}

	g.claims[id] = &Claim{ID: id, Relayer: relayer, Size: size, Root: root, AffirmedAt: now}
	log.Debug().Str("claim", id.String()).Str("relayer", relayer).
		Uint64("size", size).Str("root", root.String()).Msg("Claim affirmed")
	return id, nil
}

func (g *Game) pending(id chainhash.Hash) (*Claim, error) {
	claim, ok := g.claims[id]
	if !ok {
		return nil, errors.Wrapf(ErrClaimNotFound, "claim %s", id)
	}
	if claim.Status != Pending {
		return claim, errors.Wrapf(ErrClaimClosed, "claim %s is %s", id, claim.Status)
	}
	return claim, nil
}

// Challenge opens a challenge on one header of a pending claim. The relayer
// must answer before now plus the response window.
func (g *Game) Challenge(id chainhash.Hash, challenger string, leafIndex uint64, now time.Time) (time.Time, error) {
	g.Lock()
	defer g.Unlock()

	claim, err := g.pending(id)
	if err != nil {
		return time.Time{}, err
	}
	if leafIndex >= claim.Size {
		return time.Time{}, errors.Wrapf(mmr.ErrIndexOutOfRange, "leaf %d, claim size %d", leafIndex, claim.Size)
	}
	if claim.openChallenge(leafIndex) >= 0 {
		return time.Time{}, errors.Wrapf(ErrDuplicateChallenge, "leaf %d", leafIndex)
	}

	deadline := now.Add(g.responseWindow)
	claim.Challenges = append(claim.Challenges, Challenge{
		Challenger: challenger,
		LeafIndex:  leafIndex,
		Deadline:   deadline,
	})
	log.Debug().Str("claim", id.String()).Str("challenger", challenger).
		Uint64("leaf", leafIndex).Time("deadline", deadline).Msg("Challenge opened")
	return deadline, nil
}

// Respond answers an open challenge with the raw header and its inclusion
// proof. Only the claim's relayer may answer; a proof from it that does not
// lead to the claimed root rejects the claim.
func (g *Game) Respond(id chainhash.Hash, relayer string, leafIndex uint64, header []byte, proof *mmr.Proof) (ClaimStatus, error) {
	g.Lock()
	defer g.Unlock()

	claim, err := g.pending(id)
	if err != nil {
		if claim != nil {
			return claim.Status, err
		}
		return Rejected, err
	}
	if relayer != claim.Relayer {
		return claim.Status, errors.Wrapf(ErrNotRelayer, "%q answered claim of %q", relayer, claim.Relayer)
	}
	i := claim.openChallenge(leafIndex)
	if i < 0 {
		return claim.Status, errors.Wrapf(ErrChallengeNotFound, "leaf %d", leafIndex)
	}

	if proof != nil && proof.Size != claim.Size {
		err = errors.Wrapf(mmr.ErrMalformedProof, "proof for size %d, claim size %d", proof.Size, claim.Size)
	} else {
		err = mmr.Verify(g.hasher, claim.Root, leafIndex, header, proof)
	}
	if err != nil {
		g.reject(claim, err.Error())
		return claim.Status, nil
	}

	claim.Challenges[i].Answered = true
	log.Debug().Str("claim", id.String()).Uint64("leaf", leafIndex).Msg("Challenge answered")
	return claim.Status, nil
}

// Advance rejects every pending claim with a challenge unanswered past its
// deadline and returns their ids.
func (g *Game) Advance(now time.Time) []chainhash.Hash {
	g.Lock()
	defer g.Unlock()

	var rejected []chainhash.Hash
	for _, claim := range g.claims {
		if claim.Status != Pending {
			continue
		}
		for _, ch := range claim.Challenges {
			if !ch.Answered && now.After(ch.Deadline) {
				g.reject(claim, "challenge on leaf "+strconv.FormatUint(ch.LeafIndex, 10)+" timed out")
				rejected = append(rejected, claim.ID)
				break
			}
		}
	}
	sortIDs(rejected)
	return rejected
}

// Finalize confirms a pending claim whose challenge window has passed and
// that has no open challenges. Every other pending claim for the same size
// with a different root is rejected.
func (g *Game) Finalize(id chainhash.Hash, now time.Time) error {
	g.Lock()
	defer g.Unlock()

	claim, err := g.pending(id)
	if err != nil {
		return err
	}
	if end := claim.AffirmedAt.Add(g.challengeWindow); !now.After(end) {
		return errors.Wrapf(ErrChallengePeriod, "claim %s is open until %s", id, end.Format(time.RFC3339))
	}
	if claim.hasOpenChallenges() {
		return errors.Wrapf(ErrOpenChallenges, "claim %s", id)
	}

	claim.Status = Confirmed
	g.confirmed[claim.Size] = claim.Root
	log.Info().Str("claim", id.String()).Uint64("size", claim.Size).
		Str("root", claim.Root.String()).Msg("Claim confirmed")

	for _, other := range g.claims {
		if other.Status != Pending || other.Size != claim.Size {
			continue
		}
		if other.Root != claim.Root {
			g.reject(other, "competing root for a confirmed size")
		}
	}
	return nil
}

// Claim returns a snapshot of a claim.
func (g *Game) Claim(id chainhash.Hash) (Claim, error) {
	g.Lock()
	defer g.Unlock()

	claim, ok := g.claims[id]
	if !ok {
		return Claim{}, errors.Wrapf(ErrClaimNotFound, "claim %s", id)
	}
	res := *claim
	res.Challenges = append([]Challenge(nil), claim.Challenges...)
	return res, nil
}

// ConfirmedRoot returns the confirmed root for size, if any.
func (g *Game) ConfirmedRoot(size uint64) (chainhash.Hash, bool) {
	g.Lock()
	defer g.Unlock()

	root, ok := g.confirmed[size]
	return root, ok
}

// Stats reports the number of claims per status and the confirmed sizes.
func (g *Game) Stats() map[string]float64 {
	g.Lock()
	defer g.Unlock()

	stats := map[string]float64{
		"claims_" + Pending.String():   0,
		"claims_" + Confirmed.String(): 0,
		"claims_" + Rejected.String():  0,
		"confirmed_sizes":              float64(len(g.confirmed)),
	}
	for _, claim := range g.claims {
		stats["claims_"+claim.Status.String()]++
	}
	return stats
}

func (g *Game) reject(claim *Claim, reason string) {
	claim.Status = Rejected
	claim.Reason = reason
	log.Info().Str("claim", claim.ID.String()).Str("relayer", claim.Relayer).
		Str("reason", reason).Msg("Claim rejected")
}

func sortIDs(ids []chainhash.Hash) {
	sort.Slice(ids, func(i, j int) bool {
		return string(ids[i][:]) < string(ids[j][:])
	})
}
