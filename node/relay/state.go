// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package relay

import (
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"gitlab.com/jaxnet/headermmr/types/chainhash"
)

// ErrBadState is returned when a saved game cannot be decoded.
var ErrBadState = errors.New("relay: bad game state")

var (
	stateEncMode cbor.EncMode
	stateDecMode cbor.DecMode
)

// gameState is the saved form of a game. The windows are not part of it,
// they come from the configuration of whoever loads the game.
type gameState struct {
	Claims    []Claim                   `cbor:"1,keyasint"`
	Confirmed map[uint64]chainhash.Hash `cbor:"2,keyasint"`
}

func init() {
	opts := cbor.CanonicalEncOptions()
	opts.Time = cbor.TimeRFC3339Nano

	var err error
	if stateEncMode, err = opts.EncMode(); err != nil {
		panic(err)
	}
	if stateDecMode, err = (cbor.DecOptions{}).DecMode(); err != nil {
		panic(err)
	}
}

// MarshalBinary encodes every claim and confirmed root as canonical CBOR.
func (g *Game) MarshalBinary() ([]byte, error) {
	g.Lock()
	defer g.Unlock()

	state := gameState{
		Claims:    make([]Claim, 0, len(g.claims)),
		Confirmed: g.confirmed,
	}
	for _, claim := range g.claims {
		state.Claims = append(state.Claims, *claim)
	}
	sort.Slice(state.Claims, func(i, j int) bool {
		return string(state.Claims[i].ID[:]) < string(state.Claims[j].ID[:])
	})
	return stateEncMode.Marshal(&state)
}

// UnmarshalBinary replaces the claims of the game with a saved state.
func (g *Game) UnmarshalBinary(data []byte) error {
	var state gameState
	if err := stateDecMode.Unmarshal(data, &state); err != nil {
		return errors.Wrap(ErrBadState, err.Error())
	}

	claims := make(map[chainhash.Hash]*Claim, len(state.Claims))
	for i := range state.Claims {
		claim := state.Claims[i]
		if _, ok := claims[claim.ID]; ok {
			return errors.Wrapf(ErrBadState, "claim %s saved twice", claim.ID)
		}
		claims[claim.ID] = &claim
	}
	confirmed := state.Confirmed
	if confirmed == nil {
		confirmed = make(map[uint64]chainhash.Hash)
	}

	g.Lock()
	g.claims = claims
	g.confirmed = confirmed
	g.Unlock()
	return nil
}

// Claims returns snapshots of every claim ordered by id.
func (g *Game) Claims() []Claim {
	g.Lock()
	defer g.Unlock()

	ids := make([]chainhash.Hash, 0, len(g.claims))
	for id := range g.claims {
		ids = append(ids, id)
	}
	sortIDs(ids)

	res := make([]Claim, 0, len(ids))
	for _, id := range ids {
		claim := *g.claims[id]
		claim.Challenges = append([]Challenge(nil), claim.Challenges...)
		res = append(res, claim)
	}
	return res
}
