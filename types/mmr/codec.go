// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mmr

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

// wire types drop the methods so cbor does not call MarshalBinary again.
type (
	proofWire            Proof
	consistencyProofWire ConsistencyProof
)

func init() {
	var err error
	if encMode, err = cbor.CanonicalEncOptions().EncMode(); err != nil {
		panic(err)
	}
	if decMode, err = (cbor.DecOptions{MaxArrayElements: 1 << 16}).DecMode(); err != nil {
		panic(err)
	}
}

// MarshalBinary encodes the proof as canonical CBOR.
func (p *Proof) MarshalBinary() ([]byte, error) {
	return encMode.Marshal((*proofWire)(p))
}

// UnmarshalBinary decodes a CBOR proof.
func (p *Proof) UnmarshalBinary(data []byte) error {
	if err := decMode.Unmarshal(data, (*proofWire)(p)); err != nil {
		return errors.Wrap(ErrMalformedProof, err.Error())
	}
	return nil
}

// MarshalBinary encodes the proof as canonical CBOR.
func (p *ConsistencyProof) MarshalBinary() ([]byte, error) {
	return encMode.Marshal((*consistencyProofWire)(p))
}

// UnmarshalBinary decodes a CBOR consistency proof.
func (p *ConsistencyProof) UnmarshalBinary(data []byte) error {
	if err := decMode.Unmarshal(data, (*consistencyProofWire)(p)); err != nil {
		return errors.Wrap(ErrMalformedProof, err.Error())
	}
	return nil
}
