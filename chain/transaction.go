// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/holiman/uint256"

	"github.com/ava-labs/dposledger/wallet"
)

// Kind identifies the handler of a transaction.
type Kind struct {
	Group   uint32
	Type    uint16
	Version uint8
}

func (k Kind) String() string {
	return fmt.Sprintf("%d/%d/v%d", k.Group, k.Type, k.Version)
}

type HeaderType uint8

const (
	StandardHeader HeaderType = iota
	ExtendedHeader
)

// Transaction is a decoded transaction. Handlers never modify it.
type Transaction struct {
	ID              ids.ID
	Kind            Kind
	HeaderType      HeaderType
	SenderID        string
	SenderPublicKey string
	RecipientID     string
	Nonce           uint64
	Fee             uint256.Int
	Amount          uint256.Int
	BlockHeight     uint64
	ExtraSignature  string
	Asset           *Asset
}

// Digest is the message covered by the extra signature.
func (tx *Transaction) Digest() []byte {
	return tx.ID[:]
}

// Spent is amount + fee.
func (tx *Transaction) Spent() (*uint256.Int, error) {
	spent, overflow := new(uint256.Int).AddOverflow(&tx.Amount, &tx.Fee)
	if overflow {
		return nil, fmt.Errorf("%w: amount plus fee of %s", ErrAmountOverflow, tx.ID)
	}
	return spent, nil
}

// Claims names the globally unique values [tx] would take, such as a
// username, regardless of its kind.
func (tx *Transaction) Claims() []string {
	if tx.Asset == nil {
		return nil
	}
	var claims []string
	if r := tx.Asset.Registration; r != nil {
		claims = append(claims, "username/"+r.Username)
	}
	if b := tx.Asset.Bridgechain; b != nil {
		claims = append(claims, "bridgechain/"+b.GenesisHash)
	}
	return claims
}

// Asset is the type-specific payload. Exactly one field is set for the
// kinds that carry a payload.
type Asset struct {
	Registration   *RegistrationAsset
	Business       *wallet.BusinessAsset
	Bridgechain    *wallet.BridgechainAsset
	Votes          *VoteAsset
	Resignation    *ResignationAsset
	ExtraSignature *ExtraSignatureAsset
}

type RegistrationAsset struct {
	Username string
}

// VoteAsset replaces the sender's votes. An empty map removes every vote.
type VoteAsset struct {
	Votes map[string]uint16
}

type ResignationAction uint8

const (
	ResignPermanently ResignationAction = iota
	ResignTemporarily
	RevokeResignation
)

func (a ResignationAction) String() string {
	switch a {
	case ResignPermanently:
		return "permanent"
	case ResignTemporarily:
		return "temporary"
	case RevokeResignation:
		return "revoke"
	default:
		return "unknown"
	}
}

type ResignationAsset struct {
	Action ResignationAction
}

type ExtraSignatureAsset struct {
	PublicKey string
}
