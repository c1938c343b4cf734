// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package history

import (
	"encoding/binary"

	"github.com/holiman/uint256"
	"github.com/near/borsh-go"

	"github.com/ava-labs/dposledger/chain"
	"github.com/ava-labs/dposledger/consts"
	"github.com/ava-labs/dposledger/wallet"
)

const (
	txPrefix         byte = 0x0
	heightPrefix     byte = 0x1
	markerPrefix     byte = 0x2
	productionPrefix byte = 0x3

	heightKeyLen = 1 + consts.Uint64Len + consts.Uint32Len
)

var lastHeightKey = []byte{heightPrefix}

// record is the stored form of a confirmed transaction.
type record struct {
	ID              [32]byte
	Group           uint32
	Type            uint16
	Version         uint8
	HeaderType      uint8
	SenderID        string
	SenderPublicKey string
	RecipientID     string
	Nonce           uint64
	Fee             [32]byte
	Amount          [32]byte
	BlockHeight     uint64
	ExtraSignature  string
	HasAsset        bool
	Asset           assetRecord
}

// assetRecord flattens [chain.Asset]. borsh decodes an absent pointer as a
// zero value, so presence is stored next to each variant.
type assetRecord struct {
	HasRegistration   bool
	Username          string
	HasBusiness       bool
	Business          wallet.BusinessAsset
	HasBridgechain    bool
	Bridgechain       wallet.BridgechainAsset
	HasVotes          bool
	Votes             map[string]uint16
	HasResignation    bool
	Resignation       uint8
	HasExtraSignature bool
	ExtraPublicKey    string
}

func newAssetRecord(a *chain.Asset) (bool, assetRecord) {
	var r assetRecord
	if a == nil {
		return false, r
	}
	if a.Registration != nil {
		r.HasRegistration = true
		r.Username = a.Registration.Username
	}
	if a.Business != nil {
		r.HasBusiness = true
		r.Business = *a.Business
	}
	if a.Bridgechain != nil {
		r.HasBridgechain = true
		r.Bridgechain = *a.Bridgechain
	}
	if a.Votes != nil {
		r.HasVotes = true
		r.Votes = a.Votes.Votes
	}
	if a.Resignation != nil {
		r.HasResignation = true
		r.Resignation = uint8(a.Resignation.Action)
	}
	if a.ExtraSignature != nil {
		r.HasExtraSignature = true
		r.ExtraPublicKey = a.ExtraSignature.PublicKey
	}
	return true, r
}

func (r *assetRecord) asset() *chain.Asset {
	a := &chain.Asset{}
	if r.HasRegistration {
		a.Registration = &chain.RegistrationAsset{Username: r.Username}
	}
	if r.HasBusiness {
		b := r.Business
		a.Business = &b
	}
	if r.HasBridgechain {
		b := r.Bridgechain
		if len(b.SeedNodes) == 0 {
			b.SeedNodes = nil
		}
		a.Bridgechain = &b
	}
	if r.HasVotes {
		votes := r.Votes
		if len(votes) == 0 {
			votes = nil
		}
		a.Votes = &chain.VoteAsset{Votes: votes}
	}
	if r.HasResignation {
		a.Resignation = &chain.ResignationAsset{Action: chain.ResignationAction(r.Resignation)}
	}
	if r.HasExtraSignature {
		a.ExtraSignature = &chain.ExtraSignatureAsset{PublicKey: r.ExtraPublicKey}
	}
	return a
}

func marshal(tx *chain.Transaction) ([]byte, error) {
	hasAsset, asset := newAssetRecord(tx.Asset)
	return borsh.Serialize(record{
		ID:              tx.ID,
		Group:           tx.Kind.Group,
		Type:            tx.Kind.Type,
		Version:         tx.Kind.Version,
		HeaderType:      uint8(tx.HeaderType),
		SenderID:        tx.SenderID,
		SenderPublicKey: tx.SenderPublicKey,
		RecipientID:     tx.RecipientID,
		Nonce:           tx.Nonce,
		Fee:             tx.Fee.Bytes32(),
		Amount:          tx.Amount.Bytes32(),
		BlockHeight:     tx.BlockHeight,
		ExtraSignature:  tx.ExtraSignature,
		HasAsset:        hasAsset,
		Asset:           asset,
	})
}

func unmarshal(b []byte) (*chain.Transaction, error) {
	var r record
	if err := borsh.Deserialize(&r, b); err != nil {
		return nil, err
	}
	tx := &chain.Transaction{
		ID:              r.ID,
		Kind:            chain.Kind{Group: r.Group, Type: r.Type, Version: r.Version},
		HeaderType:      chain.HeaderType(r.HeaderType),
		SenderID:        r.SenderID,
		SenderPublicKey: r.SenderPublicKey,
		RecipientID:     r.RecipientID,
		Nonce:           r.Nonce,
		BlockHeight:     r.BlockHeight,
		ExtraSignature:  r.ExtraSignature,
	}
	if r.HasAsset {
		tx.Asset = r.Asset.asset()
	}
	tx.Fee = *new(uint256.Int).SetBytes32(r.Fee[:])
	tx.Amount = *new(uint256.Int).SetBytes32(r.Amount[:])
	return tx, nil
}

// txKey orders transactions by block height, then position in the block.
func txKey(height uint64, index uint32) []byte {
	k := make([]byte, heightKeyLen)
	k[0] = txPrefix
	binary.BigEndian.PutUint64(k[1:], height)
	binary.BigEndian.PutUint32(k[1+consts.Uint64Len:], index)
	return k
}

func blockPrefix(height uint64) []byte {
	k := make([]byte, 1+consts.Uint64Len)
	k[0] = txPrefix
	binary.BigEndian.PutUint64(k[1:], height)
	return k
}

// productionRecord is the stored form of a [Production].
type productionRecord struct {
	Username        string
	TotalFees       [32]byte
	TotalFeesBurned [32]byte
	TotalRewards    [32]byte
	Donations       [32]byte
	TotalProduced   uint64
	HasLast         bool
	LastHeight      uint64
	LastID          string
	LastReward      [32]byte
	LastDonations   [32]byte
}

func marshalProduction(p *Production) ([]byte, error) {
	r := productionRecord{
		Username:        p.Summary.Username,
		TotalFees:       p.Summary.TotalFees.Bytes32(),
		TotalFeesBurned: p.Summary.TotalFeesBurned.Bytes32(),
		TotalRewards:    p.Summary.TotalRewards.Bytes32(),
		Donations:       p.Summary.Donations.Bytes32(),
		TotalProduced:   p.Summary.TotalProduced,
	}
	if p.Last != nil {
		r.HasLast = true
		r.LastHeight = p.Last.Height
		r.LastID = p.Last.ID
		r.LastReward = p.Last.Reward.Bytes32()
		r.LastDonations = p.Last.Donations.Bytes32()
	}
	return borsh.Serialize(r)
}

func unmarshalProduction(b []byte) (*Production, error) {
	var r productionRecord
	if err := borsh.Deserialize(&r, b); err != nil {
		return nil, err
	}
	s := &chain.ForgedSummary{
		Username:      r.Username,
		TotalProduced: r.TotalProduced,
	}
	s.TotalFees.SetBytes32(r.TotalFees[:])
	s.TotalFeesBurned.SetBytes32(r.TotalFeesBurned[:])
	s.TotalRewards.SetBytes32(r.TotalRewards[:])
	s.Donations.SetBytes32(r.Donations[:])
	p := &Production{Summary: s}
	if r.HasLast {
		p.Last = &chain.LastForgedBlock{
			Username: r.Username,
			Height:   r.LastHeight,
			ID:       r.LastID,
		}
		p.Last.Reward.SetBytes32(r.LastReward[:])
		p.Last.Donations.SetBytes32(r.LastDonations[:])
	}
	return p, nil
}

func productionKey(height uint64) []byte {
	k := make([]byte, 1+consts.Uint64Len)
	k[0] = productionPrefix
	binary.BigEndian.PutUint64(k[1:], height)
	return k
}
