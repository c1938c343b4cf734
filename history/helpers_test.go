// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package history

import (
	"context"
	"testing"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/dposledger/chain"
)

var (
	transferKind = chain.Kind{Group: 1, Type: 0}
	voteKind     = chain.Kind{Group: 1, Type: 3}
)

func testTx(kind chain.Kind, sender string, nonce uint64, height uint64) *chain.Transaction {
	tx := &chain.Transaction{
		ID:          ids.GenerateTestID(),
		Kind:        kind,
		SenderID:    sender,
		Nonce:       nonce,
		BlockHeight: height,
	}
	tx.Fee.SetUint64(10)
	tx.Amount.SetUint64(nonce * 100)
	return tx
}

func collect(t *testing.T, h chain.TransactionHistory, c chain.Criteria) []*chain.Transaction {
	require := require.New(t)

	it, err := h.FetchByCriteria(context.Background(), c)
	require.NoError(err)
	defer it.Release()

	var txs []*chain.Transaction
	for it.Next() {
		txs = append(txs, it.Transaction())
	}
	require.NoError(it.Error())
	return txs
}

func forged(username string, fees, rewards uint64) *chain.ForgedSummary {
	s := &chain.ForgedSummary{Username: username, TotalProduced: 1}
	s.TotalFees.SetUint64(fees)
	s.TotalRewards.SetUint64(rewards)
	return s
}

func lastBlock(username string, height uint64) *chain.LastForgedBlock {
	return &chain.LastForgedBlock{
		Username: username,
		Height:   height,
		ID:       ids.GenerateTestID().String(),
		Reward:   *uint256.NewInt(rewardPerBlock),
	}
}

const rewardPerBlock = 200
