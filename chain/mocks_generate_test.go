// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

//go:generate go run go.uber.org/mock/mockgen -package=${GOPACKAGE} -destination=mock_emitter.go -mock_names=Emitter=MockEmitter . Emitter
//go:generate go run go.uber.org/mock/mockgen -package=${GOPACKAGE} -destination=mock_block_summary_source.go -mock_names=BlockSummarySource=MockBlockSummarySource . BlockSummarySource
//go:generate go run go.uber.org/mock/mockgen -package=${GOPACKAGE} -destination=mock_transaction_history.go -mock_names=TransactionHistory=MockTransactionHistory . TransactionHistory
