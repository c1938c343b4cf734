// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import "sync"

const (
	TransactionApplied  = "transaction.applied"
	TransactionReverted = "transaction.reverted"

	DelegateRegistered       = "wallet.delegate.registered"
	UsernameRegistered       = "wallet.username.registered"
	BlockProducerUpgraded    = "wallet.delegate.upgraded"
	DelegateResigned         = "delegate.resigned"
	DelegateResignRevoked    = "delegate.resignation.revoked"
	WalletVoted              = "wallet.vote"
	BusinessRegistered       = "business.registered"
	BridgechainRegistered    = "bridgechain.registered"
	ExtraSignatureRegistered = "wallet.extraSignature.registered"
)

type EventPayload struct {
	Transaction *Transaction
	Username    string
	BusinessID  uint64
}

// Emitter receives handler events. Dispatch must not block.
type Emitter interface {
	Dispatch(name string, payload EventPayload)
}

type event struct {
	name    string
	payload EventPayload
}

// BufferedEmitter holds events until the batch that produced them commits.
type BufferedEmitter struct {
	mu     sync.Mutex
	events []event
}

func (b *BufferedEmitter) Dispatch(name string, payload EventPayload) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, event{name: name, payload: payload})
}

func (b *BufferedEmitter) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.events)
}

// Flush forwards buffered events to [e] in dispatch order.
func (b *BufferedEmitter) Flush(e Emitter) {
	b.mu.Lock()
	events := b.events
	b.events = nil
	b.mu.Unlock()

	if e == nil {
		return
	}
	for _, ev := range events {
		e.Dispatch(ev.name, ev.payload)
	}
}
