// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package event delivers ledger events to observers off the apply path.
package event

import (
	"context"

	"github.com/ava-labs/dposledger/chain"
)

var _ Subscription = (*SubscriptionFunc)(nil)

type Event struct {
	Name    string
	Payload chain.EventPayload
}

// Subscription consumes events. Errors are reported to the bus and never
// reach the ledger.
type Subscription interface {
	Accept(ctx context.Context, e Event) error
	Close() error
}

type SubscriptionFunc struct {
	AcceptF func(ctx context.Context, e Event) error
}

func (s SubscriptionFunc) Accept(ctx context.Context, e Event) error {
	return s.AcceptF(ctx, e)
}

func (SubscriptionFunc) Close() error {
	return nil
}
