// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/ava-labs/dposledger/state"
	"github.com/ava-labs/dposledger/wallet"
)

// BaseHandler carries the effects shared by every transaction kind: fee,
// amount, nonce and public key bookkeeping. Handlers embed it and override
// what they extend, calling back into it first on apply and last on revert.
type BaseHandler struct {
	Verifier SignatureVerifier
}

func (*BaseHandler) Dependencies() []Kind {
	return nil
}

func (*BaseHandler) WalletAttributes() []string {
	return nil
}

func (*BaseHandler) IsActivated(Rules) bool {
	return true
}

func (*BaseHandler) Bootstrap(context.Context, *BootstrapEnv) error {
	return nil
}

func (*BaseHandler) VerifyPoolEntry(context.Context, *Transaction, PoolQuery) error {
	return nil
}

func (*BaseHandler) EmitEvents(*Transaction, state.Repository, Emitter) {}

func (b *BaseHandler) VerifyApply(_ context.Context, r Rules, tx *Transaction, sender *wallet.Wallet, repo state.Repository) error {
	switch tx.HeaderType {
	case StandardHeader:
	case ExtendedHeader:
		if !r.ExtendedHeaders() {
			return fmt.Errorf("%w: extended headers are not enabled", ErrUnexpectedHeaderType)
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnexpectedHeaderType, tx.HeaderType)
	}

	if floor := r.MinFee(tx.Kind); tx.Fee.Lt(uint256.NewInt(floor)) {
		return fmt.Errorf("%w: %s < %d", ErrTransactionFeeTooLow, tx.Fee.Dec(), floor)
	}

	if expected := sender.Nonce() + 1; tx.Nonce != expected {
		return &UnexpectedNonceError{Expected: expected, Actual: tx.Nonce}
	}

	if tx.SenderPublicKey != "" {
		if key, ok := sender.PublicKey(wallet.Primary); ok {
			if key != tx.SenderPublicKey {
				return ErrSenderWalletMismatch
			}
		} else if owner, err := repo.FindByIndex(state.PublicKeysIndex, state.PublicKeyEntry(wallet.Primary, tx.SenderPublicKey)); err == nil && owner.Address() != sender.Address() {
			return ErrSenderWalletMismatch
		}
	}

	spent, err := tx.Spent()
	if err != nil {
		return err
	}
	if balance := sender.Balance(); balance.Lt(spent) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, sender.Address(), balance.Dec(), spent.Dec())
	}

	extra, hasExtra := sender.PublicKey(wallet.Extra)
	switch {
	case hasExtra && tx.ExtraSignature == "":
		return fmt.Errorf("%w: signature is missing", ErrInvalidExtraSignature)
	case hasExtra:
		if b.Verifier == nil || !b.Verifier.Verify(tx.Digest(), extra, tx.ExtraSignature) {
			return ErrInvalidExtraSignature
		}
	case tx.ExtraSignature != "":
		return ErrUnexpectedExtraSignature
	}
	return nil
}

func (*BaseHandler) ApplyToSender(_ context.Context, _ Rules, tx *Transaction, repo state.Repository) error {
	return ApplyBaseToSender(tx, repo)
}

func (*BaseHandler) RevertForSender(_ context.Context, _ Rules, tx *Transaction, repo state.Repository) error {
	return RevertBaseForSender(tx, repo)
}

func (*BaseHandler) ApplyToRecipient(_ context.Context, _ Rules, tx *Transaction, repo state.Repository) error {
	return ApplyBaseToRecipient(tx, repo)
}

func (*BaseHandler) RevertForRecipient(_ context.Context, _ Rules, tx *Transaction, repo state.Repository) error {
	if tx.RecipientID == "" {
		return nil
	}
	recipient := repo.FindByAddress(tx.RecipientID)
	return WithVoteWeight(repo, recipient, func() error {
		return recipient.DecreaseBalance(&tx.Amount)
	})
}

// ApplyBaseToRecipient credits the amount of [tx] to its recipient, if any.
func ApplyBaseToRecipient(tx *Transaction, repo state.Repository) error {
	if tx.RecipientID == "" {
		return nil
	}
	recipient := repo.FindByAddress(tx.RecipientID)
	return WithVoteWeight(repo, recipient, func() error {
		return recipient.IncreaseBalance(&tx.Amount)
	})
}

// ApplyBaseToSender debits amount and fee, advances the nonce and records the
// primary key revealed by [tx].
func ApplyBaseToSender(tx *Transaction, repo state.Repository) error {
	sender, err := senderOf(tx, repo)
	if err != nil {
		return err
	}
	if expected := sender.Nonce() + 1; tx.Nonce != expected {
		return fmt.Errorf("%w: nonce of %s is %d, applying %d", ErrBrokenInvariant, sender.Address(), expected-1, tx.Nonce)
	}
	spent, err := tx.Spent()
	if err != nil {
		return err
	}
	if err := WithVoteWeight(repo, sender, func() error {
		return sender.DecreaseBalance(spent)
	}); err != nil {
		return Structural(err)
	}
	sender.IncreaseNonce()

	if tx.SenderPublicKey != "" && sender.RevealPrimaryKey(tx.SenderPublicKey, tx.Nonce) {
		return repo.Reindex(sender)
	}
	return nil
}

func RevertBaseForSender(tx *Transaction, repo state.Repository) error {
	sender, err := senderOf(tx, repo)
	if err != nil {
		return err
	}
	if sender.Nonce() != tx.Nonce {
		return fmt.Errorf("%w: nonce of %s is %d, reverting %d", ErrBrokenInvariant, sender.Address(), sender.Nonce(), tx.Nonce)
	}
	spent, err := tx.Spent()
	if err != nil {
		return err
	}
	if sender.ConcealPrimaryKey(tx.Nonce) {
		if err := repo.Reindex(sender); err != nil {
			return err
		}
	}
	if err := sender.DecreaseNonce(); err != nil {
		return Structural(err)
	}
	return WithVoteWeight(repo, sender, func() error {
		return sender.IncreaseBalance(spent)
	})
}

func senderOf(tx *Transaction, repo state.Repository) (*wallet.Wallet, error) {
	if tx.SenderID == "" {
		return nil, ErrMissingSender
	}
	return repo.FindByAddress(tx.SenderID), nil
}
