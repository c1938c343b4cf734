// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a handler matches exactly one of them
// with [errors.Is].
var (
	ErrDeactivated     = errors.New("deactivated transaction handler")
	ErrPoolAdmission   = errors.New("pool admission rejected")
	ErrStateValidation = errors.New("state validation failed")
	ErrStructural      = errors.New("structural violation")
)

var (
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrDuplicateHandler       = errors.New("duplicate handler")
	ErrMissingDependency      = errors.New("missing handler dependency")
	ErrDependencyCycle        = errors.New("handler dependency cycle")
	ErrCorruptedBatch         = errors.New("ledger batch corrupted")

	ErrMissingAsset     = newStructuralError("transaction asset is missing")
	ErrMissingSender    = newStructuralError("transaction sender is missing")
	ErrMissingRecipient = newStructuralError("transaction recipient is missing")
	ErrAmountOverflow   = newStructuralError("amount overflow")
	ErrInvalidAsset     = newStructuralError("invalid transaction asset")
	ErrBrokenInvariant  = newStructuralError("ledger invariant broken")
)

var (
	ErrWalletAlreadyDelegate            = newStateError("wallet already registered as a delegate")
	ErrWalletAlreadyHasUsername         = newStateError("wallet already has a username")
	ErrWalletHasNoUsername              = newStateError("wallet has no username")
	ErrInsufficientBalance              = newStateError("insufficient balance")
	ErrUnexpectedNonce                  = newStateError("unexpected nonce")
	ErrSenderWalletMismatch             = newStateError("sender wallet does not match the transaction public key")
	ErrUnexpectedExtraSignature         = newStateError("unexpected extra signature")
	ErrInvalidExtraSignature            = newStateError("invalid extra signature")
	ErrExtraSignatureAlreadyRegistered  = newStateError("extra signature already registered")
	ErrPublicKeyAlreadyAssociated       = newStateError("public key already associated with a wallet")
	ErrWalletNotADelegate               = newStateError("wallet is not a delegate")
	ErrWalletAlreadyPermanentlyResigned = newStateError("wallet already permanently resigned")
	ErrWalletAlreadyTemporarilyResigned = newStateError("wallet already temporarily resigned")
	ErrWalletNotResigned                = newStateError("wallet is not resigned")
	ErrIrrevocableResignation           = newStateError("permanent resignation cannot be revoked")
	ErrNotEnoughDelegates               = newStateError("not enough delegates to allow resignation")
	ErrNotEnoughTimeSinceResignation    = newStateError("not enough time since resignation")
	ErrAlreadyVoted                     = newStateError("already voted")
	ErrUnvoteMismatch                   = newStateError("unvote does not match current votes")
	ErrVotedForNonDelegate              = newStateError("voted for a wallet that is not a delegate")
	ErrVotedForResignedDelegate         = newStateError("voted for a permanently resigned delegate")
	ErrVotedForTooManyDelegates         = newStateError("voted for too many delegates")
	ErrZeroPercentVote                  = newStateError("vote of zero percent")
	ErrInvalidVotePercentage            = newStateError("vote percentages must add up to 100")
	ErrBusinessAlreadyRegistered        = newStateError("business already registered")
	ErrBusinessNotRegistered            = newStateError("business not registered")
	ErrBridgechainAlreadyRegistered     = newStateError("bridgechain already registered")
	ErrTransactionFeeTooLow             = newStateError("transaction fee too low")
	ErrUnexpectedHeaderType             = newStateError("unexpected header type")
)

type stateError struct {
	msg string
}

func newStateError(msg string) error {
	return &stateError{msg: msg}
}

func (e *stateError) Error() string {
	return e.msg
}

func (*stateError) Is(target error) bool {
	return target == ErrStateValidation
}

type structuralError struct {
	msg string
}

func newStructuralError(msg string) error {
	return &structuralError{msg: msg}
}

func (e *structuralError) Error() string {
	return e.msg
}

func (*structuralError) Is(target error) bool {
	return target == ErrStructural
}

// UsernameAlreadyRegisteredError is returned when a username is claimed by
// another wallet.
type UsernameAlreadyRegisteredError struct {
	Username string
}

func (e *UsernameAlreadyRegisteredError) Error() string {
	return fmt.Sprintf("delegate name '%s' is already registered", e.Username)
}

func (*UsernameAlreadyRegisteredError) Is(target error) bool {
	return target == ErrStateValidation
}

type UnexpectedNonceError struct {
	Expected uint64
	Actual   uint64
}

func (e *UnexpectedNonceError) Error() string {
	return fmt.Sprintf("unexpected nonce: expected %d, got %d", e.Expected, e.Actual)
}

func (*UnexpectedNonceError) Is(target error) bool {
	return target == ErrStateValidation || target == ErrUnexpectedNonce
}

const CodePending = "ERR_PENDING"

// PoolError rejects a transaction from the pool. Code is machine readable.
type PoolError struct {
	Code    string
	Message string
}

func NewPendingError(format string, args ...any) *PoolError {
	return &PoolError{
		Code:    CodePending,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *PoolError) Error() string {
	return e.Code + ": " + e.Message
}

func (*PoolError) Is(target error) bool {
	return target == ErrPoolAdmission
}

// Structural wraps [err] so it is classified as a structural violation.
func Structural(err error) error {
	if errors.Is(err, ErrStructural) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStructural, err)
}
