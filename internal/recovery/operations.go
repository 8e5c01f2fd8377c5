// Copyright (c) 2026 Warden Team
// Warden - guardian-based social recovery
// This source code is licensed under the MIT license found in the LICENSE file.

package recovery

import (
	"context"

	"github.com/toeirei/warden/internal/model"
)

// RequestAddGuardian proposes candidate as a pending guardian.
func (e *Engine) RequestAddGuardian(ctx context.Context, account, caller, candidate string) (Response, error) {
	return e.Execute(ctx, account, caller, AddGuardian{Guardian: candidate})
}

// ConfirmAddGuardian moves candidate from pending to confirmed.
func (e *Engine) ConfirmAddGuardian(ctx context.Context, account, caller, candidate string) (Response, error) {
	return e.Execute(ctx, account, caller, AddGuardianConfirm{Guardian: candidate})
}

// CancelPendingGuardian withdraws the proposal for candidate.
func (e *Engine) CancelPendingGuardian(ctx context.Context, account, caller, candidate string) (Response, error) {
	return e.Execute(ctx, account, caller, AddGuardianConfirmCancel{Guardian: candidate})
}

// RemoveGuardian drops candidate from the confirmed guardians.
func (e *Engine) RemoveGuardian(ctx context.Context, account, caller, candidate string) (Response, error) {
	return e.Execute(ctx, account, caller, RemoveGuardian{Guardian: candidate})
}

// InitiateRecovery starts replacing the owner with newOwner.
func (e *Engine) InitiateRecovery(ctx context.Context, account, caller, newOwner, guardianRef string) (Response, error) {
	return e.Execute(ctx, account, caller, ExecuteRecovery{NewOwner: newOwner, Guardian: guardianRef})
}

// ApproveRecovery votes for the in-flight recovery.
func (e *Engine) ApproveRecovery(ctx context.Context, account, caller, guardianRef string) (Response, error) {
	return e.Execute(ctx, account, caller, GuardianApproveRequest{Guardian: guardianRef})
}

// CancelRecovery aborts any in-flight recovery.
func (e *Engine) CancelRecovery(ctx context.Context, account, caller, guardianRef string) (Response, error) {
	return e.Execute(ctx, account, caller, CancelRecovery{Guardian: guardianRef})
}

// SendFunds produces a transfer instruction from account to destination.
func (e *Engine) SendFunds(ctx context.Context, account, caller, destination string, amount model.Coins) (Response, error) {
	return e.Execute(ctx, account, caller, SendTokens{ToAddress: destination, Amount: amount})
}

// AddFamilyMember records id as a family member.
func (e *Engine) AddFamilyMember(ctx context.Context, account, caller, id string) (Response, error) {
	return e.Execute(ctx, account, caller, AddFamilyMember{FamilyMember: id})
}

// RemoveFamilyMember forgets id.
func (e *Engine) RemoveFamilyMember(ctx context.Context, account, caller, id string) (Response, error) {
	return e.Execute(ctx, account, caller, RemoveFamilyMember{FamilyMember: id})
}

// Owner returns the current owner of account.
func (e *Engine) Owner(ctx context.Context, account string) (string, error) {
	st, err := e.store.Load(ctx, account)
	return st.Owner, err
}

// IsRecovering reports whether a recovery vote is in flight.
func (e *Engine) IsRecovering(ctx context.Context, account string) (bool, error) {
	st, err := e.store.Load(ctx, account)
	return st.IsRecovering, err
}

// Guardians returns the confirmed guardians in insertion order.
func (e *Engine) Guardians(ctx context.Context, account string) ([]string, error) {
	st, err := e.store.Load(ctx, account)
	return copyList(st.Guardians), err
}

// PendingGuardians returns the guardians awaiting confirmation.
func (e *Engine) PendingGuardians(ctx context.Context, account string) ([]string, error) {
	st, err := e.store.Load(ctx, account)
	return copyList(st.GuardiansPending), err
}

// Signers returns the approvals of the in-flight recovery.
func (e *Engine) Signers(ctx context.Context, account string) ([]string, error) {
	st, err := e.store.Load(ctx, account)
	return copyList(st.RecoverySignatures), err
}

// FamilyMembers returns the recorded family members.
func (e *Engine) FamilyMembers(ctx context.Context, account string) ([]string, error) {
	st, err := e.store.Load(ctx, account)
	return copyList(st.FamilyMembers), err
}
