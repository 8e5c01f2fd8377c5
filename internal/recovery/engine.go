// Copyright (c) 2026 Warden Team
// Warden - guardian-based social recovery
// This source code is licensed under the MIT license found in the LICENSE file.

package recovery

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/toeirei/warden/internal/logging"
	"github.com/toeirei/warden/internal/model"
)

// Store persists one AccountState per account address.
type Store interface {
	// Create stores a new record. It fails with ErrAccountExists when the
	// address is already taken.
	Create(ctx context.Context, state model.AccountState) error
	// Load returns a copy of the committed record or ErrAccountNotFound.
	Load(ctx context.Context, account string) (model.AccountState, error)
	// Update loads the record, hands a private copy to fn and persists the
	// copy only when fn returns nil. The whole call is one indivisible unit.
	Update(ctx context.Context, account string, fn func(*model.AccountState) error) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithDedupeVotes rejects repeated approvals by the same guardian.
func WithDedupeVotes(enabled bool) Option {
	return func(e *Engine) { e.dedupe = enabled }
}

// WithStrictCaller requires the caller to be the guardian cited by
// AddGuardianConfirm, ExecuteRecovery, GuardianApproveRequest and the
// guardian branch of CancelRecovery.
func WithStrictCaller(enabled bool) Option {
	return func(e *Engine) { e.strict = enabled }
}

// WithIdentityEqual replaces the identity comparison used by every check.
func WithIdentityEqual(eq IdentityEqual) Option {
	return func(e *Engine) {
		if eq != nil {
			e.eq = eq
		}
	}
}

// WithLogger sets the logger used for command diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engine is the recovery state machine.
type Engine struct {
	store  Store
	eq     IdentityEqual
	dedupe bool
	strict bool
	logger *log.Logger
	rules  rules
	votes  VotePolicy
}

// New returns an Engine operating on store.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		eq:     ExactIdentity,
		logger: logging.L,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.rules = newRules(e.eq, e.strict)
	e.votes = VotePolicy{Dedupe: e.dedupe, Equal: e.eq}
	return e
}

// Init creates the record for account with caller as owner.
func (e *Engine) Init(ctx context.Context, account, caller string) error {
	if account == "" || caller == "" {
		return fmt.Errorf("%w: account and caller are required", ErrInvalidArgument)
	}
	if err := e.store.Create(ctx, model.NewAccountState(account, caller)); err != nil {
		return err
	}
	e.logger.Debug("account initialized", "account", account, "owner", caller)
	return nil
}

// Execute runs cmd on behalf of caller against account.
func (e *Engine) Execute(ctx context.Context, account, caller string, cmd Command) (Response, error) {
	if cmd == nil {
		return Response{}, fmt.Errorf("%w: nil command", ErrInvalidArgument)
	}
	var resp Response
	err := e.store.Update(ctx, account, func(st *model.AccountState) error {
		r, err := e.apply(caller, st, cmd)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		e.logger.Debug("command rejected", "account", account, "caller", caller, "action", cmd.Action(), "err", err)
		return Response{}, err
	}
	e.logger.Debug("command committed", "account", account, "caller", caller, "action", cmd.Action())
	return resp, nil
}

// Query evaluates q against the committed record of account.
func (e *Engine) Query(ctx context.Context, account string, q Query) (any, error) {
	st, err := e.store.Load(ctx, account)
	if err != nil {
		return nil, err
	}
	return Project(st, q)
}

// State returns the committed record of account.
func (e *Engine) State(ctx context.Context, account string) (model.AccountState, error) {
	return e.store.Load(ctx, account)
}

func (e *Engine) apply(caller string, st *model.AccountState, cmd Command) (Response, error) {
	switch c := cmd.(type) {
	case AddGuardian:
		return e.requestAddGuardian(caller, st, c)
	case AddGuardianConfirm:
		return e.confirmAddGuardian(caller, st, c)
	case AddGuardianConfirmCancel:
		return e.cancelPendingGuardian(caller, st, c)
	case RemoveGuardian:
		return e.removeGuardian(caller, st, c)
	case ExecuteRecovery:
		return e.initiateRecovery(caller, st, c)
	case GuardianApproveRequest:
		return e.approveRecovery(caller, st, c)
	case CancelRecovery:
		return e.cancelRecovery(caller, st, c)
	case SendTokens:
		return e.sendFunds(caller, st, c)
	case AddFamilyMember:
		return e.addFamilyMember(caller, st, c)
	case RemoveFamilyMember:
		return e.removeFamilyMember(caller, st, c)
	default:
		return Response{}, fmt.Errorf("%w: unsupported command %T", ErrInvalidArgument, cmd)
	}
}

func (e *Engine) check(p Predicate, caller string, st *model.AccountState, param string) error {
	if !p(Request{Caller: caller, State: st, Param: param}) {
		return ErrUnauthorized
	}
	return nil
}

// --- Guardian lifecycle ---

func (e *Engine) requestAddGuardian(caller string, st *model.AccountState, c AddGuardian) (Response, error) {
	if err := e.check(e.rules.owner, caller, st, c.Guardian); err != nil {
		return Response{}, err
	}
	if contains(e.eq, st.GuardiansPending, c.Guardian) {
		return Response{}, ErrAlreadyPending
	}
	if contains(e.eq, st.Guardians, c.Guardian) {
		return Response{}, ErrAlreadyGuardian
	}
	st.GuardiansPending = append(st.GuardiansPending, c.Guardian)
	return Response{Log: logEntries(c.Action(), "guardian", c.Guardian)}, nil
}

func (e *Engine) confirmAddGuardian(caller string, st *model.AccountState, c AddGuardianConfirm) (Response, error) {
	if err := e.check(e.rules.confirm, caller, st, c.Guardian); err != nil {
		return Response{}, err
	}
	if !contains(e.eq, st.GuardiansPending, c.Guardian) {
		return Response{}, ErrNotPending
	}
	st.GuardiansPending = without(e.eq, st.GuardiansPending, c.Guardian)
	st.Guardians = append(st.Guardians, c.Guardian)
	return Response{Log: logEntries(c.Action(), "guardian", c.Guardian, "sender", caller)}, nil
}

func (e *Engine) cancelPendingGuardian(caller string, st *model.AccountState, c AddGuardianConfirmCancel) (Response, error) {
	if err := e.check(e.rules.owner, caller, st, c.Guardian); err != nil {
		return Response{}, err
	}
	if !contains(e.eq, st.GuardiansPending, c.Guardian) {
		return Response{}, ErrNotPending
	}
	st.GuardiansPending = without(e.eq, st.GuardiansPending, c.Guardian)
	return Response{Log: logEntries(c.Action(), "guardian", c.Guardian, "sender", caller)}, nil
}

func (e *Engine) removeGuardian(caller string, st *model.AccountState, c RemoveGuardian) (Response, error) {
	if err := e.check(e.rules.owner, caller, st, c.Guardian); err != nil {
		return Response{}, err
	}
	st.Guardians = without(e.eq, st.Guardians, c.Guardian)
	// Votes of a removed guardian no longer count.
	st.RecoverySignatures = without(e.eq, st.RecoverySignatures, c.Guardian)
	return Response{Log: logEntries(c.Action(), "guardian", c.Guardian)}, nil
}

// --- Recovery voting ---

func (e *Engine) initiateRecovery(caller string, st *model.AccountState, c ExecuteRecovery) (Response, error) {
	if err := e.check(e.rules.guardianRef, caller, st, c.Guardian); err != nil {
		return Response{}, err
	}
	if st.IsRecovering {
		return Response{}, ErrAlreadyRecovering
	}
	if len(st.Guardians) == 1 {
		st.Owner = c.NewOwner
		return Response{Log: logEntries(c.Action(), "sender", caller, "guardian", c.Guardian, "owner", c.NewOwner)}, nil
	}
	st.IsRecovering = true
	st.RecoveryAddress = c.NewOwner
	st.RecoverySignatures = []string{c.Guardian}
	return Response{Log: logEntries(c.Action(), "sender", caller, "guardian", c.Guardian)}, nil
}

func (e *Engine) approveRecovery(caller string, st *model.AccountState, c GuardianApproveRequest) (Response, error) {
	if !st.IsRecovering {
		return Response{}, ErrNotRecovering
	}
	if err := e.check(e.rules.guardianRef, caller, st, c.Guardian); err != nil {
		return Response{}, err
	}
	sigs, finalize, err := e.votes.Cast(st.RecoverySignatures, len(st.Guardians), c.Guardian)
	if err != nil {
		return Response{}, err
	}
	if !finalize {
		st.RecoverySignatures = sigs
		return Response{Log: logEntries(c.Action(), "guardian", c.Guardian, "sender", caller)}, nil
	}
	st.Owner = st.RecoveryAddress
	st.IsRecovering = false
	st.RecoverySignatures = []string{}
	return Response{Log: logEntries(c.Action(), "guardian", c.Guardian, "sender", caller, "owner", st.Owner)}, nil
}

func (e *Engine) cancelRecovery(caller string, st *model.AccountState, c CancelRecovery) (Response, error) {
	if err := e.check(e.rules.cancelRecovery, caller, st, c.Guardian); err != nil {
		return Response{}, err
	}
	st.IsRecovering = false
	st.RecoverySignatures = []string{}
	return Response{Log: logEntries(c.Action(), "sender", caller)}, nil
}

// --- Ownership, funds, family ---

func (e *Engine) sendFunds(caller string, st *model.AccountState, c SendTokens) (Response, error) {
	if err := e.check(e.rules.owner, caller, st, c.ToAddress); err != nil {
		return Response{}, err
	}
	if err := c.Amount.Validate(); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	amount := make(model.Coins, len(c.Amount))
	copy(amount, c.Amount)
	t := &model.Transfer{Source: st.Address, Destination: c.ToAddress, Amount: amount}
	return Response{
		Transfer: t,
		Log:      logEntries(c.Action(), "sender", st.Address, "receiver", c.ToAddress),
	}, nil
}

func (e *Engine) addFamilyMember(caller string, st *model.AccountState, c AddFamilyMember) (Response, error) {
	if err := e.check(e.rules.owner, caller, st, c.FamilyMember); err != nil {
		return Response{}, err
	}
	if contains(e.eq, st.FamilyMembers, c.FamilyMember) {
		return Response{}, ErrFamilyMemberExists
	}
	st.FamilyMembers = append(st.FamilyMembers, c.FamilyMember)
	return Response{Log: logEntries(c.Action(), "family_member", c.FamilyMember)}, nil
}

func (e *Engine) removeFamilyMember(caller string, st *model.AccountState, c RemoveFamilyMember) (Response, error) {
	if err := e.check(e.rules.owner, caller, st, c.FamilyMember); err != nil {
		return Response{}, err
	}
	st.FamilyMembers = without(e.eq, st.FamilyMembers, c.FamilyMember)
	return Response{Log: logEntries(c.Action(), "family_member", c.FamilyMember)}, nil
}
