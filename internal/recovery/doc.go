// Copyright (c) 2026 Warden Team
// Warden - guardian-based social recovery
// This source code is licensed under the MIT license found in the LICENSE file.

// Package recovery implements the guardian-based social recovery state
// machine for a single-owner account.
//
// The Engine operates on one model.AccountState per account through a Store
// port. Every Command runs as load, validate, mutate, store inside a single
// Store.Update call: a rejected command leaves the persisted record untouched
// and produces neither a transfer instruction nor log entries.
//
// Commands
//   - Guardian lifecycle: AddGuardian (request), AddGuardianConfirm,
//     AddGuardianConfirmCancel, RemoveGuardian.
//   - Recovery voting: ExecuteRecovery (initiate), GuardianApproveRequest,
//     CancelRecovery.
//   - Administration: SendTokens, AddFamilyMember, RemoveFamilyMember.
//
// Queries are pure projections of the committed record and perform no
// authorization (see Project).
//
// Authorization rules are small Predicates over (caller, state, parameter)
// composed per command; the vote bookkeeping is the pure VotePolicy.Cast.
// The Dispatcher hosts an Engine and forwards the produced transfer
// instruction and log entries to the external Transferer and Auditor.
package recovery
