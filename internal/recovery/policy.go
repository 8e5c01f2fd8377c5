// Copyright (c) 2026 Warden Team
// Warden - guardian-based social recovery
// This source code is licensed under the MIT license found in the LICENSE file.

package recovery

import (
	"strings"

	"github.com/toeirei/warden/internal/model"
)

// IdentityEqual reports whether two identifiers denote the same principal.
type IdentityEqual func(a, b string) bool

// ExactIdentity compares identifiers byte for byte. It is the default.
func ExactIdentity(a, b string) bool { return a == b }

// FoldIdentity compares identifiers case-insensitively, for address schemes
// whose textual form is not canonical in case.
func FoldIdentity(a, b string) bool { return strings.EqualFold(a, b) }

// Request is the input of an authorization decision.
type Request struct {
	Caller string
	State  *model.AccountState
	Param  string
}

// Predicate is a single authorization rule.
type Predicate func(Request) bool

// CallerIsOwner holds when the caller is the current owner.
func CallerIsOwner(eq IdentityEqual) Predicate {
	return func(r Request) bool { return eq(r.Caller, r.State.Owner) }
}

// ParamIsGuardian holds when the cited identifier is a confirmed guardian.
// The caller is not compared to the parameter.
func ParamIsGuardian(eq IdentityEqual) Predicate {
	return func(r Request) bool { return contains(eq, r.State.Guardians, r.Param) }
}

// ParamIsPending holds when the cited identifier awaits confirmation.
func ParamIsPending(eq IdentityEqual) Predicate {
	return func(r Request) bool { return contains(eq, r.State.GuardiansPending, r.Param) }
}

// CallerIsParam holds when the caller is the identity it cites.
func CallerIsParam(eq IdentityEqual) Predicate {
	return func(r Request) bool { return eq(r.Caller, r.Param) }
}

// Allow always holds.
func Allow(Request) bool { return true }

// AnyOf holds when at least one of ps holds.
func AnyOf(ps ...Predicate) Predicate {
	return func(r Request) bool {
		for _, p := range ps {
			if p(r) {
				return true
			}
		}
		return false
	}
}

// AllOf holds when every p in ps holds.
func AllOf(ps ...Predicate) Predicate {
	return func(r Request) bool {
		for _, p := range ps {
			if !p(r) {
				return false
			}
		}
		return true
	}
}

// rules is the per-command authorization table of an Engine.
type rules struct {
	owner          Predicate
	confirm        Predicate
	guardianRef    Predicate
	cancelRecovery Predicate
}

// newRules builds the table. With strict set, commands that cite a guardian
// additionally require the caller to be that guardian.
func newRules(eq IdentityEqual, strict bool) rules {
	owner := CallerIsOwner(eq)
	guardianRef := ParamIsGuardian(eq)
	confirm := Predicate(Allow)
	if strict {
		guardianRef = AllOf(guardianRef, CallerIsParam(eq))
		confirm = CallerIsParam(eq)
	}
	return rules{
		owner:          owner,
		confirm:        confirm,
		guardianRef:    guardianRef,
		cancelRecovery: AnyOf(owner, guardianRef),
	}
}

func contains(eq IdentityEqual, list []string, id string) bool {
	for _, v := range list {
		if eq(v, id) {
			return true
		}
	}
	return false
}

// without returns a new slice with every element equal to id dropped.
func without(eq IdentityEqual, list []string, id string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if !eq(v, id) {
			out = append(out, v)
		}
	}
	return out
}
