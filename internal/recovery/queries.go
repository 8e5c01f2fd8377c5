// Copyright (c) 2026 Warden Team
// Warden - guardian-based social recovery
// This source code is licensed under the MIT license found in the LICENSE file.

package recovery

import (
	"fmt"

	"github.com/toeirei/warden/internal/model"
)

// Query is a read-only request. The set of implementations is closed.
type Query interface{ isQuery() }

type (
	GetOwner            struct{}
	GetRecoveryStatus   struct{}
	GetGuardians        struct{}
	GetSigners          struct{}
	GetPendingGuardians struct{}
	GetFamilyMembers    struct{}
)

func (GetOwner) isQuery()            {}
func (GetRecoveryStatus) isQuery()   {}
func (GetGuardians) isQuery()        {}
func (GetSigners) isQuery()          {}
func (GetPendingGuardians) isQuery() {}
func (GetFamilyMembers) isQuery()    {}

// OwnerResponse answers GetOwner.
type OwnerResponse struct {
	Owner string `json:"owner"`
}

// RecoveryResponse answers GetRecoveryStatus.
type RecoveryResponse struct {
	IsRecovering bool `json:"is_recovering"`
}

// GuardianResponse answers GetGuardians and GetPendingGuardians.
type GuardianResponse struct {
	Guardians []string `json:"guardians"`
}

// SignerResponse answers GetSigners.
type SignerResponse struct {
	Signers []string `json:"signers"`
}

// FamilyResponse answers GetFamilyMembers.
type FamilyResponse struct {
	FamilyMembers []string `json:"family_members"`
}

// Project evaluates q against a committed record. It has no side effects and
// performs no authorization. Returned lists never alias st.
func Project(st model.AccountState, q Query) (any, error) {
	switch q.(type) {
	case GetOwner:
		return OwnerResponse{Owner: st.Owner}, nil
	case GetRecoveryStatus:
		return RecoveryResponse{IsRecovering: st.IsRecovering}, nil
	case GetGuardians:
		return GuardianResponse{Guardians: copyList(st.Guardians)}, nil
	case GetPendingGuardians:
		return GuardianResponse{Guardians: copyList(st.GuardiansPending)}, nil
	case GetSigners:
		return SignerResponse{Signers: copyList(st.RecoverySignatures)}, nil
	case GetFamilyMembers:
		return FamilyResponse{FamilyMembers: copyList(st.FamilyMembers)}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported query %T", ErrInvalidArgument, q)
	}
}

func copyList(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
