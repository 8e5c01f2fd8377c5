// Copyright (c) 2026 Warden Team
// Warden - guardian-based social recovery
// This source code is licensed under the MIT license found in the LICENSE file.

package recovery

// Threshold is the number of approvals that must be exceeded to finalize a
// recovery: a strict majority of the confirmed guardians.
func Threshold(guardianCount int) int {
	return guardianCount / 2
}

// VotePolicy controls how approvals are tallied.
type VotePolicy struct {
	// Dedupe rejects a second approval by the same guardian with
	// ErrAlreadyVoted. When false repeated approvals are counted.
	Dedupe bool
	// Equal compares guardian identifiers; nil means ExactIdentity.
	Equal IdentityEqual
}

// Cast appends vote to signatures and reports whether the tally now exceeds
// Threshold(guardianCount). The input slice is never modified; the returned
// slice still contains every vote even when finalize is true, clearing it is
// the caller's concern.
func (p VotePolicy) Cast(signatures []string, guardianCount int, vote string) (updated []string, finalize bool, err error) {
	eq := p.Equal
	if eq == nil {
		eq = ExactIdentity
	}
	if p.Dedupe && contains(eq, signatures, vote) {
		return nil, false, ErrAlreadyVoted
	}
	updated = make([]string, 0, len(signatures)+1)
	updated = append(updated, signatures...)
	updated = append(updated, vote)
	return updated, len(updated) > Threshold(guardianCount), nil
}

// CastVote tallies with the reference policy: duplicates counted, exact
// identity comparison.
func CastVote(signatures []string, guardianCount int, vote string) ([]string, bool) {
	updated, finalize, _ := VotePolicy{}.Cast(signatures, guardianCount, vote)
	return updated, finalize
}
