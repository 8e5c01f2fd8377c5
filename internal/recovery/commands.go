// Copyright (c) 2026 Warden Team
// Warden - guardian-based social recovery
// This source code is licensed under the MIT license found in the LICENSE file.

package recovery

import "github.com/toeirei/warden/internal/model"

// Command is a state-changing request. The set of implementations is closed.
type Command interface {
	// Action is the value of the "action" log entry the command emits.
	Action() string
	isCommand()
}

// AddGuardian proposes Guardian as a pending guardian. Owner only.
type AddGuardian struct{ Guardian string }

// RemoveGuardian drops a confirmed guardian. Owner only, idempotent.
type RemoveGuardian struct{ Guardian string }

// AddGuardianConfirm moves Guardian from pending to confirmed.
type AddGuardianConfirm struct{ Guardian string }

// AddGuardianConfirmCancel withdraws a pending proposal. Owner only.
type AddGuardianConfirmCancel struct{ Guardian string }

// ExecuteRecovery starts a recovery towards NewOwner, citing Guardian as the
// initiator whose vote counts first.
type ExecuteRecovery struct {
	NewOwner string
	Guardian string
}

// CancelRecovery aborts any in-flight recovery.
type CancelRecovery struct{ Guardian string }

// GuardianApproveRequest adds Guardian's approval to the in-flight recovery.
type GuardianApproveRequest struct{ Guardian string }

// SendTokens asks for a transfer of Amount from the account to ToAddress.
type SendTokens struct {
	ToAddress string
	Amount    model.Coins
}

// AddFamilyMember records an informational family member. Owner only.
type AddFamilyMember struct{ FamilyMember string }

// RemoveFamilyMember forgets a family member. Owner only, idempotent.
type RemoveFamilyMember struct{ FamilyMember string }

func (AddGuardian) Action() string              { return "add_guardian_request" }
func (RemoveGuardian) Action() string           { return "remove_guardian" }
func (AddGuardianConfirm) Action() string       { return "add_guardian_confirm" }
func (AddGuardianConfirmCancel) Action() string { return "cancel_guardian_request" }
func (ExecuteRecovery) Action() string          { return "execute_recovery" }
func (CancelRecovery) Action() string           { return "cancel_recovery" }
func (GuardianApproveRequest) Action() string   { return "approve_request" }
func (SendTokens) Action() string               { return "send_tokens" }
func (AddFamilyMember) Action() string          { return "add_family_member" }
func (RemoveFamilyMember) Action() string       { return "remove_family_member" }

func (AddGuardian) isCommand()              {}
func (RemoveGuardian) isCommand()           {}
func (AddGuardianConfirm) isCommand()       {}
func (AddGuardianConfirmCancel) isCommand() {}
func (ExecuteRecovery) isCommand()          {}
func (CancelRecovery) isCommand()           {}
func (GuardianApproveRequest) isCommand()   {}
func (SendTokens) isCommand()               {}
func (AddFamilyMember) isCommand()          {}
func (RemoveFamilyMember) isCommand()       {}

// Response is the outcome of a successful command.
type Response struct {
	// Transfer is the outbound instruction, set only by SendTokens.
	Transfer *model.Transfer
	// Log holds the ordered (key, value) entries; the first is always
	// ("action", Command.Action()).
	Log []model.Attribute
}

// Attr returns the value of the first log entry with key, or "".
func (r Response) Attr(key string) string {
	for _, a := range r.Log {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

func logEntries(action string, kv ...string) []model.Attribute {
	out := make([]model.Attribute, 0, 1+len(kv)/2)
	out = append(out, model.Attribute{Key: "action", Value: action})
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, model.Attribute{Key: kv[i], Value: kv[i+1]})
	}
	return out
}
