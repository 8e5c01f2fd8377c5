// Copyright (c) 2026 Warden Team
// Warden - guardian-based social recovery
// This source code is licensed under the MIT license found in the LICENSE file.

// package model defines the core data structures used throughout Warden.
// These structs represent the persisted account record and the values that
// flow between the recovery engine, the database layer and the UI.
package model // import "github.com/toeirei/warden/internal/model"

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// AccountState is the single aggregate persisted per account. It is owned by
// value; all sequences preserve insertion order.
type AccountState struct {
	Address            string   `json:"address"`
	Owner              string   `json:"owner"`
	GuardiansPending   []string `json:"guardians_pending"`
	Guardians          []string `json:"guardians"`
	IsRecovering       bool     `json:"is_recovering"`
	RecoveryAddress    string   `json:"recovery_address"`
	RecoverySignatures []string `json:"recovery_signatures"`
	FamilyMembers      []string `json:"family_members"`
}

// NewAccountState returns the initial record for an account: the initializing
// identity becomes the owner and all lists are empty.
func NewAccountState(address, owner string) AccountState {
	return AccountState{
		Address:            address,
		Owner:              owner,
		GuardiansPending:   []string{},
		Guardians:          []string{},
		RecoveryAddress:    owner,
		RecoverySignatures: []string{},
		FamilyMembers:      []string{},
	}
}

// Clone returns a deep copy so callers can mutate without aliasing the
// original slices.
func (s AccountState) Clone() AccountState {
	c := s
	c.GuardiansPending = cloneList(s.GuardiansPending)
	c.Guardians = cloneList(s.Guardians)
	c.RecoverySignatures = cloneList(s.RecoverySignatures)
	c.FamilyMembers = cloneList(s.FamilyMembers)
	return c
}

// Equal reports whether two records are identical field by field. Nil and
// empty lists compare equal.
func (s AccountState) Equal(o AccountState) bool {
	return s.Address == o.Address &&
		s.Owner == o.Owner &&
		s.IsRecovering == o.IsRecovering &&
		s.RecoveryAddress == o.RecoveryAddress &&
		slices.Equal(s.GuardiansPending, o.GuardiansPending) &&
		slices.Equal(s.Guardians, o.Guardians) &&
		slices.Equal(s.RecoverySignatures, o.RecoverySignatures) &&
		slices.Equal(s.FamilyMembers, o.FamilyMembers)
}

func cloneList(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// Coin is a single (denomination, quantity) pair. Quantity is a base-10
// non-negative integer kept as text so it is not bounded by a machine word.
type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// String returns the compact "<amount><denom>" form, e.g. "100uatom".
func (c Coin) String() string {
	return c.Amount + c.Denom
}

// Coins is an ordered list of coins.
type Coins []Coin

// String joins the coins with commas, e.g. "100uatom,5ustake".
func (cs Coins) String() string {
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, ",")
}

// Transfer is an outbound funds-transfer instruction. The engine only
// produces it; executing the transfer is left to an external primitive.
type Transfer struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Amount      Coins  `json:"amount"`
}

// String returns a human readable summary of the transfer.
func (t Transfer) String() string {
	return fmt.Sprintf("%s -> %s: %s", t.Source, t.Destination, t.Amount)
}

// Attribute is a single (key, value) log entry emitted by a command.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// AuditLogEntry represents a single recorded command outcome.
type AuditLogEntry struct {
	ID        int       `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Account   string    `json:"account"`
	Caller    string    `json:"caller"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`

	// Attributes is Details split back into its key/value pairs.
	Attributes []Attribute `json:"attributes,omitempty"`
}

// TransferRecord is a transfer instruction as stored in the outbox.
type TransferRecord struct {
	ID        int       `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Transfer
}

// BackupData is the top-level structure for a full backup.
type BackupData struct {
	SchemaVersion int              `json:"schema_version"`
	Accounts      []AccountState   `json:"accounts"`
	AuditLog      []AuditLogEntry  `json:"audit_log"`
	Transfers     []TransferRecord `json:"transfers"`
}
