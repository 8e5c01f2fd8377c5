// Copyright (c) 2026 Warden Team
// Warden - guardian-based social recovery
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/toeirei/warden/internal/model"
	"github.com/uptrace/bun"
)

// Member roles stored in account_members.role.
const (
	roleGuardian = "guardian"
	rolePending  = "pending"
	roleSigner   = "signer"
	roleFamily   = "family"
)

// AccountModel maps the `accounts` table for Bun queries.
type AccountModel struct {
	bun.BaseModel   `bun:"table:accounts"`
	Address         string    `bun:"address,pk"`
	Owner           string    `bun:"owner"`
	IsRecovering    bool      `bun:"is_recovering"`
	RecoveryAddress string    `bun:"recovery_address"`
	CreatedAt       time.Time `bun:"created_at"`
	UpdatedAt       time.Time `bun:"updated_at"`
}

// MemberModel maps one entry of an ordered identity list.
type MemberModel struct {
	bun.BaseModel `bun:"table:account_members"`
	ID            int    `bun:"id,pk,autoincrement"`
	Account       string `bun:"account"`
	Role          string `bun:"role"`
	Position      int    `bun:"position"`
	Member        string `bun:"member"`
}

// AuditLogModel maps the audit_log table.
type AuditLogModel struct {
	bun.BaseModel `bun:"table:audit_log"`
	ID            int       `bun:"id,pk,autoincrement"`
	Timestamp     time.Time `bun:"timestamp"`
	Account       string    `bun:"account"`
	Caller        string    `bun:"caller"`
	Action        string    `bun:"action"`
	Details       string    `bun:"details"`
}

// TransferModel maps the transfers outbox. Amount holds the comma separated
// coin form, e.g. "100uatom,5ustake".
type TransferModel struct {
	bun.BaseModel `bun:"table:transfers"`
	ID            int       `bun:"id,pk,autoincrement"`
	CreatedAt     time.Time `bun:"created_at"`
	Source        string    `bun:"source"`
	Destination   string    `bun:"destination"`
	Amount        string    `bun:"amount"`
}

func accountStateToModels(st model.AccountState, now time.Time) (AccountModel, []MemberModel) {
	am := AccountModel{
		Address:         st.Address,
		Owner:           st.Owner,
		IsRecovering:    st.IsRecovering,
		RecoveryAddress: st.RecoveryAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	var members []MemberModel
	add := func(role string, list []string) {
		for i, m := range list {
			members = append(members, MemberModel{Account: st.Address, Role: role, Position: i, Member: m})
		}
	}
	add(rolePending, st.GuardiansPending)
	add(roleGuardian, st.Guardians)
	add(roleSigner, st.RecoverySignatures)
	add(roleFamily, st.FamilyMembers)
	return am, members
}

func modelsToAccountState(am AccountModel, members []MemberModel) model.AccountState {
	st := model.AccountState{
		Address:            am.Address,
		Owner:              am.Owner,
		IsRecovering:       am.IsRecovering,
		RecoveryAddress:    am.RecoveryAddress,
		GuardiansPending:   []string{},
		Guardians:          []string{},
		RecoverySignatures: []string{},
		FamilyMembers:      []string{},
	}
	// members arrive ordered by position
	for _, m := range members {
		switch m.Role {
		case rolePending:
			st.GuardiansPending = append(st.GuardiansPending, m.Member)
		case roleGuardian:
			st.Guardians = append(st.Guardians, m.Member)
		case roleSigner:
			st.RecoverySignatures = append(st.RecoverySignatures, m.Member)
		case roleFamily:
			st.FamilyMembers = append(st.FamilyMembers, m.Member)
		}
	}
	return st
}

// loadAccountBun reads one account record. When forUpdate is set the row is
// locked until the surrounding transaction ends. It returns sql.ErrNoRows
// when the account does not exist.
func loadAccountBun(ctx context.Context, idb bun.IDB, address string, forUpdate bool) (model.AccountState, error) {
	var am AccountModel
	q := idb.NewSelect().Model(&am).Where("address = ?", address)
	if forUpdate {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return model.AccountState{}, err
	}
	var members []MemberModel
	if err := idb.NewSelect().Model(&members).Where("account = ?", address).OrderExpr("position ASC").Scan(ctx); err != nil {
		return model.AccountState{}, err
	}
	return modelsToAccountState(am, members), nil
}

// accountExistsBun reports whether an account row exists.
func accountExistsBun(ctx context.Context, idb bun.IDB, address string) (bool, error) {
	return idb.NewSelect().Model((*AccountModel)(nil)).Where("address = ?", address).Exists(ctx)
}

// insertAccountBun inserts a new account row together with its member rows.
func insertAccountBun(ctx context.Context, idb bun.IDB, st model.AccountState, now time.Time) error {
	am, members := accountStateToModels(st, now)
	if _, err := idb.NewInsert().Model(&am).Exec(ctx); err != nil {
		return MapDBError(err)
	}
	return insertMembersBun(ctx, idb, members)
}

// saveAccountBun overwrites the scalar fields of an existing account and
// replaces its member rows.
func saveAccountBun(ctx context.Context, idb bun.IDB, st model.AccountState, now time.Time) error {
	am, members := accountStateToModels(st, now)
	if _, err := idb.NewUpdate().Model(&am).
		Column("owner", "is_recovering", "recovery_address", "updated_at").
		WherePK().Exec(ctx); err != nil {
		return MapDBError(err)
	}
	if _, err := idb.NewDelete().Model((*MemberModel)(nil)).Where("account = ?", st.Address).Exec(ctx); err != nil {
		return err
	}
	return insertMembersBun(ctx, idb, members)
}

func insertMembersBun(ctx context.Context, idb bun.IDB, members []MemberModel) error {
	if len(members) == 0 {
		return nil
	}
	if _, err := idb.NewInsert().Model(&members).Exec(ctx); err != nil {
		return MapDBError(err)
	}
	return nil
}

// listAccountAddressesBun returns all account addresses in ascending order.
func listAccountAddressesBun(ctx context.Context, idb bun.IDB) ([]string, error) {
	var addrs []string
	if err := idb.NewSelect().Model((*AccountModel)(nil)).Column("address").OrderExpr("address ASC").Scan(ctx, &addrs); err != nil {
		return nil, err
	}
	return addrs, nil
}

// listAccountsBun loads every account record ordered by address.
func listAccountsBun(ctx context.Context, idb bun.IDB) ([]model.AccountState, error) {
	var ams []AccountModel
	if err := idb.NewSelect().Model(&ams).OrderExpr("address ASC").Scan(ctx); err != nil {
		return nil, err
	}
	var members []MemberModel
	if err := idb.NewSelect().Model(&members).OrderExpr("account ASC, position ASC").Scan(ctx); err != nil {
		return nil, err
	}
	byAccount := make(map[string][]MemberModel, len(ams))
	for _, m := range members {
		byAccount[m.Account] = append(byAccount[m.Account], m)
	}
	out := make([]model.AccountState, 0, len(ams))
	for _, am := range ams {
		out = append(out, modelsToAccountState(am, byAccount[am.Address]))
	}
	return out, nil
}

// formatDetails renders log entries as "key=value" pairs separated by ", ".
// Values that are empty or contain a separator, a quote or whitespace are
// written as Go quoted strings so parseDetails can split the row again.
// The leading action entry is left out because it has its own column.
func formatDetails(entries []model.Attribute) (action, details string) {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Key == "action" && action == "" {
			action = e.Value
			continue
		}
		parts = append(parts, e.Key+"="+quoteDetail(e.Value))
	}
	return action, strings.Join(parts, ", ")
}

func quoteDetail(v string) string {
	if v == "" || strings.ContainsAny(v, ",=\"\\ \t\r\n") || !strconv.CanBackquote(v) {
		return strconv.Quote(v)
	}
	return v
}

// parseDetails splits a details column written by formatDetails back into
// its attributes.
func parseDetails(details string) ([]model.Attribute, error) {
	var out []model.Attribute
	rest := details
	for rest != "" {
		eq := strings.IndexByte(rest, '=')
		if eq <= 0 {
			return nil, fmt.Errorf("malformed details %q: missing key", details)
		}
		key := rest[:eq]
		rest = rest[eq+1:]
		var value string
		if strings.HasPrefix(rest, `"`) {
			quoted, err := strconv.QuotedPrefix(rest)
			if err != nil {
				return nil, fmt.Errorf("malformed details %q: %w", details, err)
			}
			if value, err = strconv.Unquote(quoted); err != nil {
				return nil, fmt.Errorf("malformed details %q: %w", details, err)
			}
			rest = rest[len(quoted):]
		} else {
			end := strings.Index(rest, ", ")
			if end < 0 {
				end = len(rest)
			}
			value, rest = rest[:end], rest[end:]
		}
		out = append(out, model.Attribute{Key: key, Value: value})
		if rest == "" {
			break
		}
		if !strings.HasPrefix(rest, ", ") {
			return nil, fmt.Errorf("malformed details %q: expected separator", details)
		}
		rest = rest[2:]
	}
	return out, nil
}

// insertAuditBun appends one audit log row.
func insertAuditBun(ctx context.Context, idb bun.IDB, account, caller string, entries []model.Attribute, now time.Time) error {
	action, details := formatDetails(entries)
	if action == "" {
		return fmt.Errorf("audit entry for %s has no action", account)
	}
	row := AuditLogModel{Timestamp: now, Account: account, Caller: caller, Action: action, Details: details}
	_, err := idb.NewInsert().Model(&row).Exec(ctx)
	return MapDBError(err)
}

// getAuditLogBun returns audit entries newest first. An empty account selects
// all accounts; limit <= 0 means no limit.
func getAuditLogBun(ctx context.Context, idb bun.IDB, account string, limit int) ([]model.AuditLogEntry, error) {
	var rows []AuditLogModel
	q := idb.NewSelect().Model(&rows).OrderExpr("id DESC")
	if account != "" {
		q = q.Where("account = ?", account)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.AuditLogEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, auditModelToModel(r))
	}
	return out, nil
}

func auditModelToModel(r AuditLogModel) model.AuditLogEntry {
	entry := model.AuditLogEntry{ID: r.ID, Timestamp: r.Timestamp, Account: r.Account, Caller: r.Caller, Action: r.Action, Details: r.Details}
	// Rows that do not parse keep their raw details only.
	if attrs, err := parseDetails(r.Details); err == nil {
		entry.Attributes = attrs
	}
	return entry
}

// insertTransferBun appends a transfer instruction to the outbox.
func insertTransferBun(ctx context.Context, idb bun.IDB, t model.Transfer, now time.Time) error {
	if err := t.Amount.Validate(); err != nil {
		return fmt.Errorf("transfer %s -> %s: %w", t.Source, t.Destination, err)
	}
	row := TransferModel{CreatedAt: now, Source: t.Source, Destination: t.Destination, Amount: t.Amount.String()}
	_, err := idb.NewInsert().Model(&row).Exec(ctx)
	return MapDBError(err)
}

// getTransfersBun returns outbox rows oldest first, optionally filtered by
// source account.
func getTransfersBun(ctx context.Context, idb bun.IDB, source string) ([]model.TransferRecord, error) {
	var rows []TransferModel
	q := idb.NewSelect().Model(&rows).OrderExpr("id ASC")
	if source != "" {
		q = q.Where("source = ?", source)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.TransferRecord, 0, len(rows))
	for _, r := range rows {
		rec, err := transferModelToModel(r)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func transferModelToModel(r TransferModel) (model.TransferRecord, error) {
	amount, err := model.ParseCoins(r.Amount)
	if err != nil {
		return model.TransferRecord{}, fmt.Errorf("transfer %d: %w", r.ID, err)
	}
	return model.TransferRecord{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		Transfer:  model.Transfer{Source: r.Source, Destination: r.Destination, Amount: amount},
	}, nil
}
