// Copyright (c) 2026 Warden Team
// Warden - guardian-based social recovery
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/toeirei/warden/internal/model"
	"github.com/toeirei/warden/internal/recovery"
	"github.com/uptrace/bun"
)

// backupSchemaVersion is written into every exported backup.
const backupSchemaVersion = 1

// BunStore is the database-backed account store. It implements
// recovery.Store, recovery.Transferer and recovery.Auditor.
type BunStore struct {
	bun    *bun.DB
	dbType string
	// now is replaceable in tests.
	now func() time.Time
}

var (
	_ recovery.Store      = (*BunStore)(nil)
	_ recovery.Transferer = (*BunStore)(nil)
	_ recovery.Auditor    = (*BunStore)(nil)
)

// BunDB exposes the underlying *bun.DB.
func (s *BunStore) BunDB() *bun.DB { return s.bun }

// Close closes the underlying database handle.
func (s *BunStore) Close() error { return s.bun.Close() }

func (s *BunStore) timestamp() time.Time {
	if s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

// Create implements recovery.Store.
func (s *BunStore) Create(ctx context.Context, st model.AccountState) error {
	return WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		exists, err := accountExistsBun(ctx, tx, st.Address)
		if err != nil {
			return err
		}
		if exists {
			return recovery.ErrAccountExists
		}
		if err := insertAccountBun(ctx, tx, st, s.timestamp()); err != nil {
			if errors.Is(err, ErrDuplicate) {
				return recovery.ErrAccountExists
			}
			return err
		}
		return nil
	})
}

// Load implements recovery.Store.
func (s *BunStore) Load(ctx context.Context, account string) (model.AccountState, error) {
	st, err := loadAccountBun(ctx, s.bun, account, false)
	if err != nil {
		return model.AccountState{}, s.mapNotFound(err)
	}
	return st, nil
}

// Update implements recovery.Store. The load, fn and the write share one
// transaction; when fn fails or leaves the record unchanged nothing is
// written.
func (s *BunStore) Update(ctx context.Context, account string, fn func(*model.AccountState) error) error {
	start := time.Now()
	err := WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		// SQLite serializes writers itself and does not parse FOR UPDATE.
		current, err := loadAccountBun(ctx, tx, account, s.dbType != "sqlite")
		if err != nil {
			return s.mapNotFound(err)
		}
		work := current.Clone()
		if err := fn(&work); err != nil {
			return err
		}
		if work.Equal(current) {
			return nil
		}
		work.Address = current.Address
		return saveAccountBun(ctx, tx, work, s.timestamp())
	})
	dbLogf("db: update %s finished in %s (err=%v)", account, time.Since(start), err)
	return err
}

func (s *BunStore) mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return recovery.ErrAccountNotFound
	}
	return err
}

// Transfer implements recovery.Transferer by appending t to the outbox.
func (s *BunStore) Transfer(ctx context.Context, t model.Transfer) error {
	return insertTransferBun(ctx, s.bun, t, s.timestamp())
}

// Record implements recovery.Auditor.
func (s *BunStore) Record(ctx context.Context, account, caller string, entries []model.Attribute) error {
	return insertAuditBun(ctx, s.bun, account, caller, entries, s.timestamp())
}

// ListAccounts returns every account address in ascending order.
func (s *BunStore) ListAccounts(ctx context.Context) ([]string, error) {
	return listAccountAddressesBun(ctx, s.bun)
}

// GetAuditLog returns audit entries newest first. An empty account selects
// every account; limit <= 0 returns all entries.
func (s *BunStore) GetAuditLog(ctx context.Context, account string, limit int) ([]model.AuditLogEntry, error) {
	return getAuditLogBun(ctx, s.bun, account, limit)
}

// GetTransfers returns the outbox oldest first. An empty source selects every
// account.
func (s *BunStore) GetTransfers(ctx context.Context, source string) ([]model.TransferRecord, error) {
	return getTransfersBun(ctx, s.bun, source)
}

// ExportBackup reads all tables into a BackupData inside one transaction.
func (s *BunStore) ExportBackup(ctx context.Context) (*model.BackupData, error) {
	var backup *model.BackupData
	err := WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		backup = &model.BackupData{SchemaVersion: backupSchemaVersion}

		accounts, err := listAccountsBun(ctx, tx)
		if err != nil {
			return err
		}
		backup.Accounts = accounts

		var als []AuditLogModel
		if err := tx.NewSelect().Model(&als).OrderExpr("id ASC").Scan(ctx); err != nil {
			return err
		}
		for _, a := range als {
			backup.AuditLog = append(backup.AuditLog, auditModelToModel(a))
		}

		var trs []TransferModel
		if err := tx.NewSelect().Model(&trs).OrderExpr("id ASC").Scan(ctx); err != nil {
			return err
		}
		for _, t := range trs {
			rec, err := transferModelToModel(t)
			if err != nil {
				return err
			}
			backup.Transfers = append(backup.Transfers, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return backup, nil
}

// ImportBackup wipes all tables and loads backup in one transaction. Row ids
// are reassigned by the database.
func (s *BunStore) ImportBackup(ctx context.Context, backup *model.BackupData) error {
	if backup == nil {
		return fmt.Errorf("nil backup")
	}
	if backup.SchemaVersion != backupSchemaVersion {
		return fmt.Errorf("unsupported backup schema version %d (want %d)", backup.SchemaVersion, backupSchemaVersion)
	}
	return WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		for _, t := range []string{"account_members", "audit_log", "transfers", "accounts"} {
			if _, err := ExecRaw(ctx, tx, fmt.Sprintf("DELETE FROM %s", t)); err != nil {
				return err
			}
		}
		now := s.timestamp()
		for _, acc := range backup.Accounts {
			if err := insertAccountBun(ctx, tx, acc, now); err != nil {
				return fmt.Errorf("restore account %s: %w", acc.Address, err)
			}
		}
		for _, a := range backup.AuditLog {
			row := AuditLogModel{Timestamp: a.Timestamp, Account: a.Account, Caller: a.Caller, Action: a.Action, Details: a.Details}
			if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
				return MapDBError(err)
			}
		}
		for _, t := range backup.Transfers {
			row := TransferModel{CreatedAt: t.CreatedAt, Source: t.Source, Destination: t.Destination, Amount: t.Amount.String()}
			if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
				return MapDBError(err)
			}
		}
		return nil
	})
}
