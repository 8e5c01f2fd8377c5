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

// Transferer is the external funds-transfer primitive.
type Transferer interface {
	Transfer(ctx context.Context, t model.Transfer) error
}

// Auditor records the log entries of committed commands.
type Auditor interface {
	Record(ctx context.Context, account, caller string, entries []model.Attribute) error
}

// TransfererFunc adapts a function to Transferer.
type TransfererFunc func(ctx context.Context, t model.Transfer) error

// Transfer calls f.
func (f TransfererFunc) Transfer(ctx context.Context, t model.Transfer) error { return f(ctx, t) }

// Dispatcher hosts an Engine: it delivers commands with the caller identity
// and forwards the outcome to the transfer primitive and the audit sink.
type Dispatcher struct {
	engine    *Engine
	transfers Transferer
	audit     Auditor
	logger    *log.Logger
}

// NewDispatcher wires engine to the given collaborators. Either may be nil.
func NewDispatcher(engine *Engine, transfers Transferer, audit Auditor) *Dispatcher {
	return &Dispatcher{
		engine:    engine,
		transfers: transfers,
		audit:     audit,
		logger:    logging.L,
	}
}

// Dispatch executes cmd and hands a produced transfer instruction to the
// Transferer. A transfer failure is reported as ErrTransferFailed; the
// account record is unaffected because only SendTokens yields a transfer and
// it does not mutate state. Audit failures are logged, not returned.
func (d *Dispatcher) Dispatch(ctx context.Context, account, caller string, cmd Command) (Response, error) {
	resp, err := d.engine.Execute(ctx, account, caller, cmd)
	if err != nil {
		return Response{}, err
	}
	if resp.Transfer != nil && d.transfers != nil {
		if err := d.transfers.Transfer(ctx, *resp.Transfer); err != nil {
			return Response{}, fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
	}
	if d.audit != nil {
		if err := d.audit.Record(ctx, account, caller, resp.Log); err != nil {
			d.logger.Warn("failed to record audit entry", "account", account, "action", cmd.Action(), "err", err)
		}
	}
	return resp, nil
}

// Init creates account with caller as owner and records the event.
func (d *Dispatcher) Init(ctx context.Context, account, caller string) error {
	if err := d.engine.Init(ctx, account, caller); err != nil {
		return err
	}
	if d.audit != nil {
		entries := logEntries("init", "owner", caller)
		if err := d.audit.Record(ctx, account, caller, entries); err != nil {
			d.logger.Warn("failed to record audit entry", "account", account, "action", "init", "err", err)
		}
	}
	return nil
}
