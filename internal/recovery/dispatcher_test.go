package recovery

import (
	"context"
	"errors"
	"testing"

	"github.com/toeirei/warden/internal/model"
)

type recordingAuditor struct {
	entries [][]model.Attribute
	err     error
}

func (r *recordingAuditor) Record(_ context.Context, _, _ string, entries []model.Attribute) error {
	r.entries = append(r.entries, entries)
	return r.err
}

func TestDispatcher_ForwardsTransferAndAudit(t *testing.T) {
	e := New(NewMemoryStore())
	var sent []model.Transfer
	audit := &recordingAuditor{}
	d := NewDispatcher(e, TransfererFunc(func(_ context.Context, tr model.Transfer) error {
		sent = append(sent, tr)
		return nil
	}), audit)
	ctx := context.Background()

	if err := d.Init(ctx, acct, "creator"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	amount := model.Coins{{Denom: "uatom", Amount: "10"}}
	if _, err := d.Dispatch(ctx, acct, "creator", SendTokens{ToAddress: "dest", Amount: amount}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(sent) != 1 || sent[0].Destination != "dest" || sent[0].Source != acct {
		t.Fatalf("expected exactly one forwarded transfer, got %+v", sent)
	}
	if len(audit.entries) != 2 || audit.entries[1][0].Value != "send_tokens" {
		t.Fatalf("expected init and send_tokens audit records, got %+v", audit.entries)
	}

	if _, err := d.Dispatch(ctx, acct, "intruder", SendTokens{ToAddress: "dest", Amount: amount}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if len(sent) != 1 || len(audit.entries) != 2 {
		t.Fatalf("rejected command must not forward anything")
	}
}

func TestDispatcher_TransferFailure(t *testing.T) {
	e := New(NewMemoryStore())
	d := NewDispatcher(e, TransfererFunc(func(context.Context, model.Transfer) error {
		return errors.New("insufficient funds")
	}), nil)
	ctx := context.Background()
	if err := d.Init(ctx, acct, "creator"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	_, err := d.Dispatch(ctx, acct, "creator", SendTokens{ToAddress: "dest"})
	if !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}
}

func TestDispatcher_AuditFailureIsNotFatal(t *testing.T) {
	e := New(NewMemoryStore())
	audit := &recordingAuditor{err: errors.New("disk full")}
	d := NewDispatcher(e, nil, audit)
	ctx := context.Background()
	if err := d.Init(ctx, acct, "creator"); err != nil {
		t.Fatalf("Init should ignore audit failures, got %v", err)
	}
	if _, err := d.Dispatch(ctx, acct, "creator", AddFamilyMember{FamilyMember: "kid"}); err != nil {
		t.Fatalf("Dispatch should ignore audit failures, got %v", err)
	}
	if f, _ := e.FamilyMembers(ctx, acct); len(f) != 1 {
		t.Fatalf("command should have committed, got %v", f)
	}
}
