// Copyright (c) 2026 Warden Team
// Warden - guardian-based social recovery
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/toeirei/warden/internal/model"
	"github.com/toeirei/warden/internal/recovery"
)

// newTestStore opens a private shared-cache in-memory SQLite database with
// migrations applied.
func newTestStore(t *testing.T) *BunStore {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := NewStoreFromDSN("sqlite", "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("NewStoreFromDSN failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	st := model.NewAccountState("acct1", "alice")
	st.Guardians = []string{"g2", "g1", "g3"}
	st.GuardiansPending = []string{"p1"}
	st.FamilyMembers = []string{"f1", "f2"}
	if err := s.Create(ctx, st); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := s.Load(ctx, "acct1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !got.Equal(st) {
		t.Fatalf("loaded record differs:\n got  %+v\n want %+v", got, st)
	}
	if got.RecoverySignatures == nil {
		t.Error("expected empty, non-nil signature list")
	}
}

func TestCreateDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Create(ctx, model.NewAccountState("acct1", "alice")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	err := s.Create(ctx, model.NewAccountState("acct1", "mallory"))
	if !errors.Is(err, recovery.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
	got, _ := s.Load(ctx, "acct1")
	if got.Owner != "alice" {
		t.Fatalf("owner overwritten: %q", got.Owner)
	}
}

func TestLoadMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Load(context.Background(), "nope")
	if !errors.Is(err, recovery.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if !errors.Is(err, recovery.ErrNotFound) {
		t.Fatalf("expected ErrAccountNotFound to refine ErrNotFound")
	}
}

func TestUpdatePersistsAndPreservesOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Create(ctx, model.NewAccountState("acct1", "alice")); err != nil {
		t.Fatal(err)
	}
	err := s.Update(ctx, "acct1", func(st *model.AccountState) error {
		st.Guardians = append(st.Guardians, "zed", "amy", "bob")
		st.IsRecovering = true
		st.RecoveryAddress = "carol"
		st.RecoverySignatures = []string{"zed", "zed"}
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, err := s.Load(ctx, "acct1")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got.Guardians, []string{"zed", "amy", "bob"}) {
		t.Errorf("guardians order lost: %v", got.Guardians)
	}
	if !slices.Equal(got.RecoverySignatures, []string{"zed", "zed"}) {
		t.Errorf("signatures lost duplicates: %v", got.RecoverySignatures)
	}
	if !got.IsRecovering || got.RecoveryAddress != "carol" {
		t.Errorf("scalar fields not persisted: %+v", got)
	}
}

func TestUpdateFailureLeavesRecordUnchanged(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	orig := model.NewAccountState("acct1", "alice")
	orig.Guardians = []string{"g1"}
	if err := s.Create(ctx, orig); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	err := s.Update(ctx, "acct1", func(st *model.AccountState) error {
		st.Owner = "mallory"
		st.Guardians = nil
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	got, _ := s.Load(ctx, "acct1")
	if !got.Equal(orig) {
		t.Fatalf("record changed after failed update: %+v", got)
	}
}

func TestUpdateMissingAccount(t *testing.T) {
	s := newTestStore(t)
	called := false
	err := s.Update(context.Background(), "ghost", func(*model.AccountState) error {
		called = true
		return nil
	})
	if !errors.Is(err, recovery.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if called {
		t.Fatal("callback must not run for a missing account")
	}
}

func TestEngineOverBunStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	d := recovery.NewDispatcher(recovery.New(s), s, s)

	if err := d.Init(ctx, "acct1", "alice"); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	for _, g := range []string{"g1", "g2", "g3"} {
		if _, err := d.Dispatch(ctx, "acct1", "alice", recovery.AddGuardian{Guardian: g}); err != nil {
			t.Fatalf("add %s: %v", g, err)
		}
		if _, err := d.Dispatch(ctx, "acct1", g, recovery.AddGuardianConfirm{Guardian: g}); err != nil {
			t.Fatalf("confirm %s: %v", g, err)
		}
	}
	if _, err := d.Dispatch(ctx, "acct1", "g1", recovery.ExecuteRecovery{NewOwner: "bob", Guardian: "g1"}); err != nil {
		t.Fatalf("execute recovery: %v", err)
	}
	if _, err := d.Dispatch(ctx, "acct1", "g2", recovery.GuardianApproveRequest{Guardian: "g2"}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	st, err := s.Load(ctx, "acct1")
	if err != nil {
		t.Fatal(err)
	}
	if st.Owner != "bob" || st.IsRecovering || len(st.RecoverySignatures) != 0 {
		t.Fatalf("unexpected state after recovery: %+v", st)
	}

	amount := model.Coins{{Denom: "uatom", Amount: "100"}, {Denom: "ustake", Amount: "5"}}
	if _, err := d.Dispatch(ctx, "acct1", "bob", recovery.SendTokens{ToAddress: "dave", Amount: amount}); err != nil {
		t.Fatalf("send: %v", err)
	}
	transfers, err := s.GetTransfers(ctx, "acct1")
	if err != nil {
		t.Fatal(err)
	}
	if len(transfers) != 1 {
		t.Fatalf("expected 1 transfer, got %d", len(transfers))
	}
	if transfers[0].Destination != "dave" || transfers[0].Amount.String() != "100uatom,5ustake" {
		t.Errorf("unexpected transfer: %+v", transfers[0])
	}

	entries, err := s.GetAuditLog(ctx, "acct1", 0)
	if err != nil {
		t.Fatal(err)
	}
	// init + 3*(add+confirm) + execute + approve + send
	if len(entries) != 10 {
		t.Fatalf("expected 10 audit entries, got %d", len(entries))
	}
	if entries[0].Action != "send_tokens" || entries[len(entries)-1].Action != "init" {
		t.Errorf("audit order wrong: first=%s last=%s", entries[0].Action, entries[len(entries)-1].Action)
	}
	limited, _ := s.GetAuditLog(ctx, "acct1", 2)
	if len(limited) != 2 {
		t.Errorf("expected limit to apply, got %d", len(limited))
	}
}

func TestRecordRequiresAction(t *testing.T) {
	s := newTestStore(t)
	err := s.Record(context.Background(), "acct1", "alice", []model.Attribute{{Key: "guardian", Value: "g1"}})
	if err == nil {
		t.Fatal("expected error for entry without action")
	}
}

func TestFormatDetails(t *testing.T) {
	action, details := formatDetails([]model.Attribute{
		{Key: "action", Value: "add_guardian_confirm"},
		{Key: "guardian", Value: "g1"},
		{Key: "sender", Value: "g1"},
	})
	if action != "add_guardian_confirm" {
		t.Errorf("action = %q", action)
	}
	if details != "guardian=g1, sender=g1" {
		t.Errorf("details = %q", details)
	}
}

func TestFormatDetailsRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		attrs []model.Attribute
		want  string
	}{
		{name: "plain", attrs: []model.Attribute{{Key: "guardian", Value: "g1"}, {Key: "sender", Value: "g1"}}, want: "guardian=g1, sender=g1"},
		{name: "separator in value", attrs: []model.Attribute{{Key: "family_member", Value: "a, b=c"}, {Key: "x", Value: "y"}}, want: `family_member="a, b=c", x=y`},
		{name: "quote in value", attrs: []model.Attribute{{Key: "guardian", Value: `say "hi"`}}, want: `guardian="say \"hi\""`},
		{name: "empty value", attrs: []model.Attribute{{Key: "guardian", Value: ""}, {Key: "sender", Value: "s"}}, want: `guardian="", sender=s`},
		{name: "unicode", attrs: []model.Attribute{{Key: "owner", Value: "jürgen"}}, want: "owner=jürgen"},
		{name: "none", attrs: nil, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := append([]model.Attribute{{Key: "action", Value: "test"}}, tt.attrs...)
			_, details := formatDetails(entries)
			if details != tt.want {
				t.Fatalf("details = %q, want %q", details, tt.want)
			}
			got, err := parseDetails(details)
			if err != nil {
				t.Fatalf("parseDetails(%q): %v", details, err)
			}
			if !slices.Equal(got, tt.attrs) {
				t.Fatalf("parseDetails(%q) = %+v, want %+v", details, got, tt.attrs)
			}
		})
	}
}

func TestParseDetailsMalformed(t *testing.T) {
	for _, in := range []string{"novalue", "=x", `k="unterminated`, `k="a"b`} {
		if _, err := parseDetails(in); err == nil {
			t.Errorf("parseDetails(%q): expected error", in)
		}
	}
}

func TestAuditLogCarriesAttributes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	attrs := []model.Attribute{{Key: "family_member", Value: "x, y=z"}}
	if err := s.Record(ctx, "acct1", "alice", append([]model.Attribute{{Key: "action", Value: "add_family_member"}}, attrs...)); err != nil {
		t.Fatal(err)
	}
	entries, err := s.GetAuditLog(ctx, "acct1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || !slices.Equal(entries[0].Attributes, attrs) {
		t.Fatalf("unexpected audit entries: %+v", entries)
	}
}

func TestTransferRejectsMalformedAmount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	good := model.Transfer{Source: "acct1", Destination: "bob", Amount: model.Coins{{Denom: "uatom", Amount: "1"}}}
	if err := s.Transfer(ctx, good); err != nil {
		t.Fatal(err)
	}
	for _, amount := range []model.Coins{
		{{Denom: "atom", Amount: "-5"}},
		{{Denom: "1inch", Amount: "5"}},
		{{Denom: "", Amount: "5"}},
	} {
		if err := s.Transfer(ctx, model.Transfer{Source: "acct1", Destination: "bob", Amount: amount}); err == nil {
			t.Errorf("expected %v to be rejected", amount)
		}
	}
	trs, err := s.GetTransfers(ctx, "acct1")
	if err != nil {
		t.Fatalf("GetTransfers failed: %v", err)
	}
	if len(trs) != 1 || trs[0].Amount.String() != "1uatom" {
		t.Fatalf("outbox = %+v", trs)
	}
}

func TestDispatchMalformedAmountKeepsOutboxReadable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	d := recovery.NewDispatcher(recovery.New(s), s, s)
	if err := d.Init(ctx, "acct1", "alice"); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	ok := model.Coins{{Denom: "uatom", Amount: "10"}}
	if _, err := d.Dispatch(ctx, "acct1", "alice", recovery.SendTokens{ToAddress: "bob", Amount: ok}); err != nil {
		t.Fatalf("send: %v", err)
	}
	bad := model.Coins{{Denom: "atom", Amount: "-5"}}
	if _, err := d.Dispatch(ctx, "acct1", "alice", recovery.SendTokens{ToAddress: "bob", Amount: bad}); !errors.Is(err, recovery.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	trs, err := s.GetTransfers(ctx, "acct1")
	if err != nil {
		t.Fatalf("GetTransfers failed: %v", err)
	}
	if len(trs) != 1 {
		t.Fatalf("expected only the valid transfer, got %+v", trs)
	}
	entries, _ := s.GetAuditLog(ctx, "acct1", 0)
	if len(entries) != 2 {
		t.Fatalf("rejected send must not be audited, got %d entries", len(entries))
	}
}

func TestListAccounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, a := range []string{"charlie", "alpha", "bravo"} {
		if err := s.Create(ctx, model.NewAccountState(a, "owner")); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.ListAccounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []string{"alpha", "bravo", "charlie"}) {
		t.Fatalf("ListAccounts = %v", got)
	}
}

func TestExportImportBackup(t *testing.T) {
	src := newTestStore(t)
	ctx := context.Background()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	src.now = func() time.Time { return fixed }

	st := model.NewAccountState("acct1", "alice")
	st.Guardians = []string{"g1", "g2"}
	st.FamilyMembers = []string{"f1"}
	if err := src.Create(ctx, st); err != nil {
		t.Fatal(err)
	}
	if err := src.Record(ctx, "acct1", "alice", []model.Attribute{{Key: "action", Value: "init"}, {Key: "owner", Value: "alice"}}); err != nil {
		t.Fatal(err)
	}
	if err := src.Transfer(ctx, model.Transfer{Source: "acct1", Destination: "bob", Amount: model.Coins{{Denom: "uatom", Amount: "7"}}}); err != nil {
		t.Fatal(err)
	}

	backup, err := src.ExportBackup(ctx)
	if err != nil {
		t.Fatalf("ExportBackup failed: %v", err)
	}
	if backup.SchemaVersion != backupSchemaVersion || len(backup.Accounts) != 1 || len(backup.AuditLog) != 1 || len(backup.Transfers) != 1 {
		t.Fatalf("unexpected backup contents: %+v", backup)
	}

	dst := newTestStore(t)
	// Pre-existing data must be replaced.
	if err := dst.Create(ctx, model.NewAccountState("stale", "x")); err != nil {
		t.Fatal(err)
	}
	if err := dst.ImportBackup(ctx, backup); err != nil {
		t.Fatalf("ImportBackup failed: %v", err)
	}
	accounts, _ := dst.ListAccounts(ctx)
	if !slices.Equal(accounts, []string{"acct1"}) {
		t.Fatalf("accounts after import = %v", accounts)
	}
	got, err := dst.Load(ctx, "acct1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(st) {
		t.Fatalf("restored record differs: %+v", got)
	}
	trs, _ := dst.GetTransfers(ctx, "")
	if len(trs) != 1 || trs[0].Amount.String() != "7uatom" {
		t.Fatalf("transfers after import = %+v", trs)
	}
}

func TestImportBackupRejectsUnknownVersion(t *testing.T) {
	s := newTestStore(t)
	err := s.ImportBackup(context.Background(), &model.BackupData{SchemaVersion: 99})
	if err == nil {
		t.Fatal("expected error for unknown schema version")
	}
}

func TestNewStoreFromDSN_UnknownDriver(t *testing.T) {
	if _, err := NewStoreFromDSN("oracle", "x"); err == nil {
		t.Fatal("expected error for unknown database type")
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := RunMigrations(s.BunDB().DB, "sqlite"); err != nil {
		t.Fatalf("second RunMigrations failed: %v", err)
	}
	var n int
	if err := QueryRawInto(context.Background(), s.BunDB(), &n, "SELECT COUNT(*) FROM schema_migrations"); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 recorded migration, got %d", n)
	}
}
