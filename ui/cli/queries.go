// Copyright (c) 2026 Warden Team
// Warden - guardian-based social recovery
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/toeirei/warden/internal/i18n"
	"github.com/toeirei/warden/internal/model"
	"github.com/toeirei/warden/internal/recovery"
	"golang.org/x/term"
)

// queryAccount evaluates q against the configured account.
func queryAccount(cmd *cobra.Command, q recovery.Query) (any, error) {
	account, err := requireAccount()
	if err != nil {
		return nil, err
	}
	svc, err := openServices()
	if err != nil {
		return nil, err
	}
	res, err := svc.engine.Query(cmd.Context(), account, q)
	if err != nil {
		return nil, localizeError(err)
	}
	return res, nil
}

func addJSONFlag(cmd *cobra.Command) {
	cmd.Flags().Bool("json", false, "Print the result as JSON")
}

func wantJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeList prints one identity per line.
func writeList(w io.Writer, list []string) {
	for _, id := range list {
		fmt.Fprintln(w, id)
	}
}

// listQueryCmd builds a command that prints the list selected from the
// query response.
func listQueryCmd(use, short string, q recovery.Query, pick func(any) []string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := queryAccount(cmd, q)
			if err != nil {
				return err
			}
			if wantJSON(cmd) {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			writeList(cmd.OutOrStdout(), pick(res))
			return nil
		},
	}
	addJSONFlag(cmd)
	return cmd
}

func newOwnerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "owner",
		Short: "Print the current owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := queryAccount(cmd, recovery.GetOwner{})
			if err != nil {
				return err
			}
			if wantJSON(cmd) {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.(recovery.OwnerResponse).Owner)
			return nil
		},
	}
	addJSONFlag(cmd)
	return cmd
}

func newGuardiansCmd() *cobra.Command {
	return listQueryCmd("guardians", "List confirmed guardians", recovery.GetGuardians{},
		func(v any) []string { return v.(recovery.GuardianResponse).Guardians })
}

func newPendingCmd() *cobra.Command {
	return listQueryCmd("pending", "List pending guardians", recovery.GetPendingGuardians{},
		func(v any) []string { return v.(recovery.GuardianResponse).Guardians })
}

func newSignersCmd() *cobra.Command {
	return listQueryCmd("signers", "List approvals of the in-flight recovery", recovery.GetSigners{},
		func(v any) []string { return v.(recovery.SignerResponse).Signers })
}

func newFamilyListCmd() *cobra.Command {
	return listQueryCmd("list", "List family members", recovery.GetFamilyMembers{},
		func(v any) []string { return v.(recovery.FamilyResponse).FamilyMembers })
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the full account record",
		Long: `Shows owner, recovery state, guardians, pending guardians, approvals and
family members. Output is styled on a terminal and plain otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := requireAccount()
			if err != nil {
				return err
			}
			svc, err := openServices()
			if err != nil {
				return err
			}
			st, err := svc.engine.State(cmd.Context(), account)
			if err != nil {
				return localizeError(err)
			}
			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return writeJSON(out, st)
			}
			writeStatus(out, st, isTerminal(out))
			return nil
		},
	}
	addJSONFlag(cmd)
	return cmd
}

var (
	statusTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	statusAlertStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
)

func writeStatus(out io.Writer, st model.AccountState, styled bool) {
	yes, no := i18n.T("status.yes"), i18n.T("status.no")
	recovering := no
	if st.IsRecovering {
		recovering = yes
	}
	join := func(list []string) string {
		if len(list) == 0 {
			return i18n.T("status.none")
		}
		return strings.Join(list, ", ")
	}

	title := i18n.T("status.account") + ": " + st.Address
	if styled {
		title = statusTitleStyle.Render(title)
		if st.IsRecovering {
			recovering = statusAlertStyle.Render(recovering)
		}
	}
	fmt.Fprintln(out, title)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\n", i18n.T("status.owner"), st.Owner)
	fmt.Fprintf(w, "%s\t%s\n", i18n.T("status.recovering"), recovering)
	if st.IsRecovering {
		n := len(st.Guardians)
		fmt.Fprintf(w, "%s\t%s\n", i18n.T("status.recovery_address"), st.RecoveryAddress)
		fmt.Fprintf(w, "%s\t%s\n", i18n.T("status.signatures"),
			i18n.T("status.needed", len(st.RecoverySignatures), n, recovery.Threshold(n)))
	}
	fmt.Fprintf(w, "%s\t%s\n", i18n.T("status.guardians"), join(st.Guardians))
	fmt.Fprintf(w, "%s\t%s\n", i18n.T("status.pending"), join(st.GuardiansPending))
	fmt.Fprintf(w, "%s\t%s\n", i18n.T("status.family"), join(st.FamilyMembers))
	_ = w.Flush()
}

func newTransfersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfers",
		Short: "List queued transfer instructions",
		Long:  `Lists the transfer outbox for --account, or for every account with --all.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			source := ""
			if !all {
				account, err := requireAccount()
				if err != nil {
					return err
				}
				source = account
			}
			svc, err := openServices()
			if err != nil {
				return err
			}
			records, err := svc.store.GetTransfers(cmd.Context(), source)
			if err != nil {
				return fmt.Errorf("failed to list transfers: %w", err)
			}
			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return writeJSON(out, records)
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", i18n.T("transfers.header.id"), strings.ToUpper(i18n.T("status.account")),
				i18n.T("transfers.header.destination"), i18n.T("transfers.header.amount"))
			for _, r := range records {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.ID, r.Source, r.Destination, r.Amount)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Bool("all", false, "List transfers of every account")
	addJSONFlag(cmd)
	return cmd
}

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the audit log of committed commands",
		Long:  `Shows audit entries newest first for --account, or for every account with --all.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			limit, _ := cmd.Flags().GetInt("limit")
			account := ""
			if !all {
				a, err := requireAccount()
				if err != nil {
					return err
				}
				account = a
			}
			svc, err := openServices()
			if err != nil {
				return err
			}
			entries, err := svc.store.GetAuditLog(cmd.Context(), account, limit)
			if err != nil {
				return fmt.Errorf("failed to read audit log: %w", err)
			}
			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return writeJSON(out, entries)
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", i18n.T("audit.header.time"), strings.ToUpper(i18n.T("status.account")),
				i18n.T("audit.header.caller"), i18n.T("audit.header.action"), i18n.T("audit.header.details"))
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"),
					e.Account, e.Caller, e.Action, e.Details)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Bool("all", false, "Show entries of every account")
	cmd.Flags().Int("limit", 0, "Show at most this many entries (0 = all)")
	addJSONFlag(cmd)
	return cmd
}
