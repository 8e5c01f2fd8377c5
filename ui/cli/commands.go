// Copyright (c) 2026 Warden Team
// Warden - guardian-based social recovery
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/toeirei/warden/internal/i18n"
	"github.com/toeirei/warden/internal/model"
	"github.com/toeirei/warden/internal/recovery"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the account record with the caller as owner",
		Long: `Creates the record for --account with --identity as its owner and no
guardians. Fails if the account already exists.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := requireIdentity()
			if err != nil {
				return err
			}
			account, err := requireAccount()
			if err != nil {
				return err
			}
			svc, err := openServices()
			if err != nil {
				return err
			}
			if err := svc.dispatcher.Init(cmd.Context(), account, caller); err != nil {
				return localizeError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.init.success", account, caller))
			return nil
		},
	}
}

// simpleCommand builds a subcommand that takes one identity argument, runs
// the command built from it and prints a translated confirmation.
func simpleCommand(use, short, successID string, build func(arg string) recovery.Command) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := dispatch(cmd.Context(), build(args[0])); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T(successID, args[0]))
			return nil
		},
	}
}

func newGuardianCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guardian",
		Short: "Manage the guardians of an account",
		Long: `The 'guardian' command group covers the guardian lifecycle:
  - add: the owner proposes a guardian (it becomes pending)
  - confirm: a pending guardian is confirmed
  - cancel: the owner withdraws a pending proposal
  - remove: the owner drops a confirmed guardian`,
	}
	cmd.AddCommand(
		simpleCommand("add <guardian>", "Propose a guardian (owner only)", "cli.guardian.add.success",
			func(g string) recovery.Command { return recovery.AddGuardian{Guardian: g} }),
		simpleCommand("confirm <guardian>", "Confirm a pending guardian", "cli.guardian.confirm.success",
			func(g string) recovery.Command { return recovery.AddGuardianConfirm{Guardian: g} }),
		simpleCommand("cancel <guardian>", "Withdraw a pending proposal (owner only)", "cli.guardian.cancel.success",
			func(g string) recovery.Command { return recovery.AddGuardianConfirmCancel{Guardian: g} }),
		simpleCommand("remove <guardian>", "Remove a confirmed guardian (owner only)", "cli.guardian.remove.success",
			func(g string) recovery.Command { return recovery.RemoveGuardian{Guardian: g} }),
	)
	return cmd
}

func newRecoveryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recovery",
		Short: "Start, approve or cancel an ownership recovery",
	}

	start := &cobra.Command{
		Use:   "start <new-owner> <guardian>",
		Short: "Start a recovery towards a new owner, citing the initiating guardian",
		Long: `Starts a recovery towards <new-owner>. The cited guardian's approval counts
first. With a single confirmed guardian ownership moves immediately.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := dispatch(cmd.Context(), recovery.ExecuteRecovery{NewOwner: args[0], Guardian: args[1]})
			if err != nil {
				return err
			}
			printRecoveryOutcome(cmd, resp, i18n.T("cli.recovery.start.success", args[0]))
			return nil
		},
	}

	approve := &cobra.Command{
		Use:   "approve <guardian>",
		Short: "Approve the in-flight recovery as a guardian",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := dispatch(cmd.Context(), recovery.GuardianApproveRequest{Guardian: args[0]})
			if err != nil {
				return err
			}
			printRecoveryOutcome(cmd, resp, i18n.T("cli.recovery.approve.success", args[0]))
			return nil
		},
	}

	cancel := &cobra.Command{
		Use:   "cancel <guardian>",
		Short: "Cancel the in-flight recovery (owner or a guardian)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := dispatch(cmd.Context(), recovery.CancelRecovery{Guardian: args[0]}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.recovery.cancel.success"))
			return nil
		},
	}

	cmd.AddCommand(start, approve, cancel)
	return cmd
}

// printRecoveryOutcome reports a finished recovery when the response carries
// the new owner, and msg otherwise.
func printRecoveryOutcome(cmd *cobra.Command, resp recovery.Response, msg string) {
	if owner := resp.Attr("owner"); owner != "" {
		fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.recovery.finalized", owner))
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
}

func newSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <to> <amount>",
		Short: "Queue a funds transfer from the account (owner only)",
		Long: `Queues a transfer of <amount> from the account to <to>. The amount is a
comma separated coin list such as "100uatom,5ustake".`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := model.ParseCoins(args[1])
			if err != nil {
				return localizeError(fmt.Errorf("%w: %v", recovery.ErrInvalidArgument, err))
			}
			resp, err := dispatch(cmd.Context(), recovery.SendTokens{ToAddress: args[0], Amount: amount})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.send.success", resp.Transfer.String()))
			return nil
		},
	}
}

func newFamilyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "family",
		Short: "Manage the informational family member list",
	}
	cmd.AddCommand(
		simpleCommand("add <member>", "Add a family member (owner only)", "cli.family.add.success",
			func(m string) recovery.Command { return recovery.AddFamilyMember{FamilyMember: m} }),
		simpleCommand("remove <member>", "Remove a family member (owner only)", "cli.family.remove.success",
			func(m string) recovery.Command { return recovery.RemoveFamilyMember{FamilyMember: m} }),
		newFamilyListCmd(),
	)
	return cmd
}
