// Copyright (c) 2026 Warden Team
// Warden - guardian-based social recovery
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"
	"github.com/toeirei/warden/internal/config"
	"github.com/toeirei/warden/internal/db"
	"github.com/toeirei/warden/internal/i18n"
	"github.com/toeirei/warden/internal/model"
	"github.com/toeirei/warden/internal/recovery"
	"github.com/toeirei/warden/internal/tui"
)

func newBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup [output-file]",
		Short: "Create a compressed (zstd) JSON backup of the database",
		Long: `Dumps all accounts, the audit log and the transfer outbox into a single,
Zstandard-compressed JSON file.

If an output file is specified, '.zst' will be appended to the name if it's not already present.
If no output file is specified, a default filename 'warden-backup-YYYY-MM-DD.json.zst' is used.

Examples:
  # Backup to a default file (e.g., warden-backup-2026-10-18.json.zst)
  warden backup

  # Backup to a specific file
  warden backup my-backup.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var outputFile string
			if len(args) == 0 {
				outputFile = fmt.Sprintf("warden-backup-%s.json.zst", time.Now().Format("2006-01-02"))
			} else {
				outputFile = args[0]
				if !strings.HasSuffix(outputFile, ".zst") {
					outputFile += ".zst"
				}
			}

			svc, err := openServices()
			if err != nil {
				return err
			}
			data, err := svc.store.ExportBackup(cmd.Context())
			if err != nil {
				return fmt.Errorf("could not export data: %w", err)
			}
			if err := writeCompressedBackup(outputFile, data); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.backup.success", outputFile))
			return nil
		},
	}
}

// writeCompressedBackup encodes data as indented JSON inside a zstd stream.
func writeCompressedBackup(filename string, data *model.BackupData) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}
	defer func() { _ = file.Close() }()

	zstdWriter, err := zstd.NewWriter(file)
	if err != nil {
		return fmt.Errorf("could not create zstd writer: %w", err)
	}

	encoder := json.NewEncoder(zstdWriter)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		_ = zstdWriter.Close()
		return fmt.Errorf("could not encode json to zstd writer: %w", err)
	}
	if err := zstdWriter.Close(); err != nil {
		return fmt.Errorf("could not finish zstd stream: %w", err)
	}
	return file.Sync()
}

// readCompressedBackup handles reading and decoding a zstd-compressed JSON backup file.
func readCompressedBackup(filename string) (*model.BackupData, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	zstdReader, err := zstd.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("could not create zstd reader: %w", err)
	}
	defer zstdReader.Close()

	var backupData model.BackupData
	if err := json.NewDecoder(zstdReader).Decode(&backupData); err != nil {
		return nil, fmt.Errorf("could not decode json from zstd reader: %w", err)
	}
	return &backupData, nil
}

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup-file.zst>",
		Short: "Restore the database from a compressed JSON backup",
		Long: `Replaces all accounts, the audit log and the transfer outbox with the
contents of a Zstandard-compressed JSON backup file, in one transaction.
WARNING: existing data is wiped first. This is not reversible.

This command is intended for disaster recovery or for migrating between
database backends (e.g., from SQLite to PostgreSQL).

Example:
  warden restore ./warden-backup-2026-10-18.json.zst`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readCompressedBackup(args[0])
			if err != nil {
				return err
			}
			svc, err := openServices()
			if err != nil {
				return err
			}
			if err := svc.store.ImportBackup(cmd.Context(), data); err != nil {
				return fmt.Errorf("could not import backup: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.restore.success", len(data.Accounts), args[0]))
			return nil
		},
	}
}

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database administration",
	}
	maintain := &cobra.Command{
		Use:   "maintain",
		Short: "Run database maintenance (VACUUM/OPTIMIZE) for the configured DB",
		Long:  `Runs engine-specific maintenance tasks (VACUUM, OPTIMIZE TABLE, PRAGMA optimize).`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			timeoutSec, _ := cmd.Flags().GetInt("timeout")
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if timeoutSec > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
				defer cancel()
			}
			if err := db.RunDBMaintenance(ctx, appConfig.Database.Type, appConfig.Database.Dsn); err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					return fmt.Errorf("maintenance timed out after %ds: %w", timeoutSec, err)
				}
				return fmt.Errorf("maintenance failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.maintain.success"))
			return nil
		},
	}
	maintain.Flags().Int("timeout", 0, "Timeout in seconds for maintenance (0 uses the built-in two minute limit)")
	cmd.AddCommand(maintain)
	return cmd
}

// dashboardSource feeds the dashboard from the engine and the audit log.
type dashboardSource struct {
	engine *recovery.Engine
	store  *db.BunStore
}

func (s dashboardSource) State(ctx context.Context, account string) (model.AccountState, error) {
	return s.engine.State(ctx, account)
}

func (s dashboardSource) AuditLog(ctx context.Context, account string, limit int) ([]model.AuditLogEntry, error) {
	return s.store.GetAuditLog(ctx, account, limit)
}

func newDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Open an interactive read-only view of the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := requireAccount()
			if err != nil {
				return err
			}
			svc, err := openServices()
			if err != nil {
				return err
			}
			return tui.Run(dashboardSource{engine: svc.engine, store: svc.store}, account)
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or persist the configuration",
	}
	write := &cobra.Command{
		Use:   "write",
		Short: "Write the effective configuration to warden.yaml",
		Long: `Writes the configuration currently in effect (defaults, file, environment
and flags merged) to the user config file, or to the system path with --system.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			system, _ := cmd.Flags().GetBool("system")
			path, err := config.WriteConfigFile(&appConfig, system)
			if err != nil {
				return fmt.Errorf("could not write config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.config.written", path))
			return nil
		},
	}
	write.Flags().Bool("system", false, "Write the system-wide config file instead")
	cmd.AddCommand(write)
	return cmd
}
