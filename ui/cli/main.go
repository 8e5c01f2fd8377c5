// Copyright (c) 2026 Warden Team
// Warden - guardian-based social recovery
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the command-line interface (CLI) for Warden using the
// Cobra library. It defines the root command, the persistent flags, the
// service wiring shared by all subcommands and the main entry point.

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	log "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/toeirei/warden/internal/config"
	"github.com/toeirei/warden/internal/db"
	"github.com/toeirei/warden/internal/i18n"
	"github.com/toeirei/warden/internal/logging"
	"github.com/toeirei/warden/internal/recovery"
)

var appConfig config.Config

// services bundles the collaborators a command dispatches through.
type services struct {
	store      *db.BunStore
	engine     *recovery.Engine
	dispatcher *recovery.Dispatcher
}

// setupDefaultServices loads the configuration and initializes logging and
// i18n. The database is opened lazily by openServices.
func setupDefaultServices(cmd *cobra.Command, args []string) error {
	optionalConfigPath, err := getConfigPathFromCli(cmd)
	if err != nil {
		return err
	}

	appConfig, err = config.LoadConfig[config.Config](cmd, config.Defaults(), optionalConfigPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	// Empty values in a config file fall back to the defaults.
	defaults := config.Defaults()
	if appConfig.Database.Type == "" {
		appConfig.Database.Type = defaults["database.type"].(string)
	}
	if appConfig.Database.Dsn == "" {
		appConfig.Database.Dsn = defaults["database.dsn"].(string)
	}
	if appConfig.Language == "" {
		appConfig.Language = defaults["language"].(string)
	}

	if appConfig.Log.Level != "" {
		if err := logging.SetLevel(appConfig.Log.Level); err != nil {
			log.Warnf("ignoring log.level: %v", err)
		}
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logging.SetDebug(true)
		db.SetDebug(true)
	}

	i18n.Init(appConfig.Language)
	return nil
}

// openServices opens the configured database unless a store is already
// initialized and builds the engine and dispatcher on top of it.
func openServices() (*services, error) {
	if !db.IsInitialized() {
		if err := db.InitDB(appConfig.Database.Type, appConfig.Database.Dsn); err != nil {
			return nil, fmt.Errorf("could not open %s database: %w", appConfig.Database.Type, err)
		}
	}
	store := db.DefaultStore()
	engine := recovery.New(store,
		recovery.WithDedupeVotes(appConfig.Recovery.DedupeVotes),
		recovery.WithStrictCaller(appConfig.Recovery.StrictCaller),
		recovery.WithLogger(logging.L),
	)
	return &services{
		store:      store,
		engine:     engine,
		dispatcher: recovery.NewDispatcher(engine, store, store),
	}, nil
}

// Execute runs the CLI entrypoint. The main package should call this
// function and handle process exit.
func Execute() error {
	defer func() {
		if err := db.Close(); err != nil {
			log.Errorf("error closing database: %v", err)
		}
	}()
	return NewRootCmd().Execute()
}

func getConfigPathFromCli(cmd *cobra.Command) (*string, error) {
	// Only proceed if the user has explicitly set the --config flag.
	if !cmd.Flags().Changed("config") {
		return nil, nil
	}
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("could not read --config flag: %w", err)
	}
	if path == "" {
		return nil, nil
	}
	// Make sure the user-provided file exists to avoid unwanted behavior.
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
	}
	return &path, nil
}

// NewRootCmd creates and configures a new root cobra command.
// This function is used to create the main application command as well as
// fresh instances for isolated testing.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "warden",
		Short: "Warden is a guardian-based social recovery manager.",
		Long: `Warden keeps one record per account: an owner, a set of guardians and an
optional list of family members. The owner nominates guardians, each guardian
confirms, and when the owner loses access the guardians vote a new owner in.
A strict majority of confirmed guardians transfers ownership.

Commands act as the identity given by --identity on the account given by
--account.`,
		SilenceUsage:      true,
		PersistentPreRunE: setupDefaultServices,
	}
	cmd.Version = compositeVersion()

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().String("config", "", "config file")
	cmd.PersistentFlags().String("language", "en", `Output language ("en", "de")`)
	cmd.PersistentFlags().String("database.type", "sqlite", "Database type (sqlite, postgres, mysql)")
	cmd.PersistentFlags().String("database.dsn", "./warden.db", "Database connection string (DSN)")
	cmd.PersistentFlags().String("identity", "", "Caller identity commands run as")
	cmd.PersistentFlags().String("account", "", "Account address to operate on")

	cmd.AddCommand(
		newInitCmd(),
		newGuardianCmd(),
		newRecoveryCmd(),
		newSendCmd(),
		newFamilyCmd(),
		newOwnerCmd(),
		newStatusCmd(),
		newGuardiansCmd(),
		newPendingCmd(),
		newSignersCmd(),
		newTransfersCmd(),
		newAuditCmd(),
		newBackupCmd(),
		newRestoreCmd(),
		newDBCmd(),
		newDashboardCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return cmd
}

func requireIdentity() (string, error) {
	if appConfig.Identity == "" {
		return "", errors.New(i18n.T("cli.error.identity_required"))
	}
	return appConfig.Identity, nil
}

func requireAccount() (string, error) {
	if appConfig.Account == "" {
		return "", errors.New(i18n.T("cli.error.account_required"))
	}
	return appConfig.Account, nil
}

// dispatch runs c as the configured identity against the configured account.
func dispatch(ctx context.Context, c recovery.Command) (recovery.Response, error) {
	caller, err := requireIdentity()
	if err != nil {
		return recovery.Response{}, err
	}
	account, err := requireAccount()
	if err != nil {
		return recovery.Response{}, err
	}
	svc, err := openServices()
	if err != nil {
		return recovery.Response{}, err
	}
	resp, err := svc.dispatcher.Dispatch(ctx, account, caller, c)
	if err != nil {
		return recovery.Response{}, localizeError(err)
	}
	return resp, nil
}

// localizedError prefixes err with a translated description of its kind.
type localizedError struct {
	msg string
	err error
}

func (e *localizedError) Error() string { return e.msg }
func (e *localizedError) Unwrap() error { return e.err }

var errorKinds = []struct {
	kind error
	id   string
}{
	{recovery.ErrUnauthorized, "error.unauthorized"},
	{recovery.ErrAlreadyExists, "error.already_exists"},
	{recovery.ErrNotFound, "error.not_found"},
	{recovery.ErrInvalidState, "error.invalid_state"},
	{recovery.ErrInvalidArgument, "error.invalid_argument"},
	{recovery.ErrTransferFailed, "error.transfer_failed"},
}

func localizeError(err error) error {
	for _, k := range errorKinds {
		if errors.Is(err, k.kind) {
			return &localizedError{msg: fmt.Sprintf("%s (%v)", i18n.T(k.id), err), err: err}
		}
	}
	return err
}
