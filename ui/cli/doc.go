// Copyright (c) 2026 Warden Team
// Warden - guardian-based social recovery
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package cli implements the command-line interface for Warden using Cobra.
// Every state-changing subcommand is delivered through a recovery.Dispatcher
// as the configured identity (--identity / WARDEN_IDENTITY) against the
// configured account (--account / WARDEN_ACCOUNT). CLI code stays thin and
// leaves all rules to the recovery engine.
package cli
