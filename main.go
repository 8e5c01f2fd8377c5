// Copyright (c) 2026 Warden Team
// Warden - guardian-based social recovery
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for Warden.
//
// Usage:
//
//	go run . [flags]
//	./warden [flags]
//
// This launches the Warden CLI. See --help for options.
package main

import (
	"os"

	"github.com/toeirei/warden/ui/cli"
)

func main() {
	// cobra has already printed the error.
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
