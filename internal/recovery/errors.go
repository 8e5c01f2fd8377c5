// Copyright (c) 2026 Warden Team
// Warden - guardian-based social recovery
// This source code is licensed under the MIT license found in the LICENSE file.

package recovery

import (
	"errors"
	"fmt"
)

// Error kinds. Use errors.Is against these to classify a failure.
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrAlreadyExists   = errors.New("already exists")
	ErrNotFound        = errors.New("not found")
	ErrInvalidState    = errors.New("invalid state")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Refinements of the kinds above.
var (
	ErrAlreadyGuardian    = fmt.Errorf("%w: guardian already added", ErrAlreadyExists)
	ErrAlreadyPending     = fmt.Errorf("%w: guardian addition pending", ErrAlreadyExists)
	ErrAlreadyVoted       = fmt.Errorf("%w: guardian already approved this recovery", ErrAlreadyExists)
	ErrFamilyMemberExists = fmt.Errorf("%w: family member already added", ErrAlreadyExists)
	ErrAccountExists      = fmt.Errorf("%w: account already initialized", ErrAlreadyExists)

	ErrNotPending      = fmt.Errorf("%w: guardian not in the pending list", ErrNotFound)
	ErrAccountNotFound = fmt.Errorf("%w: account not initialized", ErrNotFound)

	ErrNotRecovering     = fmt.Errorf("%w: account is not recovering", ErrInvalidState)
	ErrAlreadyRecovering = fmt.Errorf("%w: account is already recovering", ErrInvalidState)
)

// ErrTransferFailed is returned by the Dispatcher when the external transfer
// primitive rejects an instruction.
var ErrTransferFailed = errors.New("transfer failed")
