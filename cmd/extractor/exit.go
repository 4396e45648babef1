package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/PadsterH2012/extractor/internal/types"
)

// CLI exit codes. Scripts branch on these, so the mapping is stable.
const (
	exitGeneral        = 1
	exitUsage          = 2
	exitIdentification = 3
	exitExtraction     = 4
	exitPersistence    = 5
	exitDuplicate      = 6
	exitCancelled      = 130
)

// usageError marks bad flags or arguments so they exit 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// usageArgs wraps a cobra args validator so its failures exit 2.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

// exitCodeFor maps a pipeline failure onto an exit code.
func exitCodeFor(err error) int {
	var ue usageError
	if errors.As(err, &ue) {
		return exitUsage
	}
	switch types.KindOf(err) {
	case types.KindAIMalformed, types.KindAIUnreachable, types.KindAITimeout,
		types.KindProviderUnauthorized, types.KindCatalogMissing:
		return exitIdentification
	case types.KindPDFUnreadable, types.KindPDFEncrypted, types.KindPDFEmpty,
		types.KindUploadTooLarge, types.KindPageFailed, types.KindOCRUnavailable:
		return exitExtraction
	case types.KindStoreUnreachable, types.KindStoreConflict, types.KindStoreOversize:
		return exitPersistence
	case types.KindRejectedDuplicate:
		return exitDuplicate
	case types.KindCancelled, types.KindDeadlineExceeded:
		return exitCancelled
	default:
		return exitGeneral
	}
}
