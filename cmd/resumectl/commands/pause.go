package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codeready-toolchain/tarsy/pkg/resumelog"
)

func newPauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Generate a resume log now and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			e, err := buildEngine(ctx)
			if err != nil {
				if errors.Is(err, resumelog.ErrDisabled) {
					return withExitCode(exitEngineDisabled, err)
				}
				return withExitCode(exitSynthesizerFailure, err)
			}
			defer e.Shutdown()

			log, err := e.ManualPause(ctx)
			if err != nil {
				return withExitCode(exitSynthesizerFailure, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "resume log written for session %s (%d tokens)\n", log.SessionID, log.TotalSectionTokens())
			return nil
		},
	}
}
