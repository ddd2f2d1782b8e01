package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codeready-toolchain/tarsy/pkg/logstore"
	"github.com/codeready-toolchain/tarsy/pkg/rehydrate"
)

func newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Check whether a prior resume log is available and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return withExitCode(exitSynthesizerFailure, err)
			}

			store := logstore.New(cfg.ResumeLogs.StorageDir)
			boot, err := rehydrate.New(store).Bootstrap(ctx, true, 0)
			if err != nil {
				return withExitCode(exitSynthesizerFailure, err)
			}
			if boot == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no resume log available")
				return withExitCode(exitNoResumeLog, fmt.Errorf("no resume log available"))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "resume log from session %s (%s, %d tokens)\n%s\n",
				boot.Log.SessionID, boot.Log.Trigger, boot.PreloadTokens, boot.SourcePath)
			return nil
		},
	}
}
