package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codeready-toolchain/tarsy/pkg/logstore"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print engine occupancy, threshold level, and log store summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			e, err := buildEngine(ctx)
			if err != nil {
				return withExitCode(exitSynthesizerFailure, err)
			}
			defer e.Shutdown()

			cfg, err := loadConfig()
			if err != nil {
				return withExitCode(exitSynthesizerFailure, err)
			}
			store := logstore.New(cfg.ResumeLogs.StorageDir)
			refs, err := store.ListLatest(0)
			if err != nil {
				return withExitCode(exitSynthesizerFailure, err)
			}

			st := e.Status()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "enabled:        %v\n", st.Enabled)
			fmt.Fprintf(out, "occupancy:      %.4f\n", st.Occupancy)
			fmt.Fprintf(out, "level:          %s\n", st.Level)
			fmt.Fprintf(out, "last log path:  %s\n", st.LastLogPath)
			fmt.Fprintf(out, "stored logs:    %d\n", len(refs))
			return nil
		},
	}
}
