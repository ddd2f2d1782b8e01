package commands

import (
	"context"
	"errors"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/codeready-toolchain/tarsy/pkg/config"
	"github.com/codeready-toolchain/tarsy/pkg/engine"
	"github.com/codeready-toolchain/tarsy/pkg/resumelog"
	"github.com/codeready-toolchain/tarsy/pkg/synth"
	"github.com/codeready-toolchain/tarsy/pkg/transcript"
	"github.com/codeready-toolchain/tarsy/pkg/version"
)

// Exit codes, per spec.md §6: pause: 0 success / 2 disabled / 3 synthesizer
// failure. resume: 0 log exists / 1 none. status never fails non-zero on
// its own (an engine construction failure surfaces as exit 3).
const (
	exitOK                 = 0
	exitNoResumeLog        = 1
	exitEngineDisabled     = 2
	exitSynthesizerFailure = 3
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// exitCodeError carries an explicit process exit code alongside a message,
// so ExitCodeForError can recover it after cobra's generic error return.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }
func (e *exitCodeError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitCodeError{code: code, err: err}
}

// ExitCodeForError extracts the process exit code intended for err, falling
// back to 1 for any error that did not originate from this package.
func ExitCodeForError(err error) int {
	var ec *exitCodeError
	if errors.As(err, &ec) {
		return ec.code
	}
	return 1
}

var configDir string

// NewRootCmd builds the resumectl command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "resumectl",
		Short:   "Operate the context budget and resume log engine",
		Version: version.Full(),
	}
	root.PersistentFlags().StringVar(&configDir, "config-dir",
		getEnv("CONFIG_DIR", "."), "directory containing config.yaml and .env")

	root.AddCommand(newPauseCmd())
	root.AddCommand(newResumeCmd())
	root.AddCommand(newStatusCmd())
	return root
}

// loadConfig loads .env then config.yaml from configDir, matching
// cmd/tarsy/main.go's load-then-warn-on-missing .env idiom.
func loadConfig() (*config.Config, error) {
	envPath := filepath.Join(configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v", envPath, err)
	}

	cfgPath := filepath.Join(configDir, "config.yaml")
	return config.Load(cfgPath)
}

// buildEngine wires a full Engine for the current working directory,
// running the rehydrator's bootstrap sequence.
func buildEngine(ctx context.Context) (*engine.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	sessionID := resumelog.SessionId(uuid.New().String())
	summarizer := synth.NewHTTPSummarizer(getEnv("CLAUDE_MPM_SUMMARIZER_URL", ""), 0)

	e, err := engine.New(ctx, cfg, sessionID, cwdTranscriptSource{}, summarizer)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// cwdTranscriptSource reports the project path and git branch resumectl is
// invoked from. The CLI has no access to a live conversation transcript
// (that lives in the embedding host process); its resume logs carry
// whatever SessionState fields it can observe.
type cwdTranscriptSource struct{}

func (cwdTranscriptSource) SessionState() transcript.SessionState {
	wd, _ := os.Getwd()
	return transcript.SessionState{
		ProjectPath: wd,
		GitBranch:   currentGitBranch(),
	}
}

func currentGitBranch() string {
	out, err := exec.Command("git", "rev-parse", "--abbrev-ref", "HEAD").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}
