// Package logstore persists ResumeLog values atomically to a per-project
// directory, enforces retention, and loads the latest valid log at
// startup. Grounded on the teacher's pkg/queue/orphan.go startup-sequence
// shape (CleanupStartupOrphans) and pkg/queue/pool.go's lifecycle idioms,
// adapted from ent/Postgres rows to plain filesystem entries: this engine
// has no database, so "atomic commit" is a POSIX rename rather than a
// transaction commit.
package logstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/codeready-toolchain/tarsy/pkg/resumelog"
	"github.com/codeready-toolchain/tarsy/pkg/tokencount"
)

// LogRef identifies a persisted (or candidate) log file without loading
// its content.
type LogRef struct {
	Path           string
	CreatedAt      time.Time
	SessionIDShort string
}

// Store owns every filesystem entry under its directory.
type Store struct {
	dir     string
	counter *tokencount.Counter
	log     *slog.Logger
}

// New creates a Store rooted at dir. dir is created on first Persist/
// EnforceRetention call if it does not already exist.
func New(dir string) *Store {
	return &Store{
		dir:     dir,
		counter: tokencount.Default(),
		log:     slog.With("component", "logstore", "dir", dir),
	}
}

const filenameLayout = "2006-01-02T15-04-05Z"

func sessionIDShort(id resumelog.SessionId) string {
	s := string(id)
	if len(s) > 8 {
		s = s[:8]
	}
	return s
}

func logFilename(createdAt time.Time, sessionID resumelog.SessionId) string {
	return fmt.Sprintf("%s_%s.md", createdAt.UTC().Format(filenameLayout), sessionIDShort(sessionID))
}

// Persist atomically writes log to disk: write to a ".tmp" file, fsync,
// then rename to the final name. The rename is the commit point; before
// it, ListLatest must not see the file. If ctx is already cancelled when
// the write completes, Persist removes the tmp file instead of renaming
// it, matching spec.md §5's cancellation-before-rename rule.
func (s *Store) Persist(ctx context.Context, log resumelog.ResumeLog) (LogRef, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return LogRef{}, resumelog.NewIOError(fmt.Sprintf("creating storage dir: %v", err))
	}

	finalName := logFilename(log.CreatedAt, log.SessionID)
	finalPath := filepath.Join(s.dir, finalName)
	tmpPath := finalPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return LogRef{}, resumelog.NewIOError(fmt.Sprintf("creating tmp file: %v", err))
	}

	if _, err := f.WriteString(log.Render()); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return LogRef{}, resumelog.NewIOError(fmt.Sprintf("writing tmp file: %v", err))
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return LogRef{}, resumelog.NewIOError(fmt.Sprintf("fsync tmp file: %v", err))
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return LogRef{}, resumelog.NewIOError(fmt.Sprintf("closing tmp file: %v", err))
	}

	if ctx.Err() != nil {
		_ = os.Remove(tmpPath)
		return LogRef{}, resumelog.ErrCancelled
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return LogRef{}, resumelog.NewIOError(fmt.Sprintf("renaming to final name: %v", err))
	}

	if err := s.writeMeta(finalPath, log); err != nil {
		s.log.Warn("failed to write meta sidecar", "path", finalPath, "error", err)
	}

	s.log.Info("resume log persisted", "path", finalPath, "session_id", log.SessionID)
	return LogRef{Path: finalPath, CreatedAt: log.CreatedAt, SessionIDShort: sessionIDShort(log.SessionID)}, nil
}

// ListLatest returns up to n LogRefs sorted descending by created_at. Only
// committed ".md" files are considered; n <= 0 returns every log.
func (s *Store) ListLatest(n int) ([]LogRef, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, resumelog.NewIOError(fmt.Sprintf("reading storage dir: %v", err))
	}

	var refs []LogRef
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		ref, ok := parseLogFilename(e.Name())
		if !ok {
			continue
		}
		ref.Path = filepath.Join(s.dir, e.Name())
		refs = append(refs, ref)
	}

	sort.Slice(refs, func(i, j int) bool {
		return refs[i].CreatedAt.After(refs[j].CreatedAt)
	})

	if n > 0 && len(refs) > n {
		refs = refs[:n]
	}
	return refs, nil
}

func parseLogFilename(name string) (LogRef, bool) {
	base := strings.TrimSuffix(name, ".md")
	idx := strings.Index(base, "_")
	if idx < 0 {
		return LogRef{}, false
	}
	tsPart, shortID := base[:idx], base[idx+1:]
	ts, err := time.Parse(filenameLayout, tsPart)
	if err != nil {
		return LogRef{}, false
	}
	return LogRef{CreatedAt: ts, SessionIDShort: shortID}, true
}

// Load reads a log, recomputes its checksum, and fails with CorruptLog on
// mismatch.
func (s *Store) Load(ref LogRef) (resumelog.ResumeLog, error) {
	data, err := os.ReadFile(ref.Path)
	if err != nil {
		return resumelog.ResumeLog{}, resumelog.NewIOError(fmt.Sprintf("reading log: %v", err))
	}

	parsed, err := parseLog(string(data))
	if err != nil {
		return resumelog.ResumeLog{}, resumelog.NewCorruptLog(err.Error())
	}

	if parsed.ComputeChecksum() != parsed.Checksum {
		return resumelog.ResumeLog{}, resumelog.NewCorruptLog("checksum mismatch")
	}

	// TokenCount is not part of the on-disk format (it's derived, not
	// canonical, content); recompute it with the same counter Synthesize
	// uses so a persist-then-load round trip restores it field-wise.
	for i := range parsed.Sections {
		parsed.Sections[i].TokenCount = uint32(s.counter.Count(parsed.Sections[i].Content))
	}

	return parsed, nil
}

// EnforceRetention removes orphaned ".tmp" files unconditionally, then if
// keep > 0 and there are more than keep committed logs, deletes the oldest
// excess. keep == 0 disables retention (unbounded), per spec.md §4.5/§9.
func (s *Store) EnforceRetention(keep uint16) error {
	if err := s.cleanupOrphans(); err != nil {
		return err
	}

	if keep == 0 {
		return nil
	}

	refs, err := s.ListLatest(0)
	if err != nil {
		return err
	}
	if len(refs) <= int(keep) {
		return nil
	}

	excess := refs[keep:] // ListLatest is sorted descending, so the tail is oldest
	for _, ref := range excess {
		if err := os.Remove(ref.Path); err != nil && !os.IsNotExist(err) {
			s.log.Warn("failed to remove excess log during retention", "path", ref.Path, "error", err)
			continue
		}
		_ = os.Remove(strings.TrimSuffix(ref.Path, ".md") + ".meta.json")
		s.log.Info("removed log past retention", "path", ref.Path)
	}
	return nil
}

// cleanupOrphans deletes every ".tmp" file in the storage directory, the
// residue of a crash between tmp-write and rename (spec.md §4.5/§8
// scenario 6).
func (s *Store) cleanupOrphans() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return resumelog.NewIOError(fmt.Sprintf("reading storage dir: %v", err))
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".tmp") {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.log.Warn("failed to remove orphaned tmp file", "path", path, "error", err)
			continue
		}
		s.log.Info("removed orphaned tmp file", "path", path)
	}
	return nil
}
