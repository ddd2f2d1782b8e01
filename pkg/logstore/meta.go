package logstore

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/codeready-toolchain/tarsy/pkg/resumelog"
)

// meta is a small JSON sidecar written alongside each log, letting
// ListLatest-adjacent tooling (the CLI's "status" command) report a log's
// session and trigger without parsing the full Markdown body.
type meta struct {
	SessionID   resumelog.SessionId  `json:"session_id"`
	CreatedAt   time.Time            `json:"created_at"`
	Trigger     resumelog.TriggerKind `json:"trigger"`
	TotalTokens uint32               `json:"total_section_tokens"`
}

func (s *Store) writeMeta(logPath string, log resumelog.ResumeLog) error {
	m := meta{
		SessionID:   log.SessionID,
		CreatedAt:   log.CreatedAt,
		Trigger:     log.Trigger,
		TotalTokens: log.TotalSectionTokens(),
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	metaPath := strings.TrimSuffix(logPath, ".md") + ".meta.json"
	return os.WriteFile(metaPath, data, 0o644)
}
