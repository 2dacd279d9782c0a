// Package history reads Claude Code transcripts (~/.claude/projects/**/*.jsonl)
// with DuckDB. Claude Code records the id passed via --session-id as the
// transcript's sessionId, so launcher sessions are looked up by tagged id.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const previewEdge = 10

// Activity describes what a transcript says about one session
type Activity struct {
	SessionID    string
	ProjectPath  string
	LastActivity time.Time
	MessageCount int
}

// Reader queries transcripts under one projects directory
type Reader struct {
	db          *sql.DB
	projectsDir string
	logger      *zap.Logger
}

// NewReader creates a reader over projectsDir using conn
func NewReader(conn *sql.DB, projectsDir string, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{db: conn, projectsDir: projectsDir, logger: logger.Named("history")}
}

func (r *Reader) source() string {
	glob := filepath.Join(r.projectsDir, "**", "*.jsonl")
	return fmt.Sprintf(`read_json('%s',
			format = 'newline_delimited',
			union_by_name = true,
			filename = true
		)`, strings.ReplaceAll(glob, "'", "''"))
}

// Available reports whether any transcript exists. read_json fails on a glob
// without matches, so every query checks this first.
func (r *Reader) Available() bool {
	found := false
	err := filepath.WalkDir(r.projectsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".jsonl" {
			found = true
			return fs.SkipAll
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		r.logger.Debug("Failed to scan transcripts", zap.Error(err))
	}
	return found
}

func placeholders(ids []string) (string, []any) {
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return strings.Join(marks, ","), args
}

// Activity returns transcript activity for each of sessionIDs that has one
func (r *Reader) Activity(ctx context.Context, sessionIDs []string) (map[string]Activity, error) {
	result := make(map[string]Activity)
	if len(sessionIDs) == 0 || !r.Available() {
		return result, nil
	}

	marks, args := placeholders(sessionIDs)
	query := fmt.Sprintf(`
		SELECT
			CAST(sessionId AS VARCHAR) as session_id,
			COALESCE(MAX(cwd), '') as project_path,
			CAST(MAX(timestamp) AS VARCHAR) as last_activity,
			COUNT(*) FILTER (WHERE type IN ('user', 'assistant')) as message_count
		FROM %s
		WHERE CAST(sessionId AS VARCHAR) IN (%s)
		GROUP BY sessionId
	`, r.source(), marks)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute activity query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a Activity
		var last sql.NullString
		if err := rows.Scan(&a.SessionID, &a.ProjectPath, &last, &a.MessageCount); err != nil {
			continue
		}
		if last.Valid {
			a.LastActivity = parseTimestamp(last.String)
		}
		result[a.SessionID] = a
	}
	return result, rows.Err()
}

// Summaries returns the summary Claude Code attached to the last event of
// each session, keyed by session id. Sessions without one are omitted.
func (r *Reader) Summaries(ctx context.Context, sessionIDs []string) (map[string]string, error) {
	summaries := make(map[string]string)
	if len(sessionIDs) == 0 || !r.Available() {
		return summaries, nil
	}

	marks, args := placeholders(sessionIDs)
	lastQuery := fmt.Sprintf(`
		WITH last_events AS (
			SELECT
				CAST(sessionId AS VARCHAR) as session_id,
				CAST(uuid AS VARCHAR) as uuid_str,
				ROW_NUMBER() OVER (PARTITION BY sessionId ORDER BY timestamp DESC) as rn
			FROM %s
			WHERE CAST(sessionId AS VARCHAR) IN (%s)
			AND type <> 'summary'
		)
		SELECT session_id, uuid_str
		FROM last_events
		WHERE rn = 1
	`, r.source(), marks)

	rows, err := r.db.QueryContext(ctx, lastQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute last event query: %w", err)
	}
	leafToSession := make(map[string]string)
	for rows.Next() {
		var sessionID string
		var leaf sql.NullString
		if err := rows.Scan(&sessionID, &leaf); err == nil && leaf.Valid {
			leafToSession[leaf.String] = sessionID
		}
	}
	rows.Close()
	if len(leafToSession) == 0 {
		return summaries, nil
	}

	leaves := make([]string, 0, len(leafToSession))
	for leaf := range leafToSession {
		leaves = append(leaves, leaf)
	}
	marks, args = placeholders(leaves)
	summaryQuery := fmt.Sprintf(`
		SELECT CAST(leafUuid AS VARCHAR) as leaf_uuid, summary
		FROM %s
		WHERE type = 'summary'
		AND CAST(leafUuid AS VARCHAR) IN (%s)
	`, r.source(), marks)

	rows, err = r.db.QueryContext(ctx, summaryQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute summaries query: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var leaf, summary sql.NullString
		if err := rows.Scan(&leaf, &summary); err != nil || !leaf.Valid || !summary.Valid {
			continue
		}
		if sessionID, ok := leafToSession[leaf.String]; ok {
			summaries[sessionID] = summary.String
		}
	}
	return summaries, rows.Err()
}

// Preview returns the first and last messages of a session formatted with
// FormatMessage. Skipped middle messages are replaced by a marker line.
func (r *Reader) Preview(ctx context.Context, sessionID string) ([]string, error) {
	if !r.Available() {
		return nil, nil
	}

	query := fmt.Sprintf(`
		WITH all_messages AS (
			SELECT
				type,
				to_json(message) as message_json,
				timestamp,
				ROW_NUMBER() OVER (ORDER BY timestamp ASC) as row_num_asc,
				ROW_NUMBER() OVER (ORDER BY timestamp DESC) as row_num_desc,
				COUNT(*) OVER () as total_count
			FROM %s
			WHERE CAST(sessionId AS VARCHAR) = ?
			AND type IN ('user', 'assistant')
			AND message IS NOT NULL
		)
		SELECT type, CAST(message_json AS VARCHAR), row_num_asc, total_count
		FROM all_messages
		WHERE row_num_asc <= %d OR row_num_desc <= %d
		ORDER BY timestamp ASC
	`, r.source(), previewEdge, previewEdge)

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to execute messages query: %w", err)
	}
	defer rows.Close()

	var messages []string
	marked := false
	for rows.Next() {
		var role, raw sql.NullString
		var position, total int64
		if err := rows.Scan(&role, &raw, &position, &total); err != nil {
			continue
		}
		if !marked && position > previewEdge && total > 2*previewEdge {
			messages = append(messages, fmt.Sprintf("... (%d messages omitted) ...", total-2*previewEdge))
			marked = true
		}
		if !role.Valid || !raw.Valid {
			continue
		}
		if line := FormatMessage(role.String, raw.String); line != "" {
			messages = append(messages, line)
		}
	}
	return messages, rows.Err()
}

func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999Z07", "2006-01-02 15:04:05.999999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Local()
		}
	}
	return time.Time{}
}
