// Package repository implements SQL-backed storage for interview conversations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Proton-105/interview-coach/internal/database"
	"github.com/Proton-105/interview-coach/internal/domain"
)

// ConversationRepository stores exchanges in the interview_sessions table.
//
// Rows are addressed by user id: an id that parses as an integer owns the
// rows with that user_id, every other id shares the rows whose user_id is
// NULL.
type ConversationRepository struct {
	db      *sql.DB
	dialect database.Dialect
	log     *slog.Logger
	now     func() time.Time
}

// NewConversationRepository creates a repository over db.
func NewConversationRepository(db *sql.DB, dialect database.Dialect, log *slog.Logger) *ConversationRepository {
	if log == nil {
		log = slog.Default()
	}

	return &ConversationRepository{
		db:      db,
		dialect: dialect,
		log:     log,
		now:     time.Now,
	}
}

// numericUserID converts a user id made only of ASCII digits into its column
// value. Signed, blank and other ids map to NULL.
func numericUserID(userID string) sql.NullInt64 {
	if userID == "" {
		return sql.NullInt64{}
	}
	for i := 0; i < len(userID); i++ {
		if userID[i] < '0' || userID[i] > '9' {
			return sql.NullInt64{}
		}
	}
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: id, Valid: true}
}

func (r *ConversationRepository) userFilter(userID string) (string, []any) {
	if id := numericUserID(userID); id.Valid {
		return "user_id = ?", []any{id.Int64}
	}
	return "user_id IS NULL", nil
}

// Append inserts a record and returns the new row id.
func (r *ConversationRepository) Append(ctx context.Context, userID string, record domain.ConversationRecord) (int64, error) {
	const query = `
		INSERT INTO interview_sessions (user_id, session_data, created_at)
		VALUES (?, ?, ?)
		RETURNING id
	`

	if record.Timestamp.IsZero() {
		record.Timestamp = r.now()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return 0, fmt.Errorf("marshal session data: %w", err)
	}

	var id int64
	err = r.db.QueryRowContext(
		ctx,
		r.dialect.Rebind(query),
		numericUserID(userID),
		string(data),
		r.now().UTC(),
	).Scan(&id)
	if err != nil {
		r.log.Error("failed to insert conversation record", slog.String("user_id", userID), slog.Any("error", err))
		return 0, fmt.Errorf("insert interview session: %w", err)
	}

	return id, nil
}

// DeleteRecords removes every record addressed by userID in one transaction.
func (r *ConversationRepository) DeleteRecords(ctx context.Context, userID string) error {
	filter, args := r.userFilter(userID)
	query := r.dialect.Rebind("DELETE FROM interview_sessions WHERE " + filter)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete interview sessions: %w", err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			r.log.Error("rollback error", slog.Any("error", rbErr))
		}
		r.log.Error("failed to delete conversation records", slog.String("user_id", userID), slog.Any("error", err))
		return fmt.Errorf("delete interview sessions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete interview sessions: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil {
		r.log.Debug("conversation records deleted", slog.String("user_id", userID), slog.Int64("rows", n))
	}

	return nil
}

// Records returns the records addressed by userID, oldest first.
func (r *ConversationRepository) Records(ctx context.Context, userID string) ([]domain.ConversationRecord, error) {
	filter, args := r.userFilter(userID)
	query := r.dialect.Rebind(`
		SELECT id, session_data, created_at
		FROM interview_sessions
		WHERE ` + filter + `
		ORDER BY id ASC
	`)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.log.Error("failed to select conversation records", slog.String("user_id", userID), slog.Any("error", err))
		return nil, fmt.Errorf("select interview sessions: %w", err)
	}
	defer rows.Close()

	var records []domain.ConversationRecord
	for rows.Next() {
		var (
			id        int64
			data      string
			createdAt time.Time
		)
		if err := rows.Scan(&id, &data, &createdAt); err != nil {
			return nil, fmt.Errorf("scan interview session: %w", err)
		}

		var record domain.ConversationRecord
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			r.log.Warn("skipping malformed session data", slog.Int64("id", id), slog.Any("error", err))
			continue
		}
		record.ID = id
		record.CreatedAt = createdAt
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interview sessions: %w", err)
	}

	return records, nil
}

// PurgeBefore deletes records created before cutoff and reports how many
// rows were removed.
func (r *ConversationRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM interview_sessions WHERE created_at < ?`

	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), cutoff.UTC())
	if err != nil {
		r.log.Error("failed to purge conversation records", slog.Time("cutoff", cutoff), slog.Any("error", err))
		return 0, fmt.Errorf("purge interview sessions: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge interview sessions rows affected: %w", err)
	}
	return n, nil
}
