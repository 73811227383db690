package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	errs "github.com/edgard/collectbot/internal/errors"
	"github.com/edgard/collectbot/internal/logger"
)

// Store defines the round archive operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveRound archives a finished round and sets its ID.
	SaveRound(ctx context.Context, round *RoundRecord) error

	// RecentRounds returns the latest rounds, newest first.
	RecentRounds(ctx context.Context, limit int) ([]RoundRecord, error)

	// Totals aggregates every archived round.
	Totals(ctx context.Context) (RoundTotals, error)

	// RunSQLMaintenance performs VACUUM and planner statistics refresh.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore implements Store using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store backed by a connected sqlx.DB.
func NewStore(db *sqlx.DB, log *slog.Logger) Store {
	if log == nil {
		log = logger.Discard()
	}
	return &sqlxStore{
		db:     db,
		logger: log.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) SaveRound(ctx context.Context, round *RoundRecord) error {
	if round == nil {
		return errs.NewDatabaseError("cannot save nil round", nil)
	}
	if round.ChatID == 0 {
		return errs.NewDatabaseError("round must have a non-zero chat_id", nil)
	}
	if round.FinishedAt.Before(round.StartedAt) {
		return errs.NewDatabaseError("round finished before it started", nil)
	}

	round.CreatedAt = time.Now().UTC()
	round.StartedAt = round.StartedAt.UTC()
	round.FinishedAt = round.FinishedAt.UTC()

	query := `
        INSERT INTO rounds (created_at, chat_id, started_at, finished_at, participant_count, submission_count, reason)
        VALUES (:created_at, :chat_id, :started_at, :finished_at, :participant_count, :submission_count, :reason);
    `
	result, err := s.db.NamedExecContext(ctx, query, round)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving round", "chat_id", round.ChatID, "error", err)
		return errs.NewDatabaseError(fmt.Sprintf("save round for chat %d", round.ChatID), err)
	}

	if id, err := result.LastInsertId(); err == nil {
		round.ID = id
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after saving round", "error", err)
	}

	s.logger.DebugContext(ctx, "Round archived",
		"round_id", round.ID,
		"chat_id", round.ChatID,
		"participants", round.ParticipantCount,
		"reason", round.Reason)
	return nil
}

func (s *sqlxStore) RecentRounds(ctx context.Context, limit int) ([]RoundRecord, error) {
	if limit <= 0 {
		limit = 10
	} else if limit > 100 {
		limit = 100
	}

	var rounds []RoundRecord
	query := `
        SELECT id, created_at, chat_id, started_at, finished_at, participant_count, submission_count, reason
        FROM rounds
        ORDER BY finished_at DESC, id DESC
        LIMIT ?;
    `
	if err := s.db.SelectContext(ctx, &rounds, query, limit); err != nil {
		s.logger.ErrorContext(ctx, "Error fetching recent rounds", "error", err)
		return nil, errs.NewDatabaseError("fetch recent rounds", err)
	}
	return rounds, nil
}

func (s *sqlxStore) Totals(ctx context.Context) (RoundTotals, error) {
	var totals RoundTotals
	query := `
        SELECT
            COUNT(*) AS rounds,
            COALESCE(SUM(participant_count), 0) AS participants,
            COALESCE(SUM(submission_count), 0) AS submissions,
            COALESCE(SUM(CASE WHEN reason = ? THEN 1 ELSE 0 END), 0) AS stopped
        FROM rounds;
    `
	if err := s.db.GetContext(ctx, &totals, query, ReasonStopped); err != nil {
		s.logger.ErrorContext(ctx, "Error aggregating rounds", "error", err)
		return RoundTotals{}, errs.NewDatabaseError("aggregate rounds", err)
	}
	return totals, nil
}

// RunSQLMaintenance runs VACUUM followed by PRAGMA optimize. VACUUM cannot
// run inside a transaction.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	start := time.Now()
	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
		s.logger.ErrorContext(ctx, "VACUUM failed", "error", err)
		return errs.NewDatabaseError("vacuum", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		s.logger.WarnContext(ctx, "PRAGMA optimize failed", "error", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance completed", "duration", time.Since(start))
	return nil
}
