package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"rccm-quiz/internal/quiz"
)

const defaultHistoryLimit = 50

// SaveResult stores a finished exam. Saving the same exam twice returns the
// id of the first row with created set to false and leaves the row unchanged.
func (s *Store) SaveResult(ctx context.Context, record quiz.ExamRecord) (int64, bool, error) {
	if record.ExamID == "" || record.UserID == "" {
		return 0, false, errors.New("sqlstore: exam id and user id are required")
	}

	var (
		id      int64
		created bool
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(
			ctx,
			`INSERT INTO exam_results (user_id, exam_id, department, mode, exam_year, total, correct, elapsed_seconds, started_at_unix, finished_at_unix)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (exam_id) DO NOTHING
			 RETURNING id`,
			record.UserID,
			record.ExamID,
			record.Department,
			string(record.Mode),
			record.Year,
			record.Total,
			record.Correct,
			record.ElapsedSeconds,
			unixNano(record.StartedAt),
			unixNano(record.FinishedAt),
		).Scan(&id)
		if err == nil {
			created = true
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		// Conflict: the exam was already recorded.
		created = false
		return tx.QueryRowContext(
			ctx,
			`SELECT id FROM exam_results WHERE exam_id = $1`,
			record.ExamID,
		).Scan(&id)
	})
	if err != nil {
		return 0, false, err
	}
	return id, created, nil
}

// ListResults returns the most recent results of a user, newest first.
func (s *Store) ListResults(ctx context.Context, userID string, limit int) ([]quiz.ExamRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, exam_id, department, mode, exam_year, total, correct, elapsed_seconds, started_at_unix, finished_at_unix
		 FROM exam_results
		 WHERE user_id = $1
		 ORDER BY finished_at_unix DESC, id DESC
		 LIMIT $2`,
		userID,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]quiz.ExamRecord, 0)
	for rows.Next() {
		var (
			record     quiz.ExamRecord
			mode       string
			startedNs  int64
			finishedNs int64
		)
		if err := rows.Scan(
			&record.ID,
			&record.ExamID,
			&record.Department,
			&mode,
			&record.Year,
			&record.Total,
			&record.Correct,
			&record.ElapsedSeconds,
			&startedNs,
			&finishedNs,
		); err != nil {
			return nil, err
		}
		record.UserID = userID
		record.Mode = quiz.Mode(mode)
		record.StartedAt = fromUnixNano(startedNs)
		record.FinishedAt = fromUnixNano(finishedNs)
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *Store) DepartmentStats(ctx context.Context, userID string) ([]quiz.DepartmentStat, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT department, COUNT(*), COALESCE(SUM(total), 0), COALESCE(SUM(correct), 0)
		 FROM exam_results
		 WHERE user_id = $1
		 GROUP BY department
		 ORDER BY department`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]quiz.DepartmentStat, 0)
	for rows.Next() {
		var stat quiz.DepartmentStat
		if err := rows.Scan(&stat.Department, &stat.Exams, &stat.Answered, &stat.Correct); err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}
