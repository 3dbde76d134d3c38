package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"rccm-quiz/internal/quiz"
)

func (s *Store) GetReviewItems(ctx context.Context, userID string, refs []quiz.Ref) (map[quiz.Ref]quiz.ReviewItem, error) {
	items := make(map[quiz.Ref]quiz.ReviewItem, len(refs))
	if len(refs) == 0 {
		return items, nil
	}

	var (
		clauses = make([]string, 0, len(refs))
		args    = make([]any, 0, 1+2*len(refs))
	)
	args = append(args, userID)
	for _, ref := range refs {
		clauses = append(clauses, fmt.Sprintf("(q_year = $%d AND q_id = $%d)", len(args)+1, len(args)+2))
		args = append(args, ref.Year, ref.ID)
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT q_year, q_id, department, level, due_at_unix, last_correct, updated_at_unix
		 FROM review_items
		 WHERE user_id = $1 AND (`+strings.Join(clauses, " OR ")+`)`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanReviewItem(rows, userID)
		if err != nil {
			return nil, err
		}
		items[item.Ref] = item
	}
	return items, rows.Err()
}

// UpsertReviewItems writes all items in one transaction.
func (s *Store) UpsertReviewItems(ctx context.Context, items []quiz.ReviewItem) error {
	if len(items) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, item := range items {
			_, err := tx.ExecContext(
				ctx,
				`INSERT INTO review_items (user_id, q_year, q_id, department, level, due_at_unix, last_correct, updated_at_unix)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				 ON CONFLICT (user_id, q_year, q_id) DO UPDATE SET
					department = excluded.department,
					level = excluded.level,
					due_at_unix = excluded.due_at_unix,
					last_correct = excluded.last_correct,
					updated_at_unix = excluded.updated_at_unix`,
				item.UserID,
				item.Ref.Year,
				item.Ref.ID,
				item.Department,
				item.Level,
				unixNano(item.DueAt),
				boolInt(item.LastCorrect),
				unixNano(item.UpdatedAt),
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// DueReviewItems returns the items of a department due at now, oldest due
// first.
func (s *Store) DueReviewItems(ctx context.Context, userID, department string, now time.Time, limit int) ([]quiz.ReviewItem, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT q_year, q_id, department, level, due_at_unix, last_correct, updated_at_unix
		 FROM review_items
		 WHERE user_id = $1 AND department = $2 AND due_at_unix <= $3
		 ORDER BY due_at_unix ASC, q_year ASC, q_id ASC
		 LIMIT $4`,
		userID,
		department,
		unixNano(now),
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]quiz.ReviewItem, 0)
	for rows.Next() {
		item, err := scanReviewItem(rows, userID)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) CountDueReviews(ctx context.Context, userID string, now time.Time) (map[string]int, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT department, COUNT(*)
		 FROM review_items
		 WHERE user_id = $1 AND due_at_unix <= $2
		 GROUP BY department`,
		userID,
		unixNano(now),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			department string
			count      int
		)
		if err := rows.Scan(&department, &count); err != nil {
			return nil, err
		}
		counts[department] = count
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReviewItem(row rowScanner, userID string) (quiz.ReviewItem, error) {
	var (
		item        quiz.ReviewItem
		dueNs       int64
		updatedNs   int64
		lastCorrect int
	)
	if err := row.Scan(&item.Ref.Year, &item.Ref.ID, &item.Department, &item.Level, &dueNs, &lastCorrect, &updatedNs); err != nil {
		return quiz.ReviewItem{}, err
	}
	item.UserID = userID
	item.DueAt = fromUnixNano(dueNs)
	item.UpdatedAt = fromUnixNano(updatedNs)
	item.LastCorrect = lastCorrect != 0
	return item, nil
}
