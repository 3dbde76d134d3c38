package sqlstore

import (
	"context"
)

func (s *Store) initSchema(ctx context.Context) error {
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == DriverPostgres {
		idColumn = "BIGSERIAL PRIMARY KEY"
	}

	// Questions live in the CSV bank, so rows only carry (q_year, q_id)
	// references and there are no foreign keys to a questions table.
	statements := []string{
		`CREATE TABLE IF NOT EXISTS exam_results (
			id ` + idColumn + `,
			user_id TEXT NOT NULL,
			exam_id TEXT NOT NULL UNIQUE,
			department TEXT NOT NULL,
			mode TEXT NOT NULL,
			exam_year INTEGER NOT NULL,
			total INTEGER NOT NULL,
			correct INTEGER NOT NULL,
			elapsed_seconds INTEGER NOT NULL,
			started_at_unix BIGINT NOT NULL,
			finished_at_unix BIGINT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS review_items (
			user_id TEXT NOT NULL,
			q_year INTEGER NOT NULL,
			q_id INTEGER NOT NULL,
			department TEXT NOT NULL,
			level INTEGER NOT NULL,
			due_at_unix BIGINT NOT NULL,
			last_correct INTEGER NOT NULL,
			updated_at_unix BIGINT NOT NULL,
			PRIMARY KEY (user_id, q_year, q_id)
		);`,
		`CREATE TABLE IF NOT EXISTS bookmarks (
			user_id TEXT NOT NULL,
			q_year INTEGER NOT NULL,
			q_id INTEGER NOT NULL,
			department TEXT NOT NULL,
			created_at_unix BIGINT NOT NULL,
			PRIMARY KEY (user_id, q_year, q_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_exam_results_user_finished ON exam_results(user_id, finished_at_unix);`,
		`CREATE INDEX IF NOT EXISTS idx_review_items_due ON review_items(user_id, department, due_at_unix);`,
		`CREATE INDEX IF NOT EXISTS idx_bookmarks_user_department ON bookmarks(user_id, department);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
