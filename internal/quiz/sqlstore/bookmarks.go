package sqlstore

import (
	"context"
	"database/sql"

	"rccm-quiz/internal/quiz"
)

// ToggleBookmark removes the bookmark if present, otherwise adds it. It
// reports whether the question is bookmarked afterwards.
func (s *Store) ToggleBookmark(ctx context.Context, bookmark quiz.Bookmark) (bool, error) {
	var bookmarked bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(
			ctx,
			`DELETE FROM bookmarks WHERE user_id = $1 AND q_year = $2 AND q_id = $3`,
			bookmark.UserID,
			bookmark.Ref.Year,
			bookmark.Ref.ID,
		)
		if err != nil {
			return err
		}
		removed, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if removed > 0 {
			bookmarked = false
			return nil
		}

		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO bookmarks (user_id, q_year, q_id, department, created_at_unix)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (user_id, q_year, q_id) DO NOTHING`,
			bookmark.UserID,
			bookmark.Ref.Year,
			bookmark.Ref.ID,
			bookmark.Department,
			unixNano(bookmark.CreatedAt),
		)
		if err != nil {
			return err
		}
		bookmarked = true
		return nil
	})
	return bookmarked, err
}

// ListBookmarks returns a user's bookmarks, newest first. An empty
// department lists all of them.
func (s *Store) ListBookmarks(ctx context.Context, userID, department string) ([]quiz.Bookmark, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if department == "" {
		rows, err = s.db.QueryContext(
			ctx,
			`SELECT q_year, q_id, department, created_at_unix
			 FROM bookmarks
			 WHERE user_id = $1
			 ORDER BY created_at_unix DESC, q_year ASC, q_id ASC`,
			userID,
		)
	} else {
		rows, err = s.db.QueryContext(
			ctx,
			`SELECT q_year, q_id, department, created_at_unix
			 FROM bookmarks
			 WHERE user_id = $1 AND department = $2
			 ORDER BY created_at_unix DESC, q_year ASC, q_id ASC`,
			userID,
			department,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookmarks := make([]quiz.Bookmark, 0)
	for rows.Next() {
		var (
			bookmark  quiz.Bookmark
			createdNs int64
		)
		if err := rows.Scan(&bookmark.Ref.Year, &bookmark.Ref.ID, &bookmark.Department, &createdNs); err != nil {
			return nil, err
		}
		bookmark.UserID = userID
		bookmark.CreatedAt = fromUnixNano(createdNs)
		bookmarks = append(bookmarks, bookmark)
	}
	return bookmarks, rows.Err()
}

func (s *Store) IsBookmarked(ctx context.Context, userID string, ref quiz.Ref) (bool, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM bookmarks WHERE user_id = $1 AND q_year = $2 AND q_id = $3`,
		userID,
		ref.Year,
		ref.ID,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
