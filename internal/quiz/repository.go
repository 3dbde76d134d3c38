package quiz

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnknownDepartment    = errors.New("unknown department")
	ErrInvalidYear          = errors.New("invalid year")
	ErrInvalidQuestionCount = errors.New("invalid question count")
	ErrInvalidAnswer        = errors.New("answer must be one of A, B, C or D")
	ErrNoActiveExam         = errors.New("no active exam")
	ErrExamCompleted        = errors.New("exam already completed")
	ErrExamInProgress       = errors.New("exam not completed yet")
	ErrStaleSubmission      = errors.New("answer does not match the current question")
	ErrFieldMixing          = errors.New("question does not belong to the exam department")
	ErrQuestionNotFound     = errors.New("question not found")
	ErrNothingToReview      = errors.New("no questions to review")
	ErrStoreUnavailable     = errors.New("persistent store is not configured")
)

// InsufficientQuestionsError is returned instead of silently starting a
// shorter exam.
type InsufficientQuestionsError struct {
	Department string
	Year       int
	Requested  int
	Available  int
}

func (e *InsufficientQuestionsError) Error() string {
	if e.Year != 0 {
		return fmt.Sprintf("not enough questions for %s (%d): requested %d, available %d", e.Department, e.Year, e.Requested, e.Available)
	}
	return fmt.Sprintf("not enough questions for %s: requested %d, available %d", e.Department, e.Requested, e.Available)
}

type ExamRecord struct {
	ID             int64     `json:"id"`
	UserID         string    `json:"-"`
	ExamID         string    `json:"exam_id"`
	Department     string    `json:"department"`
	Mode           Mode      `json:"mode"`
	Year           int       `json:"year,omitempty"`
	Total          int       `json:"total"`
	Correct        int       `json:"correct"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

type DepartmentStat struct {
	Department string `json:"department"`
	Exams      int    `json:"exams"`
	Answered   int    `json:"answered"`
	Correct    int    `json:"correct"`
}

func (s DepartmentStat) Accuracy() float64 {
	if s.Answered == 0 {
		return 0
	}
	return float64(s.Correct) * 100 / float64(s.Answered)
}

type ReviewItem struct {
	UserID      string    `json:"-"`
	Ref         Ref       `json:"ref"`
	Department  string    `json:"department"`
	Level       int       `json:"level"`
	DueAt       time.Time `json:"due_at"`
	LastCorrect bool      `json:"last_correct"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Bookmark struct {
	UserID     string    `json:"-"`
	Ref        Ref       `json:"ref"`
	Department string    `json:"department"`
	CreatedAt  time.Time `json:"created_at"`
}

type HistoryRepository interface {
	// SaveResult stores a finished exam. created is false when the exam had
	// already been saved; id is then the existing row.
	SaveResult(ctx context.Context, record ExamRecord) (id int64, created bool, err error)
	ListResults(ctx context.Context, userID string, limit int) ([]ExamRecord, error)
	DepartmentStats(ctx context.Context, userID string) ([]DepartmentStat, error)
}

type ReviewRepository interface {
	GetReviewItems(ctx context.Context, userID string, refs []Ref) (map[Ref]ReviewItem, error)
	UpsertReviewItems(ctx context.Context, items []ReviewItem) error
	DueReviewItems(ctx context.Context, userID, department string, now time.Time, limit int) ([]ReviewItem, error)
	CountDueReviews(ctx context.Context, userID string, now time.Time) (map[string]int, error)
}

type BookmarkRepository interface {
	ToggleBookmark(ctx context.Context, bookmark Bookmark) (bool, error)
	ListBookmarks(ctx context.Context, userID, department string) ([]Bookmark, error)
	IsBookmarked(ctx context.Context, userID string, ref Ref) (bool, error)
}

// Store bundles every repository; the SQL store implements all of them.
type Store interface {
	HistoryRepository
	ReviewRepository
	BookmarkRepository
}
