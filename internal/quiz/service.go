package quiz

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"rccm-quiz/internal/catalog"
)

// MaxElapsedSeconds bounds the per-question time a client may report.
const MaxElapsedSeconds = 86400

var DefaultQuestionCounts = []int{10, 20, 30}

type Options struct {
	QuestionCounts []int
	Scheduler      Scheduler
	Rand           *rand.Rand
	Now            func() time.Time
	Logger         *log.Logger
}

type StartRequest struct {
	Department string
	Year       int
	Count      int
}

// Submission is one posted answer. Year and QuestionID together name the
// question the form was rendered for.
type Submission struct {
	Year       int
	QuestionID int
	Answer     string
	Elapsed    int
}

type Feedback struct {
	Question  Question
	Choice    string
	IsCorrect bool
	Number    int
	Total     int
	Completed bool
}

type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

type BookmarkEntry struct {
	Bookmark
	Question Question
}

type Service struct {
	bank        *Bank
	departments *catalog.Catalog
	history     HistoryRepository
	reviews     ReviewRepository
	bookmarks   BookmarkRepository

	counts []int
	srs    Scheduler
	now    func() time.Time
	logger *log.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	cacheMu    sync.Mutex
	statsCache map[string]map[string]DepartmentStat
}

// NewService wires the exam logic to the question bank. Any repository may
// be nil, in which case the matching feature is unavailable and completed
// exams are not recorded.
func NewService(bank *Bank, departments *catalog.Catalog, history HistoryRepository, reviews ReviewRepository, bookmarks BookmarkRepository, opts Options) *Service {
	if bank == nil {
		bank = NewBank(nil)
	}
	if departments == nil {
		departments = catalog.Default()
	}
	counts := opts.QuestionCounts
	if len(counts) == 0 {
		counts = DefaultQuestionCounts
	}
	srs := opts.Scheduler
	if srs.intervals == nil {
		srs, _ = NewScheduler(DefaultIntervals)
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &Service{
		bank:        bank,
		departments: departments,
		history:     history,
		reviews:     reviews,
		bookmarks:   bookmarks,
		counts:      slices.Clone(counts),
		srs:         srs,
		now:         now,
		logger:      logger,
		rng:         rng,
		statsCache:  make(map[string]map[string]DepartmentStat),
	}
}

func (s *Service) Departments() *catalog.Catalog {
	return s.departments
}

func (s *Service) QuestionCounts() []int {
	return slices.Clone(s.counts)
}

func (s *Service) ValidCount(count int) bool {
	return slices.Contains(s.counts, count)
}

// Availability reports the number of questions per year for a department.
// The basic department has a single entry with year 0.
func (s *Service) Availability(dept catalog.Department) []YearCount {
	if dept.IsBasic() {
		return []YearCount{{Year: 0, Count: s.bank.Count(dept.Name, 0)}}
	}
	years := s.departments.Years()
	out := make([]YearCount, 0, len(years))
	for _, year := range years {
		out = append(out, YearCount{Year: year, Count: s.bank.Count(dept.Name, year)})
	}
	return out
}

// BankSize is the number of questions loaded.
func (s *Service) BankSize() int {
	return s.bank.Len()
}

func (s *Service) PoolSize(dept catalog.Department, year int) int {
	return s.bank.Count(dept.Name, year)
}

// StartExam builds a new exam of Count distinct questions drawn at random
// from the department pool. Year 0 draws from every year. The caller must
// replace any previous exam with the returned one.
func (s *Service) StartExam(req StartRequest) (*Exam, error) {
	dept, ok := s.departments.Lookup(req.Department)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDepartment, req.Department)
	}
	if !s.ValidCount(req.Count) {
		return nil, fmt.Errorf("%w: %d (allowed: %v)", ErrInvalidQuestionCount, req.Count, s.counts)
	}
	if req.Year != 0 {
		if dept.IsBasic() {
			return nil, fmt.Errorf("%w: %s is not split by year", ErrInvalidYear, dept.Name)
		}
		if !s.departments.ValidYear(req.Year) {
			return nil, fmt.Errorf("%w: %d", ErrInvalidYear, req.Year)
		}
	}

	pool := s.bank.Pool(dept.Name, req.Year)
	if len(pool) < req.Count {
		return nil, &InsufficientQuestionsError{
			Department: dept.Name,
			Year:       req.Year,
			Requested:  req.Count,
			Available:  len(pool),
		}
	}

	exam := s.newExam(dept, ModeRandom, req.Year, s.sample(pool, req.Count))
	if err := s.verify(exam); err != nil {
		s.logger.Printf("quiz: start %s: %v", dept.ID, err)
		return nil, err
	}
	return exam, nil
}

// CurrentQuestion returns the question the exam is waiting on.
func (s *Service) CurrentQuestion(exam *Exam) (Question, error) {
	if exam != nil && len(exam.Refs) > 0 && !exam.valid() {
		return Question{}, ErrNoActiveExam
	}
	switch exam.State() {
	case StateNotStarted:
		return Question{}, ErrNoActiveExam
	case StateCompleted:
		return Question{}, ErrExamCompleted
	}
	return s.question(exam, exam.Refs[exam.Current])
}

// SubmitAnswer records the answer to the current question and advances the
// exam. The submission must name the question currently shown; anything else
// is rejected without changing the exam. When the last answer is recorded the
// result is stored and review scheduling is updated.
func (s *Service) SubmitAnswer(ctx context.Context, userID string, exam *Exam, sub Submission) (Feedback, error) {
	question, err := s.CurrentQuestion(exam)
	if err != nil {
		return Feedback{}, err
	}
	if got := (Ref{Year: sub.Year, ID: sub.QuestionID}); got != question.Ref() {
		return Feedback{}, fmt.Errorf("%w: got %d-%d, want %d-%d", ErrStaleSubmission, got.Year, got.ID, question.Year, question.ID)
	}
	choice := NormalizeLetter(sub.Answer)
	if choice == "" {
		return Feedback{}, ErrInvalidAnswer
	}
	elapsed := sub.Elapsed
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > MaxElapsedSeconds {
		elapsed = MaxElapsedSeconds
	}

	exam.Answers = append(exam.Answers, Answer{Choice: choice, Elapsed: elapsed})
	exam.Current++

	feedback := Feedback{
		Question:  question,
		Choice:    choice,
		IsCorrect: question.IsCorrect(choice),
		Number:    exam.Current,
		Total:     exam.Total(),
		Completed: exam.State() == StateCompleted,
	}
	if feedback.Completed {
		if err := s.finish(ctx, userID, exam); err != nil {
			exam.Answers = exam.Answers[:len(exam.Answers)-1]
			exam.Current--
			return Feedback{}, err
		}
	}
	return feedback, nil
}

// Result scores a completed exam.
func (s *Service) Result(exam *Exam) (Result, error) {
	switch exam.State() {
	case StateNotStarted:
		return Result{}, ErrNoActiveExam
	case StateInProgress:
		return Result{}, ErrExamInProgress
	}
	if !exam.valid() {
		return Result{}, ErrNoActiveExam
	}
	return Score(exam, s.bank.Lookup)
}

// StartReview builds an exam from the review items that are due for a
// department, at most count of them.
func (s *Service) StartReview(ctx context.Context, userID, department string, count int) (*Exam, error) {
	if s.reviews == nil {
		return nil, ErrStoreUnavailable
	}
	dept, ok := s.departments.Lookup(department)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDepartment, department)
	}
	if !s.ValidCount(count) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQuestionCount, count)
	}

	items, err := s.reviews.DueReviewItems(ctx, userID, dept.ID, s.now(), count)
	if err != nil {
		return nil, fmt.Errorf("load review items: %w", err)
	}
	refs := make([]Ref, 0, len(items))
	for _, item := range items {
		if question, ok := s.bank.Lookup(item.Ref); ok && question.Category == dept.Name {
			refs = append(refs, item.Ref)
		}
	}
	if len(refs) == 0 {
		return nil, ErrNothingToReview
	}

	exam := s.newExam(dept, ModeReview, 0, refs)
	if err := s.verify(exam); err != nil {
		return nil, err
	}
	return exam, nil
}

// StartBookmarks builds an exam from the bookmarked questions of a
// department in random order, at most count of them.
func (s *Service) StartBookmarks(ctx context.Context, userID, department string, count int) (*Exam, error) {
	if s.bookmarks == nil {
		return nil, ErrStoreUnavailable
	}
	dept, ok := s.departments.Lookup(department)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDepartment, department)
	}
	if !s.ValidCount(count) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQuestionCount, count)
	}

	bookmarks, err := s.bookmarks.ListBookmarks(ctx, userID, dept.ID)
	if err != nil {
		return nil, fmt.Errorf("load bookmarks: %w", err)
	}
	refs := make([]Ref, 0, len(bookmarks))
	for _, bookmark := range bookmarks {
		if question, ok := s.bank.Lookup(bookmark.Ref); ok && question.Category == dept.Name {
			refs = append(refs, bookmark.Ref)
		}
	}
	if len(refs) == 0 {
		return nil, ErrNothingToReview
	}

	exam := s.newExam(dept, ModeBookmarks, 0, s.sample(refs, min(count, len(refs))))
	if err := s.verify(exam); err != nil {
		return nil, err
	}
	return exam, nil
}

// ToggleBookmark flips the bookmark on a question and reports whether it is
// now bookmarked.
func (s *Service) ToggleBookmark(ctx context.Context, userID string, ref Ref) (bool, error) {
	if s.bookmarks == nil {
		return false, ErrStoreUnavailable
	}
	question, ok := s.bank.Lookup(ref)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrQuestionNotFound, ref)
	}
	dept, ok := s.departments.ByCategory(question.Category)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownDepartment, question.Category)
	}
	return s.bookmarks.ToggleBookmark(ctx, Bookmark{
		UserID:     userID,
		Ref:        ref,
		Department: dept.ID,
		CreatedAt:  s.now().UTC(),
	})
}

func (s *Service) IsBookmarked(ctx context.Context, userID string, ref Ref) (bool, error) {
	if s.bookmarks == nil {
		return false, nil
	}
	return s.bookmarks.IsBookmarked(ctx, userID, ref)
}

// Bookmarks lists every bookmark of a user with its question. Bookmarks
// whose question is no longer in the bank are left out.
func (s *Service) Bookmarks(ctx context.Context, userID string) ([]BookmarkEntry, error) {
	if s.bookmarks == nil {
		return nil, ErrStoreUnavailable
	}
	bookmarks, err := s.bookmarks.ListBookmarks(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	entries := make([]BookmarkEntry, 0, len(bookmarks))
	for _, bookmark := range bookmarks {
		question, ok := s.bank.Lookup(bookmark.Ref)
		if !ok {
			continue
		}
		entries = append(entries, BookmarkEntry{Bookmark: bookmark, Question: question})
	}
	return entries, nil
}

func (s *Service) DueReviews(ctx context.Context, userID string) (map[string]int, error) {
	if s.reviews == nil {
		return map[string]int{}, nil
	}
	return s.reviews.CountDueReviews(ctx, userID, s.now())
}

func (s *Service) History(ctx context.Context, userID string, limit int) ([]ExamRecord, error) {
	if s.history == nil {
		return nil, ErrStoreUnavailable
	}
	return s.history.ListResults(ctx, userID, limit)
}

// Stats returns per-department totals for a user, in catalog order.
func (s *Service) Stats(ctx context.Context, userID string) ([]DepartmentStat, error) {
	if s.history == nil {
		return nil, ErrStoreUnavailable
	}
	if stats, ok := s.getCachedStats(userID); ok {
		return stats, nil
	}

	stats, err := s.history.DepartmentStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.setCachedStats(userID, stats)
	cached, _ := s.getCachedStats(userID)
	return cached, nil
}

func (s *Service) finish(ctx context.Context, userID string, exam *Exam) error {
	if exam.ResultID != 0 {
		return nil
	}
	result, err := Score(exam, s.bank.Lookup)
	if err != nil {
		s.logger.Printf("quiz: score exam %s: %v", exam.ID, err)
		return err
	}

	if s.history != nil {
		record := ExamRecord{
			UserID:         userID,
			ExamID:         exam.ID,
			Department:     exam.Department,
			Mode:           exam.Mode,
			Year:           exam.Year,
			Total:          result.Total,
			Correct:        result.Correct,
			ElapsedSeconds: result.ElapsedSeconds,
			StartedAt:      exam.Started(),
			FinishedAt:     s.now().UTC(),
		}
		id, created, err := s.history.SaveResult(ctx, record)
		if err != nil {
			return fmt.Errorf("save result: %w", err)
		}
		exam.ResultID = id
		if !created {
			// Another copy of this exam already completed it.
			return nil
		}
		record.ID = id
		s.updateCachedStatsAfterResult(record)
	}

	if s.reviews != nil {
		if err := s.scheduleReviews(ctx, userID, exam.Department, result.Items); err != nil {
			s.logger.Printf("quiz: schedule reviews for exam %s: %v", exam.ID, err)
		}
	}
	return nil
}

// scheduleReviews moves every answered question along the review ladder.
// Wrong answers always create an item; correct answers only advance items
// that already exist.
func (s *Service) scheduleReviews(ctx context.Context, userID, department string, items []ResultItem) error {
	refs := make([]Ref, 0, len(items))
	for _, item := range items {
		refs = append(refs, item.Ref)
	}
	existing, err := s.reviews.GetReviewItems(ctx, userID, refs)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	updates := make([]ReviewItem, 0, len(items))
	for _, item := range items {
		current, tracked := existing[item.Ref]
		if !tracked {
			if item.IsCorrect {
				continue
			}
			current = ReviewItem{UserID: userID, Ref: item.Ref, Department: department}
		}
		updates = append(updates, s.srs.Next(current, item.IsCorrect, now))
	}
	if len(updates) == 0 {
		return nil
	}
	return s.reviews.UpsertReviewItems(ctx, updates)
}

func (s *Service) newExam(dept catalog.Department, mode Mode, year int, refs []Ref) *Exam {
	return &Exam{
		ID:         uuid.NewString(),
		Department: dept.ID,
		Category:   dept.Name,
		Type:       dept.Type,
		Year:       year,
		Mode:       mode,
		Refs:       refs,
		Answers:    make([]Answer, 0, len(refs)),
		StartedAt:  s.now().Unix(),
	}
}

// sample picks n distinct refs in random order.
func (s *Service) sample(pool []Ref, n int) []Ref {
	s.rngMu.Lock()
	perm := s.rng.Perm(len(pool))
	s.rngMu.Unlock()

	out := make([]Ref, 0, n)
	for _, idx := range perm[:n] {
		out = append(out, pool[idx])
	}
	return out
}

func (s *Service) verify(exam *Exam) error {
	seen := make(map[Ref]bool, len(exam.Refs))
	for _, ref := range exam.Refs {
		if seen[ref] {
			return fmt.Errorf("duplicate question %s in exam", ref)
		}
		seen[ref] = true
		if _, err := s.question(exam, ref); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) question(exam *Exam, ref Ref) (Question, error) {
	question, ok := s.bank.Lookup(ref)
	if !ok {
		return Question{}, fmt.Errorf("%w: %s", ErrQuestionNotFound, ref)
	}
	if question.Category != exam.Category {
		err := fmt.Errorf("%w: %s is %q, exam is %q", ErrFieldMixing, ref, question.Category, exam.Category)
		s.logger.Printf("quiz: exam %s: %v", exam.ID, err)
		return Question{}, err
	}
	return question, nil
}

// IsParameterError reports whether err was caused by invalid user input.
func IsParameterError(err error) bool {
	return errors.Is(err, ErrUnknownDepartment) ||
		errors.Is(err, ErrInvalidYear) ||
		errors.Is(err, ErrInvalidQuestionCount) ||
		errors.Is(err, ErrInvalidAnswer)
}
