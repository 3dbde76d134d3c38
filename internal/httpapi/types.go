package httpapi

import (
	"rccm-quiz/internal/catalog"
	"rccm-quiz/internal/quiz"
)

// page is the value every HTML template receives.
type page struct {
	Title string
	CSRF  string
	Data  any
}

type homeView struct {
	Basic       departmentCard
	Specialists []departmentCard
	FirstYear   int
	LastYear    int
	Exam        *examSummary
}

type departmentCard struct {
	Department catalog.Department
	Questions  int
	DueReviews int
}

type examSummary struct {
	Department string
	Mode       quiz.Mode
	Year       int
	Answered   int
	Total      int
	Completed  bool
}

type startView struct {
	Department   catalog.Department
	Availability []quiz.YearCount
	Counts       []int
	Total        int
}

type examView struct {
	Department string
	Year       int
	Mode       quiz.Mode
	Question   quiz.Question
	Number     int
	Total      int
	Bookmarked bool
}

type feedbackView struct {
	Department  string
	Feedback    quiz.Feedback
	ChoiceText  string
	CorrectText string
	Bookmarked  bool
}

type resultView struct {
	Department string
	Result     quiz.Result
}

type reviewView struct {
	Departments []departmentCard
	Counts      []int
}

type bookmarkGroup struct {
	Department catalog.Department
	Entries    []quiz.BookmarkEntry
}

type bookmarksView struct {
	Groups []bookmarkGroup
	Counts []int
}

type historyRow struct {
	Record     quiz.ExamRecord
	Department string
}

type statRow struct {
	Stat       quiz.DepartmentStat
	Department string
}

type historyView struct {
	Records []historyRow
	Stats   []statRow
}

type errorView struct {
	Status  int
	Message string
}

type departmentResponse struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Type         catalog.QuestionType `json:"type"`
	FullName     string               `json:"full_name"`
	Description  string               `json:"description,omitempty"`
	Icon         string               `json:"icon,omitempty"`
	Availability []quiz.YearCount     `json:"availability"`
}

type departmentsResponse struct {
	Years          []int                `json:"years"`
	QuestionCounts []int                `json:"question_counts"`
	Departments    []departmentResponse `json:"departments"`
}

type statResponse struct {
	Department string  `json:"department"`
	Exams      int     `json:"exams"`
	Answered   int     `json:"answered"`
	Correct    int     `json:"correct"`
	Accuracy   float64 `json:"accuracy"`
}

type statsResponse struct {
	Stats      []statResponse `json:"stats"`
	DueReviews map[string]int `json:"due_reviews"`
}

type healthResponse struct {
	Status      string `json:"status"`
	Questions   int    `json:"questions,omitempty"`
	Departments int    `json:"departments,omitempty"`
	Error       string `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}
