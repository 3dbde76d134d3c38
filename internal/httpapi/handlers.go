package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"rccm-quiz/internal/catalog"
	"rccm-quiz/internal/quiz"
	"rccm-quiz/internal/session"
)

const historyLimit = 50

func (a *API) HandleHome(w http.ResponseWriter, r *http.Request) {
	st := a.loadSession(w, r)

	due, err := a.service.DueReviews(r.Context(), st.UserID)
	if err != nil {
		a.logger.Printf("httpapi: due reviews for %s: %v", st.UserID, err)
		due = map[string]int{}
	}

	years := a.departments.Years()
	view := homeView{
		Basic:     a.departmentCard(a.departments.Basic(), due),
		FirstYear: years[0],
		LastYear:  years[len(years)-1],
		Exam:      a.examSummary(st.Exam),
	}
	for _, dept := range a.departments.Specialists() {
		view.Specialists = append(view.Specialists, a.departmentCard(dept, due))
	}
	a.render(w, http.StatusOK, "home", page{Title: "ホーム", CSRF: st.CSRF, Data: view})
}

func (a *API) HandleStartForm(w http.ResponseWriter, r *http.Request) {
	st := a.loadSession(w, r)
	dept, ok := a.departments.Lookup(departmentParam(r))
	if !ok {
		a.writeServiceError(w, r, &st, quiz.ErrUnknownDepartment)
		return
	}
	a.render(w, http.StatusOK, "start", page{
		Title: dept.Name,
		CSRF:  st.CSRF,
		Data: startView{
			Department:   dept,
			Availability: a.service.Availability(dept),
			Counts:       a.service.QuestionCounts(),
			Total:        a.service.PoolSize(dept, 0),
		},
	})
}

// HandleStartExam replaces whatever exam the session holds with a new one.
// A rejected request leaves the session untouched.
func (a *API) HandleStartExam(w http.ResponseWriter, r *http.Request) {
	st := a.loadSession(w, r)
	if err := parseForm(r, st); err != nil {
		a.formError(w, r, &st, err)
		return
	}

	count, err := parseCount(r.PostForm.Get("questions"))
	if err != nil {
		a.writeServiceError(w, r, &st, err)
		return
	}
	year, err := parseYear(r.PostForm.Get("year"))
	if err != nil {
		a.writeServiceError(w, r, &st, err)
		return
	}

	exam, err := a.service.StartExam(quiz.StartRequest{
		Department: departmentParam(r),
		Year:       year,
		Count:      count,
	})
	if err != nil {
		a.writeServiceError(w, r, &st, err)
		return
	}
	a.startExam(w, r, st, exam)
}

func (a *API) HandleExam(w http.ResponseWriter, r *http.Request) {
	st := a.loadSession(w, r)
	question, err := a.service.CurrentQuestion(st.Exam)
	if err != nil {
		a.writeServiceError(w, r, &st, err)
		return
	}

	a.render(w, http.StatusOK, "exam", page{
		Title: "問題",
		CSRF:  st.CSRF,
		Data: examView{
			Department: a.departmentName(st.Exam.Department),
			Year:       st.Exam.Year,
			Mode:       st.Exam.Mode,
			Question:   question,
			Number:     st.Exam.Position(),
			Total:      st.Exam.Total(),
			Bookmarked: a.bookmarked(r, st, question.Ref()),
		},
	})
}

func (a *API) HandleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	st := a.loadSession(w, r)
	if err := parseForm(r, st); err != nil {
		a.formError(w, r, &st, err)
		return
	}

	qid, err := strconv.Atoi(strings.TrimSpace(r.PostForm.Get("qid")))
	if err != nil {
		a.writeServiceError(w, r, &st, quiz.ErrStaleSubmission)
		return
	}
	year, err := strconv.Atoi(strings.TrimSpace(r.PostForm.Get("year")))
	if err != nil {
		a.writeServiceError(w, r, &st, quiz.ErrStaleSubmission)
		return
	}
	feedback, err := a.service.SubmitAnswer(r.Context(), st.UserID, st.Exam, quiz.Submission{
		Year:       year,
		QuestionID: qid,
		Answer:     r.PostForm.Get("answer"),
		Elapsed:    parseElapsed(r.PostForm.Get("elapsed")),
	})
	if err != nil {
		a.writeServiceError(w, r, &st, err)
		return
	}
	a.saveSession(w, st)

	question := feedback.Question
	a.render(w, http.StatusOK, "feedback", page{
		Title: "解答",
		CSRF:  st.CSRF,
		Data: feedbackView{
			Department:  a.departmentName(st.Exam.Department),
			Feedback:    feedback,
			ChoiceText:  question.OptionText(feedback.Choice),
			CorrectText: question.OptionText(question.CorrectAnswer),
			Bookmarked:  a.bookmarked(r, st, question.Ref()),
		},
	})
}

func (a *API) HandleResult(w http.ResponseWriter, r *http.Request) {
	st := a.loadSession(w, r)
	result, err := a.service.Result(st.Exam)
	if err != nil {
		a.writeServiceError(w, r, &st, err)
		return
	}
	a.render(w, http.StatusOK, "result", page{
		Title: "結果",
		CSRF:  st.CSRF,
		Data:  resultView{Department: a.departmentName(result.Department), Result: result},
	})
}

func (a *API) HandleReset(w http.ResponseWriter, r *http.Request) {
	st := a.loadSession(w, r)
	if err := parseForm(r, st); err != nil {
		a.formError(w, r, &st, err)
		return
	}
	st.Exam = nil
	a.saveSession(w, st)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *API) HandleReviewList(w http.ResponseWriter, r *http.Request) {
	st := a.loadSession(w, r)
	due, err := a.service.DueReviews(r.Context(), st.UserID)
	if err != nil {
		a.writeServiceError(w, r, &st, err)
		return
	}

	view := reviewView{Counts: a.service.QuestionCounts()}
	for _, dept := range a.departments.Departments() {
		if due[dept.ID] > 0 {
			view.Departments = append(view.Departments, a.departmentCard(dept, due))
		}
	}
	a.render(w, http.StatusOK, "review", page{Title: "復習", CSRF: st.CSRF, Data: view})
}

func (a *API) HandleStartReview(w http.ResponseWriter, r *http.Request) {
	st := a.loadSession(w, r)
	if err := parseForm(r, st); err != nil {
		a.formError(w, r, &st, err)
		return
	}
	count, err := parseCount(r.PostForm.Get("questions"))
	if err != nil {
		a.writeServiceError(w, r, &st, err)
		return
	}
	exam, err := a.service.StartReview(r.Context(), st.UserID, departmentParam(r), count)
	if err != nil {
		a.writeServiceError(w, r, &st, err)
		return
	}
	a.startExam(w, r, st, exam)
}

func (a *API) HandleBookmarks(w http.ResponseWriter, r *http.Request) {
	st := a.loadSession(w, r)
	entries, err := a.service.Bookmarks(r.Context(), st.UserID)
	if err != nil {
		a.writeServiceError(w, r, &st, err)
		return
	}

	byDept := make(map[string][]quiz.BookmarkEntry)
	for _, entry := range entries {
		byDept[entry.Department] = append(byDept[entry.Department], entry)
	}
	view := bookmarksView{Counts: a.service.QuestionCounts()}
	for _, dept := range a.departments.Departments() {
		if group := byDept[dept.ID]; len(group) > 0 {
			view.Groups = append(view.Groups, bookmarkGroup{Department: dept, Entries: group})
		}
	}
	a.render(w, http.StatusOK, "bookmarks", page{Title: "ブックマーク", CSRF: st.CSRF, Data: view})
}

func (a *API) HandleToggleBookmark(w http.ResponseWriter, r *http.Request) {
	st := a.loadSession(w, r)
	if err := parseForm(r, st); err != nil {
		a.formError(w, r, &st, err)
		return
	}

	year, yearErr := strconv.Atoi(strings.TrimSpace(r.PostForm.Get("year")))
	qid, qidErr := strconv.Atoi(strings.TrimSpace(r.PostForm.Get("qid")))
	if yearErr != nil || qidErr != nil || year < 0 || qid <= 0 {
		a.renderError(w, http.StatusBadRequest, "ブックマークする問題の指定が正しくありません。")
		return
	}

	if _, err := a.service.ToggleBookmark(r.Context(), st.UserID, quiz.Ref{Year: year, ID: qid}); err != nil {
		if errors.Is(err, quiz.ErrQuestionNotFound) {
			a.renderError(w, http.StatusNotFound, "問題が見つかりません。")
			return
		}
		a.writeServiceError(w, r, &st, err)
		return
	}
	http.Redirect(w, r, localRedirect(r.PostForm.Get("return"), "/bookmarks"), http.StatusSeeOther)
}

func (a *API) HandleStartBookmarks(w http.ResponseWriter, r *http.Request) {
	st := a.loadSession(w, r)
	if err := parseForm(r, st); err != nil {
		a.formError(w, r, &st, err)
		return
	}
	count, err := parseCount(r.PostForm.Get("questions"))
	if err != nil {
		a.writeServiceError(w, r, &st, err)
		return
	}
	exam, err := a.service.StartBookmarks(r.Context(), st.UserID, departmentParam(r), count)
	if err != nil {
		a.writeServiceError(w, r, &st, err)
		return
	}
	a.startExam(w, r, st, exam)
}

func (a *API) HandleHistory(w http.ResponseWriter, r *http.Request) {
	st := a.loadSession(w, r)
	records, err := a.service.History(r.Context(), st.UserID, historyLimit)
	if err != nil {
		a.writeServiceError(w, r, &st, err)
		return
	}
	stats, err := a.service.Stats(r.Context(), st.UserID)
	if err != nil {
		a.writeServiceError(w, r, &st, err)
		return
	}

	view := historyView{}
	for _, record := range records {
		view.Records = append(view.Records, historyRow{Record: record, Department: a.departmentName(record.Department)})
	}
	for _, stat := range stats {
		view.Stats = append(view.Stats, statRow{Stat: stat, Department: a.departmentName(stat.Department)})
	}
	a.render(w, http.StatusOK, "history", page{Title: "履歴", CSRF: st.CSRF, Data: view})
}

func (a *API) startExam(w http.ResponseWriter, r *http.Request, st session.State, exam *quiz.Exam) {
	st.Exam = exam
	a.saveSession(w, st)
	a.logger.Printf("httpapi: user %s started %s exam %s (%s, %d questions)", st.UserID, exam.Mode, exam.ID, exam.Department, exam.Total())
	http.Redirect(w, r, "/exam", http.StatusSeeOther)
}

func (a *API) formError(w http.ResponseWriter, r *http.Request, st *session.State, err error) {
	if errors.Is(err, errBadCSRF) {
		a.writeServiceError(w, r, st, err)
		return
	}
	a.renderError(w, http.StatusBadRequest, "送信内容を読み取れませんでした。")
}

func (a *API) departmentCard(dept catalog.Department, due map[string]int) departmentCard {
	return departmentCard{
		Department: dept,
		Questions:  a.service.PoolSize(dept, 0),
		DueReviews: due[dept.ID],
	}
}

func (a *API) examSummary(exam *quiz.Exam) *examSummary {
	if exam.State() == quiz.StateNotStarted {
		return nil
	}
	return &examSummary{
		Department: a.departmentName(exam.Department),
		Mode:       exam.Mode,
		Year:       exam.Year,
		Answered:   exam.Current,
		Total:      exam.Total(),
		Completed:  exam.State() == quiz.StateCompleted,
	}
}

func (a *API) departmentName(id string) string {
	if dept, ok := a.departments.Lookup(id); ok {
		return dept.Name
	}
	return id
}

func (a *API) bookmarked(r *http.Request, st session.State, ref quiz.Ref) bool {
	ok, err := a.service.IsBookmarked(r.Context(), st.UserID, ref)
	if err != nil {
		a.logger.Printf("httpapi: bookmark lookup %s: %v", ref, err)
		return false
	}
	return ok
}
