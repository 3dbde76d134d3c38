package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"rccm-quiz/internal/quiz"
	"rccm-quiz/internal/session"
)

var errBadCSRF = errors.New("invalid csrf token")

// writeServiceError turns a service error into a page or redirect. Errors
// that mean the exam in the session can no longer be trusted also drop it.
func (a *API) writeServiceError(w http.ResponseWriter, r *http.Request, st *session.State, err error) {
	var insufficient *quiz.InsufficientQuestionsError
	switch {
	case errors.Is(err, errBadCSRF):
		a.renderError(w, http.StatusForbidden, "フォームの有効期限が切れました。ページを再読み込みしてください。")
	case errors.As(err, &insufficient):
		a.renderError(w, http.StatusUnprocessableEntity, insufficientMessage(insufficient))
	case errors.Is(err, quiz.ErrUnknownDepartment):
		a.renderError(w, http.StatusBadRequest, "指定された部門は存在しません。")
	case errors.Is(err, quiz.ErrInvalidYear):
		a.renderError(w, http.StatusBadRequest, "指定された年度は選択できません。2008年から2019年の範囲で選択してください。")
	case errors.Is(err, quiz.ErrInvalidQuestionCount):
		a.renderError(w, http.StatusBadRequest, "問題数の指定が正しくありません。")
	case errors.Is(err, quiz.ErrInvalidAnswer):
		a.renderError(w, http.StatusBadRequest, "解答はA〜Dから選択してください。")
	case errors.Is(err, quiz.ErrNoActiveExam):
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case errors.Is(err, quiz.ErrExamCompleted):
		http.Redirect(w, r, "/result", http.StatusSeeOther)
	case errors.Is(err, quiz.ErrExamInProgress), errors.Is(err, quiz.ErrStaleSubmission):
		http.Redirect(w, r, "/exam", http.StatusSeeOther)
	case errors.Is(err, quiz.ErrNothingToReview):
		a.renderError(w, http.StatusNotFound, "対象の問題がありません。")
	case errors.Is(err, quiz.ErrStoreUnavailable):
		a.renderError(w, http.StatusServiceUnavailable, "この機能は現在利用できません。")
	case errors.Is(err, quiz.ErrFieldMixing):
		a.logger.Printf("httpapi: discarding exam for user %s: %v", st.UserID, err)
		a.dropExam(w, st)
		a.renderError(w, http.StatusInternalServerError, "問題データに不整合が見つかったため試験を終了しました。もう一度開始してください。")
	case errors.Is(err, quiz.ErrQuestionNotFound):
		a.logger.Printf("httpapi: discarding exam for user %s: %v", st.UserID, err)
		a.dropExam(w, st)
		a.renderError(w, http.StatusNotFound, "問題が見つかりません。もう一度試験を開始してください。")
	default:
		a.logger.Printf("httpapi: %s %s: %v", r.Method, r.URL.Path, err)
		a.renderError(w, http.StatusInternalServerError, "処理中にエラーが発生しました。")
	}
}

func insufficientMessage(err *quiz.InsufficientQuestionsError) string {
	scope := err.Department
	if err.Year != 0 {
		scope += " " + strconv.Itoa(err.Year) + "年度"
	}
	return scope + "の問題は" + strconv.Itoa(err.Available) + "問しかありません(" + strconv.Itoa(err.Requested) + "問を要求)。問題数か年度を変更してください。"
}

func (a *API) dropExam(w http.ResponseWriter, st *session.State) {
	if st == nil {
		return
	}
	st.Exam = nil
	a.saveSession(w, *st)
}

// loadSession returns the caller's state, issuing a new cookie when the
// request carried none.
func (a *API) loadSession(w http.ResponseWriter, r *http.Request) session.State {
	st, ok := a.sessions.Load(r)
	if !ok {
		a.saveSession(w, st)
	}
	return st
}

func (a *API) saveSession(w http.ResponseWriter, st session.State) {
	if err := a.sessions.Save(w, st); err != nil {
		a.logger.Printf("httpapi: save session: %v", err)
	}
}

// parseForm reads the posted form and checks its csrf_token against the
// session.
func parseForm(r *http.Request, st session.State) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	if !st.ValidCSRF(r.PostForm.Get("csrf_token")) {
		return errBadCSRF
	}
	return nil
}

// departmentParam returns the {department} path segment, which may be an ID
// or a percent-encoded Japanese label.
func departmentParam(r *http.Request) string {
	raw := chi.URLParam(r, "department")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return strings.TrimSpace(decoded)
	}
	return strings.TrimSpace(raw)
}

func parseCount(value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return 0, quiz.ErrInvalidQuestionCount
	}
	return n, nil
}

// parseYear accepts an empty value or "all" as every year.
func parseYear(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "all") {
		return 0, nil
	}
	year, err := strconv.Atoi(value)
	if err != nil || year <= 0 {
		return 0, quiz.ErrInvalidYear
	}
	return year, nil
}

func parseElapsed(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return 0
	}
	return min(n, quiz.MaxElapsedSeconds)
}

// localRedirect only allows paths on this site.
func localRedirect(value, fallback string) string {
	if !strings.HasPrefix(value, "/") || strings.HasPrefix(value, "//") || strings.HasPrefix(value, "/\\") {
		return fallback
	}
	return value
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}
