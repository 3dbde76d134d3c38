package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rccm-quiz/internal/quiz"
)

func newTestManager(t *testing.T, now *time.Time) *Manager {
	t.Helper()
	m, err := NewManager("test-secret-with-enough-length-000", time.Hour, false)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	m.SetClock(func() time.Time { return *now })
	return m
}

func cookieRequest(t *testing.T, rec *httptest.ResponseRecorder) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestManagerRoundTrip(t *testing.T) {
	now := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	m := newTestManager(t, &now)

	st := NewState()
	st.Exam = &quiz.Exam{
		ID:         "exam-1",
		Department: "road",
		Category:   "道路",
		Year:       2019,
		Mode:       quiz.ModeRandom,
		Refs:       []quiz.Ref{{Year: 2019, ID: 3}, {Year: 2019, ID: 7}},
		Current:    1,
		Answers:    []quiz.Answer{{Choice: "B", Elapsed: 12}},
	}

	rec := httptest.NewRecorder()
	if err := m.Save(rec, st); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	cookie := rec.Result().Cookies()[0]
	if !cookie.HttpOnly || cookie.SameSite != http.SameSiteLaxMode || cookie.Name != CookieName {
		t.Fatalf("unexpected cookie attributes: %+v", cookie)
	}

	got, ok := m.Load(cookieRequest(t, rec))
	if !ok {
		t.Fatalf("expected cookie to load")
	}
	if got.UserID != st.UserID || got.CSRF != st.CSRF {
		t.Fatalf("identity changed: %+v", got)
	}
	if got.Exam == nil || got.Exam.Category != "道路" || got.Exam.Current != 1 || got.Exam.Refs[1].ID != 7 {
		t.Fatalf("exam not restored: %+v", got.Exam)
	}
	if got.Exam.State() != quiz.StateInProgress {
		t.Fatalf("state = %v, want in_progress", got.Exam.State())
	}
}

func TestManagerRejectsTamperedAndForeignCookies(t *testing.T) {
	now := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	m := newTestManager(t, &now)

	rec := httptest.NewRecorder()
	st := NewState()
	if err := m.Save(rec, st); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	value := rec.Result().Cookies()[0].Value

	suffix := "xx"
	if value[len(value)-2:] == suffix {
		suffix = "yy"
	}
	tampered := value[:len(value)-2] + suffix
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: tampered})
	if got, ok := m.Load(req); ok || got.UserID == st.UserID {
		t.Fatalf("tampered cookie accepted: %+v", got)
	}

	other, err := NewManager("another-secret-with-enough-length", time.Hour, false)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	other.SetClock(func() time.Time { return now })
	if _, ok := other.Load(cookieRequest(t, rec)); ok {
		t.Fatalf("cookie signed with another key accepted")
	}
}

func TestManagerExpiry(t *testing.T) {
	now := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	m := newTestManager(t, &now)

	rec := httptest.NewRecorder()
	if err := m.Save(rec, NewState()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	now = now.Add(2 * time.Hour)
	got, ok := m.Load(cookieRequest(t, rec))
	if ok {
		t.Fatalf("expired cookie accepted")
	}
	if got.UserID == "" || got.CSRF == "" {
		t.Fatalf("expected a fresh state, got %+v", got)
	}
}

func TestValidCSRF(t *testing.T) {
	st := State{UserID: "u", CSRF: "token-1"}
	if !st.ValidCSRF(" token-1 ") {
		t.Fatalf("expected matching token to be valid")
	}
	if st.ValidCSRF("token-2") || st.ValidCSRF("") {
		t.Fatalf("expected mismatching token to be rejected")
	}
	if (State{}).ValidCSRF("") {
		t.Fatalf("empty state must not validate")
	}
}

func TestClearExpiresCookie(t *testing.T) {
	now := time.Now()
	m := newTestManager(t, &now)
	rec := httptest.NewRecorder()
	m.Clear(rec)

	cookie := rec.Result().Cookies()[0]
	if cookie.MaxAge >= 0 || cookie.Value != "" {
		t.Fatalf("cookie not cleared: %+v", cookie)
	}
}
