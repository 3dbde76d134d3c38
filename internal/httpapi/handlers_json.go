package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"rccm-quiz/internal/quiz"
)

const readyTimeout = 2 * time.Second

func (a *API) HandleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (a *API) HandleReady(w http.ResponseWriter, r *http.Request) {
	if a.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := a.pinger.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: "database unreachable"})
			return
		}
	}
	if a.service.BankSize() == 0 {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: "no questions loaded"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ready"})
}

func (a *API) HandleHealthSimple(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "healthy",
		Questions:   a.service.BankSize(),
		Departments: len(a.departments.Departments()),
	})
}

func (a *API) HandleDepartments(w http.ResponseWriter, r *http.Request) {
	departments := a.departments.Departments()
	response := departmentsResponse{
		Years:          a.departments.Years(),
		QuestionCounts: a.service.QuestionCounts(),
		Departments:    make([]departmentResponse, 0, len(departments)),
	}
	for _, dept := range departments {
		response.Departments = append(response.Departments, departmentResponse{
			ID:           dept.ID,
			Name:         dept.Name,
			Type:         dept.Type,
			FullName:     dept.FullName,
			Description:  dept.Description,
			Icon:         dept.Icon,
			Availability: a.service.Availability(dept),
		})
	}
	writeJSON(w, http.StatusOK, response)
}

// HandleStats answers for the session cookie only; it never issues one.
func (a *API) HandleStats(w http.ResponseWriter, r *http.Request) {
	st, ok := a.sessions.Load(r)
	if !ok {
		writeJSON(w, http.StatusOK, statsResponse{Stats: []statResponse{}, DueReviews: map[string]int{}})
		return
	}

	stats, err := a.service.Stats(r.Context(), st.UserID)
	if err != nil {
		if errors.Is(err, quiz.ErrStoreUnavailable) {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "history store unavailable"})
			return
		}
		a.logger.Printf("httpapi: stats for %s: %v", st.UserID, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "request failed"})
		return
	}
	due, err := a.service.DueReviews(r.Context(), st.UserID)
	if err != nil {
		a.logger.Printf("httpapi: due reviews for %s: %v", st.UserID, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "request failed"})
		return
	}

	response := statsResponse{Stats: make([]statResponse, 0, len(stats)), DueReviews: due}
	for _, stat := range stats {
		response.Stats = append(response.Stats, statResponse{
			Department: stat.Department,
			Exams:      stat.Exams,
			Answered:   stat.Answered,
			Correct:    stat.Correct,
			Accuracy:   stat.Accuracy(),
		})
	}
	writeJSON(w, http.StatusOK, response)
}
