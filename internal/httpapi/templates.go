package httpapi

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/dustin/go-humanize"

	"rccm-quiz/internal/quiz"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"home", "start", "exam", "feedback", "result", "review", "bookmarks", "history", "error"}

var templateFuncs = template.FuncMap{
	"ago":      humanize.Time,
	"comma":    func(n int) string { return humanize.Comma(int64(n)) },
	"duration": formatSeconds,
	"pct":      func(v float64) string { return fmt.Sprintf("%.1f", v) },
	"pathesc":  url.PathEscape,
	"yearname": func(year int) string {
		if year == 0 {
			return "全年度"
		}
		return fmt.Sprintf("%d年度", year)
	},
	"modename": func(mode quiz.Mode) string {
		switch mode {
		case quiz.ModeReview:
			return "復習"
		case quiz.ModeBookmarks:
			return "ブックマーク"
		default:
			return "ランダム"
		}
	},
}

func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New("base.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("httpapi: parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}

func formatSeconds(seconds int) string {
	d := time.Duration(seconds) * time.Second
	if d < time.Minute {
		return fmt.Sprintf("%d秒", seconds)
	}
	if d < time.Hour {
		return fmt.Sprintf("%d分%02d秒", seconds/60, seconds%60)
	}
	return fmt.Sprintf("%d時間%02d分", seconds/3600, (seconds%3600)/60)
}

// render executes a page into a buffer first so a template error never
// leaves a half-written response.
func (a *API) render(w http.ResponseWriter, status int, name string, data page) {
	tmpl, ok := a.pages[name]
	if !ok {
		a.logger.Printf("httpapi: unknown template %q", name)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		a.logger.Printf("httpapi: render %s: %v", name, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (a *API) renderError(w http.ResponseWriter, status int, message string) {
	a.render(w, status, "error", page{
		Title: "エラー",
		Data:  errorView{Status: status, Message: message},
	})
}
