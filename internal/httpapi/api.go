package httpapi

import (
	"context"
	"errors"
	"html/template"
	"io"
	"log"
	"time"

	"rccm-quiz/internal/catalog"
	"rccm-quiz/internal/quiz"
	"rccm-quiz/internal/session"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Service        *quiz.Service
	Sessions       *session.Manager
	Pinger         Pinger
	Logger         *log.Logger
	CORSOrigins    []string
	MaxBodyBytes   int64
	RequestTimeout time.Duration
}

type API struct {
	service     *quiz.Service
	departments *catalog.Catalog
	sessions    *session.Manager
	pinger      Pinger
	logger      *log.Logger
	pages       map[string]*template.Template
}

func NewAPI(opts Options) (*API, error) {
	if opts.Service == nil {
		return nil, errors.New("httpapi: quiz service is required")
	}
	if opts.Sessions == nil {
		return nil, errors.New("httpapi: session manager is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	return &API{
		service:     opts.Service,
		departments: opts.Service.Departments(),
		sessions:    opts.Sessions,
		pinger:      opts.Pinger,
		logger:      logger,
		pages:       pages,
	}, nil
}
