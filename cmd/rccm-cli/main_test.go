package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rccm-quiz/internal/catalog"
	"rccm-quiz/internal/cli"
	"rccm-quiz/internal/config"
	"rccm-quiz/internal/quiz"
	"rccm-quiz/internal/quiz/sqlstore"
)

func roadBank() *quiz.Bank {
	questions := make([]quiz.Question, 0, 10)
	for id := 1; id <= 10; id++ {
		questions = append(questions, quiz.Question{
			ID:       id,
			Category: "道路",
			Year:     2019,
			Text:     fmt.Sprintf("road question %d", id),
			Options: []quiz.Option{
				{Letter: "A", Text: "first"},
				{Letter: "B", Text: "second"},
			},
			CorrectAnswer: "B",
		})
	}
	return quiz.NewBank(questions)
}

func TestNewServiceUsesConfiguredIntervals(t *testing.T) {
	ctx := context.Background()
	store, err := sqlstore.Open(ctx, sqlstore.DriverSQLite3, filepath.Join(t.TempDir(), "cli.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	cfg := config.Config{QuestionCounts: []int{10}, SRSIntervals: []int{2, 5}}
	service, err := newService(cfg, roadBank(), catalog.Default(), store, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("newService failed: %v", err)
	}

	in := strings.NewReader(strings.Repeat("a\n", 10))
	if err := cli.Run(ctx, service, cli.Options{Department: "road", Year: 2019, Count: 10}, in, &bytes.Buffer{}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	now := time.Now()
	due, err := store.DueReviewItems(ctx, "cli", "road", now.Add(36*time.Hour), 0)
	if err != nil || len(due) != 0 {
		t.Fatalf("reviews due after 36h = (%d, %v), want none with a 2 day interval", len(due), err)
	}
	due, err = store.DueReviewItems(ctx, "cli", "road", now.Add(72*time.Hour), 0)
	if err != nil || len(due) != 10 {
		t.Fatalf("reviews due after 72h = (%d, %v), want 10", len(due), err)
	}
}

func TestNewServiceRejectsBadIntervals(t *testing.T) {
	cfg := config.Config{QuestionCounts: []int{10}, SRSIntervals: []int{7, 3}}
	if _, err := newService(cfg, roadBank(), catalog.Default(), nil, log.New(io.Discard, "", 0)); err == nil {
		t.Fatalf("expected error for decreasing intervals")
	}
}
