package quiz

import (
	"errors"
	"testing"
)

func TestScore(t *testing.T) {
	bank := NewBank([]Question{
		makeQuestion("道路", 2019, 1, "A"),
		makeQuestion("道路", 2019, 2, "B"),
		makeQuestion("道路", 2019, 3, "C"),
		makeQuestion("道路", 2019, 4, "A"),
	})
	refs := []Ref{{2019, 1}, {2019, 2}, {2019, 3}, {2019, 4}}

	tests := []struct {
		name    string
		answers []Answer
		want    int
	}{
		{name: "all A", answers: []Answer{{Choice: "A"}, {Choice: "A"}, {Choice: "A"}, {Choice: "A"}}, want: 2},
		{name: "lower case", answers: []Answer{{Choice: "a"}, {Choice: "b"}, {Choice: "c"}, {Choice: "a"}}, want: 4},
		{name: "none right", answers: []Answer{{Choice: "D"}, {Choice: "D"}, {Choice: "D"}, {Choice: "D"}}, want: 0},
		{name: "partial exam", answers: []Answer{{Choice: "A"}}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exam := &Exam{Category: "道路", Refs: refs, Answers: tt.answers, Current: len(tt.answers)}
			result, err := Score(exam, bank.Lookup)
			if err != nil {
				t.Fatalf("Score failed: %v", err)
			}
			if result.Correct != tt.want || result.Total != 4 || len(result.Items) != len(tt.answers) {
				t.Fatalf("Score = %d/%d (%d items), want %d/4", result.Correct, result.Total, len(result.Items), tt.want)
			}
		})
	}
}

func TestScoreElapsedAndPercentage(t *testing.T) {
	bank := NewBank([]Question{makeQuestion("道路", 2019, 1, "A"), makeQuestion("道路", 2019, 2, "B")})
	exam := &Exam{
		Category: "道路",
		Refs:     []Ref{{2019, 1}, {2019, 2}},
		Answers:  []Answer{{Choice: "A", Elapsed: 30}, {Choice: "C", Elapsed: 45}},
		Current:  2,
	}

	result, err := Score(exam, bank.Lookup)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if result.ElapsedSeconds != 75 || result.Percentage() != 50 {
		t.Fatalf("unexpected result: elapsed=%d pct=%v", result.ElapsedSeconds, result.Percentage())
	}
	if !result.Items[0].IsCorrect || result.Items[1].IsCorrect || result.Items[1].Number != 2 {
		t.Fatalf("unexpected items: %+v", result.Items)
	}
}

func TestScoreMissingQuestion(t *testing.T) {
	bank := NewBank(nil)
	exam := &Exam{Category: "道路", Refs: []Ref{{2019, 1}}, Answers: []Answer{{Choice: "A"}}, Current: 1}

	if _, err := Score(exam, bank.Lookup); !errors.Is(err, ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
	if _, err := Score(nil, bank.Lookup); !errors.Is(err, ErrNoActiveExam) {
		t.Fatalf("expected ErrNoActiveExam, got %v", err)
	}
}
