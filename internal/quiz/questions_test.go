package quiz

import (
	"fmt"
	"testing"
)

func makeQuestion(category string, year, id int, correct string) Question {
	return Question{
		ID:       id,
		Category: category,
		Year:     year,
		Text:     fmt.Sprintf("%s %d question %d", category, year, id),
		Options: []Option{
			{Letter: "A", Text: "alpha"},
			{Letter: "B", Text: "bravo"},
			{Letter: "C", Text: "charlie"},
			{Letter: "D", Text: "delta"},
		},
		CorrectAnswer: correct,
		Explanation:   "because",
	}
}

// makeQuestions builds count questions with ids starting at firstID. Ids
// must not overlap within a year, just like in a real year file.
func makeQuestions(category string, year, firstID, count int) []Question {
	letters := []string{"A", "B", "C", "D"}
	out := make([]Question, 0, count)
	for id := firstID; id < firstID+count; id++ {
		out = append(out, makeQuestion(category, year, id, letters[(id-1)%len(letters)]))
	}
	return out
}

func TestNormalizeLetter(t *testing.T) {
	tests := map[string]string{
		"A":   "A",
		" b ": "B",
		"d":   "D",
		"E":   "",
		"AB":  "",
		"":    "",
		"1":   "",
	}
	for input, want := range tests {
		if got := NormalizeLetter(input); got != want {
			t.Fatalf("NormalizeLetter(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestQuestionIsCorrectIgnoresCase(t *testing.T) {
	question := makeQuestion("道路", 2019, 1, "A")

	if !question.IsCorrect("a") || !question.IsCorrect("A") {
		t.Fatalf("expected a/A to be correct")
	}
	if question.IsCorrect("B") || question.IsCorrect("") {
		t.Fatalf("expected B and empty answer to be incorrect")
	}
	if got := question.OptionText("c"); got != "charlie" {
		t.Fatalf("OptionText(c) = %q", got)
	}
}

func TestParseRefRoundTrip(t *testing.T) {
	ref := Ref{Year: 2019, ID: 42}
	got, err := ParseRef(ref.String())
	if err != nil || got != ref {
		t.Fatalf("ParseRef(%q) = (%+v, %v)", ref.String(), got, err)
	}

	basic, err := ParseRef("0-7")
	if err != nil || basic != (Ref{Year: 0, ID: 7}) {
		t.Fatalf("ParseRef(0-7) = (%+v, %v)", basic, err)
	}

	for _, bad := range []string{"", "2019", "2019-", "x-1", "2019-0", "-1-3", "2019-3x"} {
		if _, err := ParseRef(bad); err == nil {
			t.Fatalf("expected ParseRef(%q) to fail", bad)
		}
	}
}

func TestBankPoolFiltersByCategoryAndYear(t *testing.T) {
	var questions []Question
	questions = append(questions, makeQuestions("道路", 2019, 1, 5)...)
	questions = append(questions, makeQuestions("道路", 2018, 1, 3)...)
	questions = append(questions, makeQuestions("トンネル", 2019, 101, 4)...)
	questions = append(questions, makeQuestions("共通", 0, 1, 6)...)
	bank := NewBank(questions)

	if got := len(bank.Pool("道路", 2019)); got != 5 {
		t.Fatalf("road 2019 pool = %d, want 5", got)
	}
	if got := len(bank.Pool("道路", 0)); got != 8 {
		t.Fatalf("road all-years pool = %d, want 8", got)
	}
	if got := bank.Count("トンネル", 2018); got != 0 {
		t.Fatalf("tunnel 2018 count = %d, want 0", got)
	}
	if got := bank.Count("共通", 0); got != 6 {
		t.Fatalf("basic count = %d, want 6", got)
	}

	for _, ref := range bank.Pool("道路", 0) {
		question, ok := bank.Lookup(ref)
		if !ok || question.Category != "道路" {
			t.Fatalf("pool returned foreign question %+v", question)
		}
	}

	years := bank.Years()
	if len(years) != 2 || years[0] != 2018 || years[1] != 2019 {
		t.Fatalf("unexpected years: %v", years)
	}
}

func TestBankKeepsFirstQuestionForDuplicateRef(t *testing.T) {
	first := makeQuestion("道路", 2019, 1, "A")
	second := makeQuestion("トンネル", 2019, 1, "B")
	bank := NewBank([]Question{first, second})

	if bank.Len() != 1 {
		t.Fatalf("expected duplicate ref to be dropped, len=%d", bank.Len())
	}
	got, _ := bank.Lookup(Ref{Year: 2019, ID: 1})
	if got.Category != "道路" {
		t.Fatalf("expected first question to win, got %q", got.Category)
	}
	if bank.Count("トンネル", 2019) != 0 {
		t.Fatalf("dropped question still indexed")
	}
}

func TestBankPoolReturnsCopy(t *testing.T) {
	bank := NewBank(makeQuestions("道路", 2019, 1, 3))

	pool := bank.Pool("道路", 2019)
	pool[0] = Ref{Year: 1, ID: 1}

	if again := bank.Pool("道路", 2019); again[0] == (Ref{Year: 1, ID: 1}) {
		t.Fatalf("Pool exposed internal slice")
	}
}
