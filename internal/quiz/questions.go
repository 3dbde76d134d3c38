package quiz

import (
	"fmt"
	"sort"
	"strings"
)

var answerLetters = [...]string{"A", "B", "C", "D"}

type Option struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

// Ref identifies a question across files. Question ids are only unique
// within a single file, so the year is part of the key. Basic questions
// use year 0.
type Ref struct {
	Year int `json:"y"`
	ID   int `json:"i"`
}

func (r Ref) String() string {
	return fmt.Sprintf("%d-%d", r.Year, r.ID)
}

// ParseRef is the inverse of Ref.String.
func ParseRef(value string) (Ref, error) {
	var ref Ref
	value = strings.TrimSpace(value)
	if _, err := fmt.Sscanf(value, "%d-%d", &ref.Year, &ref.ID); err != nil {
		return Ref{}, fmt.Errorf("invalid question reference %q", value)
	}
	if ref.Year < 0 || ref.ID <= 0 || ref.String() != value {
		return Ref{}, fmt.Errorf("invalid question reference %q", value)
	}
	return ref, nil
}

type Question struct {
	ID            int      `json:"id"`
	Category      string   `json:"category"`
	Year          int      `json:"year,omitempty"`
	Text          string   `json:"question"`
	Options       []Option `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation,omitempty"`
	Reference     string   `json:"reference,omitempty"`
	Difficulty    string   `json:"difficulty,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
}

func (q Question) Ref() Ref {
	return Ref{Year: q.Year, ID: q.ID}
}

// IsCorrect compares case-insensitively, so "a" and "A" are the same choice.
func (q Question) IsCorrect(answer string) bool {
	letter := NormalizeLetter(answer)
	return letter != "" && letter == q.CorrectAnswer
}

func (q Question) OptionText(letter string) string {
	letter = NormalizeLetter(letter)
	for _, option := range q.Options {
		if option.Letter == letter {
			return option.Text
		}
	}
	return ""
}

// NormalizeLetter returns the upper-case answer letter, or "" when the input
// is not one of A-D.
func NormalizeLetter(answer string) string {
	letter := strings.ToUpper(strings.TrimSpace(answer))
	for _, candidate := range answerLetters {
		if letter == candidate {
			return letter
		}
	}
	return ""
}

// Bank is the immutable set of loaded questions. It is built once and shared
// by every request.
type Bank struct {
	byRef      map[Ref]Question
	byCategory map[string]map[int][]Ref
	years      []int
}

func NewBank(questions []Question) *Bank {
	b := &Bank{
		byRef:      make(map[Ref]Question, len(questions)),
		byCategory: make(map[string]map[int][]Ref),
	}

	seenYears := make(map[int]bool)
	for _, question := range questions {
		ref := question.Ref()
		if _, dup := b.byRef[ref]; dup {
			continue
		}
		b.byRef[ref] = question

		years, ok := b.byCategory[question.Category]
		if !ok {
			years = make(map[int][]Ref)
			b.byCategory[question.Category] = years
		}
		years[question.Year] = append(years[question.Year], ref)
		if question.Year > 0 && !seenYears[question.Year] {
			seenYears[question.Year] = true
			b.years = append(b.years, question.Year)
		}
	}

	for _, years := range b.byCategory {
		for _, refs := range years {
			sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
		}
	}
	sort.Ints(b.years)
	return b
}

func (b *Bank) Lookup(ref Ref) (Question, bool) {
	question, ok := b.byRef[ref]
	return question, ok
}

func (b *Bank) Len() int {
	return len(b.byRef)
}

// Years lists the specialist years that have at least one question.
func (b *Bank) Years() []int {
	out := make([]int, len(b.years))
	copy(out, b.years)
	return out
}

// Pool returns the question refs of a category. Year 0 means every year.
// The returned slice is a copy and may be modified by the caller.
func (b *Bank) Pool(category string, year int) []Ref {
	years := b.byCategory[category]
	if year != 0 {
		refs := years[year]
		out := make([]Ref, len(refs))
		copy(out, refs)
		return out
	}

	keys := make([]int, 0, len(years))
	total := 0
	for y, refs := range years {
		keys = append(keys, y)
		total += len(refs)
	}
	sort.Ints(keys)

	out := make([]Ref, 0, total)
	for _, y := range keys {
		out = append(out, years[y]...)
	}
	return out
}

func (b *Bank) Count(category string, year int) int {
	years := b.byCategory[category]
	if year != 0 {
		return len(years[year])
	}
	total := 0
	for _, refs := range years {
		total += len(refs)
	}
	return total
}
