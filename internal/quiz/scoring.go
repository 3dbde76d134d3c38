package quiz

import "fmt"

type ResultItem struct {
	Number    int      `json:"number"`
	Ref       Ref      `json:"ref"`
	Question  Question `json:"question"`
	Choice    string   `json:"choice"`
	IsCorrect bool     `json:"is_correct"`
	Elapsed   int      `json:"elapsed,omitempty"`
}

type Result struct {
	ExamID         string       `json:"exam_id"`
	Department     string       `json:"department"`
	Category       string       `json:"category"`
	Mode           Mode         `json:"mode"`
	Year           int          `json:"year,omitempty"`
	Correct        int          `json:"correct"`
	Total          int          `json:"total"`
	ElapsedSeconds int          `json:"elapsed_seconds"`
	Items          []ResultItem `json:"items"`
}

func (r Result) Percentage() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Correct) * 100 / float64(r.Total)
}

// Score counts exact answer matches over the recorded answers. There is no
// partial credit. Every scored question must belong to the exam category.
func Score(exam *Exam, lookup func(Ref) (Question, bool)) (Result, error) {
	if exam == nil {
		return Result{}, ErrNoActiveExam
	}

	result := Result{
		ExamID:         exam.ID,
		Department:     exam.Department,
		Category:       exam.Category,
		Mode:           exam.Mode,
		Year:           exam.Year,
		Total:          len(exam.Refs),
		ElapsedSeconds: exam.ElapsedSeconds(),
		Items:          make([]ResultItem, 0, len(exam.Answers)),
	}

	for idx, answer := range exam.Answers {
		if idx >= len(exam.Refs) {
			break
		}
		ref := exam.Refs[idx]
		question, ok := lookup(ref)
		if !ok {
			return Result{}, fmt.Errorf("%w: %s", ErrQuestionNotFound, ref)
		}
		if question.Category != exam.Category {
			return Result{}, fmt.Errorf("%w: %s is %q, exam is %q", ErrFieldMixing, ref, question.Category, exam.Category)
		}

		correct := question.IsCorrect(answer.Choice)
		if correct {
			result.Correct++
		}
		result.Items = append(result.Items, ResultItem{
			Number:    idx + 1,
			Ref:       ref,
			Question:  question,
			Choice:    answer.Choice,
			IsCorrect: correct,
			Elapsed:   answer.Elapsed,
		})
	}
	return result, nil
}
