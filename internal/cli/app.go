package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"rccm-quiz/internal/quiz"
)

const (
	maxAttempts  = 3
	defaultCount = 10
	cliUserID    = "cli"
)

// ErrAbandoned is returned when input ends or stays invalid before the last
// question is answered.
var ErrAbandoned = errors.New("exam abandoned")

type Options struct {
	Department string
	Year       int
	Count      int
	UserID     string
}

// Run plays one exam on the terminal. Answers go through the same service as
// the web app, so a service with a store records the result.
func Run(ctx context.Context, service *quiz.Service, opts Options, in io.Reader, out io.Writer) error {
	if opts.Count == 0 {
		opts.Count = defaultCount
	}
	if opts.UserID == "" {
		opts.UserID = cliUserID
	}

	exam, err := service.StartExam(quiz.StartRequest{
		Department: opts.Department,
		Year:       opts.Year,
		Count:      opts.Count,
	})
	if err != nil {
		return err
	}

	reader := bufio.NewReader(in)
	for exam.State() == quiz.StateInProgress {
		question, err := service.CurrentQuestion(exam)
		if err != nil {
			return err
		}
		printQuestion(out, exam.Position(), exam.Total(), question)

		started := time.Now()
		letter, ok := getAnswer(reader, out, len(question.Options))
		fmt.Fprintln(out)
		if !ok {
			fmt.Fprintf(out, "Stopping after %d of %d questions.\n", exam.Current, exam.Total())
			return ErrAbandoned
		}

		feedback, err := service.SubmitAnswer(ctx, opts.UserID, exam, quiz.Submission{
			Year:       question.Year,
			QuestionID: question.ID,
			Answer:     letter,
			Elapsed:    int(time.Since(started).Seconds()),
		})
		if err != nil {
			return err
		}

		correctText := optionText(question, question.CorrectAnswer)
		if feedback.IsCorrect {
			fmt.Fprintln(out, "Correct!")
		} else {
			fmt.Fprintf(out, "Wrong. Correct answer was %s\n", correctText)
		}
		if question.Explanation != "" {
			fmt.Fprintf(out, "%s\n", question.Explanation)
		}
		fmt.Fprintln(out)
	}

	result, err := service.Result(exam)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nFinal score: %d/%d (%.1f%%)\n", result.Correct, result.Total, result.Percentage())
	return nil
}

func printQuestion(out io.Writer, number, total int, question quiz.Question) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Q%d/%d: %s\n\n", number, total, question.Text)
	for _, option := range question.Options {
		fmt.Fprintf(out, "%s. %s\n", option.Letter, option.Text)
	}
	fmt.Fprintln(out)
}

func getAnswer(reader *bufio.Reader, out io.Writer, optionCount int) (string, bool) {
	if optionCount < 1 {
		return "", false
	}

	maxLetter := byte('A' + optionCount - 1)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		userAnswer, err := reader.ReadString('\n')
		if err != nil && userAnswer == "" {
			return "", false
		}

		userAnswer = strings.ToUpper(strings.TrimSpace(userAnswer))
		if len(userAnswer) == 1 {
			letter := userAnswer[0]
			if letter >= 'A' && letter <= maxLetter {
				return userAnswer, true
			}
		}

		if err != nil {
			return "", false
		}
		if attempt < maxAttempts {
			fmt.Fprintf(out, "\nInvalid input. Please enter a letter A-%c.\n", maxLetter)
		}
	}

	return "", false
}

func optionText(question quiz.Question, letter string) string {
	if text := question.OptionText(letter); text != "" {
		return letter + ". " + text
	}
	return letter
}
