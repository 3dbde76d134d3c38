package quiz

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"

	"rccm-quiz/internal/catalog"
)

const BasicFileName = "4-1.csv"

const maxParallelLoads = 4

func SpecialistFileName(year int) string {
	return fmt.Sprintf("4-2_%d.csv", year)
}

var requiredColumns = []string{"id", "question", "option_a", "option_b", "option_c", "option_d", "correct_answer"}

// Question files come from several tools over the years, so the encoding is
// detected per file. A decoding that produces replacement characters is
// treated as wrong and the next candidate is tried.
type candidateEncoding struct {
	name string
	enc  encoding.Encoding
}

var iso2022JP = candidateEncoding{name: "iso-2022-jp", enc: japanese.ISO2022JP}

var candidateEncodings = []candidateEncoding{
	{name: "utf-8", enc: unicode.UTF8BOM},
	{name: "shift_jis", enc: japanese.ShiftJIS},
	{name: "euc-jp", enc: japanese.EUCJP},
	iso2022JP,
}

var ErrUndecodable = errors.New("no supported encoding could decode the file")

type Loader struct {
	dir         string
	departments *catalog.Catalog
	logger      *log.Logger
}

func NewLoader(dir string, departments *catalog.Catalog, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Loader{
		dir:         dir,
		departments: departments,
		logger:      logger,
	}
}

// LoadBank reads the basic file and every specialist year file concurrently.
// Missing files only produce a warning; the bank is built from whatever was
// readable.
func (l *Loader) LoadBank(ctx context.Context) (*Bank, error) {
	type job struct {
		name string
		year int
	}
	jobs := []job{{name: BasicFileName}}
	for _, year := range l.departments.Years() {
		jobs = append(jobs, job{name: SpecialistFileName(year), year: year})
	}

	results := make([][]Question, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLoads)
	for idx, j := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			questions, err := l.LoadFile(filepath.Join(l.dir, j.name), j.year)
			if err != nil {
				l.logger.Printf("loader: %s: %v", j.name, err)
				return nil
			}
			results[idx] = questions
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Question
	for _, questions := range results {
		all = append(all, questions...)
	}
	bank := NewBank(all)
	l.logger.Printf("loader: loaded %d questions from %s", bank.Len(), l.dir)
	return bank, nil
}

// LoadFile parses one question file. Year 0 marks the basic file, whose
// questions are all assigned to the basic department.
func (l *Loader) LoadFile(path string, year int) ([]Question, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.logger.Printf("loader: warning: %s not found, no questions loaded", filepath.Base(path))
			return nil, nil
		}
		return nil, fmt.Errorf("read: %w", err)
	}

	text, encName, err := decodeQuestionFile(raw)
	if err != nil {
		return nil, err
	}
	if encName != "utf-8" {
		l.logger.Printf("loader: %s decoded as %s", filepath.Base(path), encName)
	}

	return l.parse(filepath.Base(path), strings.NewReader(text), year)
}

// iso2022Escapes switch an ISO-2022-JP stream into JIS X 0208 or JIS X 0201
// Roman. Such a stream is plain 7-bit ASCII, so it also passes as UTF-8.
var iso2022Escapes = [][]byte{[]byte("\x1b$B"), []byte("\x1b$@"), []byte("\x1b(J")}

func decodeQuestionFile(raw []byte) (string, string, error) {
	candidates := candidateEncodings
	if looksLikeISO2022JP(raw) {
		candidates = append([]candidateEncoding{iso2022JP}, candidateEncodings...)
	}

	for _, candidate := range candidates {
		decoded, err := candidate.enc.NewDecoder().Bytes(raw)
		if err != nil {
			continue
		}
		if bytes.ContainsRune(decoded, utf8.RuneError) || !utf8.Valid(decoded) {
			continue
		}
		// A leftover escape means the stream was not really this encoding.
		if bytes.IndexByte(decoded, 0x1b) >= 0 {
			continue
		}
		return string(decoded), candidate.name, nil
	}
	return "", "", ErrUndecodable
}

func looksLikeISO2022JP(raw []byte) bool {
	for _, esc := range iso2022Escapes {
		if bytes.Contains(raw, esc) {
			return true
		}
	}
	return false
}

func (l *Loader) parse(name string, r io.Reader, year int) ([]Question, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			l.logger.Printf("loader: warning: %s is empty", name)
			return nil, nil
		}
		return nil, fmt.Errorf("header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for idx, column := range header {
		columns[strings.ToLower(strings.TrimSpace(column))] = idx
	}
	for _, column := range requiredColumns {
		if _, ok := columns[column]; !ok {
			return nil, fmt.Errorf("missing column %q", column)
		}
	}
	if _, ok := columns["category"]; !ok && year != 0 {
		return nil, errors.New(`missing column "category"`)
	}

	basic := l.departments.Basic()
	seen := make(map[int]bool)
	var questions []Question
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			l.logger.Printf("loader: %s line %d: skipped: %v", name, line, err)
			continue
		}
		if isBlank(record) {
			continue
		}

		question, err := l.buildQuestion(columns, record, year, basic)
		if err != nil {
			l.logger.Printf("loader: %s line %d: skipped: %v", name, line, err)
			continue
		}
		if seen[question.ID] {
			l.logger.Printf("loader: %s line %d: skipped: duplicate id %d", name, line, question.ID)
			continue
		}
		seen[question.ID] = true
		questions = append(questions, question)
	}
	return questions, nil
}

func (l *Loader) buildQuestion(columns map[string]int, record []string, year int, basic catalog.Department) (Question, error) {
	field := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	id, err := strconv.Atoi(field("id"))
	if err != nil || id <= 0 {
		return Question{}, fmt.Errorf("invalid id %q", field("id"))
	}

	text := field("question")
	if text == "" {
		return Question{}, errors.New("question text is empty")
	}

	options := make([]Option, 0, len(answerLetters))
	for _, letter := range answerLetters {
		value := field("option_" + strings.ToLower(letter))
		if value == "" {
			return Question{}, fmt.Errorf("option %s is empty", letter)
		}
		options = append(options, Option{Letter: letter, Text: value})
	}

	correct := NormalizeLetter(field("correct_answer"))
	if correct == "" {
		return Question{}, fmt.Errorf("invalid correct_answer %q", field("correct_answer"))
	}

	category := basic.Name
	if year != 0 {
		raw := field("category")
		if raw == "" {
			return Question{}, errors.New("category is empty")
		}
		normalized, ok := l.departments.NormalizeCategory(raw)
		if !ok {
			return Question{}, fmt.Errorf("unknown category %q", raw)
		}
		category = normalized
	}

	question := Question{
		ID:            id,
		Category:      category,
		Year:          year,
		Text:          text,
		Options:       options,
		CorrectAnswer: correct,
		Explanation:   field("explanation"),
		Reference:     field("reference"),
		Difficulty:    field("difficulty"),
	}
	if keywords := field("keywords"); keywords != "" {
		for _, keyword := range strings.FieldsFunc(keywords, isKeywordSeparator) {
			if keyword = strings.TrimSpace(keyword); keyword != "" {
				question.Keywords = append(question.Keywords, keyword)
			}
		}
	}
	return question, nil
}

func isKeywordSeparator(r rune) bool {
	return r == ',' || r == ';' || r == '、' || r == '|'
}

func isBlank(record []string) bool {
	for _, value := range record {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}
