// Package catalog holds the department definitions and the mapping from
// department to the category label used in the question files.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type QuestionType string

const (
	TypeBasic      QuestionType = "basic"
	TypeSpecialist QuestionType = "specialist"
)

type Department struct {
	ID          string       `yaml:"id" json:"id"`
	Name        string       `yaml:"name" json:"name"`
	Type        QuestionType `yaml:"type" json:"type"`
	FullName    string       `yaml:"full_name" json:"full_name"`
	Description string       `yaml:"description" json:"description"`
	Icon        string       `yaml:"icon" json:"icon"`
	Aliases     []string     `yaml:"aliases" json:"-"`
}

func (d Department) IsBasic() bool {
	return d.Type == TypeBasic
}

type yearRange struct {
	From int `yaml:"from"`
	To   int `yaml:"to"`
}

type catalogFile struct {
	Years       yearRange    `yaml:"years"`
	Departments []Department `yaml:"departments"`
}

// Catalog is immutable after Load and safe for concurrent use.
type Catalog struct {
	departments []Department
	basic       int
	byKey       map[string]int
	years       []int
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded catalog is invalid: %v", err))
	}
	return c
}

// LoadFile reads a catalog from path, falling back to the embedded one when
// path is empty.
func LoadFile(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Parse(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	if file.Years.From <= 0 || file.Years.To < file.Years.From {
		return nil, fmt.Errorf("catalog: invalid year range %d-%d", file.Years.From, file.Years.To)
	}
	if len(file.Departments) == 0 {
		return nil, errors.New("catalog: no departments")
	}

	c := &Catalog{
		departments: make([]Department, 0, len(file.Departments)),
		basic:       -1,
		byKey:       make(map[string]int),
	}
	for year := file.Years.From; year <= file.Years.To; year++ {
		c.years = append(c.years, year)
	}

	for _, dept := range file.Departments {
		dept.ID = strings.TrimSpace(dept.ID)
		dept.Name = strings.TrimSpace(dept.Name)
		if dept.ID == "" || dept.Name == "" {
			return nil, errors.New("catalog: department id and name are required")
		}
		switch dept.Type {
		case TypeBasic:
			if c.basic >= 0 {
				return nil, fmt.Errorf("catalog: more than one basic department (%s)", dept.ID)
			}
			c.basic = len(c.departments)
		case TypeSpecialist:
		default:
			return nil, fmt.Errorf("catalog: department %s has unknown type %q", dept.ID, dept.Type)
		}

		idx := len(c.departments)
		keys := append([]string{dept.ID, dept.Name}, dept.Aliases...)
		for _, key := range keys {
			norm := normalizeKey(key)
			if norm == "" {
				continue
			}
			if existing, ok := c.byKey[norm]; ok && existing != idx {
				return nil, fmt.Errorf("catalog: key %q maps to both %s and %s", key, c.departments[existing].ID, dept.ID)
			}
			c.byKey[norm] = idx
		}
		c.departments = append(c.departments, dept)
	}
	if c.basic < 0 {
		return nil, errors.New("catalog: basic department is missing")
	}
	return c, nil
}

// Departments returns every department, basic first when declared first.
func (c *Catalog) Departments() []Department {
	out := make([]Department, len(c.departments))
	copy(out, c.departments)
	return out
}

func (c *Catalog) Specialists() []Department {
	out := make([]Department, 0, len(c.departments)-1)
	for _, dept := range c.departments {
		if dept.Type == TypeSpecialist {
			out = append(out, dept)
		}
	}
	return out
}

func (c *Catalog) Basic() Department {
	return c.departments[c.basic]
}

// Lookup resolves a department by id, category label or alias.
func (c *Catalog) Lookup(key string) (Department, bool) {
	idx, ok := c.byKey[normalizeKey(key)]
	if !ok {
		return Department{}, false
	}
	return c.departments[idx], true
}

// ByCategory resolves the department owning a canonical category label.
func (c *Catalog) ByCategory(category string) (Department, bool) {
	for _, dept := range c.departments {
		if dept.Name == category {
			return dept, true
		}
	}
	return Department{}, false
}

// NormalizeCategory maps a category label found in a question file to its
// canonical label.
func (c *Catalog) NormalizeCategory(label string) (string, bool) {
	dept, ok := c.Lookup(label)
	if !ok {
		return "", false
	}
	return dept.Name, true
}

func (c *Catalog) Years() []int {
	out := make([]int, len(c.years))
	copy(out, c.years)
	return out
}

func (c *Catalog) ValidYear(year int) bool {
	return len(c.years) > 0 && year >= c.years[0] && year <= c.years[len(c.years)-1]
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
