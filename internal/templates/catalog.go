// Package templates holds the read-only quiz template catalog and turns templates into drafts.
package templates

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"quizforge-service/internal/domain"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Catalog is immutable after Load returns.
type Catalog struct {
	categories []domain.Category
	templates  []domain.Template
	byID       map[int]int
}

type catalogFile struct {
	Categories []domain.Category `yaml:"categories"`
	Templates  []domain.Template `yaml:"templates"`
}

// Load parses a catalog document and checks every positional answer.
func Load(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse template catalog: %w", err)
	}
	c := &Catalog{
		categories: file.Categories,
		templates:  file.Templates,
		byID:       make(map[int]int, len(file.Templates)),
	}
	for i, t := range file.Templates {
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("template %d: duplicate id", t.ID)
		}
		for j, q := range t.Questions {
			if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
				return nil, fmt.Errorf("template %d question %d: correct answer index %d out of range", t.ID, j, q.CorrectAnswer)
			}
		}
		c.byID[t.ID] = i
	}
	return c, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the embedded catalog, loading it on first use.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Load(catalogYAML)
	})
	return defaultCatalog, defaultErr
}

// Get returns a copy of the template with the given id.
func (c *Catalog) Get(id int) (domain.Template, error) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Template{}, domain.ErrInvalidTemplateReference
	}
	return cloneTemplate(c.templates[i]), nil
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Query    string
	Category string
}

// List returns templates whose title or description contains Query (case-insensitive)
// and whose category matches. Featured templates come first, then by id.
func (c *Catalog) List(f Filter) []domain.Template {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]domain.Template, 0, len(c.templates))
	for _, t := range c.templates {
		if f.Category != "" && f.Category != "all" && t.Category != f.Category {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(t.Title), query) &&
			!strings.Contains(strings.ToLower(t.Description), query) {
			continue
		}
		out = append(out, cloneTemplate(t))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Featured != out[j].Featured {
			return out[i].Featured
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Categories returns the catalog categories in declaration order.
func (c *Catalog) Categories() []domain.Category {
	return append([]domain.Category(nil), c.categories...)
}

// Instantiate resolves id and converts the template into a draft quiz.
func (c *Catalog) Instantiate(id int) (domain.Quiz, error) {
	t, err := c.Get(id)
	if err != nil {
		return domain.Quiz{}, err
	}
	return Instantiate(t), nil
}

func cloneTemplate(t domain.Template) domain.Template {
	out := t
	out.Tags = append([]string(nil), t.Tags...)
	out.SuitableFor = append([]string(nil), t.SuitableFor...)
	out.Questions = make([]domain.TemplateQuestion, len(t.Questions))
	for i, q := range t.Questions {
		q.Options = append([]string(nil), q.Options...)
		out.Questions[i] = q
	}
	return out
}
