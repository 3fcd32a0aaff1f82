package templates

import (
	"errors"
	"testing"

	"quizforge-service/internal/domain"
)

func TestDefaultCatalogLoads(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if len(c.Categories()) != 6 {
		t.Fatalf("expected 6 categories, got %d", len(c.Categories()))
	}
	if len(c.List(Filter{})) != 12 {
		t.Fatalf("expected 12 templates, got %d", len(c.List(Filter{})))
	}
}

func TestInstantiateRoundTrip(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	for _, tpl := range c.List(Filter{}) {
		quiz, err := c.Instantiate(tpl.ID)
		if err != nil {
			t.Fatalf("instantiate %d: %v", tpl.ID, err)
		}
		if quiz.Status != domain.StatusDraft || quiz.IsTemplate {
			t.Fatalf("template %d: expected non-template draft, got %s/%v", tpl.ID, quiz.Status, quiz.IsTemplate)
		}
		if len(quiz.Questions) != len(tpl.Questions) {
			t.Fatalf("template %d: expected %d questions, got %d", tpl.ID, len(tpl.Questions), len(quiz.Questions))
		}
		seen := map[string]bool{}
		for i, q := range quiz.Questions {
			want := tpl.Questions[i].Options[tpl.Questions[i].CorrectAnswer]
			if q.CorrectAnswer != want {
				t.Fatalf("template %d question %d: expected answer %q, got %q", tpl.ID, i, want, q.CorrectAnswer)
			}
			if q.Points != 1 {
				t.Fatalf("expected 1 point, got %d", q.Points)
			}
			if q.ID == "" || seen[q.ID] {
				t.Fatalf("expected unique question ids, got %q", q.ID)
			}
			seen[q.ID] = true
		}
		if failures := domain.ValidateQuiz(quiz); len(failures) != 0 {
			t.Fatalf("template %d: expected publishable draft, got %v", tpl.ID, failures)
		}
	}
}

func TestInstantiateUnknownTemplate(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if _, err := c.Instantiate(999); !errors.Is(err, domain.ErrInvalidTemplateReference) {
		t.Fatalf("expected ErrInvalidTemplateReference, got %v", err)
	}
}

func TestInstantiateDoesNotShareTemplateSlices(t *testing.T) {
	tpl := domain.Template{
		ID:    1,
		Title: "Truths",
		Tags:  []string{"Logic"},
		Questions: []domain.TemplateQuestion{
			{Question: "The sky is blue", Options: []string{"True", "False"}, CorrectAnswer: 0},
		},
	}
	quiz := Instantiate(tpl)
	quiz.Tags[0] = "changed"
	quiz.Questions[0].Options[0] = "changed"
	if tpl.Tags[0] != "Logic" || tpl.Questions[0].Options[0] != "True" {
		t.Fatalf("template mutated through instantiated quiz")
	}
	if quiz.Questions[0].Type != domain.TrueFalse {
		t.Fatalf("expected true-false type, got %s", quiz.Questions[0].Type)
	}
}

func TestListFilters(t *testing.T) {
	c, err := Load([]byte(`
categories:
  - {id: science, name: Science, color: "#000"}
templates:
  - {id: 1, title: Physics Basics, description: Forces, category: science, questions: []}
  - {id: 2, title: Marketing, description: Funnels and physics of growth, category: business, featured: true, questions: []}
  - {id: 3, title: History, description: Wars, category: general, questions: []}
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got := c.List(Filter{Query: "PHYSICS"})
	if len(got) != 2 || got[0].ID != 2 || got[1].ID != 1 {
		t.Fatalf("expected featured template 2 then 1, got %+v", got)
	}
	got = c.List(Filter{Category: "science"})
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("expected template 1 only, got %+v", got)
	}
}

func TestLoadRejectsBadIndex(t *testing.T) {
	_, err := Load([]byte(`
templates:
  - id: 1
    title: Broken
    questions:
      - {question: Q, options: [a, b], correctAnswer: 2}
`))
	if err == nil {
		t.Fatalf("expected error for out-of-range answer index")
	}
}
