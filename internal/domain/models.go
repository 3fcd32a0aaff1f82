package domain

import (
	"time"

	"github.com/google/uuid"
)

// QuestionType selects how a question is answered.
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple-choice"
	TrueFalse      QuestionType = "true-false"
	ShortAnswer    QuestionType = "short-answer"
)

// Valid reports whether t is one of the supported question types.
func (t QuestionType) Valid() bool {
	switch t {
	case MultipleChoice, TrueFalse, ShortAnswer:
		return true
	}
	return false
}

// HasOptions reports whether answers are picked from a fixed option list.
func (t QuestionType) HasOptions() bool {
	return t == MultipleChoice || t == TrueFalse
}

// TrueFalseOptions is the fixed option pair of a true-false question.
var TrueFalseOptions = []string{"True", "False"}

// Status is the publication state of a quiz.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Question is a single authored quiz question. CorrectAnswer holds the answer value,
// not an option index.
type Question struct {
	ID            string       `json:"id" bson:"id"`
	Text          string       `json:"text" bson:"text"`
	Type          QuestionType `json:"type" bson:"type"`
	Options       []string     `json:"options,omitempty" bson:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer" bson:"correctAnswer"`
	Points        int          `json:"points" bson:"points"`
}

// Settings control how a quiz is taken.
type Settings struct {
	TimeLimitSeconds int  `json:"timeLimit" bson:"timeLimit"` // 0 means no limit
	ShuffleQuestions bool `json:"shuffleQuestions" bson:"shuffleQuestions"`
	ShowResults      bool `json:"showResults" bson:"showResults"`
}

// DefaultSettings mirrors what a freshly created quiz gets.
func DefaultSettings() Settings {
	return Settings{ShowResults: true}
}

// Theme is presentation data stored alongside a quiz.
type Theme struct {
	PrimaryColor   string `json:"primaryColor" bson:"primaryColor"`
	SecondaryColor string `json:"secondaryColor" bson:"secondaryColor"`
	FontFamily     string `json:"fontFamily" bson:"fontFamily"`
}

// DefaultTheme is applied to new drafts.
func DefaultTheme() Theme {
	return Theme{PrimaryColor: "#000000", SecondaryColor: "#ffffff", FontFamily: "Inter"}
}

// Quiz is the persisted quiz document.
type Quiz struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Tags         []string   `json:"tags"`
	Questions    []Question `json:"questions"`
	Status       Status     `json:"status"`
	Featured     bool       `json:"featured"`
	IsTemplate   bool       `json:"isTemplate"`
	OwnerID      string     `json:"userId"`
	Settings     Settings   `json:"settings"`
	Theme        Theme      `json:"theme"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastModified time.Time  `json:"lastModified"`
}

// Question returns the question with the given id.
func (q Quiz) Question(id string) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}

// Clone returns a deep copy so callers can mutate slices freely.
func (q Quiz) Clone() Quiz {
	out := q
	out.Tags = append([]string(nil), q.Tags...)
	out.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		out.Questions[i] = question.Clone()
	}
	return out
}

// Clone returns a deep copy of the question.
func (q Question) Clone() Question {
	out := q
	if q.Options != nil {
		out.Options = append([]string(nil), q.Options...)
	}
	return out
}

// Category groups templates in the catalog.
type Category struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color" yaml:"color"`
}

// TemplateQuestion uses a positional correct answer: an index into Options.
type TemplateQuestion struct {
	Question      string   `json:"question" yaml:"question"`
	Options       []string `json:"options" yaml:"options"`
	CorrectAnswer int      `json:"correctAnswer" yaml:"correctAnswer"`
	Explanation   string   `json:"explanation" yaml:"explanation"`
}

// Template is read-only seed content used to pre-populate a draft.
type Template struct {
	ID              int                `json:"id" yaml:"id"`
	Title           string             `json:"title" yaml:"title"`
	Description     string             `json:"description" yaml:"description"`
	FullDescription string             `json:"fullDescription" yaml:"fullDescription"`
	Category        string             `json:"category" yaml:"category"`
	Tags            []string           `json:"tags" yaml:"tags"`
	QuestionCount   int                `json:"questionCount" yaml:"questionCount"`
	EstimatedTime   int                `json:"estimatedTime" yaml:"estimatedTime"`
	Difficulty      string             `json:"difficulty" yaml:"difficulty"`
	Featured        bool               `json:"featured" yaml:"featured"`
	SuitableFor     []string           `json:"suitableFor" yaml:"suitableFor"`
	Questions       []TemplateQuestion `json:"questions" yaml:"questions"`
}

// Identity is the authenticated caller. An empty UID means no user is signed in.
type Identity struct {
	UID         string
	DisplayName string
}

// Anonymous reports whether no user is resolved.
func (i Identity) Anonymous() bool {
	return i.UID == ""
}

// NewID generates identifiers for quizzes, questions and attempts.
var NewID = func() string {
	return uuid.NewString()
}
