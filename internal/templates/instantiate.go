package templates

import "quizforge-service/internal/domain"

// Instantiate converts a template into an unsaved draft. Positional answers become
// option values and every question gets a fresh id.
func Instantiate(t domain.Template) domain.Quiz {
	questions := make([]domain.Question, len(t.Questions))
	for i, tq := range t.Questions {
		options := append([]string(nil), tq.Options...)
		answer := ""
		if tq.CorrectAnswer >= 0 && tq.CorrectAnswer < len(options) {
			answer = options[tq.CorrectAnswer]
		}
		questions[i] = domain.Question{
			ID:            domain.NewID(),
			Text:          tq.Question,
			Type:          questionType(options),
			Options:       options,
			CorrectAnswer: answer,
			Points:        1,
		}
	}
	return domain.Quiz{
		Title:       t.Title,
		Description: t.Description,
		Tags:        append([]string{}, t.Tags...),
		Questions:   questions,
		Status:      domain.StatusDraft,
		IsTemplate:  false,
		Settings:    domain.DefaultSettings(),
		Theme:       domain.DefaultTheme(),
	}
}

func questionType(options []string) domain.QuestionType {
	if len(options) == 2 && options[0] == domain.TrueFalseOptions[0] && options[1] == domain.TrueFalseOptions[1] {
		return domain.TrueFalse
	}
	return domain.MultipleChoice
}
