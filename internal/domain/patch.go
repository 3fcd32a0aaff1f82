package domain

import "time"

// QuizPatch is a partial update. Nil fields are left untouched.
type QuizPatch struct {
	Title        *string
	Description  *string
	Tags         *[]string
	Questions    *[]Question
	Status       *Status
	Featured     *bool
	IsTemplate   *bool
	Settings     *Settings
	Theme        *Theme
	LastModified time.Time
}

// Apply merges p into q and stamps LastModified.
func (p QuizPatch) Apply(q *Quiz) {
	if p.Title != nil {
		q.Title = *p.Title
	}
	if p.Description != nil {
		q.Description = *p.Description
	}
	if p.Tags != nil {
		q.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.Questions != nil {
		questions := make([]Question, len(*p.Questions))
		for i, question := range *p.Questions {
			questions[i] = question.Clone()
		}
		q.Questions = questions
	}
	if p.Status != nil {
		q.Status = *p.Status
	}
	if p.Featured != nil {
		q.Featured = *p.Featured
	}
	if p.IsTemplate != nil {
		q.IsTemplate = *p.IsTemplate
	}
	if p.Settings != nil {
		q.Settings = *p.Settings
	}
	if p.Theme != nil {
		q.Theme = *p.Theme
	}
	if p.LastModified.IsZero() {
		p.LastModified = time.Now()
	}
	q.LastModified = p.LastModified
}

// FullPatch builds a patch that overwrites every authored field of q. The dashboard flags
// Featured and IsTemplate are not authored and stay as stored.
func FullPatch(q Quiz, at time.Time) QuizPatch {
	title, description, status := q.Title, q.Description, q.Status
	tags := append([]string(nil), q.Tags...)
	questions := q.Clone().Questions
	settings, theme := q.Settings, q.Theme
	return QuizPatch{
		Title:        &title,
		Description:  &description,
		Tags:         &tags,
		Questions:    &questions,
		Status:       &status,
		Settings:     &settings,
		Theme:        &theme,
		LastModified: at,
	}
}
