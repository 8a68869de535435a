package model

import (
	"strings"
	"time"
)

type QuestionType string

const (
	QuestionText   QuestionType = "text"
	QuestionRadio  QuestionType = "radio"
	QuestionSelect QuestionType = "select"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionText, QuestionRadio, QuestionSelect:
		return true
	}
	return false
}

// HasChoices reports whether answers must come from the question's choices.
func (t QuestionType) HasChoices() bool {
	return t == QuestionRadio || t == QuestionSelect
}

type Survey struct {
	ID          int        `json:"id,omitempty"`
	Version     int        `json:"version,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Duration    int        `json:"duration"`
	CreatedBy   int        `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpireDate  *time.Time `json:"expire_date,omitempty"`
	Questions   []Question `json:"questions,omitempty"`
}

func (s Survey) Expired(now time.Time) bool {
	return s.ExpireDate != nil && !now.Before(*s.ExpireDate)
}

func (s Survey) Question(id int) (Question, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Validate checks the survey and every question it carries.
func (s Survey) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return &ValidationError{Field: "title", Msg: "title must not be empty"}
	}
	if s.Duration <= 0 {
		return &ValidationError{Field: "duration", Msg: "duration must be a positive number of minutes"}
	}
	for _, q := range s.Questions {
		if err := q.Validate(); err != nil {
			return err
		}
	}
	return nil
}

type Question struct {
	ID       int          `json:"id,omitempty"`
	SurveyID int          `json:"survey_id,omitempty"`
	Position int          `json:"position"`
	Text     string       `json:"text"`
	Type     QuestionType `json:"type"`
	Choices  string       `json:"choices,omitempty"`
}

func (q Question) Validate() error {
	if !q.Type.Valid() {
		return &ValidationError{Field: "type", Msg: "unknown question type " + string(q.Type)}
	}
	if strings.TrimSpace(q.Text) == "" {
		return &ValidationError{Field: "text", Msg: "question text must not be empty"}
	}
	if q.Type.HasChoices() {
		return ValidateChoices(q.Choices)
	}
	return nil
}

type Response struct {
	ID        int       `json:"id"`
	SurveyID  int       `json:"survey_id"`
	UserID    *int      `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Answers   []Answer  `json:"answers,omitempty"`
}

func (r Response) Answer(questionID int) (Answer, bool) {
	for _, a := range r.Answers {
		if a.QuestionID == questionID {
			return a, true
		}
	}
	return Answer{}, false
}

type Answer struct {
	ID         int       `json:"id,omitempty"`
	QuestionID int       `json:"question_id"`
	ResponseID int       `json:"response_id,omitempty"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Staff    bool   `json:"staff"`
}
