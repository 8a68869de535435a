package model

import (
	"fmt"
	"strings"
)

// NewAnswer builds an answer to q, refusing bodies that are not among the
// question's choices when its type requires one.
func NewAnswer(q Question, body string) (Answer, error) {
	if err := CheckAnswerBody(q, body); err != nil {
		return Answer{}, err
	}
	return Answer{QuestionID: q.ID, Body: body}, nil
}

func CheckAnswerBody(q Question, body string) error {
	var values []string
	switch q.Type {
	case QuestionText:
		return nil
	case QuestionRadio:
		values = []string{body}
	case QuestionSelect:
		values = DecodeList(body)
	default:
		return &ValidationError{Field: "type", Msg: "unknown question type " + string(q.Type)}
	}

	field := fmt.Sprintf("question_%d", q.ID)
	choices := q.CleanChoices()
	if len(values) == 0 {
		return &ValidationError{Field: field, Msg: "answer must select at least one of " + strings.Join(choices, ", ")}
	}
	for _, v := range values {
		if !contains(choices, v) {
			return &ValidationError{Field: field, Msg: fmt.Sprintf("answer %q should be in %q", v, choices)}
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
