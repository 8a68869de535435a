package forms

import (
	"fmt"
	"strings"

	"github.com/mbolis/timed-survey/model"
)

type Widget string

const (
	WidgetTextarea Widget = "textarea"
	WidgetRadio    Widget = "radio"
	WidgetCheckbox Widget = "checkbox"
)

const (
	msgRequired      = "This field is required."
	msgInvalidChoice = "Select a valid choice. %s is not one of the available choices."
)

// fieldKind is how a question type is rendered and validated.
type fieldKind struct {
	widget   Widget
	multiple bool
	clean    func(f *Field, values []string) ([]string, string)
}

var fieldKinds = map[model.QuestionType]fieldKind{
	model.QuestionText:   {widget: WidgetTextarea, clean: cleanText},
	model.QuestionRadio:  {widget: WidgetRadio, clean: cleanChoice},
	model.QuestionSelect: {widget: WidgetCheckbox, multiple: true, clean: cleanMultipleChoice},
}

type Field struct {
	Name     string             `json:"name"`
	Label    string             `json:"label"`
	Type     model.QuestionType `json:"type"`
	Widget   Widget             `json:"widget"`
	Multiple bool               `json:"multiple"`
	Choices  []model.Choice     `json:"choices,omitempty"`
	Initial  []string           `json:"initial,omitempty"`
	Disabled bool               `json:"disabled,omitempty"`
	Errors   []string           `json:"errors,omitempty"`

	question model.Question
	kind     fieldKind
}

func FieldName(questionID int) string {
	return fmt.Sprintf("question_%d", questionID)
}

func newField(q model.Question) *Field {
	kind, ok := fieldKinds[q.Type]
	if !ok {
		// unknown types are refused on save; render them as single choice
		kind = fieldKinds[model.QuestionRadio]
	}
	f := &Field{
		Name:     FieldName(q.ID),
		Label:    q.Text,
		Type:     q.Type,
		Widget:   kind.widget,
		Multiple: kind.multiple,
		question: q,
		kind:     kind,
	}
	if q.Type.HasChoices() {
		f.Choices = q.ChoiceList()
	}
	return f
}

func (f *Field) QuestionID() int {
	return f.question.ID
}

func (f *Field) hasChoice(slug string) bool {
	for _, c := range f.Choices {
		if c.Slug == slug {
			return true
		}
	}
	return false
}

// body converts cleaned values into what gets stored in the answer.
func (f *Field) body(values []string) string {
	switch f.question.Type {
	case model.QuestionText:
		return values[0]
	case model.QuestionSelect:
		labels := make([]string, 0, len(values))
		for _, slug := range values {
			label, _ := f.question.LabelFor(slug)
			labels = append(labels, label)
		}
		return model.EncodeList(labels)
	default:
		label, _ := f.question.LabelFor(values[0])
		return label
	}
}

// initialFromBody turns a stored answer body back into field values.
func (f *Field) initialFromBody(body string) []string {
	switch f.question.Type {
	case model.QuestionText:
		return []string{body}
	case model.QuestionSelect:
		values := []string{}
		for _, label := range model.DecodeList(body) {
			values = append(values, model.Slugify(label))
		}
		return values
	default:
		return []string{model.Slugify(body)}
	}
}

func cleanText(f *Field, values []string) ([]string, string) {
	v := ""
	if len(values) > 0 {
		v = strings.TrimSpace(values[0])
	}
	if v == "" {
		return nil, msgRequired
	}
	return []string{v}, ""
}

func cleanChoice(f *Field, values []string) ([]string, string) {
	v := ""
	if len(values) > 0 {
		v = values[0]
	}
	if v == "" {
		return nil, msgRequired
	}
	if !f.hasChoice(v) {
		return nil, fmt.Sprintf(msgInvalidChoice, v)
	}
	return []string{v}, ""
}

func cleanMultipleChoice(f *Field, values []string) ([]string, string) {
	cleaned := []string{}
	seen := map[string]bool{}
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		if !f.hasChoice(v) {
			return nil, fmt.Sprintf(msgInvalidChoice, v)
		}
		seen[v] = true
		cleaned = append(cleaned, v)
	}
	if len(cleaned) == 0 {
		return nil, msgRequired
	}
	return cleaned, ""
}
