package model

import (
	"reflect"
	"testing"
)

func TestCleanChoices(t *testing.T) {
	tests := []struct {
		choices string
		want    []string
	}{
		{"", []string{}},
		{"a", []string{"a"}},
		{"a, b", []string{"a", "b"}},
		{" red ,, blue , ,green,", []string{"red", "blue", "green"}},
		{",,,", []string{}},
	}
	for _, tt := range tests {
		got := CleanChoices(tt.choices)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("CleanChoices(%q) = %q, want %q", tt.choices, got, tt.want)
		}
	}
}

func TestValidateChoices(t *testing.T) {
	tests := []struct {
		choices string
		valid   bool
	}{
		{"", false},
		{"a", false},
		{"a,", false},
		{"a, ,  ", false},
		{"a,b", true},
		{" yes , no , maybe ", true},
		{"+, -", false},
		{"Yes, ?, No", false},
		{"A b, A-b", false},
		{"Yes, Yes!", false},
		{"Yes, yes", true},
		{"Café, Cafe", true},
	}
	for _, tt := range tests {
		err := ValidateChoices(tt.choices)
		if tt.valid && err != nil {
			t.Errorf("ValidateChoices(%q) unexpected error: %v", tt.choices, err)
		}
		if !tt.valid {
			if err == nil {
				t.Errorf("ValidateChoices(%q) expected error", tt.choices)
			} else if !IsValidation(err) {
				t.Errorf("ValidateChoices(%q) expected validation error, got %T", tt.choices, err)
			}
		}
	}
}

func TestQuestionValidate(t *testing.T) {
	tests := []struct {
		name  string
		q     Question
		valid bool
	}{
		{"text without choices", Question{Text: "Name?", Type: QuestionText}, true},
		{"radio single option", Question{Text: "Pick", Type: QuestionRadio, Choices: "a"}, false},
		{"select single option", Question{Text: "Pick", Type: QuestionSelect, Choices: "a, "}, false},
		{"radio two options", Question{Text: "Pick", Type: QuestionRadio, Choices: "a,b"}, true},
		{"unknown type", Question{Text: "Pick", Type: "slider"}, false},
		{"empty text", Question{Text: " ", Type: QuestionText}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate()
			if tt.valid != (err == nil) {
				t.Errorf("Validate() = %v, want valid=%v", err, tt.valid)
			}
		})
	}
}

func TestSurveyValidate(t *testing.T) {
	s := Survey{Title: "T", Duration: 0}
	if err := s.Validate(); err == nil {
		t.Error("Expected error for zero duration")
	}

	s.Duration = 10
	s.Questions = []Question{{Text: "Q", Type: QuestionRadio, Choices: "only"}}
	if err := s.Validate(); err == nil {
		t.Error("Expected error for invalid question")
	}

	s.Questions[0].Choices = "one, two"
	if err := s.Validate(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Light Blue", "Light-Blue"},
		{"  spaced   out  ", "spaced-out"},
		{"C'est déjà l'été", "Cest-déjà-lété"},
		{"a - b", "a-b"},
		{"_x_", "x"},
		{"100% sure!", "100-sure"},
		{"ｆｕｌｌ", "full"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestChoiceList(t *testing.T) {
	q := Question{Type: QuestionSelect, Choices: "Red, Light Blue,,"}
	want := []Choice{{Slug: "Red", Label: "Red"}, {Slug: "Light-Blue", Label: "Light Blue"}}
	if got := q.ChoiceList(); !reflect.DeepEqual(got, want) {
		t.Errorf("ChoiceList() = %v, want %v", got, want)
	}

	label, ok := q.LabelFor("Light-Blue")
	if !ok || label != "Light Blue" {
		t.Errorf("LabelFor(Light-Blue) = %q, %v", label, ok)
	}
	if _, ok := q.LabelFor("green"); ok {
		t.Error("Expected unknown slug to miss")
	}

	text := Question{Type: QuestionText, Choices: "ignored, too"}
	if got := text.ChoiceList(); len(got) != 0 {
		t.Errorf("Expected no choices for text question, got %v", got)
	}
}
