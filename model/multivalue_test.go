package model

import (
	"reflect"
	"testing"
)

func TestListRoundTrip(t *testing.T) {
	tests := [][]string{
		{},
		{"a"},
		{"Red", "Light Blue"},
		{"a, b", "c"},
		{"it's", `say "hi"`, `back\slash`},
		{"[bracketed]", "ünïcödé"},
	}
	for _, values := range tests {
		encoded := EncodeList(values)
		got := DecodeList(encoded)
		if !reflect.DeepEqual(got, values) {
			t.Errorf("DecodeList(EncodeList(%q)) = %q (encoded %s)", values, got, encoded)
		}
	}
}

func TestDecodeList(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"empty", "", []string{}},
		{"empty list", "[]", []string{}},
		{"scalar", "Red", []string{"Red"}},
		{"json", `["Red","Blue"]`, []string{"Red", "Blue"}},
		{"single quoted", "['Red', 'Light Blue']", []string{"Red", "Light Blue"}},
		{"mixed quotes", `["it's", 'plain']`, []string{"it's", "plain"}},
		{"escaped quote", `['it\'s', 'x']`, []string{"it's", "x"}},
		{"comma inside quotes", "['a, b', 'c']", []string{"a, b", "c"}},
		{"unquoted", "[a, b ,c]", []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeList(tt.body); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DecodeList(%q) = %q, want %q", tt.body, got, tt.want)
			}
		})
	}
}

func TestNewAnswer(t *testing.T) {
	radio := Question{ID: 1, Text: "Pick", Type: QuestionRadio, Choices: "yes, no"}
	multi := Question{ID: 2, Text: "Pick many", Type: QuestionSelect, Choices: "red, green, blue"}
	text := Question{ID: 3, Text: "Say", Type: QuestionText}

	tests := []struct {
		name  string
		q     Question
		body  string
		valid bool
	}{
		{"radio in choices", radio, "yes", true},
		{"radio not in choices", radio, "maybe", false},
		{"radio slug is not a label", radio, "Yes", false},
		{"radio empty", radio, "", false},
		{"select encoded", multi, EncodeList([]string{"red", "blue"}), true},
		{"select legacy", multi, "['green']", true},
		{"select scalar", multi, "green", true},
		{"select one bad item", multi, EncodeList([]string{"red", "pink"}), false},
		{"select empty", multi, "[]", false},
		{"text anything", text, "whatever, really", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAnswer(tt.q, tt.body)
			if tt.valid {
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
				if a.QuestionID != tt.q.ID || a.Body != tt.body {
					t.Errorf("Unexpected answer %+v", a)
				}
				return
			}
			if !IsValidation(err) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}
}
