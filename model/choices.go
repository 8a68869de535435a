package model

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Choice is a selectable option: Slug is submitted by clients, Label is what
// gets stored in answers.
type Choice struct {
	Slug  string `json:"slug"`
	Label string `json:"label"`
}

// CleanChoices splits a comma-separated choices string into trimmed,
// non-empty options.
func CleanChoices(choices string) []string {
	clean := []string{}
	for _, choice := range strings.Split(choices, ",") {
		choice = strings.TrimSpace(choice)
		if choice != "" {
			clean = append(clean, choice)
		}
	}
	return clean
}

// ValidateChoices requires at least two options, each with a distinct,
// non-empty slug so that every option can be submitted.
func ValidateChoices(choices string) error {
	clean := CleanChoices(choices)
	if len(clean) < 2 {
		return &ValidationError{Field: "choices", Msg: "choices must contain more than one item"}
	}
	seen := make(map[string]string, len(clean))
	for _, label := range clean {
		slug := Slugify(label)
		if slug == "" {
			return &ValidationError{Field: "choices", Msg: fmt.Sprintf("choice %q has no letters or digits", label)}
		}
		if other, ok := seen[slug]; ok {
			return &ValidationError{Field: "choices", Msg: fmt.Sprintf("choices %q and %q are indistinguishable", other, label)}
		}
		seen[slug] = label
	}
	return nil
}

func (q Question) CleanChoices() []string {
	if !q.Type.HasChoices() {
		return []string{}
	}
	return CleanChoices(q.Choices)
}

func (q Question) ChoiceList() []Choice {
	clean := q.CleanChoices()
	choices := make([]Choice, 0, len(clean))
	for _, label := range clean {
		choices = append(choices, Choice{Slug: Slugify(label), Label: label})
	}
	return choices
}

// LabelFor maps a submitted slug back to its choice label.
func (q Question) LabelFor(slug string) (string, bool) {
	for _, c := range q.ChoiceList() {
		if c.Slug == slug {
			return c.Label, true
		}
	}
	return "", false
}

var (
	reSlugStrip    = regexp.MustCompile(`[^\p{L}\p{N}_\s-]+`)
	reSlugCollapse = regexp.MustCompile(`[-\s]+`)
)

// Slugify turns a label into a stable, URL-safe value. Unlike most slug
// helpers it keeps the original letter case and unicode letters.
func Slugify(value string) string {
	value = norm.NFKC.String(value)
	value = reSlugStrip.ReplaceAllLiteralString(value, "")
	value = strings.TrimSpace(value)
	value = reSlugCollapse.ReplaceAllLiteralString(value, "-")
	return strings.Trim(value, "-_")
}
