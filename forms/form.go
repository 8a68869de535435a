// Package forms assembles the per-step input form of a survey response,
// validates submitted values and saves them as a response.
package forms

import (
	"context"
	"fmt"
	"net/url"

	"github.com/hashicorp/go-multierror"
	"github.com/mbolis/timed-survey/model"
	"github.com/pkg/errors"
)

var ErrUnbound = errors.New("form has no data")

type Options struct {
	UserID int
	// Step selects the single question to show; nil shows them all.
	Step *int
	// Data is the submitted payload, nil for an unbound form.
	Data url.Values
	// Session holds the values collected by earlier steps of the attempt.
	Session url.Values
	// Existing is the response the user already gave, if any.
	Existing *model.Response
	// Partial accepts missing fields instead of requiring every one.
	Partial bool
}

type Form struct {
	Survey     model.Survey `json:"-"`
	UserID     int          `json:"-"`
	Step       *int         `json:"step,omitempty"`
	StepsCount int          `json:"steps_count"`
	Fields     []*Field     `json:"fields"`

	data     url.Values
	session  url.Values
	existing *model.Response
	partial  bool

	validated bool
	cleaned   url.Values
	errs      *multierror.Error
}

// New builds the form of survey for one user. Initial values come, in order
// of precedence, from the submitted data, from the user's existing response,
// then from the session.
func New(survey model.Survey, opts Options) *Form {
	f := &Form{
		Survey:     survey,
		UserID:     opts.UserID,
		Step:       opts.Step,
		StepsCount: len(survey.Questions),
		Fields:     []*Field{},
		data:       opts.Data,
		session:    opts.Session,
		existing:   opts.Existing,
		partial:    opts.Partial,
	}

	for i, q := range survey.Questions {
		if f.Step != nil && i != *f.Step {
			continue
		}
		field := newField(q)
		field.Initial = f.initial(field)
		field.Disabled = f.existing != nil
		f.Fields = append(f.Fields, field)
	}
	return f
}

func (f *Form) initial(field *Field) []string {
	if f.data != nil {
		return f.data[field.Name]
	}
	if f.existing != nil {
		if answer, ok := f.existing.Answer(field.QuestionID()); ok {
			return field.initialFromBody(answer.Body)
		}
	}
	if v, ok := f.session[field.Name]; ok {
		return v
	}
	return nil
}

func (f *Form) Bound() bool {
	return f.data != nil
}

// Valid cleans the submitted data, attaching errors to the failing fields.
func (f *Form) Valid() bool {
	if !f.Bound() {
		return false
	}
	if f.validated {
		return f.errs == nil
	}
	f.validated = true

	f.cleaned = url.Values{}
	for _, field := range f.Fields {
		field.Errors = nil
		values, present := f.data[field.Name]
		if f.partial && !present {
			continue
		}

		cleaned, msg := field.kind.clean(field, values)
		if msg != "" {
			field.Errors = append(field.Errors, msg)
			f.errs = multierror.Append(f.errs, &model.ValidationError{Field: field.Name, Msg: msg})
			continue
		}
		f.cleaned[field.Name] = cleaned
	}
	return f.errs == nil
}

// Err returns the validation errors of every failing field.
func (f *Form) Err() error {
	if !f.Bound() {
		return ErrUnbound
	}
	f.Valid()
	return f.errs.ErrorOrNil()
}

// Cleaned returns the validated values, keyed by field name.
func (f *Form) Cleaned() url.Values {
	if !f.Valid() {
		return nil
	}
	return f.cleaned
}

func (f *Form) HasPrevStep() bool {
	return f.Step != nil && *f.Step > 0
}

func (f *Form) HasNextStep() bool {
	return f.Step != nil && *f.Step < f.StepsCount-1
}

func (f *Form) PrevStepURL() string {
	if !f.HasPrevStep() {
		return ""
	}
	return StepURL(f.Survey.ID, *f.Step-1)
}

func (f *Form) NextStepURL() string {
	if !f.HasNextStep() {
		return ""
	}
	return StepURL(f.Survey.ID, *f.Step+1)
}

func (f *Form) CurrentStepURL() string {
	if f.Step == nil {
		return SurveyURL(f.Survey.ID)
	}
	return StepURL(f.Survey.ID, *f.Step)
}

func StepURL(surveyID, step int) string {
	return fmt.Sprintf("/%d-%d/", surveyID, step)
}

func SurveyURL(surveyID int) string {
	return fmt.Sprintf("/survey/%d/", surveyID)
}

type Saver interface {
	SaveResponse(ctx context.Context, surveyID, userID int, bodies map[int]string) (model.Response, error)
}

// Save stores the cleaned values as the user's response to the survey,
// creating it or updating the one that exists.
func (f *Form) Save(ctx context.Context, saver Saver) (model.Response, error) {
	if !f.Valid() {
		return model.Response{}, f.Err()
	}

	bodies := make(map[int]string, len(f.cleaned))
	for _, field := range f.Fields {
		values, ok := f.cleaned[field.Name]
		if !ok {
			continue
		}
		bodies[field.QuestionID()] = field.body(values)
	}
	return saver.SaveResponse(ctx, f.Survey.ID, f.UserID, bodies)
}
