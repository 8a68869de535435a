package session

import (
	"net/url"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// State is the in-progress attempt of one user at one survey.
//
// It is stored as a flat object:
//
//	{"end_date": 1700000000, "remaining": 42.5, "question_3": "text", "question_4": ["a", "b"], ...}
type State struct {
	// EndDate is the deadline of the attempt, in epoch seconds.
	EndDate float64
	// Remaining is max(0, EndDate-now) as of the last touch, in seconds.
	Remaining float64
	// Values holds the cleaned field values collected across steps.
	Values url.Values
	// Prev is a one-shot redirect target for "previous" on the first step.
	Prev    string
	Attempt string
}

const questionPrefix = "question_"

func (s *State) TimedOut() bool {
	return s.Remaining <= 0
}

// Merge copies values over the state, leaving untouched fields as they were.
func (s *State) Merge(values url.Values) {
	if s.Values == nil {
		s.Values = url.Values{}
	}
	for name, v := range values {
		s.Values[name] = append([]string(nil), v...)
	}
}

func (s State) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(s.Values)+4)
	for name, v := range s.Values {
		if len(v) == 1 {
			flat[name] = v[0]
		} else {
			flat[name] = v
		}
	}
	flat["end_date"] = s.EndDate
	flat["remaining"] = s.Remaining
	if s.Prev != "" {
		flat["prev"] = s.Prev
	}
	if s.Attempt != "" {
		flat["attempt"] = s.Attempt
	}
	return json.Marshal(flat)
}

func (s *State) UnmarshalJSON(data []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}

	*s = State{Values: url.Values{}}
	for key, raw := range flat {
		var err error
		switch {
		case key == "end_date":
			err = json.Unmarshal(raw, &s.EndDate)
		case key == "remaining":
			err = json.Unmarshal(raw, &s.Remaining)
		case key == "prev":
			err = json.Unmarshal(raw, &s.Prev)
		case key == "attempt":
			err = json.Unmarshal(raw, &s.Attempt)
		case strings.HasPrefix(key, questionPrefix):
			s.Values[key], err = decodeValue(raw)
		}
		if err != nil {
			return errors.Wrapf(err, "session key %s", key)
		}
	}
	return nil
}

func decodeValue(raw json.RawMessage) ([]string, error) {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, err
	}
	return []string{single}, nil
}
