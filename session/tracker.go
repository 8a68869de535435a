// Package session tracks in-progress survey attempts in a badger key-value
// store, outside of the survey database.
package session

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gofrs/uuid"
	"github.com/goccy/go-json"
	"github.com/mbolis/timed-survey/log"
	"github.com/mbolis/timed-survey/model"
	"github.com/pkg/errors"
)

// Grace keeps an attempt around after its deadline, so that a late step or
// timeout call can still finalize it. After that the entry expires.
const Grace = 24 * time.Hour

// Open opens the badger store in dir, or an in-memory one if dir is empty.
func Open(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(log.Logger)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	kv, err := badger.Open(opts)
	return kv, errors.Wrap(err, "open session store")
}

func Key(userID, surveyID int) string {
	return fmt.Sprintf("survey_%d_%d", userID, surveyID)
}

type Tracker struct {
	kv  *badger.DB
	Now func() time.Time
}

func NewTracker(kv *badger.DB) *Tracker {
	return &Tracker{kv: kv, Now: time.Now}
}

// Touch loads the attempt of userID at survey, starting it if needed, and
// refreshes its remaining time.
func (t *Tracker) Touch(ctx context.Context, userID int, survey model.Survey) (*State, error) {
	key := Key(userID, survey.ID)
	state, err := t.load(key)
	if err != nil {
		return nil, err
	}

	if state == nil {
		attempt, err := uuid.NewV4()
		if err != nil {
			return nil, errors.Wrap(err, "new attempt id")
		}
		end := t.Now().Add(time.Duration(survey.Duration) * time.Minute)
		state = &State{
			EndDate: epoch(end),
			Values:  url.Values{},
			Attempt: attempt.String(),
		}
		log.WithFields(log.Fields{
			"user_id":   userID,
			"survey_id": survey.ID,
			"attempt":   state.Attempt,
		}).Info("session: attempt started")
	}

	t.refresh(state)
	return state, t.save(key, state)
}

// Peek loads the attempt without starting one. The returned state has its
// remaining time refreshed but is not written back.
func (t *Tracker) Peek(ctx context.Context, userID, surveyID int) (*State, error) {
	state, err := t.load(Key(userID, surveyID))
	if err != nil || state == nil {
		return nil, err
	}
	t.refresh(state)
	return state, nil
}

// Save writes back a state obtained from Touch or Peek.
func (t *Tracker) Save(ctx context.Context, userID, surveyID int, state *State) error {
	t.refresh(state)
	return t.save(Key(userID, surveyID), state)
}

// Merge adds step values to an existing attempt.
func (t *Tracker) Merge(ctx context.Context, userID, surveyID int, values url.Values) (*State, error) {
	key := Key(userID, surveyID)
	state, err := t.load(key)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, errors.Errorf("session %s: no attempt in progress", key)
	}

	state.Merge(values)
	t.refresh(state)
	return state, t.save(key, state)
}

// Clear tears the attempt down.
func (t *Tracker) Clear(ctx context.Context, userID, surveyID int) error {
	key := Key(userID, surveyID)
	err := t.kv.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	return errors.Wrapf(err, "session %s: delete", key)
}

func (t *Tracker) refresh(state *State) {
	state.Remaining = math.Max(0, state.EndDate-epoch(t.Now()))
}

func (t *Tracker) load(key string) (*State, error) {
	var state *State
	err := t.kv.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			state = &State{}
			return json.Unmarshal(val, state)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	return state, errors.Wrapf(err, "session %s: load", key)
}

func (t *Tracker) save(key string, state *State) error {
	val, err := json.Marshal(state)
	if err != nil {
		return errors.Wrapf(err, "session %s: encode", key)
	}

	ttl := time.Duration(state.Remaining*float64(time.Second)) + Grace
	err = t.kv.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), val).WithTTL(ttl))
	})
	return errors.Wrapf(err, "session %s: save", key)
}

func epoch(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
