// Package store persists surveys, questions, responses and answers, and
// enforces the catalog invariants on every write.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/mbolis/timed-survey/model"
	"github.com/pkg/errors"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrExpired  = errors.New("expired")
)

type Store struct {
	db  *sql.DB
	Now func() time.Time
}

func New(db *sql.DB) *Store {
	return &Store{db: db, Now: time.Now}
}

func (s *Store) now() time.Time {
	return s.Now().UTC()
}

// CreateSurvey stores survey and its questions, filling in generated ids.
func (s *Store) CreateSurvey(ctx context.Context, survey *model.Survey) error {
	if err := survey.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	survey.CreatedAt = s.now()
	survey.Version = 1
	err = tx.QueryRowContext(ctx, `
		INSERT INTO survey (title, description, duration, created_by, created_at, expire_date)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`,
		survey.Title,
		survey.Description,
		survey.Duration,
		nullableID(survey.CreatedBy),
		survey.CreatedAt,
		utcPtr(survey.ExpireDate),
	).Scan(&survey.ID)
	if err != nil {
		return errors.Wrap(err, "insert survey")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO question (survey_id, position, text, type, choices)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`)
	if err != nil {
		return errors.Wrap(err, "prepare questions")
	}
	defer stmt.Close()

	for i := range survey.Questions {
		q := &survey.Questions[i]
		q.SurveyID = survey.ID
		q.Position = i
		err = stmt.QueryRowContext(ctx, q.SurveyID, q.Position, q.Text, q.Type, nullableString(q.Choices)).Scan(&q.ID)
		if err != nil {
			return errors.Wrapf(err, "insert question %d", i)
		}
	}

	return errors.Wrap(tx.Commit(), "commit")
}

// GetSurvey loads a survey with its questions in display order.
func (s *Store) GetSurvey(ctx context.Context, id int) (model.Survey, error) {
	survey, err := scanSurvey(s.db.QueryRowContext(ctx, `
		SELECT id, version, title, description, duration, created_by, created_at, expire_date
		FROM survey
		WHERE id = ?`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return survey, ErrNotFound
	}
	if err != nil {
		return survey, errors.Wrap(err, "get survey")
	}

	survey.Questions, err = s.questions(ctx, s.db, id)
	return survey, err
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) questions(ctx context.Context, db queryer, surveyID int) ([]model.Question, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, survey_id, position, text, type, choices
		FROM question
		WHERE survey_id = ?
		ORDER BY position, id`,
		surveyID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "get questions")
	}
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		q := model.Question{}
		var choices sql.NullString
		err = rows.Scan(&q.ID, &q.SurveyID, &q.Position, &q.Text, &q.Type, &choices)
		if err != nil {
			return nil, errors.Wrap(err, "scan question")
		}
		q.Choices = choices.String
		questions = append(questions, q)
	}
	return questions, errors.Wrap(rows.Err(), "get questions")
}

func (s *Store) ListSurveys(ctx context.Context) ([]model.Survey, error) {
	return s.listSurveys(ctx, `
		SELECT id, version, title, description, duration, created_by, created_at, expire_date
		FROM survey
		ORDER BY id`)
}

// ListAvailableSurveys lists the surveys userID has not answered yet and
// that have not expired.
func (s *Store) ListAvailableSurveys(ctx context.Context, userID int) ([]model.Survey, error) {
	return s.listSurveys(ctx, `
		SELECT s.id, s.version, s.title, s.description, s.duration, s.created_by, s.created_at, s.expire_date
		FROM survey s
		WHERE NOT EXISTS (
				SELECT 1 FROM response r
				WHERE r.survey_id = s.id
					AND r.user_id = ?
			)
			AND (s.expire_date IS NULL OR s.expire_date > ?)
		ORDER BY s.id`,
		userID,
		s.now(),
	)
}

func (s *Store) listSurveys(ctx context.Context, query string, args ...any) ([]model.Survey, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "get surveys")
	}
	defer rows.Close()

	surveys := []model.Survey{}
	for rows.Next() {
		survey, err := scanSurvey(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan survey")
		}
		surveys = append(surveys, survey)
	}
	return surveys, errors.Wrap(rows.Err(), "get surveys")
}

// UpdateSurvey changes the survey metadata under optimistic locking: the
// stored version must match survey.Version. It returns the new version.
func (s *Store) UpdateSurvey(ctx context.Context, survey model.Survey) (int, error) {
	check := survey
	check.Questions = nil
	if err := check.Validate(); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE survey
		SET
			title = ?,
			description = ?,
			duration = ?,
			expire_date = ?,
			version = version+1
		WHERE id = ?
			AND version = ?`,
		survey.Title,
		survey.Description,
		survey.Duration,
		utcPtr(survey.ExpireDate),
		survey.ID,
		survey.Version,
	)
	if err != nil {
		return 0, errors.Wrap(err, "update survey")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "update survey: verify")
	}
	if n < 1 {
		var exists bool
		err = s.db.QueryRowContext(ctx, `SELECT 1 FROM survey WHERE id = ?`, survey.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, ErrConflict
	}
	return survey.Version + 1, nil
}

func (s *Store) DeleteSurvey(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM survey WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "delete survey")
	}
	return affected(res)
}

// AddQuestion appends q to its survey; a zero position puts it last.
func (s *Store) AddQuestion(ctx context.Context, q *model.Question) error {
	if err := q.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	var last sql.NullInt64
	err = tx.QueryRowContext(ctx, `
		SELECT s.id, MAX(q.position)
		FROM survey s
		LEFT OUTER JOIN question q ON (s.id = q.survey_id)
		WHERE s.id = ?
		GROUP BY s.id`,
		q.SurveyID,
	).Scan(&q.SurveyID, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, "get survey")
	}
	if q.Position <= 0 && last.Valid {
		q.Position = int(last.Int64) + 1
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO question (survey_id, position, text, type, choices)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		q.SurveyID, q.Position, q.Text, q.Type, nullableString(q.Choices),
	).Scan(&q.ID)
	if err != nil {
		return errors.Wrap(err, "insert question")
	}
	return errors.Wrap(tx.Commit(), "commit")
}

// UpdateQuestion rewrites q. The new type and choices must still accept
// every answer already given to the question.
func (s *Store) UpdateQuestion(ctx context.Context, q model.Question) error {
	if err := q.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT body FROM answer WHERE question_id = ?`, q.ID)
	if err != nil {
		return errors.Wrap(err, "get answers")
	}
	var bodies []string
	for rows.Next() {
		var body string
		if err = rows.Scan(&body); err != nil {
			rows.Close()
			return errors.Wrap(err, "scan answer")
		}
		bodies = append(bodies, body)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return errors.Wrap(err, "get answers")
	}
	for _, body := range bodies {
		if err = model.CheckAnswerBody(q, body); err != nil {
			return &model.ValidationError{Field: "choices", Msg: "existing answers do not fit: " + err.Error()}
		}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE question
		SET position = ?, text = ?, type = ?, choices = ?
		WHERE id = ?`,
		q.Position, q.Text, q.Type, nullableString(q.Choices), q.ID,
	)
	if err != nil {
		return errors.Wrap(err, "update question")
	}
	if err = affected(res); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "commit")
}

func (s *Store) DeleteQuestion(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM question WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "delete question")
	}
	return affected(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSurvey(row scanner) (model.Survey, error) {
	survey := model.Survey{}
	var createdBy sql.NullInt64
	var expireDate sql.NullTime
	err := row.Scan(
		&survey.ID, &survey.Version, &survey.Title, &survey.Description, &survey.Duration,
		&createdBy, &survey.CreatedAt, &expireDate,
	)
	if err != nil {
		return survey, err
	}
	survey.CreatedBy = int(createdBy.Int64)
	if expireDate.Valid {
		survey.ExpireDate = &expireDate.Time
	}
	return survey, nil
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n < 1 {
		return ErrNotFound
	}
	return nil
}

func nullableID(id int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(id), Valid: id != 0}
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func utcPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
