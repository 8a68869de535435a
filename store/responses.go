package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/mbolis/timed-survey/model"
	"github.com/pkg/errors"
)

// SaveResponse records userID's answers to a survey. The single response of
// the (survey, user) pair is reused when it exists, and answers are upserted
// by question, so repeating a call with the same bodies changes nothing but
// the update timestamps. Everything happens in one transaction.
func (s *Store) SaveResponse(ctx context.Context, surveyID, userID int, bodies map[int]string) (model.Response, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Response{}, errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	questions, err := s.questions(ctx, tx, surveyID)
	if err != nil {
		return model.Response{}, err
	}
	byID := make(map[int]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	ids := make([]int, 0, len(bodies))
	for id := range bodies {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	answers := make([]model.Answer, 0, len(ids))
	for _, id := range ids {
		q, ok := byID[id]
		if !ok {
			return model.Response{}, &model.ValidationError{
				Field: fmt.Sprintf("question_%d", id),
				Msg:   fmt.Sprintf("question does not belong to survey %d", surveyID),
			}
		}
		answer, err := model.NewAnswer(q, bodies[id])
		if err != nil {
			return model.Response{}, err
		}
		answers = append(answers, answer)
	}

	now := s.now()
	var responseID int
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM response
		WHERE survey_id = ?
			AND user_id = ?
		ORDER BY id
		LIMIT 1`,
		surveyID,
		userID,
	).Scan(&responseID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = tx.QueryRowContext(ctx, `
			INSERT INTO response (survey_id, user_id, created_at, updated_at)
			VALUES (?, ?, ?, ?)
			RETURNING id`,
			surveyID,
			nullableID(userID),
			now,
			now,
		).Scan(&responseID)
		if err != nil {
			return model.Response{}, errors.Wrap(err, "insert response")
		}
	case err != nil:
		return model.Response{}, errors.Wrap(err, "get response")
	default:
		_, err = tx.ExecContext(ctx, `UPDATE response SET updated_at = ? WHERE id = ?`, now, responseID)
		if err != nil {
			return model.Response{}, errors.Wrap(err, "update response")
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO answer (question_id, response_id, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (response_id, question_id) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at`)
	if err != nil {
		return model.Response{}, errors.Wrap(err, "prepare answers")
	}
	defer stmt.Close()

	for _, a := range answers {
		_, err = stmt.ExecContext(ctx, a.QuestionID, responseID, a.Body, now, now)
		if err != nil {
			return model.Response{}, errors.Wrapf(err, "upsert answer to question %d", a.QuestionID)
		}
	}

	if err = tx.Commit(); err != nil {
		return model.Response{}, errors.Wrap(err, "commit")
	}

	return s.GetResponse(ctx, responseID)
}

// GetResponse loads a response and its answers.
func (s *Store) GetResponse(ctx context.Context, id int) (model.Response, error) {
	response, err := scanResponse(s.db.QueryRowContext(ctx, `
		SELECT id, survey_id, user_id, created_at, updated_at
		FROM response
		WHERE id = ?`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return response, ErrNotFound
	}
	if err != nil {
		return response, errors.Wrap(err, "get response")
	}

	response.Answers, err = s.answers(ctx, `WHERE a.response_id = ?`, id)
	return response, err
}

// FindResponse returns the response of userID to a survey, or nil if the
// user never answered it.
func (s *Store) FindResponse(ctx context.Context, surveyID, userID int) (*model.Response, error) {
	var id int
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM response
		WHERE survey_id = ?
			AND user_id = ?
		ORDER BY id
		LIMIT 1`,
		surveyID,
		userID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find response")
	}

	response, err := s.GetResponse(ctx, id)
	if err != nil {
		return nil, err
	}
	return &response, nil
}

// ListResponses lists every response to a survey with its answers.
func (s *Store) ListResponses(ctx context.Context, surveyID int) ([]model.Response, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, survey_id, user_id, created_at, updated_at
		FROM response
		WHERE survey_id = ?
		ORDER BY id`,
		surveyID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "get responses")
	}
	defer rows.Close()

	responses := []model.Response{}
	index := map[int]int{}
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan response")
		}
		index[r.ID] = len(responses)
		responses = append(responses, r)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "get responses")
	}

	answers, err := s.answers(ctx, `
		INNER JOIN response r ON (r.id = a.response_id)
		WHERE r.survey_id = ?`,
		surveyID,
	)
	if err != nil {
		return nil, err
	}
	for _, a := range answers {
		if i, ok := index[a.ResponseID]; ok {
			responses[i].Answers = append(responses[i].Answers, a)
		}
	}
	return responses, nil
}

func (s *Store) answers(ctx context.Context, where string, args ...any) ([]model.Answer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.question_id, a.response_id, a.body, a.created_at, a.updated_at
		FROM answer a
		INNER JOIN question q ON (q.id = a.question_id)
		`+where+`
		ORDER BY a.response_id, q.position, q.id`,
		args...,
	)
	if err != nil {
		return nil, errors.Wrap(err, "get answers")
	}
	defer rows.Close()

	answers := []model.Answer{}
	for rows.Next() {
		a := model.Answer{}
		var body sql.NullString
		err = rows.Scan(&a.ID, &a.QuestionID, &a.ResponseID, &body, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return nil, errors.Wrap(err, "scan answer")
		}
		a.Body = body.String
		answers = append(answers, a)
	}
	return answers, errors.Wrap(rows.Err(), "get answers")
}

func scanResponse(row scanner) (model.Response, error) {
	r := model.Response{}
	var userID sql.NullInt64
	err := row.Scan(&r.ID, &r.SurveyID, &userID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return r, err
	}
	if userID.Valid {
		id := int(userID.Int64)
		r.UserID = &id
	}
	return r, nil
}
