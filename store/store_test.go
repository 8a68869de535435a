package store

import (
	"context"
	"testing"
	"time"

	"github.com/mbolis/timed-survey/model"
	"github.com/mbolis/timed-survey/testutil"
	"github.com/pkg/errors"
)

func setupStore(t *testing.T) (*Store, int) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	userID := testutil.CreateTestUser(t, db, "alice", false)
	return New(db), userID
}

func createSurvey(t *testing.T, st *Store, survey model.Survey) model.Survey {
	t.Helper()
	if err := st.CreateSurvey(context.Background(), &survey); err != nil {
		t.Fatalf("Failed to create survey: %v", err)
	}
	return survey
}

func TestCreateAndGetSurvey(t *testing.T) {
	st, _ := setupStore(t)
	ctx := context.Background()

	created := createSurvey(t, st, testutil.ThreeQuestionSurvey())
	if created.ID == 0 {
		t.Fatal("Expected survey id")
	}

	got, err := st.GetSurvey(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetSurvey: %v", err)
	}
	if got.Title != "Lunch" || got.Duration != 10 || got.Version != 1 {
		t.Errorf("Unexpected survey %+v", got)
	}
	if len(got.Questions) != 3 {
		t.Fatalf("Expected 3 questions, got %d", len(got.Questions))
	}
	for i, q := range got.Questions {
		if q.ID != created.Questions[i].ID || q.Position != i {
			t.Errorf("Question %d out of order: %+v", i, q)
		}
	}
	if got.Questions[2].Type != model.QuestionSelect || got.Questions[2].Choices != "Fries, Green salad, Soup" {
		t.Errorf("Unexpected select question %+v", got.Questions[2])
	}

	if _, err := st.GetSurvey(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestCreateSurveyRejectsInvalid(t *testing.T) {
	st, _ := setupStore(t)

	tests := []struct {
		name   string
		survey model.Survey
	}{
		{"zero duration", model.Survey{Title: "T", Duration: 0}},
		{"single choice option", model.Survey{Title: "T", Duration: 5, Questions: []model.Question{
			{Text: "Pick", Type: model.QuestionRadio, Choices: "a"},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := st.CreateSurvey(context.Background(), &tt.survey)
			if !model.IsValidation(err) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}

	surveys, err := st.ListSurveys(context.Background())
	if err != nil {
		t.Fatalf("ListSurveys: %v", err)
	}
	if len(surveys) != 0 {
		t.Errorf("Expected nothing stored, got %d surveys", len(surveys))
	}
}

func TestQuestionCRUD(t *testing.T) {
	st, _ := setupStore(t)
	ctx := context.Background()
	survey := createSurvey(t, st, testutil.TwoQuestionSurvey())

	q := model.Question{SurveyID: survey.ID, Text: "Pick one", Type: model.QuestionSelect, Choices: "a"}
	if err := st.AddQuestion(ctx, &q); !model.IsValidation(err) {
		t.Fatalf("Expected validation error for single choice, got %v", err)
	}

	q.Choices = "a, b"
	if err := st.AddQuestion(ctx, &q); err != nil {
		t.Fatalf("AddQuestion: %v", err)
	}
	if q.Position != 2 {
		t.Errorf("Expected question appended at position 2, got %d", q.Position)
	}

	missing := model.Question{SurveyID: 999, Text: "x", Type: model.QuestionText}
	if err := st.AddQuestion(ctx, &missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown survey, got %v", err)
	}

	q.Choices = "only"
	if err := st.UpdateQuestion(ctx, q); !model.IsValidation(err) {
		t.Errorf("Expected validation error on update, got %v", err)
	}
	q.Text = "Pick some"
	q.Choices = "a, b, c"
	if err := st.UpdateQuestion(ctx, q); err != nil {
		t.Fatalf("UpdateQuestion: %v", err)
	}

	got, _ := st.GetSurvey(ctx, survey.ID)
	if last := got.Questions[len(got.Questions)-1]; last.Text != "Pick some" || last.Choices != "a, b, c" {
		t.Errorf("Update not stored: %+v", last)
	}

	if err := st.DeleteQuestion(ctx, q.ID); err != nil {
		t.Fatalf("DeleteQuestion: %v", err)
	}
	if err := st.DeleteQuestion(ctx, q.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestUpdateQuestionKeepsAnswersValid(t *testing.T) {
	st, userID := setupStore(t)
	ctx := context.Background()
	survey := createSurvey(t, st, testutil.TwoQuestionSurvey())
	text, radio := survey.Questions[0], survey.Questions[1]

	_, err := st.SaveResponse(ctx, survey.ID, userID, map[int]string{text.ID: "Soup", radio.ID: "Yes"})
	if err != nil {
		t.Fatalf("SaveResponse: %v", err)
	}

	tests := []struct {
		name  string
		q     model.Question
		valid bool
	}{
		{"choices drop an answer", model.Question{ID: radio.ID, SurveyID: survey.ID, Position: 1, Text: radio.Text, Type: model.QuestionRadio, Choices: "Maybe, Never"}, false},
		{"text becomes radio", model.Question{ID: text.ID, SurveyID: survey.ID, Text: text.Text, Type: model.QuestionRadio, Choices: "Pasta, Pizza"}, false},
		{"choices keep the answer", model.Question{ID: radio.ID, SurveyID: survey.ID, Position: 1, Text: "Good?", Type: model.QuestionRadio, Choices: "Yes, No, Maybe"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := st.UpdateQuestion(ctx, tt.q)
			if tt.valid && err != nil {
				t.Errorf("UpdateQuestion: %v", err)
			}
			if !tt.valid && !model.IsValidation(err) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}

	got, _ := st.GetSurvey(ctx, survey.ID)
	if got.Questions[0].Type != model.QuestionText {
		t.Errorf("Rejected update was stored: %+v", got.Questions[0])
	}
	if got.Questions[1].Choices != "Yes, No, Maybe" {
		t.Errorf("Accepted update not stored: %+v", got.Questions[1])
	}
}

func TestUpdateSurveyOptimisticLock(t *testing.T) {
	st, _ := setupStore(t)
	ctx := context.Background()
	survey := createSurvey(t, st, testutil.TwoQuestionSurvey())

	survey.Title = "Dinner"
	version, err := st.UpdateSurvey(ctx, survey)
	if err != nil {
		t.Fatalf("UpdateSurvey: %v", err)
	}
	if version != 2 {
		t.Errorf("Expected version 2, got %d", version)
	}

	// stale version
	if _, err := st.UpdateSurvey(ctx, survey); !errors.Is(err, ErrConflict) {
		t.Errorf("Expected ErrConflict, got %v", err)
	}

	survey.ID = 999
	if _, err := st.UpdateSurvey(ctx, survey); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSaveResponseIdempotent(t *testing.T) {
	st, userID := setupStore(t)
	ctx := context.Background()
	survey := createSurvey(t, st, testutil.ThreeQuestionSurvey())

	bodies := map[int]string{
		survey.Questions[0].ID: "Pasta",
		survey.Questions[1].ID: "Yes",
		survey.Questions[2].ID: model.EncodeList([]string{"Fries", "Green salad"}),
	}

	first, err := st.SaveResponse(ctx, survey.ID, userID, bodies)
	if err != nil {
		t.Fatalf("SaveResponse: %v", err)
	}
	second, err := st.SaveResponse(ctx, survey.ID, userID, bodies)
	if err != nil {
		t.Fatalf("SaveResponse (again): %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("Expected the same response, got %d and %d", first.ID, second.ID)
	}
	if len(second.Answers) != 3 {
		t.Fatalf("Expected 3 answers, got %d", len(second.Answers))
	}
	for i, a := range second.Answers {
		if a.ID != first.Answers[i].ID {
			t.Errorf("Answer %d was recreated", i)
		}
	}

	var responses, answers int
	st.db.QueryRow(`SELECT COUNT(*) FROM response WHERE survey_id = ? AND user_id = ?`, survey.ID, userID).Scan(&responses)
	st.db.QueryRow(`SELECT COUNT(*) FROM answer WHERE response_id = ?`, first.ID).Scan(&answers)
	if responses != 1 || answers != 3 {
		t.Errorf("Expected 1 response and 3 answers, got %d and %d", responses, answers)
	}
}

func TestSaveResponseUpsertsAnswer(t *testing.T) {
	st, userID := setupStore(t)
	ctx := context.Background()
	survey := createSurvey(t, st, testutil.TwoQuestionSurvey())
	q0, q1 := survey.Questions[0].ID, survey.Questions[1].ID

	_, err := st.SaveResponse(ctx, survey.ID, userID, map[int]string{q0: "Soup"})
	if err != nil {
		t.Fatalf("SaveResponse: %v", err)
	}
	resp, err := st.SaveResponse(ctx, survey.ID, userID, map[int]string{q0: "Salad", q1: "Not really"})
	if err != nil {
		t.Fatalf("SaveResponse: %v", err)
	}

	a0, _ := resp.Answer(q0)
	a1, _ := resp.Answer(q1)
	if a0.Body != "Salad" || a1.Body != "Not really" {
		t.Errorf("Unexpected answers %+v", resp.Answers)
	}

	found, err := st.FindResponse(ctx, survey.ID, userID)
	if err != nil || found == nil || found.ID != resp.ID {
		t.Errorf("FindResponse = %v, %v", found, err)
	}
}

func TestSaveResponseRejectsBadAnswers(t *testing.T) {
	st, userID := setupStore(t)
	ctx := context.Background()
	survey := createSurvey(t, st, testutil.ThreeQuestionSurvey())
	other := createSurvey(t, st, testutil.TwoQuestionSurvey())

	tests := []struct {
		name   string
		bodies map[int]string
	}{
		{"radio not a choice", map[int]string{survey.Questions[1].ID: "Maybe"}},
		{"select item not a choice", map[int]string{survey.Questions[2].ID: model.EncodeList([]string{"Fries", "Cake"})}},
		{"question of another survey", map[int]string{other.Questions[0].ID: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := st.SaveResponse(ctx, survey.ID, userID, tt.bodies)
			if !model.IsValidation(err) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}

	found, err := st.FindResponse(ctx, survey.ID, userID)
	if err != nil {
		t.Fatalf("FindResponse: %v", err)
	}
	if found != nil {
		t.Error("Expected no response left behind by failed saves")
	}
}

func TestListAvailableSurveys(t *testing.T) {
	st, userID := setupStore(t)
	ctx := context.Background()

	answered := createSurvey(t, st, testutil.TwoQuestionSurvey())
	open := createSurvey(t, st, testutil.TwoQuestionSurvey())
	past := time.Now().Add(-time.Hour)
	expired := testutil.TwoQuestionSurvey()
	expired.ExpireDate = &past
	createSurvey(t, st, expired)

	_, err := st.SaveResponse(ctx, answered.ID, userID, map[int]string{answered.Questions[0].ID: "x"})
	if err != nil {
		t.Fatalf("SaveResponse: %v", err)
	}

	surveys, err := st.ListAvailableSurveys(ctx, userID)
	if err != nil {
		t.Fatalf("ListAvailableSurveys: %v", err)
	}
	if len(surveys) != 1 || surveys[0].ID != open.ID {
		t.Errorf("Expected only survey %d, got %+v", open.ID, surveys)
	}

	all, _ := st.ListSurveys(ctx)
	if len(all) != 3 {
		t.Errorf("Expected 3 surveys, got %d", len(all))
	}
}

func TestListResponses(t *testing.T) {
	st, alice := setupStore(t)
	ctx := context.Background()
	bob := testutilUser(t, st, "bob")
	survey := createSurvey(t, st, testutil.TwoQuestionSurvey())
	q0 := survey.Questions[0].ID

	st.SaveResponse(ctx, survey.ID, alice, map[int]string{q0: "a"})
	st.SaveResponse(ctx, survey.ID, bob, map[int]string{q0: "b"})

	responses, err := st.ListResponses(ctx, survey.ID)
	if err != nil {
		t.Fatalf("ListResponses: %v", err)
	}
	if len(responses) != 2 {
		t.Fatalf("Expected 2 responses, got %d", len(responses))
	}
	if len(responses[0].Answers) != 1 || responses[0].Answers[0].Body != "a" {
		t.Errorf("Unexpected first response %+v", responses[0])
	}
	if *responses[1].UserID != bob {
		t.Errorf("Expected second response by bob")
	}
}

func TestDeleteSurveyCascades(t *testing.T) {
	st, userID := setupStore(t)
	ctx := context.Background()
	survey := createSurvey(t, st, testutil.TwoQuestionSurvey())
	resp, _ := st.SaveResponse(ctx, survey.ID, userID, map[int]string{survey.Questions[0].ID: "x"})

	if err := st.DeleteSurvey(ctx, survey.ID); err != nil {
		t.Fatalf("DeleteSurvey: %v", err)
	}
	if _, err := st.GetResponse(ctx, resp.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected response deleted with survey, got %v", err)
	}
	if err := st.DeleteSurvey(ctx, survey.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestEnsureUser(t *testing.T) {
	st, _ := setupStore(t)
	ctx := context.Background()

	admin, err := st.EnsureUser(ctx, "root", "pw", true)
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	again, err := st.EnsureUser(ctx, "root", "other", false)
	if err != nil {
		t.Fatalf("EnsureUser (again): %v", err)
	}
	if admin.ID != again.ID || !again.Staff {
		t.Errorf("Expected existing staff user, got %+v", again)
	}

	if _, err := st.CreateUser(ctx, " ", "pw", false); !model.IsValidation(err) {
		t.Errorf("Expected validation error for blank username, got %v", err)
	}
}

func testutilUser(t *testing.T, st *Store, name string) int {
	t.Helper()
	return testutil.CreateTestUser(t, st.db, name, false)
}
