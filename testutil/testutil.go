// Package testutil holds fixtures shared by the package tests.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mbolis/timed-survey/database"
	"github.com/mbolis/timed-survey/model"
	"golang.org/x/crypto/bcrypt"
)

// SetupTestDB opens a fresh, migrated SQLite3 database in a temp dir.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// SetupSessionDB opens an in-memory badger instance.
func SetupSessionDB(t *testing.T) *badger.DB {
	t.Helper()

	kv, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatalf("Failed to open session store: %v", err)
	}
	t.Cleanup(func() { kv.Close() })
	return kv
}

// CreateTestUser inserts a user whose password equals its username.
func CreateTestUser(t *testing.T, db *sql.DB, username string, staff bool) int {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(username), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	var id int
	err = db.QueryRow(`
		INSERT INTO user (username, password_hash, is_staff, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`,
		username, hash, staff, time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return id
}

// TwoQuestionSurvey is a ten minute survey with a text question followed by
// a single choice question.
func TwoQuestionSurvey() model.Survey {
	return model.Survey{
		Title:       "Lunch",
		Description: "What did you eat?",
		Duration:    10,
		Questions: []model.Question{
			{Text: "What did you have?", Type: model.QuestionText},
			{Text: "Was it good?", Type: model.QuestionRadio, Choices: "Yes, Not really"},
		},
	}
}

// ThreeQuestionSurvey adds a multiple choice question to TwoQuestionSurvey.
func ThreeQuestionSurvey() model.Survey {
	s := TwoQuestionSurvey()
	s.Questions = append(s.Questions, model.Question{
		Text: "Sides?", Type: model.QuestionSelect, Choices: "Fries, Green salad, Soup",
	})
	return s
}
