package repository

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prperemyshlev/session-auth/pkg/database"
)

func newMockDB(t *testing.T) (*database.Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return &database.Postgres{DB: db}, mock
}
