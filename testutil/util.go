// Package testutil sets up databases, configs and fixtures for tests.
package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classbook/classbook/core"
	"github.com/classbook/classbook/core/class"
	"github.com/classbook/classbook/core/schedule"
	"github.com/classbook/classbook/core/subject"
	"github.com/classbook/classbook/core/user"
	"github.com/classbook/classbook/storage/database"
)

// NewConfig returns the configuration used by tests: SQLite, in-memory cache, test mode.
func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.Env = "TEST"
	conf.TestMode = true
	conf.Debug = false
	conf.Database.Engine = database.EngineSQLite
	conf.Cache.RedisURL = ""
	return conf
}

// PrepareDB opens a migrated in-memory SQLite database, closed when the test ends.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Open(database.EngineSQLite, database.SQLiteDSN("testdb-"+uuid.New().String(), true))
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	// the in-memory database lives as long as its connection
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db, core.NewNopLogger()); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

// NewValidator returns a validator with every custom validation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	schedule.InitValidators(validate, translator)
	return validate, translator
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateClass(t *testing.T, repo class.Repository, name string, level int) class.Class {
	t.Helper()

	now := time.Now().UTC()
	cls, err := repo.CreateClass(context.Background(), class.Class{Name: name, Level: level, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return cls
}

func CreateSubgroup(t *testing.T, repo class.Repository, classID, name string, studentIDs ...string) class.Subgroup {
	t.Helper()

	ctx := context.Background()
	sg, err := repo.CreateSubgroup(ctx, class.Subgroup{ClassID: classID, Name: name, CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("CreateSubgroup() failed: %v", err)
	}
	if len(studentIDs) > 0 {
		if err = repo.AddToSubgroup(ctx, sg.ID, studentIDs); err != nil {
			t.Fatalf("CreateSubgroup() failed: %v", err)
		}
	}
	return sg
}

func Enroll(t *testing.T, repo class.Repository, classID string, studentIDs ...string) {
	t.Helper()

	if err := repo.Enroll(context.Background(), classID, studentIDs); err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
}

func CreateSubject(t *testing.T, repo subject.Repository, name string) subject.Subject {
	t.Helper()

	now := time.Now().UTC()
	sub, err := repo.CreateSubject(context.Background(), subject.Subject{Name: name, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}
	return sub
}

// CreateEntry inserts a schedule entry as is; start and end are "HH:MM".
func CreateEntry(t *testing.T, repo schedule.Repository, e schedule.Entry, start, end string) schedule.Entry {
	t.Helper()

	var err error
	if e.StartTime, err = schedule.ParseClock(start); err != nil {
		t.Fatalf("CreateEntry() failed: %v", err)
	}
	if e.EndTime, err = schedule.ParseClock(end); err != nil {
		t.Fatalf("CreateEntry() failed: %v", err)
	}
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now

	e, err = repo.CreateEntry(context.Background(), e)
	if err != nil {
		t.Fatalf("CreateEntry() failed: %v", err)
	}
	return e
}
