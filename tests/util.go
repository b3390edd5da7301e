package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/ricardious/semestrix/core"
	"github.com/ricardious/semestrix/core/program"
	"github.com/ricardious/semestrix/core/user"
)

// NewConfig returns a self-contained test configuration.
func NewConfig() *core.Config {
	return &core.Config{
		AppName:                   "Semestrix",
		Debug:                     false, // keep error payloads in their JSON form
		TestMode:                  true,
		Env:                       "test",
		WorkDir:                   core.Getwd(),
		SecretKey:                 "secret-test-key",
		DefaultFromName:           "Semestrix",
		DefaultFromAddr:           "noreply@test.gt",
		FrontendBaseURL:           "http://localhost:3000",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: core.ServerConfig{
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}
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
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

// CreateProgramWithVersion seeds a program with a single active curriculum version.
func CreateProgramWithVersion(t *testing.T, repo program.Repository, code, name string, year int) program.ActiveVersion {
	t.Helper()

	ctx := context.Background()
	prog, err := repo.CreateProgram(ctx, program.Program{Code: code, Name: name})
	if err != nil {
		t.Fatalf("CreateProgramWithVersion(): %v", err)
	}
	ver, err := repo.CreateVersion(ctx, program.Version{ProgramID: prog.ID, Year: year, Status: program.VersionActive})
	if err != nil {
		t.Fatalf("CreateProgramWithVersion(): %v", err)
	}
	return program.ActiveVersion{Version: ver, Program: prog}
}

// AddCourse registers a catalog course and pins it to a curriculum semester.
func AddCourse(
	t *testing.T,
	repo program.Repository,
	versionID, semester int,
	code, name string,
	credits int,
	rules ...program.RequirementRule,
) program.CourseNode {
	t.Helper()

	ctx := context.Background()
	course, err := repo.CreateCourse(ctx, program.Course{Code: code, Name: name})
	if err != nil {
		t.Fatalf("AddCourse(): %v", err)
	}
	node, err := repo.AddCurriculumCourse(ctx, versionID, semester, program.CourseNode{
		CourseID:     course.ID,
		Code:         course.Code,
		Name:         course.Name,
		Credits:      credits,
		Mandatory:    true,
		Requirements: rules,
	})
	if err != nil {
		t.Fatalf("AddCourse(): %v", err)
	}
	return node
}
