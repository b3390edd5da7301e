package program

import (
	"context"
	"errors"

	"github.com/ricardious/semestrix/core"
)

var (
	// errors
	ErrNotFound          = errors.New("program not found")
	ErrVersionNotFound   = errors.New("curriculum version not found")
	ErrCourseNotFound    = errors.New("course not found")
	ErrNoActiveVersion   = errors.New("program has no active curriculum version")
	ErrProgramCodeExists = errors.New("a program with this code already exists")
)

type (
	Repository interface {
		QueryAllPrograms(ctx context.Context) ([]Program, error)
		GetProgramByCode(ctx context.Context, code string) (Program, error)
		GetProgramByID(ctx context.Context, id int) (Program, error)
		CreateProgram(ctx context.Context, prog Program) (Program, error)

		GetVersion(ctx context.Context, versionID int) (Version, error)
		// GetActiveVersion returns the single active Version of a program;
		// ErrNoActiveVersion if none is active.
		GetActiveVersion(ctx context.Context, programCode string) (ActiveVersion, error)
		GetActiveVersionByProgramID(ctx context.Context, programID int) (ActiveVersion, error)
		CreateVersion(ctx context.Context, ver Version) (Version, error)

		// GetStructure returns the immutable curriculum snapshot for a version.
		GetStructure(ctx context.Context, versionID int) (CurriculumStructure, error)
		AddCurriculumCourse(ctx context.Context, versionID, semester int, node CourseNode) (CourseNode, error)

		GetCourseByID(ctx context.Context, id int) (Course, error)
		GetCourseByCode(ctx context.Context, code string) (Course, error)
		CreateCourse(ctx context.Context, c Course) (Course, error)
		QueryCourses(ctx context.Context, filter CourseFilter) (CoursePage, error)
	}

	Service interface {
		QueryAll(ctx context.Context) ([]Program, error)
		GetByCode(ctx context.Context, code string) (Program, error)
		ActiveVersion(ctx context.Context, programCode string) (ActiveVersion, error)
		Structure(ctx context.Context, versionID int) (CurriculumStructure, error)
		QueryCourses(ctx context.Context, filter CourseFilter) (CoursePage, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) QueryAll(ctx context.Context) ([]Program, error) {
	return svc.repo.QueryAllPrograms(ctx)
}

func (svc *service) GetByCode(ctx context.Context, code string) (Program, error) {
	return svc.repo.GetProgramByCode(ctx, core.CleanString(code, true /* lower */))
}

func (svc *service) ActiveVersion(ctx context.Context, programCode string) (ActiveVersion, error) {
	return svc.repo.GetActiveVersion(ctx, core.CleanString(programCode, true /* lower */))
}

func (svc *service) Structure(ctx context.Context, versionID int) (CurriculumStructure, error) {
	return svc.repo.GetStructure(ctx, versionID)
}

func (svc *service) QueryCourses(ctx context.Context, filter CourseFilter) (CoursePage, error) {
	filter.Search = core.CleanString(filter.Search)
	filter.Clean()
	return svc.repo.QueryCourses(ctx, filter)
}
