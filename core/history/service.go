package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ricardious/semestrix/core"
	"github.com/ricardious/semestrix/core/program"
)

var (
	// errors
	ErrNotFound      = errors.New("history entry not found")
	ErrUnknownStatus = errors.New("unknown status value")
)

type (
	Repository interface {
		QueryItems(ctx context.Context, userID string) ([]Item, error)
		GetItem(ctx context.Context, userID string, id int) (Item, error)
		CreateItem(ctx context.Context, userID string, it Item) (Item, error)
		UpdateItem(ctx context.Context, userID string, it Item) (Item, error)
		DeleteItem(ctx context.Context, userID string, id int) error
		// UpsertItemByCourse inserts or overwrites the single entry for
		// (user, course); created reports which one happened.
		UpsertItemByCourse(ctx context.Context, userID string, it Item) (item Item, created bool, err error)
	}

	Service interface {
		QueryMine(ctx context.Context, userID string) ([]Item, error)
		CreateManual(ctx context.Context, userID string, ni NewItem) (Item, error)
		UpdateManual(ctx context.Context, userID string, id int, ui UpdateItem) (Item, error)
		DeleteManual(ctx context.Context, userID string, id int) error
		BulkUpsert(ctx context.Context, userID string, req BulkRequest) (BulkResult, error)
		PreviewImport(req ImportPreviewRequest) ImportPreview
		CommitImport(ctx context.Context, userID string, req ImportCommitRequest) (ImportCommitResult, error)
	}

	service struct {
		repo     Repository
		progRepo program.Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, progRepo program.Repository) Service {
	return &service{repo: repo, progRepo: progRepo}
}

func (svc *service) QueryMine(ctx context.Context, userID string) ([]Item, error) {
	items, err := svc.repo.QueryItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

// resolveCourse finds the catalog course referenced by id or code.
func (svc *service) resolveCourse(ctx context.Context, id *int, code string) (program.Course, error) {
	if id != nil {
		return svc.progRepo.GetCourseByID(ctx, *id)
	}
	return svc.progRepo.GetCourseByCode(ctx, code)
}

func (svc *service) CreateManual(ctx context.Context, userID string, ni NewItem) (Item, error) {
	course, err := svc.resolveCourse(ctx, ni.CourseID, ni.CourseCode)
	if err != nil {
		if err == program.ErrCourseNotFound {
			return Item{}, core.NewValidationError(err, core.FieldError{Field: "course_code", Error: err.Error()})
		}
		return Item{}, err
	}

	status, err := ParseStatus(ni.Status)
	if err != nil {
		return Item{}, core.NewValidationError(err, core.FieldError{Field: "status", Error: err.Error()})
	}

	now := time.Now().UTC()
	it := Item{
		CourseID:   course.ID,
		CourseCode: course.Code,
		CourseName: course.Name,
		Year:       ni.Year,
		Term:       ni.Term,
		Grade:      ni.Grade,
		Status:     status,
		Professor:  ni.Professor,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	it, _, err = svc.repo.UpsertItemByCourse(ctx, userID, it)
	return it, err
}

func (svc *service) UpdateManual(ctx context.Context, userID string, id int, ui UpdateItem) (Item, error) {
	it, err := svc.repo.GetItem(ctx, userID, id)
	if err != nil {
		return Item{}, err
	}

	if ui.CourseID != nil || ui.CourseCode != "" {
		course, err := svc.resolveCourse(ctx, ui.CourseID, ui.CourseCode)
		if err != nil {
			if err == program.ErrCourseNotFound {
				return Item{}, core.NewValidationError(err, core.FieldError{Field: "course_code", Error: err.Error()})
			}
			return Item{}, err
		}
		it.CourseID = course.ID
		it.CourseCode = course.Code
		it.CourseName = course.Name
	}
	if ui.Year != nil {
		it.Year = *ui.Year
	}
	if ui.Term != nil {
		it.Term = *ui.Term
	}
	if ui.Grade != nil {
		it.Grade = ui.Grade
	}
	if ui.Status != "" {
		status, err := ParseStatus(ui.Status)
		if err != nil {
			return Item{}, core.NewValidationError(err, core.FieldError{Field: "status", Error: err.Error()})
		}
		it.Status = status
	}
	if ui.Professor != nil {
		it.Professor = ui.Professor
	}
	it.UpdatedAt = time.Now().UTC()

	return svc.repo.UpdateItem(ctx, userID, it)
}

func (svc *service) DeleteManual(ctx context.Context, userID string, id int) error {
	return svc.repo.DeleteItem(ctx, userID, id)
}

func (svc *service) BulkUpsert(ctx context.Context, userID string, req BulkRequest) (BulkResult, error) {
	res := BulkResult{Errors: []BulkError{}}

	for i, bi := range req.Items {
		course, err := svc.progRepo.GetCourseByCode(ctx, bi.CourseCode)
		if err != nil {
			if err == program.ErrCourseNotFound {
				res.Skipped++
				res.Errors = append(res.Errors, BulkError{Index: i, CourseCode: bi.CourseCode, Reason: "unknown course code"})
				continue
			}
			return res, err
		}

		status, err := ParseStatus(bi.Status)
		if err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, BulkError{Index: i, CourseCode: bi.CourseCode, Reason: err.Error()})
			continue
		}

		now := time.Now().UTC()
		it := Item{
			CourseID:   course.ID,
			CourseCode: course.Code,
			CourseName: course.Name,
			Grade:      bi.Grade,
			Status:     status,
			Professor:  bi.Professor,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if bi.Year != nil {
			it.Year = *bi.Year
		}
		if bi.Term != nil {
			it.Term = *bi.Term
		}

		_, created, err := svc.repo.UpsertItemByCourse(ctx, userID, it)
		if err != nil {
			return res, err
		}
		if created {
			res.Inserted++
		} else {
			res.Updated++
		}
	}
	return res, nil
}

func (svc *service) CommitImport(ctx context.Context, userID string, req ImportCommitRequest) (ImportCommitResult, error) {
	res := ImportCommitResult{Errors: []string{}}

	for _, ni := range req.Items {
		code := core.CleanString(ni.CourseCode, true /* lower */)
		if code == "" {
			res.Errors = append(res.Errors, "row without course code")
			continue
		}

		// clients may send raw statuses straight to commit; map them into
		// the closed set before anything is persisted
		status, err := ParseStatus(string(ni.Status))
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", code, err))
			continue
		}

		course, err := svc.progRepo.GetCourseByCode(ctx, code)
		if err == program.ErrCourseNotFound {
			course, err = svc.progRepo.CreateCourse(ctx, program.Course{Code: code, Name: ni.CourseName})
			if err == nil {
				res.CreatedCourses++
			}
		}
		if err != nil {
			return res, err
		}

		if ni.Grade == nil {
			res.MissingGrades++
		}

		now := time.Now().UTC()
		it := Item{
			CourseID:   course.ID,
			CourseCode: course.Code,
			CourseName: course.Name,
			Year:       ni.Year,
			Term:       ni.Term,
			Grade:      ni.Grade,
			Status:     status,
			Professor:  ni.Professor,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if _, _, err := svc.repo.UpsertItemByCourse(ctx, userID, it); err != nil {
			return res, err
		}
		res.InsertedOrUpdated++
	}
	return res, nil
}
