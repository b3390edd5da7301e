package history

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ricardious/semestrix/core"
)

// Status is the closed set of course-attempt outcomes. Backend payloads carry
// free-form strings; they are mapped into this type at the boundary so nothing
// downstream ever compares strings.
type Status string

const (
	StatusPassed     Status = "passed"
	StatusApproved   Status = "approved"
	StatusFailed     Status = "failed"
	StatusInProgress Status = "in_progress"
	StatusWithdrawn  Status = "withdrawn"
	StatusPending    Status = "pending"
)

// statusAliases maps localized or renamed source values onto the closed set.
// New vocabulary must be added here explicitly, never inferred.
var statusAliases = map[string]Status{
	"aprobado":  StatusApproved,
	"reprobado": StatusFailed,
}

var knownStatuses = map[Status]struct{}{
	StatusPassed:     {},
	StatusApproved:   {},
	StatusFailed:     {},
	StatusInProgress: {},
	StatusWithdrawn:  {},
	StatusPending:    {},
}

// ParseStatus maps a raw status string (case-insensitively) onto the closed
// Status set; ErrUnknownStatus for values outside the vocabulary.
func ParseStatus(s string) (Status, error) {
	cleaned := core.CleanString(s, true /* lower */)
	if st, ok := statusAliases[cleaned]; ok {
		return st, nil
	}
	st := Status(cleaned)
	if _, ok := knownStatuses[st]; ok {
		return st, nil
	}
	return st, ErrUnknownStatus
}

// NormalizeStatus is the lenient variant used on storage reads: unknown values
// pass through lowercased instead of failing, so old rows keep rendering.
func NormalizeStatus(s string) Status {
	st, _ := ParseStatus(s)
	return st
}

// Passing reports whether the status counts the course as approved.
func (s Status) Passing() bool {
	return s == StatusPassed || s == StatusApproved
}

// Item is one recorded course attempt by a student.
type Item struct {
	ID         int       `json:"history_id"`
	CourseID   int       `json:"course_id"`
	CourseCode string    `json:"course_code"`
	CourseName string    `json:"course_name"`
	Year       int       `json:"year"`
	Term       int       `json:"term"`
	Grade      *float64  `json:"grade"`
	Status     Status    `json:"status"`
	Professor  *string   `json:"professor_name"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

// NewItem contains information needed to record a manual history entry.
// Either CourseID or CourseCode identifies the course.
type NewItem struct {
	CourseID   *int     `json:"course_id" validate:"required_without=CourseCode"`
	CourseCode string   `json:"course_code" validate:"omitempty,coursecode"`
	Year       int      `json:"year" validate:"required,min=1950,max=2100"`
	Term       int      `json:"term" validate:"required,min=1,max=3"`
	Grade      *float64 `json:"grade" validate:"omitempty,min=0,max=100"`
	Status     string   `json:"status" validate:"required"`
	Professor  *string  `json:"professor_name"`
}

func (ni *NewItem) Validate(validate *validator.Validate) error {
	ni.CourseCode = core.CleanString(ni.CourseCode, true /* lower */)
	if err := validate.Struct(ni); err != nil {
		return err
	}
	if _, err := ParseStatus(ni.Status); err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "status", Error: err.Error()})
	}
	return nil
}

// UpdateItem defines what may be modified on an existing entry.
type UpdateItem struct {
	CourseID   *int     `json:"course_id"`
	CourseCode string   `json:"course_code" validate:"omitempty,coursecode"`
	Year       *int     `json:"year" validate:"omitempty,min=1950,max=2100"`
	Term       *int     `json:"term" validate:"omitempty,min=1,max=3"`
	Grade      *float64 `json:"grade" validate:"omitempty,min=0,max=100"`
	Status     string   `json:"status"`
	Professor  *string  `json:"professor_name"`
}

func (ui *UpdateItem) Validate(validate *validator.Validate) error {
	ui.CourseCode = core.CleanString(ui.CourseCode, true /* lower */)
	if err := validate.Struct(ui); err != nil {
		return err
	}
	if ui.Status != "" {
		if _, err := ParseStatus(ui.Status); err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "status", Error: err.Error()})
		}
	}
	return nil
}

// BulkItem is one row of a bulk upsert keyed by course code.
type BulkItem struct {
	CourseCode string   `json:"course_code" validate:"required,coursecode"`
	Year       *int     `json:"year" validate:"omitempty,min=1950,max=2100"`
	Term       *int     `json:"term" validate:"omitempty,min=1,max=3"`
	Grade      *float64 `json:"grade" validate:"omitempty,min=0,max=100"`
	Status     string   `json:"status" validate:"required"`
	Professor  *string  `json:"professor_name"`
}

type BulkRequest struct {
	Items []BulkItem `json:"items" validate:"required,min=1,max=500,dive"`
}

func (br *BulkRequest) Validate(validate *validator.Validate) error {
	for i := range br.Items {
		br.Items[i].CourseCode = core.CleanString(br.Items[i].CourseCode, true /* lower */)
	}
	return validate.Struct(br)
}

type BulkError struct {
	Index      int    `json:"index"`
	CourseCode string `json:"course_code"`
	Reason     string `json:"reason"`
}

type BulkResult struct {
	Inserted int         `json:"inserted"`
	Updated  int         `json:"updated"`
	Skipped  int         `json:"skipped"`
	Errors   []BulkError `json:"errors"`
}

// NormalizedItem is a parsed transcript row, not yet persisted.
type NormalizedItem struct {
	CourseCode string   `json:"course_code"`
	CourseName string   `json:"course_name"`
	Year       int      `json:"year"`
	Term       int      `json:"term"`
	Grade      *float64 `json:"grade"`
	Status     Status   `json:"status"`
	Professor  *string  `json:"professor_name"`
}

type ImportPreviewRequest struct {
	RawText      string `json:"raw_text" validate:"required"`
	FallbackYear int    `json:"fallback_year" validate:"omitempty,min=1950,max=2100"`
	FallbackTerm int    `json:"fallback_term" validate:"omitempty,min=1,max=3"`
}

func (pr *ImportPreviewRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(pr)
}

type ImportPreview struct {
	RowsParsed    int              `json:"rows_parsed"`
	MissingGrades int              `json:"missing_grades"`
	AvgGrade      *float64         `json:"avg_grade"`
	Items         []NormalizedItem `json:"items"`
	Errors        []string         `json:"errors"`
}

type ImportCommitRequest struct {
	Items []NormalizedItem `json:"items" validate:"required,min=1,max=500"`
}

func (cr *ImportCommitRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(cr)
}

type ImportCommitResult struct {
	InsertedOrUpdated int      `json:"inserted_or_updated"`
	CreatedCourses    int      `json:"created_courses"`
	MissingGrades     int      `json:"missing_grades"`
	Errors            []string `json:"errors"`
}
