package program

import "time"

// RequirementType discriminates the constraint attached to a curriculum course.
type RequirementType string

const (
	RequirementPrerequisite RequirementType = "prerequisite"
	RequirementCorequisite  RequirementType = "corequisite"
	RequirementCredit       RequirementType = "credit"
	// RequirementConcurrent is reserved; the evaluator ignores it.
	RequirementConcurrent RequirementType = "concurrent"
)

// RequirementRule is one typed constraint on a curriculum course.
// Value is another course's id for prerequisite/corequisite/concurrent rules,
// or a cumulative credit threshold for credit rules.
type RequirementRule struct {
	Type  RequirementType `json:"type"`
	Value int             `json:"value"`
}

// Version statuses
const (
	VersionActive     = "active"
	VersionInactive   = "inactive"
	VersionDeprecated = "deprecated"
)

type Program struct {
	ID          int       `json:"program_id"`
	Code        string    `json:"program_code"`
	Name        string    `json:"program_name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

type Version struct {
	ID        int       `json:"version_id"`
	ProgramID int       `json:"program_id"`
	Year      int       `json:"version_year"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// ActiveVersion is a Version bundled with its Program for onboarding screens.
type ActiveVersion struct {
	Version
	Program Program `json:"program"`
}

// Course is a catalog entry, independent of any curriculum version.
type Course struct {
	ID   int    `json:"course_id"`
	Code string `json:"course_code"`
	Name string `json:"course_name"`
}

// CourseNode is one course as it appears inside a specific curriculum version.
// The numeric course id is stable and global; the code is human-facing and may
// repeat across curriculum versions.
type CourseNode struct {
	CurriculumCourseID int               `json:"curriculum_course_id"`
	CourseID           int               `json:"course_id"`
	Code               string            `json:"course_code"`
	Name               string            `json:"course_name"`
	Credits            int               `json:"credits"`
	Mandatory          bool              `json:"is_mandatory"`
	SuggestedSemester  *int              `json:"suggested_semester"`
	DisplayOrder       *int              `json:"display_order"`
	Requirements       []RequirementRule `json:"requirements"`
}

// Semester is a named bucket of CourseNodes. TotalCredits is the semester's
// nominal credit load as supplied by the source; it is never recomputed.
type Semester struct {
	Number       int          `json:"semester"`
	TotalCredits int          `json:"total_credits"`
	Courses      []CourseNode `json:"courses"`
}

// CurriculumStructure is the full graph for one program version.
// Semesters are not guaranteed sorted; consumers sort by number ascending.
type CurriculumStructure struct {
	VersionID int        `json:"version_id"`
	ProgramID int        `json:"program_id"`
	Year      int        `json:"version_year"`
	Semesters []Semester `json:"semesters"`
}

// CourseFilter narrows catalog course queries.
type CourseFilter struct {
	Search string `query:"search"`
	Limit  int    `query:"limit"`
	Offset int    `query:"offset"`
}

func (f *CourseFilter) Clean() {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// CoursePage is one page of catalog courses.
type CoursePage struct {
	Items  []Course `json:"items"`
	Total  int      `json:"total"`
	Limit  int      `json:"limit"`
	Offset int      `json:"offset"`
}
