package sqlxrepos

import (
	"context"
	"database/sql"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/ricardious/semestrix/core/program"
)

type dbProgram struct {
	ID          int            `db:"id"`
	Code        string         `db:"code"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (p dbProgram) toProgram() program.Program {
	prog := program.Program{
		ID:        p.ID,
		Code:      p.Code,
		Name:      p.Name,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.Description.Valid {
		prog.Description = &p.Description.String
	}
	return prog
}

type dbCurriculumCourse struct {
	ID                int           `db:"id"`
	CourseID          int           `db:"course_id"`
	Code              string        `db:"code"`
	Name              string        `db:"name"`
	Semester          int           `db:"semester"`
	Credits           int           `db:"credits"`
	Mandatory         bool          `db:"mandatory"`
	SuggestedSemester sql.NullInt64 `db:"suggested_semester"`
	DisplayOrder      sql.NullInt64 `db:"display_order"`
}

var programColumns = []string{"id", "code", "name", "description", "created_at", "updated_at"}

type programRepository struct {
	db *sqlx.DB
}

var _ program.Repository = (*programRepository)(nil) // interface compliance check

func NewProgramRepository(db *sqlx.DB) *programRepository {
	return &programRepository{db: db}
}

func (repo programRepository) QueryAllPrograms(ctx context.Context) ([]program.Program, error) {
	stmt, args, err := psql.Select(programColumns...).From("program").OrderBy("code ASC").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building programs query")
	}

	var rows []dbProgram
	if err = repo.db.SelectContext(ctx, &rows, stmt, args...); err != nil {
		return nil, errors.Wrap(err, "querying programs")
	}

	progs := make([]program.Program, 0, len(rows))
	for _, p := range rows {
		progs = append(progs, p.toProgram())
	}
	return progs, nil
}

func (repo programRepository) getProgram(ctx context.Context, pred interface{}, msg string) (program.Program, error) {
	stmt, args, err := psql.Select(programColumns...).From("program").Where(pred).ToSql()
	if err != nil {
		return program.Program{}, errors.Wrap(err, "building program query")
	}

	var p dbProgram
	if err = repo.db.GetContext(ctx, &p, stmt, args...); err != nil {
		if err == sql.ErrNoRows {
			return program.Program{}, program.ErrNotFound
		}
		return program.Program{}, errors.Wrap(err, msg)
	}
	return p.toProgram(), nil
}

func (repo programRepository) GetProgramByCode(ctx context.Context, code string) (program.Program, error) {
	return repo.getProgram(ctx, sq.Eq{"code": code}, "finding program by code")
}

func (repo programRepository) GetProgramByID(ctx context.Context, id int) (program.Program, error) {
	return repo.getProgram(ctx, sq.Eq{"id": id}, "finding program by id")
}

func (repo programRepository) CreateProgram(ctx context.Context, prog program.Program) (program.Program, error) {
	now := time.Now().UTC()
	stmt, args, err := psql.Insert("program").
		Columns("code", "name", "description", "created_at", "updated_at").
		Values(prog.Code, prog.Name, prog.Description, now, now).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return program.Program{}, errors.Wrap(err, "building program insert")
	}
	if err = repo.db.GetContext(ctx, &prog.ID, stmt, args...); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return program.Program{}, program.ErrProgramCodeExists
		}
		return program.Program{}, errors.Wrap(err, "inserting program")
	}
	prog.CreatedAt, prog.UpdatedAt = now, now
	return prog, nil
}

func (repo programRepository) GetVersion(ctx context.Context, versionID int) (program.Version, error) {
	stmt, args, err := psql.Select("id", "program_id", "year", "status", "created_at", "updated_at").
		From("curriculum_version").
		Where(sq.Eq{"id": versionID}).
		ToSql()
	if err != nil {
		return program.Version{}, errors.Wrap(err, "building version query")
	}

	var ver program.Version
	row := repo.db.QueryRowxContext(ctx, stmt, args...)
	if err = row.Scan(&ver.ID, &ver.ProgramID, &ver.Year, &ver.Status, &ver.CreatedAt, &ver.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return program.Version{}, program.ErrVersionNotFound
		}
		return program.Version{}, errors.Wrap(err, "finding version")
	}
	return ver, nil
}

func (repo programRepository) getActiveVersion(ctx context.Context, pred interface{}) (program.ActiveVersion, error) {
	stmt, args, err := psql.Select(
		"v.id", "v.program_id", "v.year", "v.status", "v.created_at", "v.updated_at",
		"p.id", "p.code", "p.name", "p.description", "p.created_at", "p.updated_at").
		From("curriculum_version v").
		Join("program p ON p.id = v.program_id").
		Where(sq.Eq{"v.status": program.VersionActive}).
		Where(pred).
		ToSql()
	if err != nil {
		return program.ActiveVersion{}, errors.Wrap(err, "building active version query")
	}

	var (
		av   program.ActiveVersion
		prog dbProgram
	)
	row := repo.db.QueryRowxContext(ctx, stmt, args...)
	err = row.Scan(
		&av.ID, &av.ProgramID, &av.Year, &av.Status, &av.CreatedAt, &av.UpdatedAt,
		&prog.ID, &prog.Code, &prog.Name, &prog.Description, &prog.CreatedAt, &prog.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return program.ActiveVersion{}, program.ErrNoActiveVersion
		}
		return program.ActiveVersion{}, errors.Wrap(err, "finding active version")
	}
	av.Program = prog.toProgram()
	return av, nil
}

func (repo programRepository) GetActiveVersion(ctx context.Context, programCode string) (program.ActiveVersion, error) {
	// distinguish unknown program from one without an active version
	if _, err := repo.GetProgramByCode(ctx, programCode); err != nil {
		return program.ActiveVersion{}, err
	}
	return repo.getActiveVersion(ctx, sq.Eq{"p.code": programCode})
}

func (repo programRepository) GetActiveVersionByProgramID(ctx context.Context, programID int) (program.ActiveVersion, error) {
	if _, err := repo.GetProgramByID(ctx, programID); err != nil {
		return program.ActiveVersion{}, err
	}
	return repo.getActiveVersion(ctx, sq.Eq{"p.id": programID})
}

func (repo programRepository) CreateVersion(ctx context.Context, ver program.Version) (program.Version, error) {
	now := time.Now().UTC()
	if ver.Status == "" {
		ver.Status = program.VersionInactive
	}
	stmt, args, err := psql.Insert("curriculum_version").
		Columns("program_id", "year", "status", "created_at", "updated_at").
		Values(ver.ProgramID, ver.Year, ver.Status, now, now).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return program.Version{}, errors.Wrap(err, "building version insert")
	}
	if err = repo.db.GetContext(ctx, &ver.ID, stmt, args...); err != nil {
		return program.Version{}, errors.Wrap(err, "inserting version")
	}
	ver.CreatedAt, ver.UpdatedAt = now, now
	return ver, nil
}

// GetStructure assembles the curriculum graph: one query for the version, one
// for its courses and one for all the requirement rules.
func (repo programRepository) GetStructure(ctx context.Context, versionID int) (program.CurriculumStructure, error) {
	ver, err := repo.GetVersion(ctx, versionID)
	if err != nil {
		return program.CurriculumStructure{}, err
	}

	stmt, args, err := psql.Select(
		"cc.id", "cc.course_id", "c.code", "c.name", "cc.semester",
		"cc.credits", "cc.mandatory", "cc.suggested_semester", "cc.display_order").
		From("curriculum_course cc").
		Join("course c ON c.id = cc.course_id").
		Where(sq.Eq{"cc.version_id": versionID}).
		OrderBy("cc.semester ASC", "cc.display_order ASC NULLS LAST", "cc.id ASC").
		ToSql()
	if err != nil {
		return program.CurriculumStructure{}, errors.Wrap(err, "building structure query")
	}

	var courseRows []dbCurriculumCourse
	if err = repo.db.SelectContext(ctx, &courseRows, stmt, args...); err != nil {
		return program.CurriculumStructure{}, errors.Wrap(err, "querying curriculum courses")
	}

	stmt, args, err = psql.Select("cr.curriculum_course_id", "cr.type", "cr.value").
		From("course_requirement cr").
		Join("curriculum_course cc ON cc.id = cr.curriculum_course_id").
		Where(sq.Eq{"cc.version_id": versionID}).
		OrderBy("cr.id ASC").
		ToSql()
	if err != nil {
		return program.CurriculumStructure{}, errors.Wrap(err, "building requirements query")
	}

	reqRows, err := repo.db.QueryxContext(ctx, stmt, args...)
	if err != nil {
		return program.CurriculumStructure{}, errors.Wrap(err, "querying requirements")
	}
	defer func() { _ = reqRows.Close() }()

	reqsByCC := make(map[int][]program.RequirementRule)
	for reqRows.Next() {
		var (
			ccID int
			rule program.RequirementRule
		)
		if err = reqRows.Scan(&ccID, &rule.Type, &rule.Value); err != nil {
			return program.CurriculumStructure{}, errors.Wrap(err, "scanning requirement")
		}
		reqsByCC[ccID] = append(reqsByCC[ccID], rule)
	}
	if err = reqRows.Err(); err != nil {
		return program.CurriculumStructure{}, errors.Wrap(err, "querying requirements")
	}

	semesterIdx := make(map[int]int)
	semesters := make([]program.Semester, 0)
	for _, row := range courseRows {
		node := program.CourseNode{
			CurriculumCourseID: row.ID,
			CourseID:           row.CourseID,
			Code:               row.Code,
			Name:               row.Name,
			Credits:            row.Credits,
			Mandatory:          row.Mandatory,
			Requirements:       reqsByCC[row.ID],
		}
		if row.SuggestedSemester.Valid {
			v := int(row.SuggestedSemester.Int64)
			node.SuggestedSemester = &v
		}
		if row.DisplayOrder.Valid {
			v := int(row.DisplayOrder.Int64)
			node.DisplayOrder = &v
		}
		if node.Requirements == nil {
			node.Requirements = []program.RequirementRule{}
		}

		idx, ok := semesterIdx[row.Semester]
		if !ok {
			idx = len(semesters)
			semesterIdx[row.Semester] = idx
			semesters = append(semesters, program.Semester{Number: row.Semester, Courses: []program.CourseNode{}})
		}
		semesters[idx].Courses = append(semesters[idx].Courses, node)
		semesters[idx].TotalCredits += node.Credits
	}
	sort.Slice(semesters, func(i, j int) bool { return semesters[i].Number < semesters[j].Number })

	return program.CurriculumStructure{
		VersionID: ver.ID,
		ProgramID: ver.ProgramID,
		Year:      ver.Year,
		Semesters: semesters,
	}, nil
}

func (repo programRepository) AddCurriculumCourse(ctx context.Context, versionID, semester int, node program.CourseNode) (program.CourseNode, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return program.CourseNode{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, args, err := psql.Insert("curriculum_course").
		Columns("version_id", "course_id", "semester", "credits", "mandatory", "suggested_semester", "display_order").
		Values(versionID, node.CourseID, semester, node.Credits, node.Mandatory, node.SuggestedSemester, node.DisplayOrder).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return program.CourseNode{}, errors.Wrap(err, "building curriculum course insert")
	}
	if err = tx.GetContext(ctx, &node.CurriculumCourseID, stmt, args...); err != nil {
		return program.CourseNode{}, errors.Wrap(err, "inserting curriculum course")
	}

	for _, rule := range node.Requirements {
		stmt, args, err = psql.Insert("course_requirement").
			Columns("curriculum_course_id", "type", "value").
			Values(node.CurriculumCourseID, rule.Type, rule.Value).
			ToSql()
		if err != nil {
			return program.CourseNode{}, errors.Wrap(err, "building requirement insert")
		}
		if _, err = tx.ExecContext(ctx, stmt, args...); err != nil {
			return program.CourseNode{}, errors.Wrap(err, "inserting requirement")
		}
	}

	if err = tx.Commit(); err != nil {
		return program.CourseNode{}, errors.Wrap(err, "committing curriculum course")
	}
	return node, nil
}

func (repo programRepository) getCourse(ctx context.Context, pred interface{}) (program.Course, error) {
	stmt, args, err := psql.Select("id", "code", "name").From("course").Where(pred).ToSql()
	if err != nil {
		return program.Course{}, errors.Wrap(err, "building course query")
	}

	var c program.Course
	row := repo.db.QueryRowxContext(ctx, stmt, args...)
	if err = row.Scan(&c.ID, &c.Code, &c.Name); err != nil {
		if err == sql.ErrNoRows {
			return program.Course{}, program.ErrCourseNotFound
		}
		return program.Course{}, errors.Wrap(err, "finding course")
	}
	return c, nil
}

func (repo programRepository) GetCourseByID(ctx context.Context, id int) (program.Course, error) {
	return repo.getCourse(ctx, sq.Eq{"id": id})
}

func (repo programRepository) GetCourseByCode(ctx context.Context, code string) (program.Course, error) {
	return repo.getCourse(ctx, sq.Eq{"code": code})
}

func (repo programRepository) CreateCourse(ctx context.Context, c program.Course) (program.Course, error) {
	stmt, args, err := psql.Insert("course").
		Columns("code", "name").
		Values(c.Code, c.Name).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return program.Course{}, errors.Wrap(err, "building course insert")
	}
	if err = repo.db.GetContext(ctx, &c.ID, stmt, args...); err != nil {
		return program.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo programRepository) QueryCourses(ctx context.Context, filter program.CourseFilter) (program.CoursePage, error) {
	base := psql.Select().From("course")
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		base = base.Where(sq.Or{sq.ILike{"code": val}, sq.ILike{"name": val}})
	}

	stmt, args, err := base.Column("COUNT(*)").ToSql()
	if err != nil {
		return program.CoursePage{}, errors.Wrap(err, "building course count")
	}
	var total int
	if err = repo.db.GetContext(ctx, &total, stmt, args...); err != nil {
		return program.CoursePage{}, errors.Wrap(err, "counting courses")
	}

	stmt, args, err = base.Columns("id", "code", "name").
		OrderBy("code ASC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		ToSql()
	if err != nil {
		return program.CoursePage{}, errors.Wrap(err, "building courses query")
	}

	rows, err := repo.db.QueryxContext(ctx, stmt, args...)
	if err != nil {
		return program.CoursePage{}, errors.Wrap(err, "querying courses")
	}
	defer func() { _ = rows.Close() }()

	items := make([]program.Course, 0)
	for rows.Next() {
		var c program.Course
		if err = rows.Scan(&c.ID, &c.Code, &c.Name); err != nil {
			return program.CoursePage{}, errors.Wrap(err, "scanning course")
		}
		items = append(items, c)
	}
	if err = rows.Err(); err != nil {
		return program.CoursePage{}, errors.Wrap(err, "querying courses")
	}

	return program.CoursePage{Items: items, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}
