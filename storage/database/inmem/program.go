package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/ricardious/semestrix/core/program"
)

type programRepository struct {
	db *programTable
}

var _ program.Repository = (*programRepository)(nil) // interface compliance check

func NewProgramRepository(db *DB) *programRepository {
	return &programRepository{db: db.program}
}

func (repo *programRepository) QueryAllPrograms(ctx context.Context) ([]program.Program, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	progs := make([]program.Program, 0, len(repo.db.programs))
	for _, p := range repo.db.programs {
		progs = append(progs, *p)
	}
	sort.Slice(progs, func(i, j int) bool { return progs[i].Code < progs[j].Code })
	return progs, nil
}

func (repo *programRepository) GetProgramByCode(ctx context.Context, code string) (program.Program, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, p := range repo.db.programs {
		if p.Code == code {
			return *p, nil
		}
	}
	return program.Program{}, program.ErrNotFound
}

func (repo *programRepository) GetProgramByID(ctx context.Context, id int) (program.Program, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.programs[id]; ok {
		return *p, nil
	}
	return program.Program{}, program.ErrNotFound
}

func (repo *programRepository) CreateProgram(ctx context.Context, prog program.Program) (program.Program, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, p := range repo.db.programs {
		if p.Code == prog.Code {
			return program.Program{}, program.ErrProgramCodeExists
		}
	}

	repo.db.programPK++
	prog.ID = repo.db.programPK
	now := time.Now().UTC()
	prog.CreatedAt, prog.UpdatedAt = now, now
	repo.db.programs[prog.ID] = &prog
	return prog, nil
}

func (repo *programRepository) GetVersion(ctx context.Context, versionID int) (program.Version, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.getVersion(versionID)
}

func (repo *programRepository) getVersion(versionID int) (program.Version, error) {
	if v, ok := repo.db.versions[versionID]; ok {
		return *v, nil
	}
	return program.Version{}, program.ErrVersionNotFound
}

func (repo *programRepository) GetActiveVersion(ctx context.Context, programCode string) (program.ActiveVersion, error) {
	prog, err := repo.GetProgramByCode(ctx, programCode)
	if err != nil {
		return program.ActiveVersion{}, err
	}
	return repo.activeVersionOf(prog)
}

func (repo *programRepository) GetActiveVersionByProgramID(ctx context.Context, programID int) (program.ActiveVersion, error) {
	prog, err := repo.GetProgramByID(ctx, programID)
	if err != nil {
		return program.ActiveVersion{}, err
	}
	return repo.activeVersionOf(prog)
}

func (repo *programRepository) activeVersionOf(prog program.Program) (program.ActiveVersion, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, v := range repo.db.versions {
		if v.ProgramID == prog.ID && v.Status == program.VersionActive {
			return program.ActiveVersion{Version: *v, Program: prog}, nil
		}
	}
	return program.ActiveVersion{}, program.ErrNoActiveVersion
}

func (repo *programRepository) CreateVersion(ctx context.Context, ver program.Version) (program.Version, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.programs[ver.ProgramID]; !ok {
		return program.Version{}, program.ErrNotFound
	}
	if ver.Status == "" {
		ver.Status = program.VersionInactive
	}

	repo.db.versionPK++
	ver.ID = repo.db.versionPK
	now := time.Now().UTC()
	ver.CreatedAt, ver.UpdatedAt = now, now
	repo.db.versions[ver.ID] = &ver
	return ver, nil
}

func (repo *programRepository) GetStructure(ctx context.Context, versionID int) (program.CurriculumStructure, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ver, err := repo.getVersion(versionID)
	if err != nil {
		return program.CurriculumStructure{}, err
	}

	semesterIdx := make(map[int]int)
	semesters := make([]program.Semester, 0)
	for _, row := range repo.db.curriculum {
		if row.versionID != versionID {
			continue
		}
		node := row.node
		if node.Requirements == nil {
			node.Requirements = []program.RequirementRule{}
		}

		idx, ok := semesterIdx[row.semester]
		if !ok {
			idx = len(semesters)
			semesterIdx[row.semester] = idx
			semesters = append(semesters, program.Semester{Number: row.semester, Courses: []program.CourseNode{}})
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

func (repo *programRepository) AddCurriculumCourse(ctx context.Context, versionID, semester int, node program.CourseNode) (program.CourseNode, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.versions[versionID]; !ok {
		return program.CourseNode{}, program.ErrVersionNotFound
	}
	if _, ok := repo.db.courses[node.CourseID]; !ok {
		return program.CourseNode{}, program.ErrCourseNotFound
	}

	repo.db.curriculumPK++
	node.CurriculumCourseID = repo.db.curriculumPK
	repo.db.curriculum = append(repo.db.curriculum, curriculumRow{
		versionID: versionID,
		semester:  semester,
		node:      node,
	})
	return node, nil
}

func (repo *programRepository) GetCourseByID(ctx context.Context, id int) (program.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return *c, nil
	}
	return program.Course{}, program.ErrCourseNotFound
}

func (repo *programRepository) GetCourseByCode(ctx context.Context, code string) (program.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, c := range repo.db.courses {
		if c.Code == code {
			return *c, nil
		}
	}
	return program.Course{}, program.ErrCourseNotFound
}

func (repo *programRepository) CreateCourse(ctx context.Context, c program.Course) (program.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.coursePK++
	c.ID = repo.db.coursePK
	repo.db.courses[c.ID] = &c
	return c, nil
}

func (repo *programRepository) QueryCourses(ctx context.Context, filter program.CourseFilter) (program.CoursePage, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	all := make([]program.Course, 0, len(repo.db.courses))
	for _, c := range repo.db.courses {
		if filter.Search != "" {
			s := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(c.Code), s) && !strings.Contains(strings.ToLower(c.Name), s) {
				continue
			}
		}
		all = append(all, *c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })

	total := len(all)
	start := filter.Offset
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if filter.Limit <= 0 || end > total {
		end = total
	}

	return program.CoursePage{
		Items:  all[start:end],
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}
