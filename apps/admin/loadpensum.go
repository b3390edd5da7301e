package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ricardious/semestrix/core"
	"github.com/ricardious/semestrix/core/program"
)

// pensumRow is one parsed spreadsheet row.
// Expected columns: semester | code | name | credits | mandatory | requirements
// Requirements use "type:ref" pairs separated by ";", where ref is a course
// code for prerequisite/corequisite and a credit threshold for credit rules,
// e.g. "prerequisite:MAT101;credit:40".
type pensumRow struct {
	semester     int
	code         string
	name         string
	credits      int
	mandatory    bool
	requirements string
}

// loadPensum imports a curriculum spreadsheet: it creates the program (if
// missing), a new active version for the given year, the course catalog
// entries and the curriculum graph with its requirement rules.
func (cli *commandLine) loadPensum(file, programCode, programName string, year int) error {
	ctx := context.Background()

	rows, err := readPensumFile(file)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("%s: no course rows found", file)
	}

	programCode = core.CleanString(programCode, true /* lower */)
	if programName == "" {
		programName = programCode
	}

	prog, err := cli.progRepo.GetProgramByCode(ctx, programCode)
	if err != nil {
		if err != program.ErrNotFound {
			return err
		}
		if prog, err = cli.progRepo.CreateProgram(ctx, program.Program{Code: programCode, Name: programName}); err != nil {
			return err
		}
		logger.Printf("created program %q (#%d)", prog.Code, prog.ID)
	}

	status := program.VersionActive
	if _, err = cli.progRepo.GetActiveVersion(ctx, prog.Code); err == nil {
		// keep the existing active version; the new one must be activated manually
		status = program.VersionInactive
	}
	ver, err := cli.progRepo.CreateVersion(ctx, program.Version{ProgramID: prog.ID, Year: year, Status: status})
	if err != nil {
		return err
	}
	logger.Printf("created version %d/%d (#%d, %s)", year, prog.ID, ver.ID, ver.Status)

	// first pass: make sure every course exists, so requirement refs resolve
	// regardless of row order
	courseIDs := make(map[string]int, len(rows))
	for _, row := range rows {
		course, err := cli.progRepo.GetCourseByCode(ctx, row.code)
		if err != nil {
			if err != program.ErrCourseNotFound {
				return err
			}
			if course, err = cli.progRepo.CreateCourse(ctx, program.Course{Code: row.code, Name: row.name}); err != nil {
				return err
			}
		}
		courseIDs[row.code] = course.ID
	}

	// second pass: attach courses and their rules to the version
	for _, row := range rows {
		rules, err := parseRequirements(row.requirements, courseIDs)
		if err != nil {
			return fmt.Errorf("course %s: %v", row.code, err)
		}

		node := program.CourseNode{
			CourseID:     courseIDs[row.code],
			Code:         row.code,
			Name:         row.name,
			Credits:      row.credits,
			Mandatory:    row.mandatory,
			Requirements: rules,
		}
		if _, err = cli.progRepo.AddCurriculumCourse(ctx, ver.ID, row.semester, node); err != nil {
			return err
		}
	}

	logger.Printf("imported %d courses into version #%d", len(rows), ver.ID)
	return nil
}

func readPensumFile(file string) ([]pensumRow, error) {
	f, err := excelize.OpenFile(file)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %v", file, err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	raw, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %v", sheet, err)
	}

	rows := make([]pensumRow, 0, len(raw))
	for i, cells := range raw {
		if i == 0 {
			continue // header
		}
		if len(cells) < 4 || strings.TrimSpace(cells[1]) == "" {
			continue
		}

		semester, err := strconv.Atoi(strings.TrimSpace(cells[0]))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid semester %q", i+1, cells[0])
		}
		credits, err := strconv.Atoi(strings.TrimSpace(cells[3]))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid credits %q", i+1, cells[3])
		}

		row := pensumRow{
			semester:  semester,
			code:      core.CleanString(cells[1], true /* lower */),
			name:      core.CleanString(cells[2]),
			credits:   credits,
			mandatory: true,
		}
		if len(cells) > 4 {
			switch strings.ToLower(strings.TrimSpace(cells[4])) {
			case "", "1", "yes", "si", "sí", "true":
			default:
				row.mandatory = false
			}
		}
		if len(cells) > 5 {
			row.requirements = strings.TrimSpace(cells[5])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRequirements(spec string, courseIDs map[string]int) ([]program.RequirementRule, error) {
	if spec == "" {
		return nil, nil
	}

	var rules []program.RequirementRule
	for _, part := range strings.Split(spec, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid requirement %q", part)
		}

		typ := program.RequirementType(strings.ToLower(strings.TrimSpace(kv[0])))
		ref := strings.TrimSpace(kv[1])

		var value int
		switch typ {
		case program.RequirementCredit:
			v, err := strconv.Atoi(ref)
			if err != nil {
				return nil, fmt.Errorf("invalid credit threshold %q", ref)
			}
			value = v
		case program.RequirementPrerequisite, program.RequirementCorequisite, program.RequirementConcurrent:
			id, ok := courseIDs[core.CleanString(ref, true /* lower */)]
			if !ok {
				return nil, fmt.Errorf("unknown course reference %q", ref)
			}
			value = id
		default:
			return nil, fmt.Errorf("unknown requirement type %q", kv[0])
		}
		rules = append(rules, program.RequirementRule{Type: typ, Value: value})
	}
	return rules, nil
}
