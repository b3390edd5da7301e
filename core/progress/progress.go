// Package progress computes degree progress from a curriculum structure and a
// student's course history. Evaluation is a pure function of its two inputs:
// it performs no I/O, keeps no state between calls and is safe to re-run on
// every data refresh.
package progress

import (
	"fmt"
	"sort"

	"github.com/ricardious/semestrix/core/history"
	"github.com/ricardious/semestrix/core/program"
)

// Status is the computed eligibility of one curriculum course.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusAvailable Status = "available"
	StatusWarning   Status = "warning"
	StatusLocked    Status = "locked"
)

// CourseProgress is a curriculum course annotated with its computed status,
// the matching history entry (if any) and human-readable descriptions of
// every unmet requirement. Derived, never persisted.
type CourseProgress struct {
	program.CourseNode
	Status              Status        `json:"status"`
	HistoryItem         *history.Item `json:"history_item,omitempty"`
	MissingRequirements []string      `json:"missing_requirements"`
}

// SemesterProgress annotates one semester. ApprovedCredits is recomputed from
// the courses whose status is completed; TotalCredits stays the nominal load
// supplied by the curriculum source.
type SemesterProgress struct {
	Semester        int              `json:"semester"`
	TotalCredits    int              `json:"total_credits"`
	ApprovedCredits int              `json:"approved_credits"`
	Courses         []CourseProgress `json:"courses"`
}

type Overall struct {
	TotalCredits    int `json:"total_credits"`
	ApprovedCredits int `json:"approved_credits"`
	CompletedCount  int `json:"completed_count"`
	TotalCount      int `json:"total_count"`
}

type Report struct {
	Semesters       []SemesterProgress `json:"semesters"`
	Extracurriculars []history.Item    `json:"extracurriculars"`
	Overall         Overall            `json:"overall_progress"`
}

func emptyReport() Report {
	return Report{
		Semesters:        []SemesterProgress{},
		Extracurriculars: []history.Item{},
	}
}

// Evaluate computes per-course eligibility and aggregate progress.
//
// A nil structure or a nil history slice means "not yet loaded" and yields an
// empty, well-typed Report so callers can render an empty state uniformly.
// An empty (non-nil) history is a student with no records and evaluates
// normally.
//
// Course status never depends on another course's computed status, only on
// the global passed set and the cumulative approved credits, so courses are
// evaluated in input order with no topological sort.
func Evaluate(structure *program.CurriculumStructure, items []history.Item) Report {
	if structure == nil || items == nil {
		return emptyReport()
	}

	// index construction
	courseByID := make(map[int]program.CourseNode)
	nameByID := make(map[int]string)
	for _, sem := range structure.Semesters {
		for _, c := range sem.Courses {
			courseByID[c.CourseID] = c
			nameByID[c.CourseID] = c.Name
		}
	}

	// classify history; last write wins on duplicate course ids
	itemByCourseID := make(map[int]history.Item, len(items))
	extracurriculars := []history.Item{}
	for _, it := range items {
		itemByCourseID[it.CourseID] = it
		if _, ok := courseByID[it.CourseID]; !ok {
			extracurriculars = append(extracurriculars, it)
		}
	}

	// the passed set and the cumulative credit total must be final before any
	// per-course status is computed: credit rules check the final total
	passed := make(map[int]bool, len(itemByCourseID))
	var approvedCredits, completedCount int
	for id, it := range itemByCourseID {
		if !it.Status.Passing() {
			continue
		}
		passed[id] = true
		if course, ok := courseByID[id]; ok {
			approvedCredits += course.Credits
			completedCount++
		}
		// out-of-curriculum passes contribute nothing to progress
	}

	semesters := make([]SemesterProgress, 0, len(structure.Semesters))
	var totalCredits, totalCount int
	for _, sem := range structure.Semesters {
		courses := make([]CourseProgress, 0, len(sem.Courses))
		var semApproved int

		for _, course := range sem.Courses {
			cp := evaluateCourse(course, passed, approvedCredits, nameByID, itemByCourseID)
			if cp.Status == StatusCompleted {
				semApproved += course.Credits
			}
			courses = append(courses, cp)
		}

		semesters = append(semesters, SemesterProgress{
			Semester:        sem.Number,
			TotalCredits:    sem.TotalCredits,
			ApprovedCredits: semApproved,
			Courses:         courses,
		})
		totalCredits += sem.TotalCredits
		totalCount += len(sem.Courses)
	}

	sort.SliceStable(semesters, func(i, j int) bool { return semesters[i].Semester < semesters[j].Semester })

	return Report{
		Semesters:        semesters,
		Extracurriculars: extracurriculars,
		Overall: Overall{
			TotalCredits:    totalCredits,
			ApprovedCredits: approvedCredits,
			CompletedCount:  completedCount,
			TotalCount:      totalCount,
		},
	}
}

func evaluateCourse(
	course program.CourseNode,
	passed map[int]bool,
	approvedCredits int,
	nameByID map[int]string,
	itemByCourseID map[int]history.Item,
) CourseProgress {
	cp := CourseProgress{
		CourseNode:          course,
		MissingRequirements: []string{},
	}
	if it, ok := itemByCourseID[course.CourseID]; ok {
		item := it
		cp.HistoryItem = &item
	}

	if passed[course.CourseID] {
		cp.Status = StatusCompleted
		return cp
	}

	// every rule is evaluated; all unmet requirements are reported, not just
	// the first
	var hardFail, coreqMissing bool
	for _, req := range course.Requirements {
		switch req.Type {
		case program.RequirementPrerequisite:
			if !passed[req.Value] {
				hardFail = true
				cp.MissingRequirements = append(cp.MissingRequirements,
					fmt.Sprintf("Prerrequisito: %s", refName(nameByID, req.Value)))
			}
		case program.RequirementCredit:
			if approvedCredits < req.Value {
				hardFail = true
				cp.MissingRequirements = append(cp.MissingRequirements,
					fmt.Sprintf("Créditos: Requiere %d (Tienes %d)", req.Value, approvedCredits))
			}
		case program.RequirementCorequisite:
			// a corequisite can be taken concurrently, so an unmet one warns
			// without blocking availability
			if !passed[req.Value] {
				coreqMissing = true
				cp.MissingRequirements = append(cp.MissingRequirements,
					fmt.Sprintf("Correquisito: %s", refName(nameByID, req.Value)))
			}
		}
		// RequirementConcurrent is reserved and ignored
	}

	switch {
	case hardFail:
		cp.Status = StatusLocked
	case coreqMissing:
		cp.Status = StatusWarning
	default:
		cp.Status = StatusAvailable
	}
	return cp
}

// refName resolves a referenced course id to its display name; dangling
// references degrade to a placeholder label instead of aborting evaluation.
func refName(nameByID map[int]string, id int) string {
	if name, ok := nameByID[id]; ok {
		return name
	}
	return fmt.Sprintf("Curso #%d", id)
}
