package history

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ricardious/semestrix/core"
)

// Transcript rows are tab- or multi-space-separated columns:
//
//	CODE  NAME  GRADE  STATUS  [YEAR  [TERM]]
//
// GRADE may be "-" when the transcript carries no grade. YEAR and TERM fall
// back to the request values when absent.
var (
	columnSplitRegex = regexp.MustCompile(`\t+| {2,}`)
	courseCodeRegex  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)
)

func (svc *service) PreviewImport(req ImportPreviewRequest) ImportPreview {
	preview := ImportPreview{
		Items:  []NormalizedItem{},
		Errors: []string{},
	}

	var gradeSum float64
	var gradeCount int

	for n, line := range strings.Split(req.RawText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		item, err := parseTranscriptRow(line, req.FallbackYear, req.FallbackTerm)
		if err != nil {
			preview.Errors = append(preview.Errors, fmt.Sprintf("line %d: %v", n+1, err))
			continue
		}

		if item.Grade == nil {
			preview.MissingGrades++
		} else {
			gradeSum += *item.Grade
			gradeCount++
		}
		preview.Items = append(preview.Items, item)
	}

	preview.RowsParsed = len(preview.Items)
	if gradeCount > 0 {
		avg := gradeSum / float64(gradeCount)
		preview.AvgGrade = &avg
	}
	return preview
}

func parseTranscriptRow(line string, fallbackYear, fallbackTerm int) (NormalizedItem, error) {
	fields := columnSplitRegex.Split(line, -1)
	if len(fields) < 4 {
		return NormalizedItem{}, fmt.Errorf("expected at least 4 columns, got %d", len(fields))
	}

	code := core.CleanString(fields[0], true /* lower */)
	if !courseCodeRegex.MatchString(code) {
		return NormalizedItem{}, fmt.Errorf("invalid course code %q", fields[0])
	}
	name := core.CleanString(fields[1])
	if name == "" {
		return NormalizedItem{}, fmt.Errorf("missing course name")
	}

	var grade *float64
	if raw := strings.TrimSpace(fields[2]); raw != "" && raw != "-" {
		g, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return NormalizedItem{}, fmt.Errorf("invalid grade %q", raw)
		}
		grade = &g
	}

	status, err := ParseStatus(fields[3])
	if err != nil {
		return NormalizedItem{}, fmt.Errorf("unknown status %q", fields[3])
	}

	year := fallbackYear
	if len(fields) > 4 {
		if year, err = strconv.Atoi(strings.TrimSpace(fields[4])); err != nil {
			return NormalizedItem{}, fmt.Errorf("invalid year %q", fields[4])
		}
	}
	if year == 0 {
		return NormalizedItem{}, fmt.Errorf("missing year and no fallback provided")
	}

	term := fallbackTerm
	if len(fields) > 5 {
		if term, err = strconv.Atoi(strings.TrimSpace(fields[5])); err != nil {
			return NormalizedItem{}, fmt.Errorf("invalid term %q", fields[5])
		}
	}
	if term == 0 {
		return NormalizedItem{}, fmt.Errorf("missing term and no fallback provided")
	}

	return NormalizedItem{
		CourseCode: code,
		CourseName: name,
		Year:       year,
		Term:       term,
		Grade:      grade,
		Status:     status,
	}, nil
}
