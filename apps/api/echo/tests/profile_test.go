package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/ricardious/semestrix/core/history"
	"github.com/ricardious/semestrix/core/program"
	"github.com/ricardious/semestrix/core/progress"
	"github.com/ricardious/semestrix/core/student"
	"github.com/ricardious/semestrix/core/user"
	testutil "github.com/ricardious/semestrix/tests"
)

func Test_profileApi_onboarding(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Hero", "heroe1", "hero@test.gt", "", []string{user.RoleStudent}, true)
	token := getToken(t, usr)

	sis := testutil.CreateProgramWithVersion(t, progRepo, "sis", "Ingeniería en Sistemas", 2024)

	t.Run("Auth required", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}
		req, rec := newRequest(http.MethodGet, "/v1/profiles/status")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Status without profile", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, student.Status{})}
		req, rec := newAuthRequest(http.MethodGet, "/v1/profiles/status", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("No profile yet", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}
		req, rec := newAuthRequest(http.MethodGet, "/v1/profiles/me", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)

		req, rec = newAuthRequest(http.MethodPost, "/v1/profiles/mark-history-done", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Identity requires a student id", func(t *testing.T) {
		body := marchallObj(t, student.Identity{CareerCode: "sis"})
		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"student_id": "this field is required"})}
		req, rec := newAuthRequest(http.MethodPost, "/v1/profiles/me", token, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Identity with unknown career code", func(t *testing.T) {
		body := marchallObj(t, student.Identity{StudentID: "201900102", CareerCode: "lol"})
		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"career_code": "program not found"})}
		req, rec := newAuthRequest(http.MethodPost, "/v1/profiles/me", token, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Identity with inactive program", func(t *testing.T) {
		ctx := context.Background()
		prog, err := progRepo.CreateProgram(ctx, program.Program{Code: "arq", Name: "Arquitectura"})
		if err != nil {
			t.Fatalf("CreateProgram(): %v", err)
		}
		if _, err = progRepo.CreateVersion(ctx, program.Version{ProgramID: prog.ID, Year: 2020}); err != nil {
			t.Fatalf("CreateVersion(): %v", err)
		}

		body := marchallObj(t, student.Identity{StudentID: "201900102", CareerCode: "arq"})
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"career_code": "program has no active curriculum version"}),
		}
		req, rec := newAuthRequest(http.MethodPost, "/v1/profiles/me", token, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Cannot complete before history", func(t *testing.T) {
		// set identity first
		body := marchallObj(t, student.Identity{StudentID: "201900102", CareerCode: "SIS"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/profiles/me", token, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var p student.Profile
		if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if p.OnboardingStep != student.StepIdentity {
			t.Errorf("failed! step = %d; want %d", p.OnboardingStep, student.StepIdentity)
		}
		if p.ProgramID == nil || *p.ProgramID != sis.Program.ID {
			t.Errorf("failed! program = %v; want %d", p.ProgramID, sis.Program.ID)
		}
		if p.VersionID == nil || *p.VersionID != sis.ID {
			t.Errorf("failed! version = %v; want %d", p.VersionID, sis.ID)
		}

		// skipping the history step is rejected
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"onboarding_step": "previous onboarding step is not complete"}),
		}
		req, rec = newAuthRequest(http.MethodPost, "/v1/profiles/complete", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("History then complete", func(t *testing.T) {
		step := func(path string, want int) student.Profile {
			t.Helper()
			req, rec := newAuthRequest(http.MethodPost, path, token)
			app.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
			}
			var p student.Profile
			if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
				t.Fatalf("json.Unmarshal() failed! err %v", err)
			}
			if p.OnboardingStep != want {
				t.Errorf("failed! step = %d; want %d", p.OnboardingStep, want)
			}
			return p
		}

		step("/v1/profiles/mark-history-done", student.StepHistory)
		step("/v1/profiles/mark-history-done", student.StepHistory) // idempotent
		step("/v1/profiles/complete", student.StepDone)
		step("/v1/profiles/complete", student.StepDone) // idempotent
	})

	t.Run("Status with profile", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/profiles/status", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var st student.Status
		if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if !st.HasProfile {
			t.Error("failed! has_profile = false")
		}
		if st.OnboardingStep != student.StepDone {
			t.Errorf("failed! step = %d; want %d", st.OnboardingStep, student.StepDone)
		}
		if st.StudentID == nil || *st.StudentID != "201900102" {
			t.Errorf("failed! student_id = %v; want 201900102", st.StudentID)
		}
		if st.CareerCode == nil || *st.CareerCode != "sis" {
			t.Errorf("failed! career_code = %v; want sis", st.CareerCode)
		}
	})
}

func Test_profileApi_progress(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Hero", "heroe1", "hero@test.gt", "", []string{user.RoleStudent}, true)
	token := getToken(t, usr)

	sis := testutil.CreateProgramWithVersion(t, progRepo, "sis", "Ingeniería en Sistemas", 2024)
	mat1 := testutil.AddCourse(t, progRepo, sis.ID, 1, "mat101", "Matemática Básica 1", 10)
	idm1 := testutil.AddCourse(t, progRepo, sis.ID, 1, "idm101", "Idioma Técnico 1", 5)
	testutil.AddCourse(t, progRepo, sis.ID, 2, "mat102", "Matemática Básica 2", 10,
		program.RequirementRule{Type: program.RequirementPrerequisite, Value: mat1.CourseID},
		program.RequirementRule{Type: program.RequirementCredit, Value: 15},
	)
	testutil.AddCourse(t, progRepo, sis.ID, 2, "idm102", "Idioma Técnico 2", 5,
		program.RequirementRule{Type: program.RequirementCorequisite, Value: idm1.CourseID},
	)

	t.Run("No profile yet", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}
		req, rec := newAuthRequest(http.MethodGet, "/v1/profiles/me/progress", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	// onboard and record a passed course
	body := marchallObj(t, student.Identity{StudentID: "201900102", CareerCode: "sis"})
	req, rec := newAuthRequest(http.MethodPost, "/v1/profiles/me", token, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("setIdentity failed! code = %v; body %s", rec.Code, rec.Body.String())
	}

	grade := 85.0
	now := time.Now().UTC()
	if _, err := histRepo.CreateItem(context.Background(), usr.ID, history.Item{
		CourseID:   mat1.CourseID,
		CourseCode: mat1.Code,
		CourseName: mat1.Name,
		Year:       2023,
		Term:       1,
		Grade:      &grade,
		Status:     history.StatusApproved,
		CreatedAt:  now,
		UpdatedAt:  now,
	}); err != nil {
		t.Fatalf("CreateItem(): %v", err)
	}

	t.Run("Report", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/profiles/me/progress", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}

		var report progress.Report
		if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}

		want := progress.Overall{TotalCredits: 30, ApprovedCredits: 10, CompletedCount: 1, TotalCount: 4}
		if report.Overall != want {
			t.Errorf("failed! overall = %+v; want %+v", report.Overall, want)
		}
		if len(report.Semesters) != 2 {
			t.Fatalf("failed! len(semesters) = %d; want 2", len(report.Semesters))
		}

		statuses := make(map[string]progress.CourseProgress)
		for _, sem := range report.Semesters {
			for _, c := range sem.Courses {
				statuses[c.Code] = c
			}
		}
		if got := statuses["mat101"]; got.Status != progress.StatusCompleted || got.HistoryItem == nil {
			t.Errorf("failed! mat101 = %q (history %v); want completed with history", got.Status, got.HistoryItem)
		}
		if got := statuses["idm101"]; got.Status != progress.StatusAvailable {
			t.Errorf("failed! idm101 = %q; want available", got.Status)
		}
		if got := statuses["mat102"]; got.Status != progress.StatusLocked ||
			len(got.MissingRequirements) != 1 || got.MissingRequirements[0] != "Créditos: Requiere 15 (Tienes 10)" {
			t.Errorf("failed! mat102 = %q %v; want locked on credits", got.Status, got.MissingRequirements)
		}
		if got := statuses["idm102"]; got.Status != progress.StatusWarning ||
			len(got.MissingRequirements) != 1 || got.MissingRequirements[0] != "Correquisito: Idioma Técnico 1" {
			t.Errorf("failed! idm102 = %q %v; want warning on corequisite", got.Status, got.MissingRequirements)
		}

		// first semester approved credits come from the completed course only
		if report.Semesters[0].ApprovedCredits != 10 {
			t.Errorf("failed! sem1 approved = %d; want 10", report.Semesters[0].ApprovedCredits)
		}
	})
}
