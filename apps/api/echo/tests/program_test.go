package tests

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/ricardious/semestrix/core/program"
	"github.com/ricardious/semestrix/core/user"
	testutil "github.com/ricardious/semestrix/tests"
)

func Test_programApi_query(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "heroe1", "hero@test.gt", "", []string{user.RoleStudent}, true)
	token := getToken(t, student)

	sis := testutil.CreateProgramWithVersion(t, progRepo, "sis", "Ingeniería en Sistemas", 2024)
	civ := testutil.CreateProgramWithVersion(t, progRepo, "civ", "Ingeniería Civil", 2022)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/programs", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Get all (ordered by code)", path: "/v1/programs", token: token, wantCode: http.StatusOK,
			wantData: marchallList(t, civ.Program, sis.Program),
		},
		{
			name: "Retrieve", path: "/v1/programs/sis", token: token, wantCode: http.StatusOK,
			wantData: marchallObj(t, sis.Program),
		},
		{
			name: "Retrieve is case-insensitive", path: "/v1/programs/SIS", token: token, wantCode: http.StatusOK,
			wantData: marchallObj(t, sis.Program),
		},
		{
			name: "Retrieve unknown", path: "/v1/programs/lol", token: token, wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "Active version", path: "/v1/programs/civ/active-version", token: token, wantCode: http.StatusOK,
			wantData: marchallObj(t, civ),
		},
		{
			name: "Active version of unknown program", path: "/v1/programs/lol/active-version", token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_programApi_noActiveVersion(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "heroe1", "hero@test.gt", "", []string{user.RoleStudent}, true)
	token := getToken(t, student)

	// program exists but only carries an inactive version
	ctx := context.Background()
	prog, err := progRepo.CreateProgram(ctx, program.Program{Code: "arq", Name: "Arquitectura"})
	if err != nil {
		t.Fatalf("CreateProgram(): %v", err)
	}
	if _, err := progRepo.CreateVersion(ctx, program.Version{ProgramID: prog.ID, Year: 2020}); err != nil {
		t.Fatalf("CreateVersion(): %v", err)
	}

	tt := httpTest{
		name: "No active version", method: http.MethodGet, path: "/v1/programs/arq/active-version", token: token,
		wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
	}
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
}

func Test_programApi_structure(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "heroe1", "hero@test.gt", "", []string{user.RoleStudent}, true)
	token := getToken(t, student)

	sis := testutil.CreateProgramWithVersion(t, progRepo, "sis", "Ingeniería en Sistemas", 2024)
	mat := testutil.AddCourse(t, progRepo, sis.ID, 1, "mat101", "Matemática Básica 1", 10)
	testutil.AddCourse(t, progRepo, sis.ID, 1, "idm101", "Idioma Técnico 1", 5)
	testutil.AddCourse(t, progRepo, sis.ID, 2, "mat102", "Matemática Básica 2", 10,
		program.RequirementRule{Type: program.RequirementPrerequisite, Value: mat.CourseID},
	)

	structure, err := progRepo.GetStructure(context.Background(), sis.ID)
	if err != nil {
		t.Fatalf("GetStructure(): %v", err)
	}
	if len(structure.Semesters) != 2 {
		t.Fatalf("GetStructure() semesters = %d; want 2", len(structure.Semesters))
	}

	tests := []httpTest{
		{
			name: "Auth required", path: "/v1/programs/curriculums/" + strconv.Itoa(sis.ID) + "/structure",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Structure", path: "/v1/programs/curriculums/" + strconv.Itoa(sis.ID) + "/structure", token: token,
			wantCode: http.StatusOK, wantData: marchallObj(t, structure),
		},
		{
			name: "Unknown version", path: "/v1/programs/curriculums/999/structure", token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "Non-numeric version", path: "/v1/programs/curriculums/lol/structure", token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_programApi_queryCourses(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "heroe1", "hero@test.gt", "", []string{user.RoleStudent}, true)
	token := getToken(t, student)

	sis := testutil.CreateProgramWithVersion(t, progRepo, "sis", "Ingeniería en Sistemas", 2024)
	mat1 := testutil.AddCourse(t, progRepo, sis.ID, 1, "mat101", "Matemática Básica 1", 10)
	mat2 := testutil.AddCourse(t, progRepo, sis.ID, 2, "mat102", "Matemática Básica 2", 10)
	idm := testutil.AddCourse(t, progRepo, sis.ID, 1, "idm101", "Idioma Técnico 1", 5)

	course := func(n program.CourseNode) program.Course {
		return program.Course{ID: n.CourseID, Code: n.Code, Name: n.Name}
	}
	catalog := []program.Course{course(idm), course(mat1), course(mat2)} // ordered by code

	tests := []httpTest{
		{name: "Auth required", path: "/v1/programs/courses", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "All courses", path: "/v1/programs/courses", token: token, wantCode: http.StatusOK,
			wantData: marchallObj(t, program.CoursePage{Items: catalog, Total: 3, Limit: 50}),
		},
		{
			name: "Search", path: "/v1/programs/courses?search=mat", token: token, wantCode: http.StatusOK,
			wantData: marchallObj(t, program.CoursePage{Items: catalog[1:], Total: 2, Limit: 50}),
		},
		{
			name: "Search (no match)", path: "/v1/programs/courses?search=lol", token: token, wantCode: http.StatusOK,
			wantData: marchallObj(t, program.CoursePage{Items: []program.Course{}, Total: 0, Limit: 50}),
		},
		{
			name: "Pagination", path: "/v1/programs/courses?limit=2&offset=1", token: token, wantCode: http.StatusOK,
			wantData: marchallObj(t, program.CoursePage{Items: catalog[1:3], Total: 3, Limit: 2, Offset: 1}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
