package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/mail"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/ricardious/semestrix/apps/api/echo"
	"github.com/ricardious/semestrix/core/user"
	testutil "github.com/ricardious/semestrix/tests"
)

func Test_userApi_userLogin(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "heroe1", "hero@test.gt", "LolC@t123", []string{user.RoleStudent}, true)
	naughty := testutil.CreateUser(t, usrRepo, "N Dog", "ndog77", "ndog@test.gt", "LolC@t123", []string{user.RoleStudent}, false)

	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "this field is required", "password": "this field is required"}),
		},
		{
			name: "unknown user", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Username: "whodis", Password: "LolC@t123"}),
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Username: student.Username, Password: "nope nope"}),
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", wantCode: http.StatusForbidden,
			body:     marchallObj(t, echoapi.LoginRequest{Username: naughty.Username, Password: "LolC@t123"}),
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "login by username", wantCode: http.StatusOK, body: marchallObj(t, echoapi.LoginRequest{Username: student.Username, Password: "LolC@t123"})},
		{name: "login by email", wantCode: http.StatusOK, body: marchallObj(t, echoapi.LoginRequest{Username: student.Email, Password: "LolC@t123"})},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/login"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userRegister(t *testing.T) {
	app := setup(t)

	testutil.CreateUser(t, usrRepo, "Hero", "heroe1", "hero@test.gt", "", []string{user.RoleStudent}, true)

	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"name":             "this field is required",
				"email":            "this field is required",
				"password":         "this field is required",
				"password_confirm": "this field is required",
			}),
		},
		{
			name: "password confirm mismatch", wantCode: http.StatusBadRequest,
			body: marchallObj(t, user.NewUser{
				Name: "New Kid", Username: "newkid1", Email: "kid@test.gt",
				Password: "LolC@t123", PasswordConfirm: "nope",
			}),
			wantData: marchallObj(t, map[string]string{"password_confirm": "password_confirm must be equal to Password"}),
		},
		{
			name: "username taken", wantCode: http.StatusBadRequest,
			body: marchallObj(t, user.NewUser{
				Name: "New Kid", Username: "heroe1", Email: "kid@test.gt",
				Password: "LolC@t123", PasswordConfirm: "LolC@t123",
			}),
			wantData: marchallObj(t, map[string]string{"username": "a user with this username already exists"}),
		},
		{
			name: "registered as student", wantCode: http.StatusCreated,
			body: marchallObj(t, user.NewUser{
				Name: "New Kid", Username: "newkid1", Email: "kid@test.gt",
				Password: "LolC@t123", PasswordConfirm: "LolC@t123",
				Roles: []string{user.RoleAdmin}, // ignored: public sign-up
			}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/register"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var usr user.User
				if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if usr.ID == "" {
					t.Error("failed! empty user ID")
				}
				if !usr.IsStudent() || usr.IsAdmin() {
					t.Errorf("failed! roles = %v; want student only", usr.Roles)
				}
				if !usr.Active() {
					t.Error("failed! new user not active")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userQuery(t *testing.T) {
	app := setup(t)

	path := func(search string, isActive *bool, createdFrom, createdTo time.Time, roles ...string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if isActive != nil {
			v.Add("is_active", strconv.FormatBool(*isActive))
		}
		if !createdFrom.IsZero() {
			v.Add("created_from", createdFrom.Format(time.RFC3339))
		}
		if !createdTo.IsZero() {
			v.Add("created_to", createdTo.Format(time.RFC3339))
		}
		for _, r := range roles {
			v.Add("role", r)
		}
		return "/v1/users?" + v.Encode()
	}
	bPtr := func(b bool) *bool { return &b }
	byID := func(users ...user.User) []interface{} {
		sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
		objs := make([]interface{}, 0, len(users))
		for _, u := range users {
			objs = append(objs, u)
		}
		return objs
	}

	now := time.Now().UTC()
	t1 := now.Add(1 * time.Hour).Truncate(time.Second)
	t2 := now.Add(2 * time.Hour).Truncate(time.Second)
	t3 := now.Add(3 * time.Hour).Truncate(time.Second)

	usr1 := testutil.CreateUser(t, usrRepo, "User", "awe123", "awe@test.gt", "", nil, true, t1)
	student := testutil.CreateUser(t, usrRepo, "Hero", "heroe1", "hero@test.gt", "", []string{user.RoleStudent}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin@test.gt", "", []string{user.RoleAdmin}, true, t2)
	naughty := testutil.CreateUser(t, usrRepo, "N Dog", "ndog77", "ndog@test.gt", "", []string{user.RoleStudent}, false)

	adminToken := getToken(t, admin)
	empty := marchallList(t)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/v1/users", token: getToken(t, student), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Get all", path: "/v1/users", token: adminToken, wantData: marchallList(t, byID(usr1, student, admin, naughty)...)},
		{name: "search (unknown)", path: path("lol", nil, time.Time{}, time.Time{}), token: adminToken, wantData: empty},
		{name: "search=her", path: path("her", nil, time.Time{}, time.Time{}), token: adminToken, wantData: marchallList(t, byID(student)...)},
		{name: "role (unknown)", path: path("", nil, time.Time{}, time.Time{}, "lol"), token: adminToken, wantData: empty},
		{
			name: "role=admin:", path: path("", nil, time.Time{}, time.Time{}, user.RoleAdmin),
			token: adminToken, wantData: marchallList(t, byID(admin)...),
		},
		{
			name: "role=student:", path: path("", nil, time.Time{}, time.Time{}, user.RoleStudent),
			token: adminToken, wantData: marchallList(t, byID(student, naughty)...),
		},
		{
			name: "is_active=false", path: path("", bPtr(false), time.Time{}, time.Time{}),
			token: adminToken, wantData: marchallList(t, byID(naughty)...),
		},
		{
			name: "created_from", path: path("", nil, t1, time.Time{}),
			token: adminToken, wantData: marchallList(t, byID(usr1, admin)...),
		},
		{
			name: "created_from - created_to", path: path("", nil, t1, t2),
			token: adminToken, wantData: marchallList(t, byID(usr1, admin)...),
		},
		{name: "created_from - created_to (empty)", path: path("", nil, t3, time.Time{}), token: adminToken, wantData: empty},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userDetail(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "heroe1", "hero@test.gt", "", []string{user.RoleStudent}, true)
	other := testutil.CreateUser(t, usrRepo, "Other", "other1", "other@test.gt", "", []string{user.RoleStudent}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin@test.gt", "", []string{user.RoleAdmin}, true)

	studentToken := getToken(t, student)
	adminToken := getToken(t, admin)
	notFound := marchallObj(t, httpErr{Error: "not found"})

	tests := []httpTest{
		{name: "Auth required", method: http.MethodGet, path: "/v1/users/" + student.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Own detail", method: http.MethodGet, path: "/v1/users/" + student.ID, token: studentToken, wantCode: http.StatusOK, wantData: marchallObj(t, student)},
		{name: "Someone else's detail hidden", method: http.MethodGet, path: "/v1/users/" + other.ID, token: studentToken, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "Admin sees anyone", method: http.MethodGet, path: "/v1/users/" + other.ID, token: adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, other)},
		{name: "Admin: unknown id", method: http.MethodGet, path: "/v1/users/lol", token: adminToken, wantCode: http.StatusNotFound, wantData: notFound},
		{
			name: "Non-admin cannot set roles", method: http.MethodPut, path: "/v1/users/" + student.ID, token: studentToken,
			body:     marchallObj(t, user.UpdateUser{Roles: []string{user.RoleAdmin}}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Non-admin destroy forbidden", method: http.MethodDelete, path: "/v1/users/" + student.ID, token: studentToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Admin cannot destroy self", method: http.MethodDelete, path: "/v1/users/" + admin.ID, token: adminToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Admin destroys other", method: http.MethodDelete, path: "/v1/users/" + other.ID, token: adminToken, wantCode: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusNoContent {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				if _, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: other.ID}); err != user.ErrNotFound {
					t.Errorf("GetUser() err = %v; want ErrNotFound", err)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Self update", func(t *testing.T) {
		body := marchallObj(t, user.UpdateUser{Name: "Hero Renamed"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+student.ID, studentToken, body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var usr user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if usr.Name != "Hero Renamed" {
			t.Errorf("failed! name = %q; want %q", usr.Name, "Hero Renamed")
		}
		if usr.Username != student.Username || usr.Email != student.Email {
			t.Error("failed! unspecified fields changed")
		}
	})
}

func Test_userApi_userRefreshToken(t *testing.T) {
	app := setup(t)

	naughty := testutil.CreateUser(t, usrRepo, "N Dog", "ndog77", "ndog@test.gt", "", []string{user.RoleStudent}, false)
	student := testutil.CreateUser(t, usrRepo, "Hero", "heroe1", "hero@test.gt", "", []string{user.RoleStudent}, true)

	now := time.Now()
	unrefreshableClaims := &echoapi.Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   student.ID,
			Audience:  "Academia",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: now.Add(-2 * conf.Server.JWTRefreshExpirationDelta).Unix(), // older than threshold
		IsStudent:    student.IsStudent(),
		IsAdmin:      student.IsAdmin(),
		Roles:        student.Roles,
	}
	unrefreshableToken, err := echoapi.GenerateToken(unrefreshableClaims)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Inactive user not allowed", token: getToken(t, naughty), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})},
		{name: "Token refreshed", token: getToken(t, student), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/token-refresh"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			// cannot guess new token.. just check that it's not empty
			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userResetPassword(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "heroe1", "hero@test.gt", "", []string{user.RoleStudent}, true)
	successData := marchallObj(t, echoapi.SuccessResponse{Success: "If the email address supplied is associated with an active account on this system, " +
		"an email will arrive in your inbox shortly with instructions to reset your password."})

	type extraTest struct {
		emailSent bool
		to        mail.Address
	}
	tests := []httpTest{
		{name: "required fields", wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"email": "this field is required"})},
		{
			name: "invalid email", wantCode: http.StatusBadRequest, body: marchallObj(t, echoapi.PasswordResetRequest{Email: "lol"}),
			wantData: marchallObj(t, map[string]string{"email": "email must be a valid email address"}),
		},
		{
			name: "unknown email", wantCode: http.StatusOK, body: marchallObj(t, echoapi.PasswordResetRequest{Email: "lol@test.gt"}),
			wantData: successData, extra: extraTest{emailSent: false},
		},
		{
			name: "known email", wantCode: http.StatusOK, body: marchallObj(t, echoapi.PasswordResetRequest{Email: student.Email}),
			wantData: successData, extra: extraTest{emailSent: true, to: mail.Address{Name: student.Name, Address: student.Email}},
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/password-reset"

		t.Run(tt.name, func(t *testing.T) {
			mailSvc.ClearSentMessages()

			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if extra, ok := tt.extra.(extraTest); ok {
				sent := mailSvc.SentMessages()
				if extra.emailSent {
					if len(sent) != 1 {
						t.Fatalf("failed! len(SentMessages) = %d; want 1", len(sent))
					}
					msg := sent[0]
					if msg.To[0] != extra.to {
						t.Errorf("failed! To = %v; want %v", msg.To[0], extra.to)
					}
					if !strings.Contains(msg.TextContent, extra.to.Name) {
						t.Errorf("failed! text content does not contain recipient's name %q", extra.to.Name)
					}
					if !strings.Contains(msg.HTMLContent, extra.to.Name) {
						t.Errorf("failed! HTML content does not contain recipient's name %q", extra.to.Name)
					}
					if !strings.Contains(msg.TextContent, conf.FrontendBaseURL) {
						t.Error("failed! text content does not contain the reset link")
					}
				} else if len(sent) > 0 {
					t.Errorf("failed! len(SentMessages) = %d; want 0", len(sent))
				}
			}
		})
	}
}

func Test_userApi_userConfirmPasswordReset(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "heroe1", "hero@test.gt", "lol", []string{user.RoleStudent}, true)
	validUID := user.EncodeUID(student)
	validToken, err := user.MakeResetToken(student)
	if err != nil {
		t.Fatalf("MakeResetToken(): %v", err)
	}

	// generate an expired token
	dayLate := conf.PasswordResetTimeoutDelta + (24 * time.Hour)
	restore := user.FreezeTokenClock(time.Now().Add(-dayLate))
	expiredToken, err := user.MakeResetToken(student)
	if err != nil {
		t.Fatalf("MakeResetToken(): %v", err)
	}
	restore()

	reqMsg := "this field is required"
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"token": reqMsg, "uid": reqMsg, "password": reqMsg, "password_confirm": reqMsg}),
		},
		{
			name: "invalid pwd: min len", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "lol", PasswordConfirm: "lol"}),
			wantData: marchallObj(t, map[string]string{"password": "password must be at least 8 characters in length"}),
		},
		{
			name: "PasswordConfirm must = Password", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "LolC@t123", PasswordConfirm: "lol"}),
			wantData: marchallObj(t, map[string]string{"password_confirm": "password_confirm must be equal to Password"}),
		},
		{
			name: "invalid uid", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "@@@", Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, httpErr{Error: "invalid token"}),
		},
		{
			name: "user not found", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "OTk5", Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, httpErr{Error: "invalid token"}),
		},
		{
			name: "invalid token", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "HE4TS-sigsig-sig", UID: validUID, Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, httpErr{Error: "invalid token"}),
		},
		{
			name: "expired token", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: expiredToken, UID: validUID, Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, httpErr{Error: "token expired"}),
		},
		{
			name: "valid token", wantCode: http.StatusOK,
			body:     marchallObj(t, user.ResetUserPassword{Token: validToken, UID: validUID, Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, echoapi.SuccessResponse{Success: "Password has been reset with the new password."}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/password-reset-confirm"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				refreshed, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: student.ID})
				if err != nil {
					t.Fatalf("GetUser() failed, %v", err)
				}
				if bytes.Equal(refreshed.PasswordHash, student.PasswordHash) {
					t.Fatal("failed to update new password")
				}
			}
		})
	}
}
