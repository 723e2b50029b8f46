package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classbook/classbook/core/user"
	"github.com/classbook/classbook/testutil"
)

func Test_userApi_query(t *testing.T) {
	env := setup(t)

	path := func(params ...string) string {
		v := make(url.Values)
		for i := 0; i+1 < len(params); i += 2 {
			v.Add(params[i], params[i+1])
		}
		return "/api/users?" + v.Encode()
	}

	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	principal := testutil.CreateUser(t, env.usrRepo, "Principal", "princip", "princip@test.cd", "", []string{user.RoleAdminPrincipal}, true)
	teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, env.usrRepo, "Hero", "hero", "user3@test.cd", "", []string{user.RoleStudent}, true)
	naughty := testutil.CreateUser(t, env.usrRepo, "N Dog", "ndog", "ndog@test.cd", "", []string{user.RoleStudent}, false)

	adminToken := env.token(t, admin)

	runHTTPTests(t, env, []httpTest{
		{name: "Auth required", path: "/api/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/api/users", token: env.token(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Deactivated account", path: "/api/users", token: env.token(t, naughty),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "Get all", path: "/api/users", token: adminToken,
			wantIDs: []string{admin.ID, student.ID, naughty.ID, principal.ID, teacher.ID},
		},
		{name: "search (unknown)", path: path("search", "lol"), token: adminToken, wantIDs: []string{}},
		{name: "search=TEST.CD", path: path("search", "user3@TEST.CD"), token: adminToken, wantIDs: []string{student.ID}},
		{name: "role=admin:", path: path("role", user.RoleAdmin), token: adminToken, wantIDs: []string{admin.ID, principal.ID}},
		{
			name: "role=teacher:,student:", path: path("role", user.RoleTeacher+","+user.RoleStudent), token: adminToken,
			wantIDs: []string{student.ID, naughty.ID, teacher.ID},
		},
		{name: "is_active=false", path: path("is_active", "false"), token: adminToken, wantIDs: []string{naughty.ID}},
		{
			name: "is_active (invalid)", path: path("is_active", "lol"), token: adminToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"is_active": "invalid boolean"}),
		},
		{
			name: "created_from (invalid)", path: path("created_from", "yesterday"), token: adminToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"created_from": "invalid time, use RFC 3339"}),
		},
		{
			name: "created_from (future)", path: path("created_from", time.Now().Add(time.Hour).Format(time.RFC3339)), token: adminToken,
			wantIDs: []string{},
		},
		{
			name: "order by -name", path: path("ordering", "-name"), token: adminToken,
			wantIDs: []string{teacher.ID, principal.ID, naughty.ID, student.ID, admin.ID},
		},
		{
			name: "filtering & ordering", path: path("role", user.RoleStudent, "ordering", "-username"), token: adminToken,
			wantIDs: []string{naughty.ID, student.ID},
		},
	})
}

func Test_userApi_login(t *testing.T) {
	env := setup(t)

	student := testutil.CreateUser(t, env.usrRepo, "Hero", "hero", "hero@test.cd", "LolC@t123", []string{user.RoleStudent}, true)
	testutil.CreateUser(t, env.usrRepo, "N Dog", "ndog", "ndog@test.cd", "LolC@t123", []string{user.RoleStudent}, false)

	failed := marchallObj(t, httpErr{Error: "authentication failed"})
	reqMsg := "this field is required"
	tests := []httpTest{
		{name: "required fields", body: []byte("{}"), wantCode: http.StatusBadRequest, wantData: marchallObj(t, LoginRequest{Username: reqMsg, Password: reqMsg})},
		{name: "unknown user", body: marchallObj(t, LoginRequest{Username: "lol", Password: "LolC@t123"}), wantCode: http.StatusBadRequest, wantData: failed},
		{name: "wrong password", body: marchallObj(t, LoginRequest{Username: "hero", Password: "lol"}), wantCode: http.StatusBadRequest, wantData: failed},
		{
			name: "deactivated", body: marchallObj(t, LoginRequest{Username: "ndog", Password: "LolC@t123"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "by username", body: marchallObj(t, LoginRequest{Username: " HERO ", Password: "LolC@t123"})},
		{name: "by email", body: marchallObj(t, LoginRequest{Username: "hero@test.cd", Password: "LolC@t123"})},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/users/login"
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			rec := env.serve(tt)
			if tt.wantCode != http.StatusOK {
				checkCodeAndData(t, tt, rec)
				return
			}

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var resp LoginResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.NotEmpty(t, resp.Token)

			// the token opens authed endpoints
			me := env.serve(httpTest{method: http.MethodGet, path: "/api/users/me", token: resp.Token})
			require.Equal(t, http.StatusOK, me.Code)
			assert.Equal(t, student.ID, responseObj(t, me)["id"])
		})
	}

	usr, err := env.usrRepo.GetUser(context.Background(), user.GetFilter{ID: student.ID})
	require.NoError(t, err)
	assert.False(t, usr.LastLogin.IsZero())
}

func Test_userApi_refreshToken(t *testing.T) {
	env := setup(t)

	naughty := testutil.CreateUser(t, env.usrRepo, "N Dog", "ndog", "ndog@test.cd", "", []string{user.RoleStudent}, false)
	student := testutil.CreateUser(t, env.usrRepo, "Hero", "hero", "user3@test.cd", "", []string{user.RoleStudent}, true)
	ghost := testutil.CreateUser(t, env.usrRepo, "Ghost", "ghost", "ghost@test.cd", "", []string{user.RoleStudent}, true)
	ghostToken := env.token(t, ghost)
	_, err := env.usrRepo.DeleteUsersByID(context.Background(), []string{ghost.ID})
	require.NoError(t, err)

	// older than the refresh threshold
	oriat := time.Now().Add(-2 * env.conf.Server.JWTRefreshExpirationDelta).Unix()
	unrefreshableToken, err := env.app.auth.generateToken(env.app.auth.claims(student, oriat))
	require.NoError(t, err)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Inactive user not allowed", token: env.token(t, naughty), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "Deleted user not allowed", token: ghostToken, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "user not authenticated"})},
		{name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})},
		{name: "Token refreshed", token: env.token(t, student), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/users/token-refresh"

		t.Run(tt.name, func(t *testing.T) {
			rec := env.serve(tt)

			// cannot guess new token.. just check that it's not empty
			if tt.wantCode == http.StatusOK {
				require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
				var resp LoginResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.NotEmpty(t, resp.Token)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_resetPassword(t *testing.T) {
	env := setup(t)

	student := testutil.CreateUser(t, env.usrRepo, "Hero", "hero", "user3@test.cd", "", []string{user.RoleStudent}, true)
	testutil.CreateUser(t, env.usrRepo, "N Dog", "ndog", "ndog@test.cd", "", []string{user.RoleStudent}, false)
	successData := marchallObj(t, SuccessResponse{Success: "If the email address supplied is associated with an active account on this system, " +
		"an email will arrive in your inbox shortly with instructions to reset your password."})

	tests := []struct {
		httpTest
		emailSent bool
	}{
		{httpTest: httpTest{name: "required fields", body: []byte("{}"), wantCode: http.StatusBadRequest, wantData: marchallObj(t, PasswordResetRequest{Email: "this field is required"})}},
		{httpTest: httpTest{
			name: "invalid email", body: marchallObj(t, PasswordResetRequest{Email: "lol"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, PasswordResetRequest{Email: "email must be a valid email address"}),
		}},
		{httpTest: httpTest{name: "unknown email", body: marchallObj(t, PasswordResetRequest{Email: "lol@test.com"}), wantCode: http.StatusOK, wantData: successData}},
		{httpTest: httpTest{name: "inactive user", body: marchallObj(t, PasswordResetRequest{Email: "ndog@test.cd"}), wantCode: http.StatusOK, wantData: successData}},
		{httpTest: httpTest{name: "known email", body: marchallObj(t, PasswordResetRequest{Email: " USER3@test.cd"}), wantCode: http.StatusOK, wantData: successData}, emailSent: true},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/users/password-reset"

		t.Run(tt.name, func(t *testing.T) {
			env.mailer.Reset()

			checkCodeAndData(t, tt.httpTest, env.serve(tt.httpTest))

			msgs := env.mailer.Messages()
			if !tt.emailSent {
				assert.Empty(t, msgs)
				return
			}
			require.Len(t, msgs, 1)
			assert.Equal(t, student.Email, msgs[0].To[0].Address)
			assert.Contains(t, msgs[0].TextContent, student.Name)
			assert.Contains(t, msgs[0].HTMLContent, student.Name)
			assert.Regexp(t, "/password-reset/.+/.+", msgs[0].TextContent)
		})
	}
}

func Test_userApi_create(t *testing.T) {
	env := setup(t)

	owner := testutil.CreateUser(t, env.usrRepo, "Owner", "owner", "owner@test.cd", "", []string{user.RoleAdminOwner}, true)
	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)

	newUser := func(uname string, roles ...string) []byte {
		return marchallObj(t, user.NewUser{
			Name: "New " + uname, Username: uname, Email: uname + "@test.cd",
			Password: "LolC@t123", PasswordConfirm: "LolC@t123", Roles: roles,
		})
	}

	tests := []httpTest{
		{name: "Admin required", token: env.token(t, teacher), body: newUser("amy", user.RoleStudent), wantCode: http.StatusForbidden},
		{
			name: "cannot grant higher role", token: env.token(t, admin), body: newUser("amy", user.RoleAdminPrincipal),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"roles": "not enough rights to set these roles"}),
		},
		{
			name: "invalid roles", token: env.token(t, admin), body: newUser("amy", "lol"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"roles": "invalid roles"}),
		},
		{
			name: "username taken", token: env.token(t, admin), body: newUser("teacher", user.RoleStudent),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"username": user.ErrUsernameExists.Error()}),
		},
		{name: "student", token: env.token(t, admin), body: newUser("amy", user.RoleStudent), wantCode: http.StatusCreated},
		{name: "principal", token: env.token(t, owner), body: newUser("pat", user.RoleAdminPrincipal), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/users/register"

		t.Run(tt.name, func(t *testing.T) {
			rec := env.serve(tt)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusCreated {
				obj := responseObj(t, rec)
				assert.NotEmpty(t, obj["id"])
				assert.Equal(t, true, obj["is_active"])
				assert.NotContains(t, rec.Body.String(), "password")
			}
		})
	}
}

func Test_userApi_detail(t *testing.T) {
	env := setup(t)

	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	student := testutil.CreateUser(t, env.usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	other := testutil.CreateUser(t, env.usrRepo, "Other", "other", "other@test.cd", "", []string{user.RoleStudent}, true)

	adminToken, studentToken := env.token(t, admin), env.token(t, student)
	notFound := marchallObj(t, httpErr{Error: "not found"})

	runHTTPTests(t, env, []httpTest{
		{name: "self", path: "/api/users/" + student.ID, token: studentToken},
		{name: "other user hidden", path: "/api/users/" + other.ID, token: studentToken, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "admin sees anyone", path: "/api/users/" + other.ID, token: adminToken},
		{name: "unknown", path: "/api/users/lol", token: adminToken, wantCode: http.StatusNotFound, wantData: notFound},
		{
			name: "student cannot change roles", method: http.MethodPut, path: "/api/users/" + student.ID, token: studentToken,
			body: marchallObj(t, map[string]interface{}{"roles": []string{user.RoleAdmin}}), wantCode: http.StatusForbidden,
		},
		{
			name: "student cannot deactivate", method: http.MethodPut, path: "/api/users/" + student.ID, token: studentToken,
			body: []byte(`{"is_active": false}`), wantCode: http.StatusForbidden,
		},
		{
			name: "weak password", method: http.MethodPut, path: "/api/users/" + student.ID, token: studentToken,
			body: []byte(`{"password": "12345678", "password_confirm": "12345678"}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"password": "password cannot be entirely numeric"}),
		},
		{
			name: "student renames self", method: http.MethodPut, path: "/api/users/" + student.ID, token: studentToken,
			body: []byte(`{"name": "  Super Hero "}`),
		},
		{name: "student cannot delete", method: http.MethodDelete, path: "/api/users/" + other.ID, token: studentToken, wantCode: http.StatusForbidden},
		{name: "admin cannot delete self", method: http.MethodDelete, path: "/api/users/" + admin.ID, token: adminToken, wantCode: http.StatusForbidden},
		{name: "admin deletes user", method: http.MethodDelete, path: "/api/users/" + other.ID, token: adminToken, wantCode: http.StatusNoContent},
		{name: "deleted", path: "/api/users/" + other.ID, token: adminToken, wantCode: http.StatusNotFound, wantData: notFound},
	})

	usr, err := env.usrRepo.GetUser(context.Background(), user.GetFilter{ID: student.ID})
	require.NoError(t, err)
	assert.Equal(t, "Super Hero", usr.Name)
	assert.True(t, usr.IsActive)
	assert.Equal(t, []string{user.RoleStudent}, usr.Roles)
}

func Test_userApi_destroyMultiple(t *testing.T) {
	env := setup(t)

	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	u1 := testutil.CreateUser(t, env.usrRepo, "One", "one", "one@test.cd", "", []string{user.RoleStudent}, true)
	u2 := testutil.CreateUser(t, env.usrRepo, "Two", "two", "two@test.cd", "", []string{user.RoleStudent}, true)
	adminToken := env.token(t, admin)

	runHTTPTests(t, env, []httpTest{
		{name: "self included", method: http.MethodDelete, path: "/api/users?id=" + strings.Join([]string{u1.ID, admin.ID}, ","), token: adminToken, wantCode: http.StatusForbidden},
		{name: "nothing to delete", method: http.MethodDelete, path: "/api/users", token: adminToken, wantCode: http.StatusNoContent},
		{name: "delete", method: http.MethodDelete, path: "/api/users?id=" + u1.ID + "&id=" + u2.ID, token: adminToken, wantCode: http.StatusNoContent},
		{name: "only admin left", path: "/api/users", token: adminToken, wantIDs: []string{admin.ID}},
		{name: "roles", path: "/api/users/roles", token: adminToken, wantData: marchallObj(t, user.Roles)},
	})
}
