package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classbook/classbook/core/subject"
	"github.com/classbook/classbook/core/user"
	"github.com/classbook/classbook/testutil"
)

func Test_subjectApi(t *testing.T) {
	env := setup(t)

	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	student := testutil.CreateUser(t, env.usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	maths := testutil.CreateSubject(t, env.subRepo, "Mathematics")
	chem := testutil.CreateSubject(t, env.subRepo, "Chemistry")
	art := testutil.CreateSubject(t, env.subRepo, "Art")

	adminToken, studentToken := env.token(t, admin), env.token(t, student)
	nameTaken := marchallObj(t, map[string]string{"name": subject.ErrNameExists.Error()})

	runHTTPTests(t, env, []httpTest{
		{name: "Auth required", path: "/api/subjects", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "list", path: "/api/subjects", token: studentToken, wantIDs: []string{art.ID, chem.ID, maths.ID}},
		{name: "search", path: "/api/subjects?search=MAT", token: studentToken, wantIDs: []string{maths.ID}},
		{name: "ordering", path: "/api/subjects?ordering=-name", token: studentToken, wantIDs: []string{maths.ID, chem.ID, art.ID}},
		{name: "retrieve", path: "/api/subjects/" + chem.ID, token: studentToken},
		{
			name: "retrieve unknown", path: "/api/subjects/lol", token: studentToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: subject.ErrNotFound.Error()}),
		},
		{
			name: "create: admin required", method: http.MethodPost, path: "/api/subjects", token: studentToken,
			body: []byte(`{"name": "Physics"}`), wantCode: http.StatusForbidden,
		},
		{
			name: "create: name taken", method: http.MethodPost, path: "/api/subjects", token: adminToken,
			body: []byte(`{"name": " art "}`), wantCode: http.StatusBadRequest, wantData: nameTaken,
		},
		{
			name: "create", method: http.MethodPost, path: "/api/subjects", token: adminToken,
			body: []byte(`{"name": "Physics", "description": "  Forces & motion "}`), wantCode: http.StatusCreated,
		},
		{
			name: "update: name taken", method: http.MethodPut, path: "/api/subjects/" + chem.ID, token: adminToken,
			body: []byte(`{"name": "Physics"}`), wantCode: http.StatusBadRequest, wantData: nameTaken,
		},
		{
			name: "update", method: http.MethodPut, path: "/api/subjects/" + chem.ID, token: adminToken,
			body: []byte(`{"description": "Atoms"}`),
		},
		{name: "delete", method: http.MethodDelete, path: "/api/subjects/" + art.ID, token: adminToken, wantCode: http.StatusNoContent},
		{name: "deleted", path: "/api/subjects/" + art.ID, token: adminToken, wantCode: http.StatusNotFound},
	})

	t.Run("updated subject", func(t *testing.T) {
		rec := env.serve(httpTest{method: http.MethodGet, path: "/api/subjects/" + chem.ID, token: studentToken})
		require.Equal(t, http.StatusOK, rec.Code)
		obj := responseObj(t, rec)
		assert.Equal(t, "Chemistry", obj["name"])
		assert.Equal(t, "Atoms", obj["description"])
	})

	t.Run("created subject", func(t *testing.T) {
		rec := env.serve(httpTest{method: http.MethodGet, path: "/api/subjects?search=physics", token: studentToken})
		require.Equal(t, http.StatusOK, rec.Code)
		var subjects []subject.Subject
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &subjects))
		require.Len(t, subjects, 1)
		assert.Equal(t, "Physics", subjects[0].Name)
		assert.Equal(t, "Forces & motion", subjects[0].Description.String)
	})
}
