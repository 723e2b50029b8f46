package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/classbook/classbook/core"
	"github.com/classbook/classbook/core/grade"
	"github.com/classbook/classbook/core/schedule"
	"github.com/classbook/classbook/core/user"
	"github.com/classbook/classbook/testutil"
)

func Test_gradeApi(t *testing.T) {
	env := setup(t)

	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	terry := testutil.CreateUser(t, env.usrRepo, "Terry", "terry", "terry@test.cd", "", []string{user.RoleTeacher}, true)
	amy := testutil.CreateUser(t, env.usrRepo, "Amy", "amy", "amy@test.cd", "", []string{user.RoleStudent}, true)
	ben := testutil.CreateUser(t, env.usrRepo, "Ben", "ben", "ben@test.cd", "", []string{user.RoleStudent}, true)
	c9a := testutil.CreateClass(t, env.clsRepo, "9A", 9)
	testutil.Enroll(t, env.clsRepo, c9a.ID, amy.ID, ben.ID)
	labA := testutil.CreateSubgroup(t, env.clsRepo, c9a.ID, "Lab A", amy.ID)
	maths := testutil.CreateSubject(t, env.subRepo, "Mathematics")
	chem := testutil.CreateSubject(t, env.subRepo, "Chemistry")
	monMaths := testutil.CreateEntry(t, env.schRepo, schedule.Entry{
		ClassID: c9a.ID, SubjectID: maths.ID, TeacherID: null.StringFrom(terry.ID), Weekday: schedule.Monday,
	}, "08:00", "09:00")
	labChem := testutil.CreateEntry(t, env.schRepo, schedule.Entry{
		ClassID: c9a.ID, SubgroupID: null.StringFrom(labA.ID), SubjectID: chem.ID, Weekday: schedule.Tuesday,
	}, "10:00", "11:00")

	adminToken, terryToken, amyToken, benToken := env.token(t, admin), env.token(t, terry), env.token(t, amy), env.token(t, ben)

	newGrade := func(studentID, scheduleID string, score float64, gradedOn core.Date) []byte {
		return marchallObj(t, map[string]interface{}{
			"student_id": studentID, "schedule_id": scheduleID, "assignment": "Quiz", "score": score, "graded_on": gradedOn,
		})
	}
	create := func(t *testing.T, token string, body []byte) string {
		rec := env.serve(httpTest{method: http.MethodPost, path: "/api/grades", token: token, body: body})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		return responseObj(t, rec)["id"].(string)
	}

	today := core.Today()
	var amyMaths, amyChem, benMaths string
	t.Run("create", func(t *testing.T) {
		amyMaths = create(t, terryToken, newGrade(amy.ID, monMaths.ID, 80, today.AddDays(-2)))
		amyChem = create(t, adminToken, newGrade(amy.ID, labChem.ID, 50, today.AddDays(-1)))
		benMaths = create(t, terryToken, newGrade(ben.ID, monMaths.ID, 60, today))
	})

	runHTTPTests(t, env, []httpTest{
		{
			name: "create: students cannot grade", method: http.MethodPost, path: "/api/grades", token: amyToken,
			body: newGrade(amy.ID, monMaths.ID, 100, today), wantCode: http.StatusForbidden,
		},
		{
			name: "create: not the teacher of the lesson", method: http.MethodPost, path: "/api/grades", token: terryToken,
			body: newGrade(amy.ID, labChem.ID, 70, today), wantCode: http.StatusForbidden,
		},
		{
			name: "create: student not in subgroup", method: http.MethodPost, path: "/api/grades", token: adminToken,
			body:     newGrade(ben.ID, labChem.ID, 70, today),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"student_id": "student does not attend this lesson"}),
		},
		{
			name: "create: score out of range", method: http.MethodPost, path: "/api/grades", token: terryToken,
			body:     newGrade(amy.ID, monMaths.ID, 150, today),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"score": "score must be between 0 and 100"}),
		},
		{
			name: "create: unknown lesson", method: http.MethodPost, path: "/api/grades", token: terryToken,
			body:     newGrade(amy.ID, amy.ID, 50, today),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"schedule_id": schedule.ErrNotFound.Error()}),
		},
		{name: "staff see all, latest first", path: "/api/grades", token: terryToken, wantIDs: []string{benMaths, amyChem, amyMaths}},
		{name: "staff filter", path: "/api/grades?student_id=" + amy.ID + "&subject_id=" + maths.ID, token: terryToken, wantIDs: []string{amyMaths}},
		{name: "student sees own grades", path: "/api/grades", token: amyToken, wantIDs: []string{amyChem, amyMaths}},
		{name: "student cannot peek", path: "/api/grades?student_id=" + ben.ID, token: amyToken, wantIDs: []string{amyChem, amyMaths}},
		{name: "retrieve: own", path: "/api/grades/" + benMaths, token: benToken},
		{name: "retrieve: other student", path: "/api/grades/" + amyMaths, token: benToken, wantCode: http.StatusNotFound},
		{
			name: "averages: student_id required", path: "/api/grades/averages", token: terryToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"student_id": "student_id is required"}),
		},
		{
			name: "update: not the teacher of the lesson", method: http.MethodPut, path: "/api/grades/" + amyChem, token: terryToken,
			body: []byte(`{"score": 99}`), wantCode: http.StatusForbidden,
		},
		{name: "update", method: http.MethodPut, path: "/api/grades/" + amyMaths, token: terryToken, body: []byte(`{"score": 90}`)},
	})

	t.Run("averages", func(t *testing.T) {
		rec := env.serve(httpTest{method: http.MethodGet, path: "/api/grades/averages?student_id=" + ben.ID, token: amyToken})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		// students only get their own averages
		var avgs []grade.SubjectAverage
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &avgs))
		require.Len(t, avgs, 2)
		assert.Equal(t, "Chemistry", avgs[0].SubjectName)
		assert.Equal(t, 50.0, avgs[0].Average)
		assert.Equal(t, "Mathematics", avgs[1].SubjectName)
		assert.Equal(t, 90.0, avgs[1].Average)
		assert.Equal(t, 1, avgs[1].Count)
	})

	t.Run("users without roles only read their own grades", func(t *testing.T) {
		nobody := testutil.CreateUser(t, env.usrRepo, "Nobody", "nobody", "nobody@test.cd", "", nil, true)
		token := env.token(t, nobody)

		rec := env.serve(httpTest{method: http.MethodGet, path: "/api/grades?student_id=" + amy.ID, token: token})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Empty(t, responseIDs(t, rec))

		rec = env.serve(httpTest{method: http.MethodGet, path: "/api/grades/averages?student_id=" + amy.ID, token: token})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var avgs []grade.SubjectAverage
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &avgs))
		assert.Empty(t, avgs)

		rec = env.serve(httpTest{method: http.MethodGet, path: "/api/grades/" + amyMaths, token: token})
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = env.serve(httpTest{method: http.MethodPost, path: "/api/grades", token: token, body: newGrade(amy.ID, monMaths.ID, 10, today)})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	runHTTPTests(t, env, []httpTest{
		{name: "delete: students cannot", method: http.MethodDelete, path: "/api/grades/" + benMaths, token: benToken, wantCode: http.StatusForbidden},
		{name: "delete", method: http.MethodDelete, path: "/api/grades/" + benMaths, token: terryToken, wantCode: http.StatusNoContent},
		{name: "deleted", path: "/api/grades", token: benToken, wantIDs: []string{}},
	})
}
