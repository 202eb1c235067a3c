package tests

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/rotinas-pei/backend/apps/api/echo"
	"github.com/rotinas-pei/backend/core/activity"
	"github.com/rotinas-pei/backend/core/user"
	testutil "github.com/rotinas-pei/backend/tests"
)

func TestVirtualCards(t *testing.T) {
	env := setup(t)
	conf := env.conf

	teacher := testutil.CreateUser(t, env.usrRepo, "Ana Souza", "ana@example.com", "secret", user.RoleTeacher)
	colleague := testutil.CreateUser(t, env.usrRepo, "Rui Costa", "rui@example.com", "secret", user.RoleTeacher)
	student := testutil.CreateUser(t, env.usrRepo, "Bruno Lima", "bruno@example.com", "secret", user.RoleStudent)

	brush := testutil.CreateActivity(t, env.actRepo, teacher, "Brush teeth", 120)
	dress := testutil.CreateActivity(t, env.actRepo, teacher, "Get dressed", 0)
	breakfast := testutil.CreateActivity(t, env.actRepo, teacher, "Breakfast", 600)
	foreign := testutil.CreateActivity(t, env.actRepo, colleague, "Read", 300)

	teacherToken := getToken(t, conf, teacher)
	studentToken := getToken(t, conf, student)

	runHTTPTests(t, env.app, []httpTest{
		{
			name:     "list",
			path:     "/v1/virtual-cards",
			token:    teacherToken,
			wantCode: http.StatusOK,
			wantData: marchallList(t, toIfaces(env.expand(brush, dress, breakfast))...),
		},
		{
			name:     "list as student",
			path:     "/v1/virtual-cards",
			token:    studentToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "list without token",
			path:     "/v1/virtual-cards",
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errAccessNotAuthorized),
		},
		{
			name:     "reorder with an empty list",
			method:   http.MethodPost,
			path:     "/v1/virtual-cards/reorder",
			body:     marchallObj(t, ReorderRequest{IDs: []string{}}),
			token:    teacherToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "the list of ids cannot be empty"}),
		},
		{
			name:     "reorder with duplicates",
			method:   http.MethodPost,
			path:     "/v1/virtual-cards/reorder",
			body:     marchallObj(t, ReorderRequest{IDs: []string{brush.ID, brush.ID, dress.ID}}),
			token:    teacherToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "the list of ids contains duplicates"}),
		},
		{
			name:     "reorder with a missing id",
			method:   http.MethodPost,
			path:     "/v1/virtual-cards/reorder",
			body:     marchallObj(t, ReorderRequest{IDs: []string{breakfast.ID, brush.ID}}),
			token:    teacherToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "the list of ids does not match the current members"}),
		},
		{
			name:     "reorder with a foreign id",
			method:   http.MethodPost,
			path:     "/v1/virtual-cards/reorder",
			body:     marchallObj(t, ReorderRequest{IDs: []string{breakfast.ID, brush.ID, foreign.ID}}),
			token:    teacherToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "the list of ids does not match the current members"}),
		},
	})

	t.Run("failed reorders keep the library untouched", func(t *testing.T) {
		acts, err := env.actRepo.QueryActivities(context.Background(), teacher.ID)
		assert.NoError(t, err)
		assert.Equal(t, []string{brush.ID, dress.ID, breakfast.ID}, ids(acts))
	})

	t.Run("reorder", func(t *testing.T) {
		body := marchallObj(t, ReorderRequest{IDs: []string{breakfast.ID, brush.ID, dress.ID}})
		req, rec := newAuthRequest(http.MethodPost, "/v1/virtual-cards/reorder", teacherToken, body)
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"ok":true}`)}, rec)

		req, rec = newAuthRequest(http.MethodGet, "/v1/virtual-cards", teacherToken)
		env.app.ServeHTTP(rec, req)
		var acts []activity.Activity
		decode(t, rec, &acts)
		assert.Equal(t, []string{breakfast.ID, brush.ID, dress.ID}, ids(acts))
		for i, act := range acts {
			if assert.NotNil(t, act.Order) {
				assert.Equal(t, i, *act.Order)
			}
		}

		// the colleague's library is unaffected
		others, err := env.actRepo.QueryActivities(context.Background(), colleague.ID)
		assert.NoError(t, err)
		assert.Equal(t, []string{foreign.ID}, ids(others))
	})

	t.Run("create", func(t *testing.T) {
		fields := map[string]string{
			"title":         "  Pack the bag ",
			"dayPeriod":     "MORNING",
			"timeInSeconds": "90.0",
		}
		req, rec := newMultipartRequest(t, "/v1/virtual-cards", teacherToken, fields, formFile{"image", "bag photo.png", []byte("png-bytes")})
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var act activity.Activity
		decode(t, rec, &act)
		assert.NotEmpty(t, act.ID)
		assert.Equal(t, "Pack the bag", act.Title)
		assert.Equal(t, activity.Morning, act.DayPeriod)
		assert.Equal(t, activity.Creator{ID: teacher.ID, Name: teacher.Name}, act.Creator)
		if assert.NotNil(t, act.TimeInSeconds) {
			assert.Equal(t, 90, *act.TimeInSeconds)
		}
		assert.Nil(t, act.EstimatedTime)
		// appended at the end of the library
		if assert.NotNil(t, act.Order) {
			assert.Equal(t, 3, *act.Order)
		}

		prefix := conf.Storage.PublicBaseURL + "/"
		if assert.True(t, strings.HasPrefix(act.ImageURL, prefix), act.ImageURL) {
			key := strings.TrimPrefix(act.ImageURL, prefix)
			assert.True(t, strings.HasPrefix(key, "virtual-cards/"+teacher.ID+"/"), key)
			assert.True(t, strings.HasSuffix(key, "-bag_photo.png"), key)
			body, ok := env.images.Object(key)
			assert.True(t, ok)
			assert.Equal(t, []byte("png-bytes"), body)
		}
	})

	t.Run("create without image", func(t *testing.T) {
		stored := env.images.Len()
		fields := map[string]string{"title": "Nap", "dayPeriod": "AFTERNOON"}
		req, rec := newMultipartRequest(t, "/v1/virtual-cards", teacherToken, fields)
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: []byte(`{"image":"the image is required"}`)}, rec)
		assert.Equal(t, stored, env.images.Len())
	})

	t.Run("create with invalid fields", func(t *testing.T) {
		fields := map[string]string{"title": "Nap", "dayPeriod": "AFTERNOON", "timeInSeconds": "-3", "estimatedTime": "ten"}
		req, rec := newMultipartRequest(t, "/v1/virtual-cards", teacherToken, fields, formFile{"image", "nap.png", []byte("png")})
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"estimatedTime":"this field must be a positive integer","timeInSeconds":"this field must be a positive integer"}`),
		}, rec)
	})

	t.Run("create with a bad day period", func(t *testing.T) {
		fields := map[string]string{"title": "Nap", "dayPeriod": "NIGHT"}
		req, rec := newMultipartRequest(t, "/v1/virtual-cards", teacherToken, fields, formFile{"image", "nap.png", []byte("png")})
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "dayPeriod")
	})
}

func ids(acts []activity.Activity) []string {
	out := make([]string, 0, len(acts))
	for _, act := range acts {
		out = append(out, act.ID)
	}
	return out
}

func toIfaces(acts []activity.Activity) []interface{} {
	out := make([]interface{}, 0, len(acts))
	for _, act := range acts {
		out = append(out, act)
	}
	return out
}
