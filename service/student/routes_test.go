package student

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/educrm/admission-server/cmd/models"
	"github.com/educrm/admission-server/cmd/utils"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	os.Setenv("SECRET_KEY", "test-secret")
	os.Exit(m.Run())
}

func setupTest(t *testing.T) (*gorm.DB, *mux.Router) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Student{}, &models.StudentStatusHistory{}))

	router := mux.NewRouter()
	NewStudentHandler(db).RegisterRoutes(router)
	return db, router
}

func seedActor(t *testing.T, db *gorm.DB) (models.User, string) {
	t.Helper()
	actor := models.User{
		Email:        "actor@example.com",
		PasswordHash: "x",
		FullName:     "Actor",
		UserType:     models.RoleCounselor,
		Status:       "active",
	}
	require.NoError(t, db.Create(&actor).Error)
	token, err := utils.GenerateJWT(actor.ID, time.Hour)
	require.NoError(t, err)
	return actor, token
}

func doJSON(t *testing.T, router *mux.Router, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func studentBody(name, email, phone string) map[string]interface{} {
	return map[string]interface{}{
		"student_name":            name,
		"email":                   email,
		"phone_number":            phone,
		"gender":                  "female",
		"date_of_birth":           "2006-01-15",
		"current_education_level": "THPT",
		"city":                    "Hanoi",
		"source":                  "Website",
		"notification_consent":    "Agree",
	}
}

func TestCreateStudent(t *testing.T) {
	db, router := setupTest(t)
	_, token := seedActor(t, db)

	rr := doJSON(t, router, http.MethodPost, "/students", token,
		studentBody("Nguyen Van A", "a@example.com", "0912345678"))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var student models.Student
	require.NoError(t, db.Where("email = ?", "a@example.com").First(&student).Error)
	assert.Equal(t, models.StudentStatusLead, student.CurrentStatus)
}

func TestCreateStudentValidation(t *testing.T) {
	db, router := setupTest(t)
	_, token := seedActor(t, db)

	cases := []struct {
		name   string
		mutate func(map[string]interface{})
	}{
		{"bad email", func(b map[string]interface{}) { b["email"] = "not-an-email" }},
		{"bad phone", func(b map[string]interface{}) { b["phone_number"] = "12ab" }},
		{"bad gender", func(b map[string]interface{}) { b["gender"] = "unknown" }},
		{"bad source", func(b map[string]interface{}) { b["source"] = "Telepathy" }},
		{"bad education level", func(b map[string]interface{}) { b["current_education_level"] = "PhD" }},
		{"future birth date", func(b map[string]interface{}) { b["date_of_birth"] = "2099-01-01" }},
		{"missing name", func(b map[string]interface{}) { b["student_name"] = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := studentBody("Nguyen Van A", "a@example.com", "0912345678")
			tc.mutate(body)
			rr := doJSON(t, router, http.MethodPost, "/students", token, body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestCreateStudentRequiresAuth(t *testing.T) {
	_, router := setupTest(t)
	rr := doJSON(t, router, http.MethodPost, "/students", "",
		studentBody("Nguyen Van A", "a@example.com", "0912345678"))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCreateStudentInvalidCounselor(t *testing.T) {
	db, router := setupTest(t)
	_, token := seedActor(t, db)

	body := studentBody("Nguyen Van A", "a@example.com", "0912345678")
	body["assigned_counselor_id"] = 999
	rr := doJSON(t, router, http.MethodPost, "/students", token, body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetStudentsFilters(t *testing.T) {
	db, router := setupTest(t)
	_, token := seedActor(t, db)

	names := []struct{ name, email, phone, status string }{
		{"An Tran", "an@example.com", "0911111111", models.StudentStatusLead},
		{"Binh Le", "binh@example.com", "0922222222", models.StudentStatusRegistered},
		{"Chi Pham", "chi@example.com", "0933333333", models.StudentStatusRegistered},
	}
	for _, n := range names {
		rr := doJSON(t, router, http.MethodPost, "/students", token, studentBody(n.name, n.email, n.phone))
		require.Equal(t, http.StatusCreated, rr.Code)
		require.NoError(t, db.Model(&models.Student{}).
			Where("email = ?", n.email).Update("current_status", n.status).Error)
	}

	rr := doJSON(t, router, http.MethodGet, "/students?status=Registered", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Data struct {
			Students   []models.Student `json:"students"`
			Pagination utils.Pagination `json:"pagination"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp.Data.Students, 2)
	assert.EqualValues(t, 2, resp.Data.Pagination.TotalItems)

	rr = doJSON(t, router, http.MethodGet, "/students?search=An+Tran", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Students, 1)
	assert.Equal(t, "An Tran", resp.Data.Students[0].StudentName)

	rr = doJSON(t, router, http.MethodGet, "/students?sort=student_name&order=asc&limit=2", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Students, 2)
	assert.Equal(t, "An Tran", resp.Data.Students[0].StudentName)
	assert.EqualValues(t, 2, resp.Data.Pagination.TotalPages)
}

func TestUpdateStudentRecordsStatusHistory(t *testing.T) {
	db, router := setupTest(t)
	actor, token := seedActor(t, db)

	rr := doJSON(t, router, http.MethodPost, "/students", token,
		studentBody("Nguyen Van A", "a@example.com", "0912345678"))
	require.Equal(t, http.StatusCreated, rr.Code)

	var student models.Student
	require.NoError(t, db.Where("email = ?", "a@example.com").First(&student).Error)

	rr = doJSON(t, router, http.MethodPut, fmt.Sprintf("/students/%d", student.ID), token,
		map[string]interface{}{"current_status": models.StudentStatusEngaging})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var history []models.StudentStatusHistory
	require.NoError(t, db.Where("student_id = ?", student.ID).Find(&history).Error)
	require.Len(t, history, 1)
	assert.Equal(t, models.StudentStatusLead, history[0].OldStatus)
	assert.Equal(t, models.StudentStatusEngaging, history[0].NewStatus)
	assert.Equal(t, actor.ID, history[0].ChangedByUserID)

	// A non-status update leaves the history untouched.
	rr = doJSON(t, router, http.MethodPut, fmt.Sprintf("/students/%d", student.ID), token,
		map[string]interface{}{"city": "Da Nang"})
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, db.Where("student_id = ?", student.ID).Find(&history).Error)
	assert.Len(t, history, 1)

	rr = doJSON(t, router, http.MethodGet, fmt.Sprintf("/students/%d/history", student.ID), "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Data []models.StudentStatusHistory `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 1)
}

func TestUpdateStudentRejectsInvalidStatus(t *testing.T) {
	db, router := setupTest(t)
	_, token := seedActor(t, db)

	rr := doJSON(t, router, http.MethodPost, "/students", token,
		studentBody("Nguyen Van A", "a@example.com", "0912345678"))
	require.Equal(t, http.StatusCreated, rr.Code)

	var student models.Student
	require.NoError(t, db.Where("email = ?", "a@example.com").First(&student).Error)

	rr = doJSON(t, router, http.MethodPut, fmt.Sprintf("/students/%d", student.ID), token,
		map[string]interface{}{"current_status": "Graduated"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDeleteStudent(t *testing.T) {
	db, router := setupTest(t)
	_, token := seedActor(t, db)

	rr := doJSON(t, router, http.MethodPost, "/students", token,
		studentBody("Nguyen Van A", "a@example.com", "0912345678"))
	require.Equal(t, http.StatusCreated, rr.Code)

	var student models.Student
	require.NoError(t, db.Where("email = ?", "a@example.com").First(&student).Error)

	rr = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/students/%d", student.ID), token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodGet, fmt.Sprintf("/students/%d", student.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/students/%d", student.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
