package course

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

func setupTest(t *testing.T) (*gorm.DB, *mux.Router, string) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.CourseCategory{}, &models.Course{}))

	token, err := utils.GenerateJWT(1, time.Hour)
	require.NoError(t, err)

	router := mux.NewRouter()
	NewCourseHandler(db).RegisterRoutes(router)
	return db, router, token
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

func seedCategory(t *testing.T, db *gorm.DB, name string) models.CourseCategory {
	t.Helper()
	category := models.CourseCategory{Name: name}
	require.NoError(t, db.Create(&category).Error)
	return category
}

func courseBody(categoryID uint, name string) map[string]interface{} {
	return map[string]interface{}{
		"category_id":   categoryID,
		"name":          name,
		"description":   "IELTS preparation for beginners",
		"duration_text": "3 months",
		"price":         5000000,
		"program_type":  "IELTS",
	}
}

func TestCreateCourse(t *testing.T) {
	db, router, token := setupTest(t)
	category := seedCategory(t, db, "Language")

	rr := doJSON(t, router, http.MethodPost, "/courses", token, courseBody(category.ID, "IELTS Foundation"))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var course models.Course
	require.NoError(t, db.Where("name = ?", "IELTS Foundation").First(&course).Error)
	assert.True(t, course.IsActive)
	assert.Equal(t, category.ID, course.CategoryID)
}

func TestCreateCourseInvalidCategory(t *testing.T) {
	_, router, token := setupTest(t)

	rr := doJSON(t, router, http.MethodPost, "/courses", token, courseBody(999, "Orphan Course"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateCourseValidation(t *testing.T) {
	db, router, token := setupTest(t)
	category := seedCategory(t, db, "Language")

	body := courseBody(category.ID, "")
	rr := doJSON(t, router, http.MethodPost, "/courses", token, body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	body = courseBody(category.ID, "Negative Price")
	body["price"] = -1
	rr = doJSON(t, router, http.MethodPost, "/courses", token, body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpdateCourse(t *testing.T) {
	db, router, token := setupTest(t)
	category := seedCategory(t, db, "Language")

	rr := doJSON(t, router, http.MethodPost, "/courses", token, courseBody(category.ID, "IELTS Foundation"))
	require.Equal(t, http.StatusCreated, rr.Code)

	var course models.Course
	require.NoError(t, db.Where("name = ?", "IELTS Foundation").First(&course).Error)

	inactive := false
	rr = doJSON(t, router, http.MethodPut, fmt.Sprintf("/courses/%d", course.ID), token,
		map[string]interface{}{"name": "IELTS Advanced", "is_active": inactive})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	require.NoError(t, db.First(&course, course.ID).Error)
	assert.Equal(t, "IELTS Advanced", course.Name)
	assert.False(t, course.IsActive)
}

func TestDeleteCourse(t *testing.T) {
	db, router, token := setupTest(t)
	category := seedCategory(t, db, "Language")

	rr := doJSON(t, router, http.MethodPost, "/courses", token, courseBody(category.ID, "Short Lived"))
	require.Equal(t, http.StatusCreated, rr.Code)

	var course models.Course
	require.NoError(t, db.Where("name = ?", "Short Lived").First(&course).Error)

	rr = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/courses/%d", course.ID), token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/courses/%d", course.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetCoursesFilters(t *testing.T) {
	db, router, token := setupTest(t)
	language := seedCategory(t, db, "Language")
	study := seedCategory(t, db, "Study Abroad")

	rr := doJSON(t, router, http.MethodPost, "/courses", token, courseBody(language.ID, "IELTS Foundation"))
	require.Equal(t, http.StatusCreated, rr.Code)
	body := courseBody(study.ID, "Canada Pathway")
	body["program_type"] = "StudyAbroad"
	rr = doJSON(t, router, http.MethodPost, "/courses", token, body)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, router, http.MethodGet, "/courses?program_type=StudyAbroad", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Data struct {
			Courses []models.Course `json:"courses"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Courses, 1)
	assert.Equal(t, "Canada Pathway", resp.Data.Courses[0].Name)
}

func TestCreateCategoryDuplicate(t *testing.T) {
	_, router, token := setupTest(t)

	rr := doJSON(t, router, http.MethodPost, "/course-categories", token,
		map[string]interface{}{"name": "Language"})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/course-categories", token,
		map[string]interface{}{"name": "Language"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
