package kpi

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

func setupTest(t *testing.T) (*gorm.DB, *mux.Router, models.User, string) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.KpiDefinition{}, &models.CounselorKpiTarget{}))

	counselor := models.User{
		Email:        "counselor@example.com",
		PasswordHash: "x",
		FullName:     "Counselor",
		UserType:     models.RoleCounselor,
		Status:       "active",
	}
	require.NoError(t, db.Create(&counselor).Error)

	token, err := utils.GenerateJWT(counselor.ID, time.Hour)
	require.NoError(t, err)

	router := mux.NewRouter()
	NewKpiHandler(db).RegisterRoutes(router)
	return db, router, counselor, token
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

func seedDefinition(t *testing.T, db *gorm.DB) models.KpiDefinition {
	t.Helper()
	definition := models.KpiDefinition{Name: "Registered students", Unit: "students"}
	require.NoError(t, db.Create(&definition).Error)
	return definition
}

func TestCreateDefinition(t *testing.T) {
	_, router, _, token := setupTest(t)

	rr := doJSON(t, router, http.MethodPost, "/kpi-definitions", token,
		map[string]interface{}{"name": "Sessions held", "unit": "sessions"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = doJSON(t, router, http.MethodPost, "/kpi-definitions", token,
		map[string]interface{}{"name": "Sessions held", "unit": "sessions"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/kpi-definitions", token,
		map[string]interface{}{"name": "", "unit": "sessions"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func targetBody(counselorID, kpiID uint) map[string]interface{} {
	return map[string]interface{}{
		"counselor_id": counselorID,
		"kpi_id":       kpiID,
		"target_value": 25,
		"start_date":   "2026-09-01",
		"end_date":     "2026-09-30",
	}
}

func TestCreateTarget(t *testing.T) {
	db, router, counselor, token := setupTest(t)
	definition := seedDefinition(t, db)

	rr := doJSON(t, router, http.MethodPost, "/counselor-kpi-targets", token,
		targetBody(counselor.ID, definition.ID))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var target models.CounselorKpiTarget
	require.NoError(t, db.First(&target).Error)
	assert.Equal(t, 25.0, target.TargetValue)
}

func TestCreateTargetValidation(t *testing.T) {
	db, router, counselor, token := setupTest(t)
	definition := seedDefinition(t, db)

	cases := []struct {
		name   string
		mutate func(map[string]interface{})
	}{
		{"negative target", func(b map[string]interface{}) { b["target_value"] = -5 }},
		{"end before start", func(b map[string]interface{}) { b["end_date"] = "2026-08-01" }},
		{"unknown counselor", func(b map[string]interface{}) { b["counselor_id"] = 999 }},
		{"unknown kpi", func(b map[string]interface{}) { b["kpi_id"] = 999 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := targetBody(counselor.ID, definition.ID)
			tc.mutate(body)
			rr := doJSON(t, router, http.MethodPost, "/counselor-kpi-targets", token, body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestUpdateAndDeleteTarget(t *testing.T) {
	db, router, counselor, token := setupTest(t)
	definition := seedDefinition(t, db)

	rr := doJSON(t, router, http.MethodPost, "/counselor-kpi-targets", token,
		targetBody(counselor.ID, definition.ID))
	require.Equal(t, http.StatusCreated, rr.Code)

	var target models.CounselorKpiTarget
	require.NoError(t, db.First(&target).Error)

	rr = doJSON(t, router, http.MethodPut, fmt.Sprintf("/counselor-kpi-targets/%d", target.ID), token,
		map[string]interface{}{"target_value": 40})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	require.NoError(t, db.First(&target, target.ID).Error)
	assert.Equal(t, 40.0, target.TargetValue)

	rr = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/counselor-kpi-targets/%d", target.ID), token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/counselor-kpi-targets/%d", target.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetTargetsFilter(t *testing.T) {
	db, router, counselor, token := setupTest(t)
	definition := seedDefinition(t, db)

	rr := doJSON(t, router, http.MethodPost, "/counselor-kpi-targets", token,
		targetBody(counselor.ID, definition.ID))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, router, http.MethodGet, fmt.Sprintf("/counselor-kpi-targets?counselor_id=%d", counselor.ID), "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Data []models.CounselorKpiTarget `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 1)

	rr = doJSON(t, router, http.MethodGet, "/counselor-kpi-targets?counselor_id=999", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 0)
}
