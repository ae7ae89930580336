package admin

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
	t.Setenv("REPORTS_DIR", t.TempDir())

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Student{},
		&models.StudentStatusHistory{},
		&models.Appointment{},
		&models.ConsultationSession{},
		&models.Report{},
	))

	admin := models.User{
		Email:        "admin@example.com",
		PasswordHash: "x",
		FullName:     "Admin",
		UserType:     models.RoleAdmin,
		Status:       "active",
	}
	require.NoError(t, db.Create(&admin).Error)

	token, err := utils.GenerateJWT(admin.ID, time.Hour)
	require.NoError(t, err)

	router := mux.NewRouter()
	NewAdminHandler(db).RegisterRoutes(router)
	return db, router, token
}

func seedFunnel(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	counselor := models.User{
		Email:        "counselor@example.com",
		PasswordHash: "x",
		FullName:     "Counselor",
		UserType:     models.RoleCounselor,
		Status:       "active",
	}
	require.NoError(t, db.Create(&counselor).Error)

	students := []models.Student{
		{StudentName: "An", Email: "an@example.com", PhoneNumber: "0911111111",
			Gender: "female", DateOfBirth: time.Date(2006, 1, 1, 0, 0, 0, 0, time.UTC),
			CurrentEducationLevel: "THPT", City: "Hanoi", Source: "Website",
			NotificationConsent: "Agree", CurrentStatus: models.StudentStatusRegistered,
			AssignedCounselorID: &counselor.ID},
		{StudentName: "Binh", Email: "binh@example.com", PhoneNumber: "0922222222",
			Gender: "male", DateOfBirth: time.Date(2005, 6, 1, 0, 0, 0, 0, time.UTC),
			CurrentEducationLevel: "THPT", City: "Hanoi", Source: "Fanpage",
			NotificationConsent: "Agree", CurrentStatus: models.StudentStatusLead},
		{StudentName: "Chi", Email: "chi@example.com", PhoneNumber: "0933333333",
			Gender: "female", DateOfBirth: time.Date(2005, 3, 1, 0, 0, 0, 0, time.UTC),
			CurrentEducationLevel: "THPT", City: "Hanoi", Source: "Website",
			NotificationConsent: "Agree", CurrentStatus: models.StudentStatusLead},
	}
	require.NoError(t, db.Create(&students).Error)

	session := models.ConsultationSession{
		CounselorID:     counselor.ID,
		StudentID:       students[0].ID,
		SessionDate:     time.Now(),
		DurationMinutes: 30,
		SessionType:     "Phone Call",
		SessionStatus:   models.SessionCompleted,
	}
	require.NoError(t, db.Create(&session).Error)
	return counselor
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

func TestGetStatistics(t *testing.T) {
	db, router, _ := setupTest(t)
	seedFunnel(t, db)

	rr := doJSON(t, router, http.MethodGet, "/admin/statistics", "", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Data struct {
			Overview struct {
				TotalStudents      int64   `json:"total_students"`
				RegisteredStudents int64   `json:"registered_students"`
				ConversionRate     float64 `json:"conversion_rate"`
				TotalSessions      int64   `json:"total_sessions"`
			} `json:"overview"`
			StudentsBySource []struct {
				Source string `json:"source"`
				Count  int64  `json:"count"`
			} `json:"students_by_source"`
			CounselorPerformance []struct {
				CounselorName string `json:"counselor_name"`
				TotalSessions int64  `json:"total_sessions"`
				Completed     int64  `json:"completed_sessions"`
				Students      int64  `json:"assigned_students"`
			} `json:"counselor_performance"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	assert.EqualValues(t, 3, resp.Data.Overview.TotalStudents)
	assert.EqualValues(t, 1, resp.Data.Overview.RegisteredStudents)
	assert.InDelta(t, 33.33, resp.Data.Overview.ConversionRate, 0.01)
	assert.EqualValues(t, 1, resp.Data.Overview.TotalSessions)

	require.NotEmpty(t, resp.Data.StudentsBySource)
	assert.Equal(t, "Website", resp.Data.StudentsBySource[0].Source)
	assert.EqualValues(t, 2, resp.Data.StudentsBySource[0].Count)

	require.Len(t, resp.Data.CounselorPerformance, 1)
	assert.EqualValues(t, 1, resp.Data.CounselorPerformance[0].TotalSessions)
	assert.EqualValues(t, 1, resp.Data.CounselorPerformance[0].Completed)
	assert.EqualValues(t, 1, resp.Data.CounselorPerformance[0].Students)
}

func TestGetStatisticsEmptyDatabase(t *testing.T) {
	_, router, _ := setupTest(t)

	rr := doJSON(t, router, http.MethodGet, "/admin/statistics", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Data struct {
			Overview struct {
				ConversionRate float64 `json:"conversion_rate"`
			} `json:"overview"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Zero(t, resp.Data.Overview.ConversionRate)
}

func reportBody(reportType, format string) map[string]interface{} {
	return map[string]interface{}{
		"report_name":   "Monthly overview",
		"report_type":   reportType,
		"report_period": "monthly",
		"start_date":    time.Now().AddDate(0, -1, 0).Format("2006-01-02"),
		"end_date":      time.Now().Format("2006-01-02"),
		"file_format":   format,
	}
}

func TestGenerateReportExcel(t *testing.T) {
	db, router, token := setupTest(t)
	seedFunnel(t, db)

	rr := doJSON(t, router, http.MethodPost, "/admin/reports/generate", token, reportBody("statistics", "excel"))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var report models.Report
	require.NoError(t, db.First(&report).Error)
	assert.Equal(t, models.ReportCompleted, report.Status)
	assert.True(t, strings.HasSuffix(report.FilePath, ".xlsx"))

	info, err := os.Stat(report.FilePath)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestGenerateReportCSV(t *testing.T) {
	db, router, token := setupTest(t)
	seedFunnel(t, db)

	rr := doJSON(t, router, http.MethodPost, "/admin/reports/generate", token, reportBody("source", "csv"))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var report models.Report
	require.NoError(t, db.First(&report).Error)
	require.Equal(t, models.ReportCompleted, report.Status)

	content, err := os.ReadFile(report.FilePath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Source")
	assert.Contains(t, string(content), "Website")
}

func TestGenerateReportValidation(t *testing.T) {
	_, router, token := setupTest(t)

	cases := []struct {
		name   string
		mutate func(map[string]interface{})
	}{
		{"bad type", func(b map[string]interface{}) { b["report_type"] = "horoscope" }},
		{"bad format", func(b map[string]interface{}) { b["file_format"] = "pdf" }},
		{"bad dates", func(b map[string]interface{}) {
			b["start_date"] = "2026-02-01"
			b["end_date"] = "2026-01-01"
		}},
		{"missing name", func(b map[string]interface{}) { b["report_name"] = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := reportBody("statistics", "excel")
			tc.mutate(body)
			rr := doJSON(t, router, http.MethodPost, "/admin/reports/generate", token, body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestGenerateReportRequiresAuth(t *testing.T) {
	_, router, _ := setupTest(t)

	rr := doJSON(t, router, http.MethodPost, "/admin/reports/generate", "", reportBody("statistics", "excel"))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestDownloadReport(t *testing.T) {
	db, router, token := setupTest(t)
	seedFunnel(t, db)

	rr := doJSON(t, router, http.MethodPost, "/admin/reports/generate", token, reportBody("conversion", "csv"))
	require.Equal(t, http.StatusCreated, rr.Code)

	var report models.Report
	require.NoError(t, db.First(&report).Error)

	rr = doJSON(t, router, http.MethodGet, fmt.Sprintf("/admin/reports/%d/download", report.ID), "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "attachment")

	require.NoError(t, db.First(&report, report.ID).Error)
	assert.Equal(t, 1, report.DownloadCount)

	rr = doJSON(t, router, http.MethodGet, "/admin/reports/999/download", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDownloadReportNotReady(t *testing.T) {
	db, router, _ := setupTest(t)

	report := models.Report{
		ReportName:    "Stuck",
		ReportType:    "statistics",
		ReportPeriod:  "monthly",
		StartDate:     time.Now().AddDate(0, -1, 0),
		EndDate:       time.Now(),
		GeneratedByID: 1,
		FileFormat:    "excel",
		Status:        models.ReportGenerating,
	}
	require.NoError(t, db.Create(&report).Error)

	rr := doJSON(t, router, http.MethodGet, fmt.Sprintf("/admin/reports/%d/download", report.ID), "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetReports(t *testing.T) {
	db, router, token := setupTest(t)
	seedFunnel(t, db)

	for _, rt := range []string{"statistics", "source"} {
		rr := doJSON(t, router, http.MethodPost, "/admin/reports/generate", token, reportBody(rt, "csv"))
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr := doJSON(t, router, http.MethodGet, "/admin/reports?report_type=source", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Data struct {
			Reports    []models.Report  `json:"reports"`
			Pagination utils.Pagination `json:"pagination"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Reports, 1)
	assert.Equal(t, "source", resp.Data.Reports[0].ReportType)
}
