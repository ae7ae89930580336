package admin

import (
	"encoding/json"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/educrm/admission-server/cmd/models"
	"github.com/educrm/admission-server/cmd/utils"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type AdminHandler struct {
	db *gorm.DB
}

func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{db: db}
}

func (h *AdminHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/admin/statistics", h.GetStatistics).Methods("GET")
	router.HandleFunc("/admin/reports/generate", utils.AuthMiddleware(h.GenerateReport)).Methods("POST")
	router.HandleFunc("/admin/reports", h.GetReports).Methods("GET")
	router.HandleFunc("/admin/reports/{id}/download", h.DownloadReport).Methods("GET")
}

type sourceCount struct {
	Source string `json:"source"`
	Count  int64  `json:"count"`
}

type counselorPerformance struct {
	CounselorID   uint   `json:"counselor_id"`
	CounselorName string `json:"counselor_name"`
	TotalSessions int64  `json:"total_sessions"`
	Completed     int64  `json:"completed_sessions"`
	Students      int64  `json:"assigned_students"`
}

func (h *AdminHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	var rangeStart, rangeEnd *time.Time
	if s := r.URL.Query().Get("start_date"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			utils.WriteDomainError(w, utils.Invalid("Invalid start_date: expected YYYY-MM-DD"))
			return
		}
		rangeStart = &parsed
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			utils.WriteDomainError(w, utils.Invalid("Invalid end_date: expected YYYY-MM-DD"))
			return
		}
		end := parsed.Add(24*time.Hour - time.Second)
		rangeEnd = &end
	}

	inRange := func(query *gorm.DB, column string) *gorm.DB {
		if rangeStart != nil {
			query = query.Where(column+" >= ?", *rangeStart)
		}
		if rangeEnd != nil {
			query = query.Where(column+" <= ?", *rangeEnd)
		}
		return query
	}

	var totalStudents, registered, totalCounselors int64
	h.db.Model(&models.Student{}).Count(&totalStudents)
	h.db.Model(&models.Student{}).Where("current_status = ?", models.StudentStatusRegistered).Count(&registered)
	h.db.Model(&models.User{}).Where("user_type = ?", models.RoleCounselor).Count(&totalCounselors)

	var newStudents, totalAppointments, totalSessions, completedSessions int64
	inRange(h.db.Model(&models.Student{}), "created_at").Count(&newStudents)
	inRange(h.db.Model(&models.Appointment{}), "appointment_date").Count(&totalAppointments)
	inRange(h.db.Model(&models.ConsultationSession{}), "session_date").Count(&totalSessions)
	inRange(h.db.Model(&models.ConsultationSession{}), "session_date").
		Where("session_status = ?", models.SessionCompleted).Count(&completedSessions)

	conversionRate := 0.0
	if totalStudents > 0 {
		conversionRate = math.Round(float64(registered)/float64(totalStudents)*10000) / 100
	}

	var statusCounts []struct {
		CurrentStatus string `json:"status"`
		Count         int64  `json:"count"`
	}
	h.db.Model(&models.Student{}).
		Select("current_status, COUNT(*) as count").
		Group("current_status").
		Scan(&statusCounts)

	var sources []sourceCount
	h.db.Model(&models.Student{}).
		Select("source, COUNT(*) as count").
		Group("source").
		Order("count DESC").
		Scan(&sources)

	performance := h.counselorPerformance(r.URL.Query().Get("counselor_id"), inRange)

	utils.WriteSuccess(w, http.StatusOK, "", map[string]interface{}{
		"overview": map[string]interface{}{
			"total_students":      totalStudents,
			"registered_students": registered,
			"total_counselors":    totalCounselors,
			"new_students":        newStudents,
			"conversion_rate":     conversionRate,
			"total_appointments":  totalAppointments,
			"total_sessions":      totalSessions,
			"completed_sessions":  completedSessions,
		},
		"students_by_status":    statusCounts,
		"students_by_source":    sources,
		"counselor_performance": performance,
	})
}

func (h *AdminHandler) counselorPerformance(counselorID string, inRange func(*gorm.DB, string) *gorm.DB) []counselorPerformance {
	query := h.db.Where("user_type = ?", models.RoleCounselor).Order("id ASC")
	if counselorID != "" {
		query = query.Where("id = ?", counselorID)
	}
	var counselors []models.User
	query.Find(&counselors)

	performance := make([]counselorPerformance, 0, len(counselors))
	for _, c := range counselors {
		row := counselorPerformance{CounselorID: c.ID, CounselorName: c.FullName}
		inRange(h.db.Model(&models.ConsultationSession{}), "session_date").
			Where("counselor_id = ?", c.ID).Count(&row.TotalSessions)
		inRange(h.db.Model(&models.ConsultationSession{}), "session_date").
			Where("counselor_id = ? AND session_status = ?", c.ID, models.SessionCompleted).
			Count(&row.Completed)
		h.db.Model(&models.Student{}).Where("assigned_counselor_id = ?", c.ID).Count(&row.Students)
		performance = append(performance, row)
	}
	return performance
}

type generateReportRequest struct {
	ReportName   string `json:"report_name"`
	ReportType   string `json:"report_type"`
	ReportPeriod string `json:"report_period"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	FileFormat   string `json:"file_format"`
}

func (h *AdminHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	actorID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req generateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.ReportName == "" || len(req.ReportName) > 200 {
		utils.WriteDomainError(w, utils.Invalid("report_name is required and must not exceed 200 characters"))
		return
	}
	if !models.ValidReportType(req.ReportType) {
		utils.WriteDomainError(w, utils.Invalid("Invalid report type"))
		return
	}
	if !models.ValidReportFormat(req.FileFormat) {
		utils.WriteDomainError(w, utils.Invalid("Invalid file format: expected excel or csv"))
		return
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		utils.WriteDomainError(w, utils.Invalid("Invalid start_date: expected YYYY-MM-DD"))
		return
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		utils.WriteDomainError(w, utils.Invalid("Invalid end_date: expected YYYY-MM-DD"))
		return
	}
	if endDate.Before(startDate) {
		utils.WriteDomainError(w, utils.Invalid("End date must be after start date"))
		return
	}

	report := models.Report{
		ReportName:    req.ReportName,
		ReportType:    req.ReportType,
		ReportPeriod:  req.ReportPeriod,
		StartDate:     startDate,
		EndDate:       endDate.Add(24*time.Hour - time.Second),
		GeneratedByID: actorID,
		FileFormat:    req.FileFormat,
		Status:        models.ReportGenerating,
	}
	if err := h.db.Create(&report).Error; err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	filePath, genErr := h.writeReportFile(&report)
	if genErr != nil {
		report.Status = models.ReportFailed
		report.ErrorMessage = genErr.Error()
	} else {
		report.Status = models.ReportCompleted
		report.FilePath = filePath
	}
	if err := h.db.Save(&report).Error; err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	if genErr != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Report generation failed: "+genErr.Error())
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, "Report generated successfully", report)
}

func (h *AdminHandler) writeReportFile(report *models.Report) (string, error) {
	headers, rows, err := h.reportRows(report)
	if err != nil {
		return "", err
	}

	dir := os.Getenv("REPORTS_DIR")
	if dir == "" {
		dir = "reports"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	ext := "xlsx"
	if report.FileFormat == "csv" {
		ext = "csv"
	}
	filePath := filepath.Join(dir, uuid.New().String()+"."+ext)

	if report.FileFormat == "csv" {
		if err := writeCSV(filePath, headers, rows); err != nil {
			return "", err
		}
		return filePath, nil
	}

	if err := writeExcel(filePath, report.ReportName, headers, rows); err != nil {
		return "", err
	}
	return filePath, nil
}

// reportRows builds tabular data for a report type within the report window.
func (h *AdminHandler) reportRows(report *models.Report) ([]string, [][]interface{}, error) {
	switch report.ReportType {
	case "statistics":
		return h.statisticsRows(report.StartDate, report.EndDate)
	case "conversion":
		return h.conversionRows(report.StartDate, report.EndDate)
	case "source":
		return h.sourceRows(report.StartDate, report.EndDate)
	case "counselor_performance":
		return h.counselorRows(report.StartDate, report.EndDate)
	case "student_progress":
		return h.progressRows(report.StartDate, report.EndDate)
	}
	return nil, nil, utils.Invalid("Invalid report type")
}

func (h *AdminHandler) statisticsRows(start, end time.Time) ([]string, [][]interface{}, error) {
	headers := []string{"Metric", "Value"}

	var students, appointments, sessions int64
	if err := h.db.Model(&models.Student{}).Where("created_at BETWEEN ? AND ?", start, end).Count(&students).Error; err != nil {
		return nil, nil, err
	}
	h.db.Model(&models.Appointment{}).Where("appointment_date BETWEEN ? AND ?", start, end).Count(&appointments)
	h.db.Model(&models.ConsultationSession{}).Where("session_date BETWEEN ? AND ?", start, end).Count(&sessions)

	rows := [][]interface{}{
		{"New Students", students},
		{"Appointments", appointments},
		{"Consultation Sessions", sessions},
	}
	return headers, rows, nil
}

func (h *AdminHandler) conversionRows(start, end time.Time) ([]string, [][]interface{}, error) {
	headers := []string{"Status", "Students"}

	var counts []struct {
		CurrentStatus string
		Count         int64
	}
	if err := h.db.Model(&models.Student{}).
		Select("current_status, COUNT(*) as count").
		Where("created_at BETWEEN ? AND ?", start, end).
		Group("current_status").
		Scan(&counts).Error; err != nil {
		return nil, nil, err
	}

	rows := make([][]interface{}, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []interface{}{c.CurrentStatus, c.Count})
	}
	return headers, rows, nil
}

func (h *AdminHandler) sourceRows(start, end time.Time) ([]string, [][]interface{}, error) {
	headers := []string{"Source", "Students", "Registered"}

	var sources []struct {
		Source string
		Count  int64
	}
	if err := h.db.Model(&models.Student{}).
		Select("source, COUNT(*) as count").
		Where("created_at BETWEEN ? AND ?", start, end).
		Group("source").
		Order("count DESC").
		Scan(&sources).Error; err != nil {
		return nil, nil, err
	}

	rows := make([][]interface{}, 0, len(sources))
	for _, s := range sources {
		var registered int64
		h.db.Model(&models.Student{}).
			Where("source = ? AND current_status = ? AND created_at BETWEEN ? AND ?",
				s.Source, models.StudentStatusRegistered, start, end).
			Count(&registered)
		rows = append(rows, []interface{}{s.Source, s.Count, registered})
	}
	return headers, rows, nil
}

func (h *AdminHandler) counselorRows(start, end time.Time) ([]string, [][]interface{}, error) {
	headers := []string{"Counselor", "Sessions", "Completed", "Assigned Students"}

	var counselors []models.User
	if err := h.db.Where("user_type = ?", models.RoleCounselor).Order("id ASC").Find(&counselors).Error; err != nil {
		return nil, nil, err
	}

	rows := make([][]interface{}, 0, len(counselors))
	for _, c := range counselors {
		var total, completed, students int64
		h.db.Model(&models.ConsultationSession{}).
			Where("counselor_id = ? AND session_date BETWEEN ? AND ?", c.ID, start, end).
			Count(&total)
		h.db.Model(&models.ConsultationSession{}).
			Where("counselor_id = ? AND session_status = ? AND session_date BETWEEN ? AND ?",
				c.ID, models.SessionCompleted, start, end).
			Count(&completed)
		h.db.Model(&models.Student{}).Where("assigned_counselor_id = ?", c.ID).Count(&students)
		rows = append(rows, []interface{}{c.FullName, total, completed, students})
	}
	return headers, rows, nil
}

func (h *AdminHandler) progressRows(start, end time.Time) ([]string, [][]interface{}, error) {
	headers := []string{"Student", "Old Status", "New Status", "Changed At"}

	var history []models.StudentStatusHistory
	if err := h.db.Preload("Student").
		Where("change_date BETWEEN ? AND ?", start, end).
		Order("change_date ASC").
		Find(&history).Error; err != nil {
		return nil, nil, err
	}

	rows := make([][]interface{}, 0, len(history))
	for _, entry := range history {
		name := ""
		if entry.Student != nil {
			name = entry.Student.StudentName
		}
		rows = append(rows, []interface{}{
			name, entry.OldStatus, entry.NewStatus, entry.ChangeDate.Format(time.RFC3339),
		})
	}
	return headers, rows, nil
}

func (h *AdminHandler) GetReports(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 10
	}

	query := h.db.Model(&models.Report{}).Preload("GeneratedBy")
	if reportType := r.URL.Query().Get("report_type"); reportType != "" {
		query = query.Where("report_type = ?", reportType)
	}

	var total int64
	query.Count(&total)

	var reports []models.Report
	if err := query.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).Find(&reports).Error; err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "", map[string]interface{}{
		"reports":    reports,
		"pagination": utils.NewPagination(page, limit, total),
	})
}

func (h *AdminHandler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	reportID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		utils.WriteDomainError(w, utils.Invalid("Invalid report ID"))
		return
	}

	var report models.Report
	if err := h.db.First(&report, reportID).Error; err != nil {
		utils.WriteDomainError(w, utils.NotFound("Report"))
		return
	}
	if report.Status != models.ReportCompleted {
		utils.WriteDomainError(w, utils.Conflict("Report is not ready for download"))
		return
	}

	file, err := os.Open(report.FilePath)
	if err != nil {
		utils.WriteDomainError(w, utils.NotFound("Report file"))
		return
	}
	defer file.Close()

	h.db.Model(&models.Report{}).Where("id = ?", report.ID).
		UpdateColumn("download_count", gorm.Expr("download_count + 1"))

	filename := report.ReportName + filepath.Ext(report.FilePath)
	if report.FileFormat == "csv" {
		w.Header().Set("Content-Type", "text/csv")
	} else {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	http.ServeContent(w, r, filename, report.UpdatedAt, file)
}
