package export

import (
	"log"
	"net/http"
	"time"

	"github.com/educrm/admission-server/cmd/models"
	"github.com/educrm/admission-server/cmd/utils"
	"github.com/gorilla/mux"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ExportHandler streams workbook snapshots of the main tables for offline
// analysis.
type ExportHandler struct {
	db *gorm.DB
}

func NewExportHandler(db *gorm.DB) *ExportHandler {
	return &ExportHandler{db: db}
}

func (h *ExportHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/export/students", h.ExportStudents).Methods("GET")
	router.HandleFunc("/export/courses", h.ExportCourses).Methods("GET")
	router.HandleFunc("/export/consultation-sessions", h.ExportSessions).Methods("GET")
}

func (h *ExportHandler) ExportStudents(w http.ResponseWriter, r *http.Request) {
	var students []models.Student
	query := h.db.Preload("AssignedCounselor").Order("id ASC")
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("current_status = ?", status)
	}
	if counselorID := r.URL.Query().Get("counselor_id"); counselorID != "" {
		query = query.Where("assigned_counselor_id = ?", counselorID)
	}
	query, err := dateRange(query, r, "created_at")
	if err != nil {
		utils.WriteDomainError(w, err)
		return
	}
	if err := query.Find(&students).Error; err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	headers := []string{
		"ID", "Name", "Email", "Phone", "Gender", "Date of Birth", "Education Level",
		"City", "Source", "Status", "Assigned Counselor", "Created At",
	}
	rows := make([][]interface{}, 0, len(students))
	for _, s := range students {
		counselor := ""
		if s.AssignedCounselor != nil {
			counselor = s.AssignedCounselor.FullName
		}
		rows = append(rows, []interface{}{
			s.ID, s.StudentName, s.Email, s.PhoneNumber, s.Gender,
			s.DateOfBirth.Format("2006-01-02"), s.CurrentEducationLevel,
			s.City, s.Source, s.CurrentStatus, counselor,
			s.CreatedAt.Format(time.RFC3339),
		})
	}

	writeWorkbook(w, "students", "Students", headers, rows)
}

func (h *ExportHandler) ExportCourses(w http.ResponseWriter, r *http.Request) {
	var courses []models.Course
	query := h.db.Preload("Category").Order("id ASC")
	if isActive := r.URL.Query().Get("is_active"); isActive != "" {
		query = query.Where("is_active = ?", isActive == "true")
	}
	if programType := r.URL.Query().Get("program_type"); programType != "" {
		query = query.Where("program_type = ?", programType)
	}
	if categoryID := r.URL.Query().Get("category_id"); categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}
	if err := query.Find(&courses).Error; err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	headers := []string{"ID", "Name", "Category", "Program Type", "Duration", "Price", "Active"}
	rows := make([][]interface{}, 0, len(courses))
	for _, c := range courses {
		category := ""
		if c.Category != nil {
			category = c.Category.Name
		}
		rows = append(rows, []interface{}{
			c.ID, c.Name, category, c.ProgramType, c.DurationText, c.Price, c.IsActive,
		})
	}

	writeWorkbook(w, "courses", "Courses", headers, rows)
}

func (h *ExportHandler) ExportSessions(w http.ResponseWriter, r *http.Request) {
	var sessions []models.ConsultationSession
	query := h.db.Preload("Counselor").Preload("Student").Order("session_date ASC")
	if counselorID := r.URL.Query().Get("counselor_id"); counselorID != "" {
		query = query.Where("counselor_id = ?", counselorID)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("session_status = ?", status)
	}
	query, err := dateRange(query, r, "session_date")
	if err != nil {
		utils.WriteDomainError(w, err)
		return
	}
	if err := query.Find(&sessions).Error; err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	headers := []string{"ID", "Date", "Counselor", "Student", "Type", "Status", "Duration (min)", "Notes"}
	rows := make([][]interface{}, 0, len(sessions))
	for _, s := range sessions {
		counselor, student := "", ""
		if s.Counselor != nil {
			counselor = s.Counselor.FullName
		}
		if s.Student != nil {
			student = s.Student.StudentName
		}
		rows = append(rows, []interface{}{
			s.ID, s.SessionDate.Format(time.RFC3339), counselor, student,
			s.SessionType, s.SessionStatus, s.DurationMinutes, s.Notes,
		})
	}

	writeWorkbook(w, "consultation_sessions", "Sessions", headers, rows)
}

// dateRange applies optional start_date/end_date query filters to a column.
func dateRange(query *gorm.DB, r *http.Request, column string) (*gorm.DB, error) {
	if s := r.URL.Query().Get("start_date"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, utils.Invalid("Invalid start_date: expected YYYY-MM-DD")
		}
		query = query.Where(column+" >= ?", parsed)
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, utils.Invalid("Invalid end_date: expected YYYY-MM-DD")
		}
		query = query.Where(column+" <= ?", parsed.Add(24*time.Hour-time.Second))
	}
	return query, nil
}

// writeWorkbook builds an xlsx in memory and streams it as an attachment.
func writeWorkbook(w http.ResponseWriter, filename, sheetName string, headers []string, rows [][]interface{}) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	headerRow := make([]interface{}, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &headerRow); err != nil {
		utils.WriteDomainError(w, err)
		return
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			utils.WriteDomainError(w, err)
			return
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			utils.WriteDomainError(w, err)
			return
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`_`+time.Now().Format("20060102")+`.xlsx"`)
	if err := f.Write(w); err != nil {
		log.Printf("error writing export workbook: %v", err)
	}
}
