package student

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/educrm/admission-server/cmd/models"
	"github.com/educrm/admission-server/cmd/utils"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

var (
	emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)
	phonePattern = regexp.MustCompile(`^[0-9]{10,11}$`)
)

var studentSources = map[string]bool{
	"Mail": true, "Fanpage": true, "Zalo": true, "Website": true, "Friend": true,
	"SMS": true, "Banderole": true, "Poster": true, "Brochure": true,
	"Google": true, "Brand": true, "Event": true,
}

var studentStatuses = map[string]bool{
	models.StudentStatusLead:       true,
	models.StudentStatusEngaging:   true,
	models.StudentStatusRegistered: true,
	models.StudentStatusDropped:    true,
	models.StudentStatusArchived:   true,
}

var educationLevels = map[string]bool{"THPT": true, "SinhVien": true, "Other": true}

var sortColumns = map[string]string{
	"created_at":     "created_at",
	"student_name":   "student_name",
	"email":          "email",
	"current_status": "current_status",
}

type StudentHandler struct {
	db *gorm.DB
}

func NewStudentHandler(db *gorm.DB) *StudentHandler {
	return &StudentHandler{db: db}
}

func (h *StudentHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/students", h.GetStudents).Methods("GET")
	router.HandleFunc("/students", utils.AuthMiddleware(h.CreateStudent)).Methods("POST")
	router.HandleFunc("/students/{id}", h.GetStudent).Methods("GET")
	router.HandleFunc("/students/{id}", utils.AuthMiddleware(h.UpdateStudent)).Methods("PUT")
	router.HandleFunc("/students/{id}", utils.AuthMiddleware(h.DeleteStudent)).Methods("DELETE")
	router.HandleFunc("/students/{id}/history", h.GetStudentHistory).Methods("GET")
}

func (h *StudentHandler) GetStudents(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 10
	}

	query := h.db.Model(&models.Student{}).Preload("AssignedCounselor")

	if search := r.URL.Query().Get("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("student_name LIKE ? OR email LIKE ? OR phone_number LIKE ?", like, like, like)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("current_status = ?", status)
	}
	if source := r.URL.Query().Get("source"); source != "" {
		query = query.Where("source = ?", source)
	}
	if counselorID := r.URL.Query().Get("counselor_id"); counselorID != "" {
		query = query.Where("assigned_counselor_id = ?", counselorID)
	}

	sortColumn, ok := sortColumns[r.URL.Query().Get("sort")]
	if !ok {
		sortColumn = "created_at"
	}
	order := "DESC"
	if r.URL.Query().Get("order") == "asc" {
		order = "ASC"
	}

	var total int64
	query.Count(&total)

	var students []models.Student
	if err := query.Order(sortColumn + " " + order).
		Offset((page - 1) * limit).Limit(limit).Find(&students).Error; err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "", map[string]interface{}{
		"students":   students,
		"pagination": utils.NewPagination(page, limit, total),
	})
}

func (h *StudentHandler) GetStudent(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	studentID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		utils.WriteDomainError(w, utils.Invalid("Invalid student ID"))
		return
	}

	var student models.Student
	if err := h.db.Preload("AssignedCounselor").First(&student, studentID).Error; err != nil {
		utils.WriteDomainError(w, utils.NotFound("Student"))
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "", student)
}

type studentRequest struct {
	StudentName           string `json:"student_name"`
	Email                 string `json:"email"`
	PhoneNumber           string `json:"phone_number"`
	Gender                string `json:"gender"`
	ZaloPhone             string `json:"zalo_phone"`
	LinkFacebook          string `json:"link_facebook"`
	DateOfBirth           string `json:"date_of_birth"`
	CurrentEducationLevel string `json:"current_education_level"`
	HighSchoolName        string `json:"high_school_name"`
	City                  string `json:"city"`
	Source                string `json:"source"`
	NotificationConsent   string `json:"notification_consent"`
	CurrentStatus         string `json:"current_status"`
	AssignedCounselorID   *uint  `json:"assigned_counselor_id"`
}

func (req *studentRequest) validate() error {
	if req.StudentName == "" || len(req.StudentName) > 100 {
		return utils.Invalid("student_name is required and must not exceed 100 characters")
	}
	if !emailPattern.MatchString(req.Email) {
		return utils.Invalid("Please enter a valid email")
	}
	if !phonePattern.MatchString(req.PhoneNumber) {
		return utils.Invalid("Please enter a valid phone number")
	}
	switch req.Gender {
	case "male", "female", "other":
	default:
		return utils.Invalid("Invalid gender")
	}
	if req.ZaloPhone != "" && !phonePattern.MatchString(req.ZaloPhone) {
		return utils.Invalid("Please enter a valid Zalo phone number")
	}
	if !educationLevels[req.CurrentEducationLevel] {
		return utils.Invalid("Invalid education level")
	}
	if req.City == "" || len(req.City) > 100 {
		return utils.Invalid("city is required and must not exceed 100 characters")
	}
	if !studentSources[req.Source] {
		return utils.Invalid("Invalid source")
	}
	switch req.NotificationConsent {
	case "Agree", "Disagree", "Other":
	default:
		return utils.Invalid("Invalid notification consent")
	}
	return nil
}

func (h *StudentHandler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req studentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := req.validate(); err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil || !dob.Before(time.Now()) {
		utils.WriteDomainError(w, utils.Invalid("Date of birth must be a past date (YYYY-MM-DD)"))
		return
	}

	if req.AssignedCounselorID != nil {
		var counselor models.User
		if err := h.db.First(&counselor, *req.AssignedCounselorID).Error; err != nil || counselor.UserType != models.RoleCounselor {
			utils.WriteDomainError(w, utils.Invalid("Invalid counselor ID"))
			return
		}
	}

	student := models.Student{
		StudentName:           req.StudentName,
		Email:                 req.Email,
		PhoneNumber:           req.PhoneNumber,
		Gender:                req.Gender,
		ZaloPhone:             req.ZaloPhone,
		LinkFacebook:          req.LinkFacebook,
		DateOfBirth:           dob,
		CurrentEducationLevel: req.CurrentEducationLevel,
		HighSchoolName:        req.HighSchoolName,
		City:                  req.City,
		Source:                req.Source,
		NotificationConsent:   req.NotificationConsent,
		CurrentStatus:         models.StudentStatusLead,
		AssignedCounselorID:   req.AssignedCounselorID,
	}

	if err := h.db.Create(&student).Error; err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, "Student created successfully", student)
}

func (h *StudentHandler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	actorID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	vars := mux.Vars(r)
	studentID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		utils.WriteDomainError(w, utils.Invalid("Invalid student ID"))
		return
	}

	var updates map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var student models.Student
	if err := h.db.First(&student, studentID).Error; err != nil {
		utils.WriteDomainError(w, utils.NotFound("Student"))
		return
	}

	oldStatus := student.CurrentStatus

	setString := func(key string, dst *string) error {
		raw, ok := updates[key]
		if !ok {
			return nil
		}
		return json.Unmarshal(raw, dst)
	}

	for key, dst := range map[string]*string{
		"student_name":            &student.StudentName,
		"email":                   &student.Email,
		"phone_number":            &student.PhoneNumber,
		"gender":                  &student.Gender,
		"zalo_phone":              &student.ZaloPhone,
		"link_facebook":           &student.LinkFacebook,
		"current_education_level": &student.CurrentEducationLevel,
		"high_school_name":        &student.HighSchoolName,
		"city":                    &student.City,
		"source":                  &student.Source,
		"notification_consent":    &student.NotificationConsent,
		"current_status":          &student.CurrentStatus,
	} {
		if err := setString(key, dst); err != nil {
			utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	if raw, ok := updates["date_of_birth"]; ok {
		var dobStr string
		if err := json.Unmarshal(raw, &dobStr); err != nil {
			utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		dob, err := time.Parse("2006-01-02", dobStr)
		if err != nil || !dob.Before(time.Now()) {
			utils.WriteDomainError(w, utils.Invalid("Date of birth must be a past date (YYYY-MM-DD)"))
			return
		}
		student.DateOfBirth = dob
	}
	if raw, ok := updates["assigned_counselor_id"]; ok {
		var counselorID *uint
		if err := json.Unmarshal(raw, &counselorID); err != nil {
			utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		student.AssignedCounselorID = counselorID
	}

	if !studentStatuses[student.CurrentStatus] {
		utils.WriteDomainError(w, utils.Invalid("Invalid student status"))
		return
	}
	if !emailPattern.MatchString(student.Email) {
		utils.WriteDomainError(w, utils.Invalid("Please enter a valid email"))
		return
	}
	if !phonePattern.MatchString(student.PhoneNumber) {
		utils.WriteDomainError(w, utils.Invalid("Please enter a valid phone number"))
		return
	}

	tx := h.db.Begin()
	if tx.Error != nil {
		utils.WriteDomainError(w, tx.Error)
		return
	}

	if err := tx.Save(&student).Error; err != nil {
		tx.Rollback()
		utils.WriteDomainError(w, err)
		return
	}

	// Every funnel move leaves an audit trail entry.
	if student.CurrentStatus != oldStatus {
		history := models.StudentStatusHistory{
			StudentID:       student.ID,
			OldStatus:       oldStatus,
			NewStatus:       student.CurrentStatus,
			ChangeDate:      time.Now(),
			ChangedByUserID: actorID,
		}
		if err := tx.Create(&history).Error; err != nil {
			tx.Rollback()
			utils.WriteDomainError(w, err)
			return
		}
	}

	if err := tx.Commit().Error; err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Student updated successfully", student)
}

func (h *StudentHandler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	studentID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		utils.WriteDomainError(w, utils.Invalid("Invalid student ID"))
		return
	}

	result := h.db.Delete(&models.Student{}, studentID)
	if result.Error != nil {
		utils.WriteDomainError(w, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		utils.WriteDomainError(w, utils.NotFound("Student"))
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Student deleted successfully", nil)
}

func (h *StudentHandler) GetStudentHistory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	studentID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		utils.WriteDomainError(w, utils.Invalid("Invalid student ID"))
		return
	}

	var student models.Student
	if err := h.db.First(&student, studentID).Error; err != nil {
		utils.WriteDomainError(w, utils.NotFound("Student"))
		return
	}

	var history []models.StudentStatusHistory
	if err := h.db.Where("student_id = ?", studentID).
		Preload("ChangedBy").Order("change_date DESC").Find(&history).Error; err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "", history)
}
