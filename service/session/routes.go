package session

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/educrm/admission-server/cmd/models"
	"github.com/educrm/admission-server/cmd/utils"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type SessionHandler struct {
	db *gorm.DB
}

func NewSessionHandler(db *gorm.DB) *SessionHandler {
	return &SessionHandler{db: db}
}

func (h *SessionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/consultation-sessions", h.GetSessions).Methods("GET")
	router.HandleFunc("/consultation-sessions", utils.AuthMiddleware(h.CreateSession)).Methods("POST")
	router.HandleFunc("/consultation-sessions/{id}", h.GetSession).Methods("GET")
	router.HandleFunc("/consultation-sessions/{id}", utils.AuthMiddleware(h.UpdateSession)).Methods("PUT")
	router.HandleFunc("/consultation-sessions/{id}", utils.AuthMiddleware(h.DeleteSession)).Methods("DELETE")
}

func (h *SessionHandler) GetSessions(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 10
	}

	query := h.db.Model(&models.ConsultationSession{}).Preload("Counselor").Preload("Student")

	if counselorID := r.URL.Query().Get("counselor_id"); counselorID != "" {
		query = query.Where("counselor_id = ?", counselorID)
	}
	if studentID := r.URL.Query().Get("student_id"); studentID != "" {
		query = query.Where("student_id = ?", studentID)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("session_status = ?", status)
	}
	if sessionType := r.URL.Query().Get("type"); sessionType != "" {
		query = query.Where("session_type = ?", sessionType)
	}

	var total int64
	query.Count(&total)

	var sessions []models.ConsultationSession
	if err := query.Order("session_date DESC").
		Offset((page - 1) * limit).Limit(limit).Find(&sessions).Error; err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "", map[string]interface{}{
		"sessions":   sessions,
		"pagination": utils.NewPagination(page, limit, total),
	})
}

func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		utils.WriteDomainError(w, utils.Invalid("Invalid session ID"))
		return
	}

	var session models.ConsultationSession
	if err := h.db.Preload("Counselor").Preload("Student").First(&session, sessionID).Error; err != nil {
		utils.WriteDomainError(w, utils.NotFound("Consultation session"))
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "", session)
}

type sessionRequest struct {
	CounselorID     uint   `json:"counselor_id"`
	StudentID       uint   `json:"student_id"`
	SessionDate     string `json:"session_date"`
	DurationMinutes int    `json:"duration_minutes"`
	Notes           string `json:"notes"`
	SessionType     string `json:"session_type"`
	SessionStatus   string `json:"session_status"`
}

func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sessionDate, err := time.Parse(time.RFC3339, req.SessionDate)
	if err != nil {
		utils.WriteDomainError(w, utils.Invalid("Invalid session_date: expected RFC 3339 timestamp"))
		return
	}
	if req.DurationMinutes < 0 || req.DurationMinutes > 1440 {
		utils.WriteDomainError(w, utils.Invalid("duration_minutes must be between 0 and 1440"))
		return
	}
	if !models.ValidSessionType(req.SessionType) {
		utils.WriteDomainError(w, utils.Invalid("Invalid session type"))
		return
	}
	if req.SessionStatus == "" {
		req.SessionStatus = models.SessionScheduled
	}
	if !models.ValidSessionStatus(req.SessionStatus) {
		utils.WriteDomainError(w, utils.Invalid("Invalid session status"))
		return
	}
	if len(req.Notes) > 2000 {
		utils.WriteDomainError(w, utils.Invalid("Notes must not exceed 2000 characters"))
		return
	}

	var counselor models.User
	if err := h.db.First(&counselor, req.CounselorID).Error; err != nil || counselor.UserType != models.RoleCounselor {
		utils.WriteDomainError(w, utils.Invalid("Invalid counselor ID"))
		return
	}

	var student models.Student
	if err := h.db.First(&student, req.StudentID).Error; err != nil {
		utils.WriteDomainError(w, utils.NotFound("Student"))
		return
	}

	session := models.ConsultationSession{
		CounselorID:     req.CounselorID,
		StudentID:       req.StudentID,
		SessionDate:     sessionDate,
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
		SessionType:     req.SessionType,
		SessionStatus:   req.SessionStatus,
	}

	if err := h.db.Create(&session).Error; err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, "Consultation session created successfully", session)
}

type sessionUpdateRequest struct {
	SessionDate     *string `json:"session_date"`
	DurationMinutes *int    `json:"duration_minutes"`
	Notes           *string `json:"notes"`
	SessionType     *string `json:"session_type"`
	SessionStatus   *string `json:"session_status"`
}

func (h *SessionHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		utils.WriteDomainError(w, utils.Invalid("Invalid session ID"))
		return
	}

	var session models.ConsultationSession
	if err := h.db.First(&session, sessionID).Error; err != nil {
		utils.WriteDomainError(w, utils.NotFound("Consultation session"))
		return
	}

	var req sessionUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.SessionDate != nil {
		sessionDate, err := time.Parse(time.RFC3339, *req.SessionDate)
		if err != nil {
			utils.WriteDomainError(w, utils.Invalid("Invalid session_date: expected RFC 3339 timestamp"))
			return
		}
		session.SessionDate = sessionDate
	}
	if req.DurationMinutes != nil {
		if *req.DurationMinutes < 0 || *req.DurationMinutes > 1440 {
			utils.WriteDomainError(w, utils.Invalid("duration_minutes must be between 0 and 1440"))
			return
		}
		session.DurationMinutes = *req.DurationMinutes
	}
	if req.Notes != nil {
		session.Notes = *req.Notes
	}
	if req.SessionType != nil {
		if !models.ValidSessionType(*req.SessionType) {
			utils.WriteDomainError(w, utils.Invalid("Invalid session type"))
			return
		}
		session.SessionType = *req.SessionType
	}
	if req.SessionStatus != nil {
		if !models.ValidSessionStatus(*req.SessionStatus) {
			utils.WriteDomainError(w, utils.Invalid("Invalid session status"))
			return
		}
		session.SessionStatus = *req.SessionStatus
	}

	if err := h.db.Save(&session).Error; err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Consultation session updated successfully", session)
}

func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		utils.WriteDomainError(w, utils.Invalid("Invalid session ID"))
		return
	}

	result := h.db.Delete(&models.ConsultationSession{}, sessionID)
	if result.Error != nil {
		utils.WriteDomainError(w, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		utils.WriteDomainError(w, utils.NotFound("Consultation session"))
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Consultation session deleted successfully", nil)
}
