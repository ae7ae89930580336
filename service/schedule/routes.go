package schedule

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/educrm/admission-server/cmd/models"
	"github.com/educrm/admission-server/cmd/utils"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type ScheduleHandler struct {
	db *gorm.DB
}

func NewScheduleHandler(db *gorm.DB) *ScheduleHandler {
	return &ScheduleHandler{db: db}
}

func (h *ScheduleHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/schedules", h.CreateSchedule).Methods("POST")
	router.HandleFunc("/schedules", h.GetSchedules).Methods("GET")
	router.HandleFunc("/appointments", utils.AuthMiddleware(h.CreateAppointment)).Methods("POST")
	router.HandleFunc("/appointments", h.GetAppointments).Methods("GET")
	router.HandleFunc("/appointments/{id}", h.GetAppointment).Methods("GET")
	router.HandleFunc("/appointments/{id}", h.UpdateAppointment).Methods("PUT")
}

type createScheduleRequest struct {
	CounselorID          uint   `json:"counselor_id"`
	Date                 string `json:"date"`
	StartTime            string `json:"start_time"`
	EndTime              string `json:"end_time"`
	MaxAppointments      *int   `json:"max_appointments"`
	BreakDurationMinutes *int   `json:"break_duration_minutes"`
	Notes                string `json:"notes"`
}

func (h *ScheduleHandler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req createScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		utils.WriteDomainError(w, utils.Invalid(err.Error()))
		return
	}
	if !validTime(req.StartTime) || !validTime(req.EndTime) {
		utils.WriteDomainError(w, utils.Invalid("Times must match HH:MM (00:00-23:59)"))
		return
	}
	startTime := normalizeTime(req.StartTime)
	endTime := normalizeTime(req.EndTime)
	if endTime <= startTime {
		utils.WriteDomainError(w, utils.Invalid("End time must be after start time"))
		return
	}

	maxAppointments := 10
	if req.MaxAppointments != nil {
		maxAppointments = *req.MaxAppointments
	}
	if maxAppointments < 0 || maxAppointments > 50 {
		utils.WriteDomainError(w, utils.Invalid("max_appointments must be between 0 and 50"))
		return
	}

	breakMinutes := 0
	if req.BreakDurationMinutes != nil {
		breakMinutes = *req.BreakDurationMinutes
	}
	if breakMinutes < 0 || breakMinutes > 120 {
		utils.WriteDomainError(w, utils.Invalid("break_duration_minutes must be between 0 and 120"))
		return
	}
	if len(req.Notes) > 500 {
		utils.WriteDomainError(w, utils.Invalid("Notes must not exceed 500 characters"))
		return
	}

	var counselor models.User
	if err := h.db.First(&counselor, req.CounselorID).Error; err != nil || counselor.UserType != models.RoleCounselor {
		utils.WriteDomainError(w, utils.Invalid("Invalid counselor ID"))
		return
	}

	var existing models.Schedule
	if err := h.db.Where("counselor_id = ? AND date = ?", req.CounselorID, date).First(&existing).Error; err == nil {
		utils.WriteDomainError(w, utils.Conflict("Schedule already exists for this counselor on this date"))
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.WriteDomainError(w, err)
		return
	}

	schedule := models.Schedule{
		CounselorID:         req.CounselorID,
		Date:                date,
		StartTime:           startTime,
		EndTime:             endTime,
		IsAvailable:         true,
		MaxAppointments:     maxAppointments,
		CurrentAppointments: 0,
		BreakDurationMins:   breakMinutes,
		Notes:               req.Notes,
	}

	if err := h.db.Create(&schedule).Error; err != nil {
		// The unique (counselor_id, date) index closes the race between the
		// existence check and the insert.
		if strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "UNIQUE constraint") {
			utils.WriteDomainError(w, utils.Conflict("Schedule already exists for this counselor on this date"))
			return
		}
		utils.WriteDomainError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, "Schedule created successfully", schedule)
}

func (h *ScheduleHandler) GetSchedules(w http.ResponseWriter, r *http.Request) {
	query := h.db.Model(&models.Schedule{}).Preload("Counselor")

	if counselorID := r.URL.Query().Get("counselor_id"); counselorID != "" {
		query = query.Where("counselor_id = ?", counselorID)
	}
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		date, err := parseDate(dateStr)
		if err != nil {
			utils.WriteDomainError(w, utils.Invalid(err.Error()))
			return
		}
		query = query.Where("date = ?", date)
	}
	startDate := r.URL.Query().Get("start_date")
	endDate := r.URL.Query().Get("end_date")
	if startDate != "" && endDate != "" {
		from, err := parseDate(startDate)
		if err != nil {
			utils.WriteDomainError(w, utils.Invalid(err.Error()))
			return
		}
		to, err := parseDate(endDate)
		if err != nil {
			utils.WriteDomainError(w, utils.Invalid(err.Error()))
			return
		}
		query = query.Where("date >= ? AND date <= ?", from, to)
	}

	var schedules []models.Schedule
	if err := query.Order("date ASC, start_time ASC").Find(&schedules).Error; err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "", schedules)
}

type createAppointmentRequest struct {
	StudentID       uint   `json:"student_id"`
	CounselorID     uint   `json:"counselor_id"`
	ScheduleID      uint   `json:"schedule_id"`
	AppointmentDate string `json:"appointment_date"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	AppointmentType string `json:"appointment_type"`
	Notes           string `json:"notes"`
}

// CreateAppointment books a consultation slot. The precondition checks run in
// a fixed order and the first failure wins: student, counselor, schedule
// existence, schedule availability, capacity, then the overlap test against
// active appointments of the same counselor and date. The insert and the
// counter increment commit together or not at all.
func (h *ScheduleHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	actorID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	date, err := parseDate(req.AppointmentDate)
	if err != nil {
		utils.WriteDomainError(w, utils.Invalid(err.Error()))
		return
	}
	if !validTime(req.StartTime) || !validTime(req.EndTime) {
		utils.WriteDomainError(w, utils.Invalid("Times must match HH:MM (00:00-23:59)"))
		return
	}
	startTime := normalizeTime(req.StartTime)
	endTime := normalizeTime(req.EndTime)
	if endTime <= startTime {
		utils.WriteDomainError(w, utils.Invalid("End time must be after start time"))
		return
	}
	if !models.ValidAppointmentType(req.AppointmentType) {
		utils.WriteDomainError(w, utils.Invalid("Invalid appointment type"))
		return
	}
	if len(req.Notes) > 1000 {
		utils.WriteDomainError(w, utils.Invalid("Notes must not exceed 1000 characters"))
		return
	}

	tx := h.db.Begin()
	if tx.Error != nil {
		utils.WriteDomainError(w, tx.Error)
		return
	}

	var student models.Student
	if err := tx.First(&student, req.StudentID).Error; err != nil {
		tx.Rollback()
		utils.WriteDomainError(w, utils.Invalid("Student not found"))
		return
	}

	var counselor models.User
	if err := tx.First(&counselor, req.CounselorID).Error; err != nil || counselor.UserType != models.RoleCounselor {
		tx.Rollback()
		utils.WriteDomainError(w, utils.Invalid("Invalid counselor ID"))
		return
	}

	var schedule models.Schedule
	if err := tx.First(&schedule, req.ScheduleID).Error; err != nil {
		tx.Rollback()
		utils.WriteDomainError(w, utils.Invalid("Schedule not found"))
		return
	}

	if !schedule.IsAvailable {
		tx.Rollback()
		utils.WriteDomainError(w, utils.Conflict("Schedule is not available"))
		return
	}

	if schedule.CurrentAppointments >= schedule.MaxAppointments {
		tx.Rollback()
		utils.WriteDomainError(w, utils.Conflict("Schedule is fully booked"))
		return
	}

	var conflicting models.Appointment
	err = tx.Where(
		"counselor_id = ? AND appointment_date = ? AND status IN ? AND start_time < ? AND end_time > ?",
		req.CounselorID, date, models.ActiveAppointmentStatuses, endTime, startTime,
	).First(&conflicting).Error
	if err == nil {
		tx.Rollback()
		utils.WriteDomainError(w, utils.Conflict("Time slot is already booked"))
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		utils.WriteDomainError(w, err)
		return
	}

	appointment := models.Appointment{
		StudentID:       req.StudentID,
		CounselorID:     req.CounselorID,
		ScheduleID:      req.ScheduleID,
		AppointmentDate: date,
		StartTime:       startTime,
		EndTime:         endTime,
		Status:          models.AppointmentScheduled,
		AppointmentType: req.AppointmentType,
		Notes:           req.Notes,
		CreatedByID:     actorID,
	}

	if err := tx.Create(&appointment).Error; err != nil {
		tx.Rollback()
		utils.WriteDomainError(w, err)
		return
	}

	// Conditional increment: the capacity guard is re-applied inside the
	// UPDATE so two concurrent bookings cannot both take the last slot. Zero
	// rows affected means someone else won the race; everything rolls back.
	res := tx.Model(&models.Schedule{}).
		Where("id = ? AND current_appointments < max_appointments", schedule.ID).
		UpdateColumn("current_appointments", gorm.Expr("current_appointments + 1"))
	if res.Error != nil {
		tx.Rollback()
		utils.WriteDomainError(w, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		utils.WriteDomainError(w, utils.Conflict("Schedule is fully booked"))
		return
	}

	if err := tx.Commit().Error; err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	h.db.Preload("Student").Preload("Counselor").First(&appointment, appointment.ID)

	utils.WriteSuccess(w, http.StatusCreated, "Appointment created successfully", appointment)
}

func (h *ScheduleHandler) GetAppointments(w http.ResponseWriter, r *http.Request) {
	query := h.db.Model(&models.Appointment{}).Preload("Student").Preload("Counselor")

	if counselorID := r.URL.Query().Get("counselor_id"); counselorID != "" {
		query = query.Where("counselor_id = ?", counselorID)
	}
	if studentID := r.URL.Query().Get("student_id"); studentID != "" {
		query = query.Where("student_id = ?", studentID)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		date, err := parseDate(dateStr)
		if err != nil {
			utils.WriteDomainError(w, utils.Invalid(err.Error()))
			return
		}
		query = query.Where("appointment_date = ?", date)
	}

	var appointments []models.Appointment
	if err := query.Order("appointment_date ASC, start_time ASC").Find(&appointments).Error; err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "", appointments)
}

func (h *ScheduleHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		utils.WriteDomainError(w, utils.Invalid("Invalid appointment ID"))
		return
	}

	var appointment models.Appointment
	if err := h.db.Preload("Student").Preload("Counselor").First(&appointment, appointmentID).Error; err != nil {
		utils.WriteDomainError(w, utils.NotFound("Appointment"))
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "", appointment)
}

type updateAppointmentRequest struct {
	Status *string `json:"status"`
	Notes  *string `json:"notes"`
}

// UpdateAppointment applies a permissive status assignment: any valid status
// value overwrites the prior one, with no transition table. Moving an active
// appointment into cancelled releases its capacity slot; moving a cancelled
// appointment back into an active status re-takes one, so the booking guards
// (overlap, capacity) run again and can reject the transition.
func (h *ScheduleHandler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		utils.WriteDomainError(w, utils.Invalid("Invalid appointment ID"))
		return
	}

	var req updateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Status != nil && !models.ValidAppointmentStatus(*req.Status) {
		utils.WriteDomainError(w, utils.Invalid("Invalid appointment status"))
		return
	}
	if req.Notes != nil && len(*req.Notes) > 1000 {
		utils.WriteDomainError(w, utils.Invalid("Notes must not exceed 1000 characters"))
		return
	}

	tx := h.db.Begin()
	if tx.Error != nil {
		utils.WriteDomainError(w, tx.Error)
		return
	}

	var appointment models.Appointment
	if err := tx.First(&appointment, appointmentID).Error; err != nil {
		tx.Rollback()
		utils.WriteDomainError(w, utils.NotFound("Appointment"))
		return
	}

	wasActive := appointment.Status == models.AppointmentScheduled || appointment.Status == models.AppointmentConfirmed

	if req.Status != nil {
		newStatus := *req.Status
		becomesActive := newStatus == models.AppointmentScheduled || newStatus == models.AppointmentConfirmed

		switch {
		case newStatus == models.AppointmentCancelled && wasActive:
			res := tx.Model(&models.Schedule{}).
				Where("id = ? AND current_appointments > 0", appointment.ScheduleID).
				UpdateColumn("current_appointments", gorm.Expr("current_appointments - 1"))
			if res.Error != nil {
				tx.Rollback()
				utils.WriteDomainError(w, res.Error)
				return
			}

		case becomesActive && appointment.Status == models.AppointmentCancelled:
			var conflicting models.Appointment
			err := tx.Where(
				"counselor_id = ? AND appointment_date = ? AND status IN ? AND start_time < ? AND end_time > ? AND id <> ?",
				appointment.CounselorID, appointment.AppointmentDate, models.ActiveAppointmentStatuses,
				appointment.EndTime, appointment.StartTime, appointment.ID,
			).First(&conflicting).Error
			if err == nil {
				tx.Rollback()
				utils.WriteDomainError(w, utils.Conflict("Time slot is already booked"))
				return
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				tx.Rollback()
				utils.WriteDomainError(w, err)
				return
			}

			res := tx.Model(&models.Schedule{}).
				Where("id = ? AND current_appointments < max_appointments", appointment.ScheduleID).
				UpdateColumn("current_appointments", gorm.Expr("current_appointments + 1"))
			if res.Error != nil {
				tx.Rollback()
				utils.WriteDomainError(w, res.Error)
				return
			}
			if res.RowsAffected == 0 {
				tx.Rollback()
				utils.WriteDomainError(w, utils.Conflict("Schedule is fully booked"))
				return
			}
		}

		appointment.Status = newStatus
	}
	if req.Notes != nil {
		appointment.Notes = *req.Notes
	}

	if err := tx.Save(&appointment).Error; err != nil {
		tx.Rollback()
		utils.WriteDomainError(w, err)
		return
	}

	if err := tx.Commit().Error; err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	h.db.Preload("Student").Preload("Counselor").First(&appointment, appointment.ID)

	utils.WriteSuccess(w, http.StatusOK, "Appointment updated successfully", appointment)
}
