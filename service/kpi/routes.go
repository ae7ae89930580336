package kpi

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

type KpiHandler struct {
	db *gorm.DB
}

func NewKpiHandler(db *gorm.DB) *KpiHandler {
	return &KpiHandler{db: db}
}

func (h *KpiHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/kpi-definitions", h.GetDefinitions).Methods("GET")
	router.HandleFunc("/kpi-definitions", utils.AuthMiddleware(h.CreateDefinition)).Methods("POST")
	router.HandleFunc("/counselor-kpi-targets", h.GetTargets).Methods("GET")
	router.HandleFunc("/counselor-kpi-targets", utils.AuthMiddleware(h.CreateTarget)).Methods("POST")
	router.HandleFunc("/counselor-kpi-targets/{id}", utils.AuthMiddleware(h.UpdateTarget)).Methods("PUT")
	router.HandleFunc("/counselor-kpi-targets/{id}", utils.AuthMiddleware(h.DeleteTarget)).Methods("DELETE")
}

func (h *KpiHandler) GetDefinitions(w http.ResponseWriter, r *http.Request) {
	var definitions []models.KpiDefinition
	if err := h.db.Order("name ASC").Find(&definitions).Error; err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "", definitions)
}

type definitionRequest struct {
	Name string `json:"name"`
	Unit string `json:"unit"`
}

func (h *KpiHandler) CreateDefinition(w http.ResponseWriter, r *http.Request) {
	var req definitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name == "" || len(req.Name) > 100 {
		utils.WriteDomainError(w, utils.Invalid("name is required and must not exceed 100 characters"))
		return
	}
	if req.Unit == "" || len(req.Unit) > 50 {
		utils.WriteDomainError(w, utils.Invalid("unit is required and must not exceed 50 characters"))
		return
	}

	var existing models.KpiDefinition
	if err := h.db.Where("name = ?", req.Name).First(&existing).Error; err == nil {
		utils.WriteDomainError(w, utils.Conflict("KPI definition already exists"))
		return
	}

	definition := models.KpiDefinition{Name: req.Name, Unit: req.Unit}
	if err := h.db.Create(&definition).Error; err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, "KPI definition created successfully", definition)
}

func (h *KpiHandler) GetTargets(w http.ResponseWriter, r *http.Request) {
	query := h.db.Model(&models.CounselorKpiTarget{}).Preload("Counselor").Preload("Kpi")

	if counselorID := r.URL.Query().Get("counselor_id"); counselorID != "" {
		query = query.Where("counselor_id = ?", counselorID)
	}
	if kpiID := r.URL.Query().Get("kpi_id"); kpiID != "" {
		query = query.Where("kpi_id = ?", kpiID)
	}

	var targets []models.CounselorKpiTarget
	if err := query.Order("start_date DESC").Find(&targets).Error; err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "", targets)
}

type targetRequest struct {
	CounselorID uint     `json:"counselor_id"`
	KpiID       uint     `json:"kpi_id"`
	TargetValue *float64 `json:"target_value"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
}

func (h *KpiHandler) CreateTarget(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.TargetValue == nil || *req.TargetValue < 0 {
		utils.WriteDomainError(w, utils.Invalid("target_value is required and must not be negative"))
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
	if !endDate.After(startDate) {
		utils.WriteDomainError(w, utils.Invalid("End date must be after start date"))
		return
	}

	var counselor models.User
	if err := h.db.First(&counselor, req.CounselorID).Error; err != nil || counselor.UserType != models.RoleCounselor {
		utils.WriteDomainError(w, utils.Invalid("Invalid counselor ID"))
		return
	}

	var definition models.KpiDefinition
	if err := h.db.First(&definition, req.KpiID).Error; err != nil {
		utils.WriteDomainError(w, utils.Invalid("Invalid KPI ID"))
		return
	}

	target := models.CounselorKpiTarget{
		CounselorID: req.CounselorID,
		KpiID:       req.KpiID,
		TargetValue: *req.TargetValue,
		StartDate:   startDate,
		EndDate:     endDate,
	}

	if err := h.db.Create(&target).Error; err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, "KPI target created successfully", target)
}

func (h *KpiHandler) UpdateTarget(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	targetID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		utils.WriteDomainError(w, utils.Invalid("Invalid target ID"))
		return
	}

	var target models.CounselorKpiTarget
	if err := h.db.First(&target, targetID).Error; err != nil {
		utils.WriteDomainError(w, utils.NotFound("KPI target"))
		return
	}

	var req targetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.TargetValue != nil {
		if *req.TargetValue < 0 {
			utils.WriteDomainError(w, utils.Invalid("target_value must not be negative"))
			return
		}
		target.TargetValue = *req.TargetValue
	}
	if req.StartDate != "" {
		startDate, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			utils.WriteDomainError(w, utils.Invalid("Invalid start_date: expected YYYY-MM-DD"))
			return
		}
		target.StartDate = startDate
	}
	if req.EndDate != "" {
		endDate, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			utils.WriteDomainError(w, utils.Invalid("Invalid end_date: expected YYYY-MM-DD"))
			return
		}
		target.EndDate = endDate
	}
	if !target.EndDate.After(target.StartDate) {
		utils.WriteDomainError(w, utils.Invalid("End date must be after start date"))
		return
	}

	if err := h.db.Save(&target).Error; err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "KPI target updated successfully", target)
}

func (h *KpiHandler) DeleteTarget(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	targetID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		utils.WriteDomainError(w, utils.Invalid("Invalid target ID"))
		return
	}

	result := h.db.Delete(&models.CounselorKpiTarget{}, targetID)
	if result.Error != nil {
		utils.WriteDomainError(w, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		utils.WriteDomainError(w, utils.NotFound("KPI target"))
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "KPI target deleted successfully", nil)
}
