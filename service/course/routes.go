package course

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/educrm/admission-server/cmd/models"
	"github.com/educrm/admission-server/cmd/utils"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type CourseHandler struct {
	db *gorm.DB
}

func NewCourseHandler(db *gorm.DB) *CourseHandler {
	return &CourseHandler{db: db}
}

func (h *CourseHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/courses", h.GetCourses).Methods("GET")
	router.HandleFunc("/courses", utils.AuthMiddleware(h.CreateCourse)).Methods("POST")
	router.HandleFunc("/courses/{id}", h.GetCourse).Methods("GET")
	router.HandleFunc("/courses/{id}", utils.AuthMiddleware(h.UpdateCourse)).Methods("PUT")
	router.HandleFunc("/courses/{id}", utils.AuthMiddleware(h.DeleteCourse)).Methods("DELETE")
	router.HandleFunc("/course-categories", h.GetCategories).Methods("GET")
	router.HandleFunc("/course-categories", utils.AuthMiddleware(h.CreateCategory)).Methods("POST")
}

func (h *CourseHandler) GetCourses(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 10
	}

	query := h.db.Model(&models.Course{}).Preload("Category")

	if isActive := r.URL.Query().Get("is_active"); isActive != "" {
		query = query.Where("is_active = ?", isActive == "true")
	}
	if programType := r.URL.Query().Get("program_type"); programType != "" {
		query = query.Where("program_type = ?", programType)
	}
	if categoryID := r.URL.Query().Get("category_id"); categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}
	if search := r.URL.Query().Get("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", like, like)
	}

	var total int64
	query.Count(&total)

	var courses []models.Course
	if err := query.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).Find(&courses).Error; err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "", map[string]interface{}{
		"courses":    courses,
		"pagination": utils.NewPagination(page, limit, total),
	})
}

func (h *CourseHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	courseID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		utils.WriteDomainError(w, utils.Invalid("Invalid course ID"))
		return
	}

	var course models.Course
	if err := h.db.Preload("Category").First(&course, courseID).Error; err != nil {
		utils.WriteDomainError(w, utils.NotFound("Course"))
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "", course)
}

type courseRequest struct {
	CategoryID   uint     `json:"category_id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	DurationText string   `json:"duration_text"`
	Price        *float64 `json:"price"`
	IsActive     *bool    `json:"is_active"`
	ProgramType  string   `json:"program_type"`
}

func (req *courseRequest) validate() error {
	if req.Name == "" || len(req.Name) > 200 {
		return utils.Invalid("name is required and must not exceed 200 characters")
	}
	if req.Description == "" || len(req.Description) > 1000 {
		return utils.Invalid("description is required and must not exceed 1000 characters")
	}
	if req.DurationText == "" || len(req.DurationText) > 100 {
		return utils.Invalid("duration_text is required and must not exceed 100 characters")
	}
	if req.Price == nil || *req.Price < 0 {
		return utils.Invalid("price is required and must not be negative")
	}
	if req.ProgramType == "" || len(req.ProgramType) > 50 {
		return utils.Invalid("program_type is required and must not exceed 50 characters")
	}
	return nil
}

func (h *CourseHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req courseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := req.validate(); err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	var category models.CourseCategory
	if err := h.db.First(&category, req.CategoryID).Error; err != nil {
		utils.WriteDomainError(w, utils.Invalid("Invalid category ID"))
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	course := models.Course{
		CategoryID:   req.CategoryID,
		Name:         req.Name,
		Description:  req.Description,
		DurationText: req.DurationText,
		Price:        *req.Price,
		IsActive:     isActive,
		ProgramType:  req.ProgramType,
	}

	if err := h.db.Create(&course).Error; err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, "Course created successfully", course)
}

func (h *CourseHandler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	courseID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		utils.WriteDomainError(w, utils.Invalid("Invalid course ID"))
		return
	}

	var course models.Course
	if err := h.db.First(&course, courseID).Error; err != nil {
		utils.WriteDomainError(w, utils.NotFound("Course"))
		return
	}

	var req courseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.CategoryID != 0 && req.CategoryID != course.CategoryID {
		var category models.CourseCategory
		if err := h.db.First(&category, req.CategoryID).Error; err != nil {
			utils.WriteDomainError(w, utils.Invalid("Invalid category ID"))
			return
		}
		course.CategoryID = req.CategoryID
	}
	if req.Name != "" {
		course.Name = req.Name
	}
	if req.Description != "" {
		course.Description = req.Description
	}
	if req.DurationText != "" {
		course.DurationText = req.DurationText
	}
	if req.Price != nil {
		if *req.Price < 0 {
			utils.WriteDomainError(w, utils.Invalid("price must not be negative"))
			return
		}
		course.Price = *req.Price
	}
	if req.IsActive != nil {
		course.IsActive = *req.IsActive
	}
	if req.ProgramType != "" {
		course.ProgramType = req.ProgramType
	}

	if err := h.db.Save(&course).Error; err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Course updated successfully", course)
}

func (h *CourseHandler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	courseID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		utils.WriteDomainError(w, utils.Invalid("Invalid course ID"))
		return
	}

	result := h.db.Delete(&models.Course{}, courseID)
	if result.Error != nil {
		utils.WriteDomainError(w, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		utils.WriteDomainError(w, utils.NotFound("Course"))
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Course deleted successfully", nil)
}

func (h *CourseHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	var categories []models.CourseCategory
	if err := h.db.Order("name ASC").Find(&categories).Error; err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "", categories)
}

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *CourseHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name == "" || len(req.Name) > 100 {
		utils.WriteDomainError(w, utils.Invalid("name is required and must not exceed 100 characters"))
		return
	}

	var existing models.CourseCategory
	if err := h.db.Where("name = ?", req.Name).First(&existing).Error; err == nil {
		utils.WriteDomainError(w, utils.Conflict("Category already exists"))
		return
	}

	category := models.CourseCategory{Name: req.Name, Description: req.Description}
	if err := h.db.Create(&category).Error; err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, "Category created successfully", category)
}
