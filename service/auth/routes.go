package auth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/educrm/admission-server/cmd/models"
	"github.com/educrm/admission-server/cmd/utils"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 30 * 24 * time.Hour
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/register", h.HandleRegister).Methods("POST")
	router.HandleFunc("/auth/login", h.HandleLogin).Methods("POST")
	router.HandleFunc("/auth/refresh", h.HandleRefreshToken).Methods("POST")
}

type registerRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	FullName         string `json:"full_name"`
	UserType         string `json:"user_type"`
	IsMainConsultant bool   `json:"is_main_consultant"`
	EmploymentDate   string `json:"employment_date"`
	ProgramType      string `json:"program_type"`
}

func validUserType(t string) bool {
	switch t {
	case models.RoleAdmin, models.RoleCounselor, models.RoleManager:
		return true
	}
	return false
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" || req.FullName == "" {
		utils.WriteDomainError(w, utils.Invalid("email, password and full_name are required"))
		return
	}
	if len(req.Password) < 6 {
		utils.WriteDomainError(w, utils.Invalid("Password must be at least 6 characters"))
		return
	}
	if req.UserType == "" {
		req.UserType = models.RoleCounselor
	}
	if !validUserType(req.UserType) {
		utils.WriteDomainError(w, utils.Invalid("Invalid user type"))
		return
	}

	employmentDate := time.Now()
	if req.EmploymentDate != "" {
		parsed, err := time.Parse("2006-01-02", req.EmploymentDate)
		if err != nil {
			utils.WriteDomainError(w, utils.Invalid("Invalid employment_date: expected YYYY-MM-DD"))
			return
		}
		employmentDate = parsed
	}

	var existing models.User
	if result := h.db.Where("email = ?", req.Email).First(&existing); !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		if result.Error != nil {
			utils.WriteDomainError(w, result.Error)
			return
		}
		log.Printf("Registration attempt with duplicate email %s", req.Email)
		utils.WriteDomainError(w, utils.Conflict("User already exists with this email"))
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	user := models.User{
		Email:            req.Email,
		PasswordHash:     string(passwordHash),
		FullName:         req.FullName,
		UserType:         req.UserType,
		IsMainConsultant: req.IsMainConsultant,
		EmploymentDate:   employmentDate,
		Status:           "active",
		ProgramType:      req.ProgramType,
	}

	if err := h.db.Create(&user).Error; err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	accessToken, refreshToken, err := h.issueTokens(&user)
	if err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, "User registered successfully", map[string]interface{}{
		"user":          user,
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if user.Status != "active" {
		utils.WriteError(w, http.StatusUnauthorized, "Account is not active")
		return
	}

	accessToken, refreshToken, err := h.issueTokens(&user)
	if err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Login successful", map[string]interface{}{
		"user":          user,
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) HandleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var user models.User
	if err := h.db.Where("refresh_token = ?", req.RefreshToken).First(&user).Error; err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	if user.RefreshTokenExpiredAt.Before(time.Now()) {
		utils.WriteError(w, http.StatusUnauthorized, "Refresh token expired")
		return
	}
	if user.Status != "active" {
		utils.WriteError(w, http.StatusUnauthorized, "Account is not active")
		return
	}

	// Rotate: the old refresh token stops working once a new one is issued.
	accessToken, refreshToken, err := h.issueTokens(&user)
	if err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Token refreshed successfully", map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

func (h *Handler) issueTokens(user *models.User) (string, string, error) {
	accessToken, err := utils.GenerateJWT(user.ID, accessTokenTTL)
	if err != nil {
		return "", "", err
	}

	refreshToken, err := utils.GenerateRefreshToken(user.ID)
	if err != nil {
		return "", "", err
	}

	err = h.db.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"refresh_token":            refreshToken,
		"refresh_token_expired_at": time.Now().Add(refreshTokenTTL),
	}).Error
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}
