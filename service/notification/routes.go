package notification

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/educrm/admission-server/cmd/models"
	"github.com/educrm/admission-server/cmd/utils"
	"github.com/educrm/admission-server/service/ws"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type NotificationHandler struct {
	db    *gorm.DB
	hub   *ws.Hub
	email EmailSender
	sms   SMSSender
}

// NewNotificationHandler wires the handler to the store and, optionally, to
// the websocket hub used for the live system-notification feed.
func NewNotificationHandler(db *gorm.DB, hub *ws.Hub) *NotificationHandler {
	return &NotificationHandler{db: db, hub: hub}
}

func (h *NotificationHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/notifications", utils.AuthMiddleware(h.SendNotification)).Methods("POST")
	router.HandleFunc("/notifications/bulk", utils.AuthMiddleware(h.SendBulkNotification)).Methods("POST")
	router.HandleFunc("/notifications", h.GetNotifications).Methods("GET")
	router.HandleFunc("/notifications/{id}/status", h.UpdateNotificationStatus).Methods("PATCH")
}

type sendNotificationRequest struct {
	RecipientIDs     []uint `json:"recipient_ids"`
	RecipientType    string `json:"recipient_type"`
	NotificationType string `json:"notification_type"`
	Title            string `json:"title"`
	Content          string `json:"content"`
	ScheduledAt      string `json:"scheduled_at"`
}

func (req *sendNotificationRequest) validate() error {
	if !models.ValidRecipientType(req.RecipientType) {
		return utils.Invalid("Invalid recipient type")
	}
	if !models.ValidNotificationType(req.NotificationType) {
		return utils.Invalid("Invalid notification type")
	}
	if req.Title == "" || len(req.Title) > 200 {
		return utils.Invalid("title is required and must not exceed 200 characters")
	}
	if req.Content == "" || len(req.Content) > 2000 {
		return utils.Invalid("content is required and must not exceed 2000 characters")
	}
	return nil
}

func (h *NotificationHandler) SendNotification(w http.ResponseWriter, r *http.Request) {
	var req sendNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(req.RecipientIDs) == 0 {
		utils.WriteDomainError(w, utils.Invalid("recipient_ids is required"))
		return
	}
	if err := req.validate(); err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	var scheduledAt *time.Time
	if req.ScheduledAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			utils.WriteDomainError(w, utils.Invalid("Invalid scheduled_at: expected RFC 3339 timestamp"))
			return
		}
		scheduledAt = &parsed
	}

	notifications := make([]models.Notification, 0, len(req.RecipientIDs))
	for _, recipientID := range req.RecipientIDs {
		notifications = append(notifications, models.Notification{
			RecipientID:      recipientID,
			RecipientType:    req.RecipientType,
			NotificationType: req.NotificationType,
			Title:            req.Title,
			Content:          req.Content,
			Status:           models.NotificationPending,
			ScheduledAt:      scheduledAt,
		})
	}

	if err := h.db.Create(&notifications).Error; err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	// Scheduled notifications stay pending until their delivery time; the rest
	// go out now.
	if scheduledAt == nil {
		for i := range notifications {
			h.dispatch(notifications[i])
		}
	}

	ids := make([]uint, 0, len(notifications))
	for _, n := range notifications {
		ids = append(ids, n.ID)
	}

	utils.WriteSuccess(w, http.StatusCreated, "Notifications sent successfully", map[string]interface{}{
		"notification_ids": ids,
		"count":            len(notifications),
	})
}

type bulkNotificationRequest struct {
	RecipientType    string `json:"recipient_type"`
	NotificationType string `json:"notification_type"`
	Title            string `json:"title"`
	Content          string `json:"content"`
	ScheduledAt      string `json:"scheduled_at"`
	Filters          struct {
		Status      string `json:"status"`
		Source      string `json:"source"`
		CounselorID *uint  `json:"counselor_id"`
	} `json:"filters"`
}

func (h *NotificationHandler) SendBulkNotification(w http.ResponseWriter, r *http.Request) {
	var req bulkNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	single := sendNotificationRequest{
		RecipientType:    req.RecipientType,
		NotificationType: req.NotificationType,
		Title:            req.Title,
		Content:          req.Content,
	}
	if err := single.validate(); err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	var scheduledAt *time.Time
	if req.ScheduledAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			utils.WriteDomainError(w, utils.Invalid("Invalid scheduled_at: expected RFC 3339 timestamp"))
			return
		}
		scheduledAt = &parsed
	}

	var recipientIDs []uint
	if req.RecipientType == models.RecipientStudent {
		query := h.db.Model(&models.Student{})
		if req.Filters.Status != "" {
			query = query.Where("current_status = ?", req.Filters.Status)
		}
		if req.Filters.Source != "" {
			query = query.Where("source = ?", req.Filters.Source)
		}
		if req.Filters.CounselorID != nil {
			query = query.Where("assigned_counselor_id = ?", *req.Filters.CounselorID)
		}
		if err := query.Pluck("id", &recipientIDs).Error; err != nil {
			utils.WriteDomainError(w, err)
			return
		}
	} else {
		userType := models.RoleCounselor
		if req.RecipientType == models.RecipientAdmin {
			userType = models.RoleAdmin
		}
		if err := h.db.Model(&models.User{}).Where("user_type = ?", userType).Pluck("id", &recipientIDs).Error; err != nil {
			utils.WriteDomainError(w, err)
			return
		}
	}

	if len(recipientIDs) == 0 {
		utils.WriteSuccess(w, http.StatusOK, "No recipients found matching the criteria", map[string]interface{}{"count": 0})
		return
	}

	notifications := make([]models.Notification, 0, len(recipientIDs))
	for _, recipientID := range recipientIDs {
		notifications = append(notifications, models.Notification{
			RecipientID:      recipientID,
			RecipientType:    req.RecipientType,
			NotificationType: req.NotificationType,
			Title:            req.Title,
			Content:          req.Content,
			Status:           models.NotificationPending,
			ScheduledAt:      scheduledAt,
		})
	}

	if err := h.db.Create(&notifications).Error; err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	if scheduledAt == nil {
		for i := range notifications {
			h.dispatch(notifications[i])
		}
	}

	utils.WriteSuccess(w, http.StatusCreated, "Bulk notifications sent successfully", map[string]interface{}{
		"count": len(notifications),
	})
}

func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 10
	}

	query := h.db.Model(&models.Notification{})

	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if notificationType := r.URL.Query().Get("notification_type"); notificationType != "" {
		query = query.Where("notification_type = ?", notificationType)
	}
	if recipientType := r.URL.Query().Get("recipient_type"); recipientType != "" {
		query = query.Where("recipient_type = ?", recipientType)
	}

	var total int64
	query.Count(&total)

	var notifications []models.Notification
	if err := query.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).Find(&notifications).Error; err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "", map[string]interface{}{
		"notifications": notifications,
		"pagination":    utils.NewPagination(page, limit, total),
	})
}

type statusUpdateRequest struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

func (h *NotificationHandler) UpdateNotificationStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	notificationID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		utils.WriteDomainError(w, utils.Invalid("Invalid notification ID"))
		return
	}

	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !models.ValidNotificationStatus(req.Status) {
		utils.WriteDomainError(w, utils.Invalid("Invalid notification status"))
		return
	}

	var notification models.Notification
	if err := h.db.First(&notification, notificationID).Error; err != nil {
		utils.WriteDomainError(w, utils.NotFound("Notification"))
		return
	}

	notification.Status = req.Status
	notification.ErrorMessage = req.ErrorMessage
	if req.Status == models.NotificationSent || req.Status == models.NotificationDelivered {
		now := time.Now()
		notification.SentAt = &now
	}

	if err := h.db.Save(&notification).Error; err != nil {
		utils.WriteDomainError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Notification status updated successfully", notification)
}

// dispatch routes one pending notification to its channel. Email goes out in
// the background; sms and system complete inline.
func (h *NotificationHandler) dispatch(n models.Notification) {
	switch n.NotificationType {
	case models.NotificationEmail:
		go h.sendEmail(n)
	case models.NotificationSMS:
		phone, err := h.recipientPhone(n)
		if err != nil {
			h.markFailed(n.ID, err.Error())
			return
		}
		if err := h.sms.Send(phone, n.Content); err != nil {
			h.markFailed(n.ID, err.Error())
			return
		}
		h.markSent(n.ID)
	case models.NotificationSystem:
		if h.hub != nil {
			if payload, err := json.Marshal(map[string]interface{}{
				"id":             n.ID,
				"recipient_id":   n.RecipientID,
				"recipient_type": n.RecipientType,
				"title":          n.Title,
				"content":        n.Content,
			}); err == nil {
				h.hub.Broadcast(payload)
			}
		}
		h.markSent(n.ID)
	}
}

func (h *NotificationHandler) sendEmail(n models.Notification) {
	email, err := h.recipientEmail(n)
	if err != nil {
		h.markFailed(n.ID, err.Error())
		return
	}
	if err := h.email.Send(email, n.Title, n.Content); err != nil {
		log.Printf("error sending notification email: %v", err)
		h.markFailed(n.ID, err.Error())
		return
	}
	h.markSent(n.ID)
}

func (h *NotificationHandler) recipientEmail(n models.Notification) (string, error) {
	if n.RecipientType == models.RecipientStudent {
		var student models.Student
		if err := h.db.First(&student, n.RecipientID).Error; err != nil {
			return "", utils.NotFound("Student")
		}
		return student.Email, nil
	}

	var user models.User
	if err := h.db.First(&user, n.RecipientID).Error; err != nil {
		return "", utils.NotFound("User")
	}
	return user.Email, nil
}

func (h *NotificationHandler) recipientPhone(n models.Notification) (string, error) {
	if n.RecipientType != models.RecipientStudent {
		return "", utils.Invalid("SMS notifications are only supported for students")
	}
	var student models.Student
	if err := h.db.First(&student, n.RecipientID).Error; err != nil {
		return "", utils.NotFound("Student")
	}
	return student.PhoneNumber, nil
}

func (h *NotificationHandler) markSent(id uint) {
	h.db.Model(&models.Notification{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":            models.NotificationSent,
		"sent_at":           time.Now(),
		"delivery_attempts": gorm.Expr("delivery_attempts + 1"),
	})
}

func (h *NotificationHandler) markFailed(id uint, errorMessage string) {
	h.db.Model(&models.Notification{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":            models.NotificationFailed,
		"error_message":     errorMessage,
		"delivery_attempts": gorm.Expr("delivery_attempts + 1"),
	})
}
