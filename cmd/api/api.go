package api

import (
	"log"
	"net/http"
	"os"

	"github.com/educrm/admission-server/cmd/utils"
	"github.com/educrm/admission-server/service/admin"
	"github.com/educrm/admission-server/service/auth"
	"github.com/educrm/admission-server/service/course"
	"github.com/educrm/admission-server/service/export"
	"github.com/educrm/admission-server/service/kpi"
	"github.com/educrm/admission-server/service/notification"
	"github.com/educrm/admission-server/service/schedule"
	"github.com/educrm/admission-server/service/session"
	"github.com/educrm/admission-server/service/student"
	"github.com/educrm/admission-server/service/ws"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type APIServer struct {
	address string
	db      *gorm.DB
}

func NewApiServer(address string, db *gorm.DB) *APIServer {
	return &APIServer{
		address: address,
		db:      db,
	}
}

func (s *APIServer) Run() error {
	router := mux.NewRouter()
	subrouter := router.PathPrefix("/api").Subrouter()

	authHandler := auth.NewHandler(s.db)
	authHandler.RegisterRoutes(subrouter)

	studentHandler := student.NewStudentHandler(s.db)
	studentHandler.RegisterRoutes(subrouter)

	courseHandler := course.NewCourseHandler(s.db)
	courseHandler.RegisterRoutes(subrouter)

	scheduleHandler := schedule.NewScheduleHandler(s.db)
	scheduleHandler.RegisterRoutes(subrouter)

	sessionHandler := session.NewSessionHandler(s.db)
	sessionHandler.RegisterRoutes(subrouter)

	kpiHandler := kpi.NewKpiHandler(s.db)
	kpiHandler.RegisterRoutes(subrouter)

	wsHandler := ws.NewHandler()
	wsHandler.RegisterRoutes(router)

	notificationHandler := notification.NewNotificationHandler(s.db, wsHandler.Hub())
	notificationHandler.RegisterRoutes(subrouter)

	adminHandler := admin.NewAdminHandler(s.db)
	adminHandler.RegisterRoutes(subrouter)

	exportHandler := export.NewExportHandler(s.db)
	exportHandler.RegisterRoutes(subrouter)

	router.HandleFunc("/health", s.handleHealth).Methods("GET")

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	log.Println("Server running at", s.address)
	return http.ListenAndServe(s.address, handlers.LoggingHandler(os.Stdout, cors(router)))
}

func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK

	sqlDB, err := s.db.DB()
	if err != nil || sqlDB.Ping() != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	utils.WriteSuccess(w, code, "", map[string]string{"status": status})
}
