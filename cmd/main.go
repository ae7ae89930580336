package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/educrm/admission-server/cmd/api"
	"github.com/educrm/admission-server/cmd/models"
	"github.com/educrm/admission-server/db"
	"gorm.io/gorm"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			runMigrations()
			return
		case "clear-db":
			runDatabaseClear()
			return
		default:
			log.Fatalf("Unknown command: %s", os.Args[1])
		}
	}

	startServer()
}

func runMigrations() {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()
	log.Println("Connected to the database for migrations")

	if err := performMigrations(DB); err != nil {
		log.Fatalf("Migration error: %v", err)
	}
	log.Println("Migrations completed successfully")
}

func performMigrations(DB *gorm.DB) error {
	migrations := map[interface{}]string{
		&models.User{}:                 "User",
		&models.Student{}:              "Student",
		&models.StudentStatusHistory{}: "StudentStatusHistory",
		&models.CourseCategory{}:       "CourseCategory",
		&models.Course{}:               "Course",
		&models.Schedule{}:             "Schedule",
		&models.Appointment{}:          "Appointment",
		&models.ConsultationSession{}:  "ConsultationSession",
		&models.KpiDefinition{}:        "KpiDefinition",
		&models.CounselorKpiTarget{}:   "CounselorKpiTarget",
		&models.Notification{}:         "Notification",
		&models.Report{}:               "Report",
	}

	log.Println("Starting database migrations...")
	for model, name := range migrations {
		log.Printf("Migrating %s table...", name)
		if err := DB.AutoMigrate(model); err != nil {
			return fmt.Errorf("error migrating %s table: %w", name, err)
		}
		log.Printf("%s migration successful", name)
	}

	reportsDir := os.Getenv("REPORTS_DIR")
	if reportsDir == "" {
		reportsDir = "reports"
	}
	if err := createDirectoryIfNotExist(reportsDir); err != nil {
		return err
	}
	log.Printf("Directory %s created/verified", reportsDir)

	log.Println("All migrations and directory setup completed successfully")
	return nil
}

func createDirectoryIfNotExist(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("could not create directory %s: %w", path, err)
		}
	}
	return nil
}

func startServer() {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()
	log.Println("Connected to the database")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	server := api.NewApiServer(":"+port, DB)

	go func() {
		if err := server.Run(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()
	log.Printf("Server running on port %s", port)

	<-quit
	log.Println("Shutting down server...")
}

func clearDatabase(DB *gorm.DB, tables []interface{}) error {
	if len(tables) == 0 {
		tables = []interface{}{
			&models.Notification{},
			&models.Report{},
			&models.CounselorKpiTarget{},
			&models.KpiDefinition{},
			&models.ConsultationSession{},
			&models.Appointment{},
			&models.Schedule{},
			&models.Course{},
			&models.CourseCategory{},
			&models.StudentStatusHistory{},
			&models.Student{},
			&models.User{},
		}
	}

	log.Println("Dropping tables...")

	for _, table := range tables {
		if err := DB.Migrator().DropTable(table); err != nil {
			log.Printf("Warning dropping table %T: %v", table, err)
		} else {
			log.Printf("Table %T dropped", table)
		}
	}

	return nil
}

func runDatabaseClear() {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()

	log.Println("Preparing to clear database...")

	var confirmation string
	fmt.Print("Are you sure you want to clear the database? (yes/no): ")
	fmt.Scanln(&confirmation)

	if confirmation != "yes" {
		log.Println("Database clearing cancelled.")
		return
	}

	var tableNames string
	fmt.Print("Enter table names to clear (comma separated) or leave blank to clear all: ")
	fmt.Scanln(&tableNames)

	var tables []interface{}
	if tableNames != "" {
		for _, table := range splitTableNames(tableNames) {
			switch strings.TrimSpace(table) {
			case "User":
				tables = append(tables, &models.User{})
			case "Student":
				tables = append(tables, &models.Student{})
			case "StudentStatusHistory":
				tables = append(tables, &models.StudentStatusHistory{})
			case "CourseCategory":
				tables = append(tables, &models.CourseCategory{})
			case "Course":
				tables = append(tables, &models.Course{})
			case "Schedule":
				tables = append(tables, &models.Schedule{})
			case "Appointment":
				tables = append(tables, &models.Appointment{})
			case "ConsultationSession":
				tables = append(tables, &models.ConsultationSession{})
			case "KpiDefinition":
				tables = append(tables, &models.KpiDefinition{})
			case "CounselorKpiTarget":
				tables = append(tables, &models.CounselorKpiTarget{})
			case "Notification":
				tables = append(tables, &models.Notification{})
			case "Report":
				tables = append(tables, &models.Report{})
			default:
				log.Printf("Unknown table: %s", table)
			}
		}
	}

	if err := clearDatabase(DB, tables); err != nil {
		log.Fatalf("Error clearing database: %v", err)
	}

	log.Println("Database cleared successfully")
}

func splitTableNames(tableNames string) []string {
	return strings.Split(tableNames, ",")
}
