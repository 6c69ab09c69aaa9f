// Package config provides centralized default values for Finboard
package config

import (
	"bufio"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		file, err := os.Open(".env")
		if err != nil {
			return
		}
		defer file.Close()

		log.Println("Loading configuration overrides from .env file...")
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())

			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])

			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Cache Configuration
	DefaultTTL     time.Duration
	BreakdownTTL   time.Duration
	MaxSubscribers int

	// Refresh Scheduler
	RefreshInterval time.Duration

	// Google Sheets backend
	SheetsTimeout        time.Duration
	SheetsRetryMax       int
	ServiceAccountJSON   string
	ServiceAccountPath   string
	MainSpreadsheetID    string
	SummarySpreadsheetID string
	CalendarSheetName    string

	// Reports storage
	ReportsDir string

	// Admin auth
	AdminPasswordHash string
	JWTSecret         string
	AdminTokenTTL     time.Duration

	// SSE / WebSocket
	SSEHeartbeatInterval time.Duration
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)

	// Cache Configuration
	DefaultTTL = time.Duration(getEnvInt("DEFAULT_TTL_SECONDS", 300)) * time.Second
	BreakdownTTL = time.Duration(getEnvInt("BREAKDOWN_TTL_SECONDS", 120)) * time.Second
	MaxSubscribers = getEnvInt("MAX_SUBSCRIBERS", 200)

	// Refresh Scheduler
	RefreshInterval = time.Duration(getEnvInt("REFRESH_INTERVAL_SECONDS", 300)) * time.Second

	// Google Sheets backend
	SheetsTimeout = time.Duration(getEnvInt("SHEETS_TIMEOUT_SECONDS", 20)) * time.Second
	SheetsRetryMax = getEnvInt("SHEETS_RETRY_MAX", 3)
	ServiceAccountJSON = getEnvString("SHEETS_SA_JSON", "")
	ServiceAccountPath = getEnvString("SHEETS_SA_JSON_PATH", "googlesheet.json")
	MainSpreadsheetID = getEnvString("MAIN_SPREADSHEET_ID", "")
	SummarySpreadsheetID = getEnvString("SUMMARY_SPREADSHEET_ID", "1FIBAlCkUL2qT9ztd3gfH5kOd3eHLKE53eYKLJzD75dw")
	CalendarSheetName = getEnvString("CALENDAR_SHEET_NAME", "PKBot")

	// Reports storage
	ReportsDir = getEnvString("REPORTS_DIR", "static/reports")

	// Admin auth
	AdminPasswordHash = getEnvString("ADMIN_PASSWORD_HASH", "")
	JWTSecret = getEnvString("JWT_SECRET", "")
	AdminTokenTTL = time.Duration(getEnvInt("ADMIN_TOKEN_TTL_MINUTES", 60)) * time.Minute

	// SSE / WebSocket
	SSEHeartbeatInterval = time.Duration(getEnvInt("SSE_HEARTBEAT_INTERVAL_SECONDS", 30)) * time.Second
}
