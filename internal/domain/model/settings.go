package model

// SystemConfig — единственная запись конфигурации учреждения.
// Сохраняется целиком.
type SystemConfig struct {
	InstitutionName       string `json:"institutionName"`
	CurrentYear           string `json:"currentYear"`
	DeadlineNormal        int    `json:"deadlineNormal"`
	DeadlineUrgent        int    `json:"deadlineUrgent"`
	AutoNumbering         bool   `json:"autoNumbering"`
	Enable2FA             bool   `json:"enable2FA"`
	EmailNotifications    bool   `json:"emailNotifications"`
	SystemMaintenanceMode bool   `json:"systemMaintenanceMode"`
}

// DefaultSystemConfig — конфигурация при первом запуске.
func DefaultSystemConfig() SystemConfig {
	return SystemConfig{
		InstitutionName:       "DREM Apurímac",
		CurrentYear:           "2026",
		DeadlineNormal:        7,
		DeadlineUrgent:        2,
		AutoNumbering:         true,
		Enable2FA:             false,
		EmailNotifications:    true,
		SystemMaintenanceMode: false,
	}
}
