package models

import "time"

// Setting is a single per-user preference
type Setting struct {
	OwnerID   string    `json:"-" db:"owner_id"`
	Key       string    `json:"key" db:"key"`
	Value     string    `json:"value" db:"value"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SettingsForm represents a partial update of user settings
type SettingsForm struct {
	Values map[string]string `json:"values"`
}

// SettingKeys lists the preferences a user may store, with a readable label
var SettingKeys = map[string]string{
	"theme":                "Theme",
	"language":             "Language",
	"timezone":             "Timezone",
	"default_model":        "Default model",
	"email_notifications":  "Email notifications",
	"weekly_digest":        "Weekly digest",
	"two_factor_enabled":   "Two-factor authentication",
	"session_timeout_mins": "Session timeout (minutes)",
}

// Validate validates the settings form data
func (f *SettingsForm) Validate() []string {
	var errors []string

	if len(f.Values) == 0 {
		errors = append(errors, "At least one setting is required")
	}

	for key, value := range f.Values {
		if _, ok := SettingKeys[key]; !ok {
			errors = append(errors, "Unknown setting: "+key)
			continue
		}
		if len(value) > 500 {
			errors = append(errors, "Setting "+key+" must be less than 500 characters")
		}
	}

	return errors
}
