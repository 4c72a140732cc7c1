package credential

import "time"

const (
	PlatformOpenAI   = "openai"
	PlatformGemini   = "gemini"
	PlatformVeo      = "veo"
	PlatformKling    = "kling"
	PlatformSeedream = "seedream"
)

// Platforms lists every provider a key can be registered for, in display order.
var Platforms = []string{PlatformOpenAI, PlatformGemini, PlatformVeo, PlatformKling, PlatformSeedream}

// envVars maps a platform to the environment variable consulted when no key
// is stored. Gemini and Veo share the Google key.
var envVars = map[string]string{
	PlatformOpenAI:   "OPENAI_API_KEY",
	PlatformGemini:   "GOOGLE_API_KEY",
	PlatformVeo:      "GOOGLE_API_KEY",
	PlatformKling:    "KLING_API_KEY",
	PlatformSeedream: "SEEDREAM_API_KEY",
}

var displayNames = map[string]string{
	PlatformOpenAI:   "OpenAI",
	PlatformGemini:   "Google Gemini",
	PlatformVeo:      "Google Veo",
	PlatformKling:    "Kling AI",
	PlatformSeedream: "Seedream",
}

func IsValidPlatform(p string) bool {
	_, ok := envVars[p]
	return ok
}

// EnvVar returns the fallback environment variable for a platform.
func EnvVar(platform string) string { return envVars[platform] }

type APIKey struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	Platform     string     `gorm:"type:varchar(32);index:idx_api_keys_platform_active,priority:1;not null" json:"platform"`
	EncryptedKey string     `gorm:"type:text;not null" json:"-"`
	KeyName      string     `gorm:"type:varchar(128)" json:"keyName,omitempty"`
	IsActive     bool       `gorm:"index:idx_api_keys_platform_active,priority:2;not null" json:"isActive"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastUsedAt   *time.Time `json:"lastUsedAt,omitempty"`
}

func (APIKey) TableName() string { return "api_keys" }

// KeyView is what leaves the service: metadata plus a short preview of the
// ciphertext, never the secret.
type KeyView struct {
	ID         string     `json:"id"`
	Platform   string     `json:"platform"`
	KeyName    string     `json:"keyName,omitempty"`
	IsActive   bool       `json:"isActive"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
	KeyPreview string     `json:"keyPreview,omitempty"`
}

func (k *APIKey) View() KeyView {
	return KeyView{
		ID:         k.ID,
		Platform:   k.Platform,
		KeyName:    k.KeyName,
		IsActive:   k.IsActive,
		CreatedAt:  k.CreatedAt,
		LastUsedAt: k.LastUsedAt,
		KeyPreview: preview(k.EncryptedKey, 10),
	}
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s + "..."
	}
	return s[:n] + "..."
}
