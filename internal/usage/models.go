package usage

import (
	"time"

	"github.com/suPer8Hu/genrelay/internal/common"
)

// Entry is one facade call as seen by the recorder.
type Entry struct {
	Provider     string    `json:"platform"`
	Endpoint     string    `json:"endpoint"`
	Method       string    `json:"method"`
	Model        string    `json:"model,omitempty"`
	StatusCode   int       `json:"statusCode"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	TokensUsed   int       `json:"tokensUsed,omitempty"`
	DurationMs   int64     `json:"duration"`
	Timestamp    time.Time `json:"timestamp"`
}

type Record struct {
	ID           string    `gorm:"primaryKey;type:varchar(26)" json:"id"`
	Provider     string    `gorm:"type:varchar(32);index:idx_usage_provider_time,priority:1;not null" json:"platform"`
	Endpoint     string    `gorm:"type:varchar(255);not null" json:"endpoint"`
	Method       string    `gorm:"type:varchar(8);not null" json:"method"`
	Model        string    `gorm:"type:varchar(64)" json:"model,omitempty"`
	StatusCode   int       `gorm:"not null" json:"statusCode"`
	Success      bool      `gorm:"not null" json:"success"`
	ErrorMessage string    `gorm:"type:text" json:"errorMessage,omitempty"`
	TokensUsed   int       `json:"tokensUsed,omitempty"`
	DurationMs   int64     `gorm:"not null" json:"duration"`
	Timestamp    time.Time `gorm:"index:idx_usage_provider_time,priority:2;index;not null" json:"timestamp"`
}

func (Record) TableName() string { return "usage_logs" }

// NewRecord assigns a ULID to e. A zero timestamp is set to now.
func NewRecord(e Entry) (*Record, error) {
	id, err := common.NewULID()
	if err != nil {
		return nil, err
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.Method == "" {
		e.Method = "POST"
	}
	return &Record{
		ID:           id,
		Provider:     e.Provider,
		Endpoint:     e.Endpoint,
		Method:       e.Method,
		Model:        e.Model,
		StatusCode:   e.StatusCode,
		Success:      e.Success,
		ErrorMessage: e.ErrorMessage,
		TokensUsed:   e.TokensUsed,
		DurationMs:   e.DurationMs,
		Timestamp:    e.Timestamp,
	}, nil
}

func (r *Record) Entry() Entry {
	return Entry{
		Provider:     r.Provider,
		Endpoint:     r.Endpoint,
		Method:       r.Method,
		Model:        r.Model,
		StatusCode:   r.StatusCode,
		Success:      r.Success,
		ErrorMessage: r.ErrorMessage,
		TokensUsed:   r.TokensUsed,
		DurationMs:   r.DurationMs,
		Timestamp:    r.Timestamp,
	}
}
