package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"phonenorm_backend/platform/phone"

	"github.com/google/uuid"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// NormalizeRequest normalizes one number. CallingCode, when set, wins over Region.
type NormalizeRequest struct {
	Number      string `json:"number" validate:"phone_input"`
	Region      string `json:"region" validate:"omitempty,max=64"`
	CallingCode string `json:"callingCode" validate:"omitempty,calling_code"`
	Validate    bool   `json:"validate"`
}

// BatchRequest normalizes several numbers with one region. Numbers accepts a
// JSON array or a single string.
type BatchRequest struct {
	Numbers NumberList `json:"numbers" validate:"required,min=1,dive,phone_input"`
	Region  string     `json:"region" validate:"omitempty,max=64"`
}

// NumberList decodes from either a JSON string or an array of strings.
type NumberList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *NumberList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] == '"' {
		var single string
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*l = NumberList{single}
		return nil
	}
	if data[0] != '[' {
		return errors.New("numbers must be a string or an array of strings")
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

// ── Responses ─────────────────────────────────────────────────────────────────

// ValidationInfo reports plausibility checks on a canonical number.
type ValidationInfo struct {
	phone.Validity
	Rules phone.NationalRuleMatch `json:"rules"`
}

// NormalizeResponse is one normalization result.
type NormalizeResponse struct {
	phone.Result
	Cached     bool            `json:"cached,omitempty"`
	Validation *ValidationInfo `json:"validation,omitempty"`
}

// BatchResponse holds results in input order.
type BatchResponse struct {
	Total        int            `json:"total"`
	Failed       int            `json:"failed"`
	TableVersion uint64         `json:"tableVersion"`
	Results      []phone.Result `json:"results"`
}

// JobResponse describes a background normalization job.
type JobResponse struct {
	ID           uuid.UUID      `json:"id"`
	Status       string         `json:"status"`
	Region       string         `json:"region,omitempty"`
	Total        int            `json:"total"`
	Failed       int            `json:"failed"`
	TableVersion *int64         `json:"tableVersion,omitempty"`
	Results      []phone.Result `json:"results,omitempty"`
	Error        string         `json:"error,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	CompletedAt  *time.Time     `json:"completedAt,omitempty"`
}
