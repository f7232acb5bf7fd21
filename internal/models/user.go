package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AccessRole defines ordered permission levels for a product family.
// Higher values carry strictly more privileges.
type AccessRole int

const (
	RoleNone AccessRole = iota
	RoleGuest
	RoleUser
	RoleAdmin
	RoleOwner
	RoleNode
)

// String returns a human-readable role name for logging
func (r AccessRole) String() string {
	switch r {
	case RoleNone:
		return "none"
	case RoleGuest:
		return "guest"
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	case RoleOwner:
		return "owner"
	case RoleNode:
		return "node"
	default:
		return fmt.Sprintf("unknown(%d)", int(r))
	}
}

// ProfileConfig holds user-facing profile preferences
type ProfileConfig struct {
	FirstName     string `json:"first_name"`
	MiddleName    string `json:"middle_name"`
	LastName      string `json:"last_name"`
	PreferredName string `json:"preferred_name"`
	DOB           string `json:"dob,omitempty"` // YYYY-MM-DD
	Email         string `json:"email"`
	AvatarURL     string `json:"avatar_url"`
	About         string `json:"about"`
	Phone         string `json:"phone"`
	PhoneVerified bool   `json:"phone_verified"`
	EmailVerified bool   `json:"email_verified"`
}

// LanguageConfig holds language preferences as BCP-47 tags
type LanguageConfig struct {
	InputLanguages  []string `json:"input_languages"`
	OutputLanguages []string `json:"output_languages"`
}

// UnitsConfig holds display unit preferences
type UnitsConfig struct {
	Time    int    `json:"time"`    // 12 or 24
	Date    string `json:"date"`    // one of MDY, YMD, YDM, DMY
	Measure string `json:"measure"` // imperial or metric
}

// ResponseConfig holds spoken-response behavior settings
type ResponseConfig struct {
	Hesitation         bool    `json:"hesitation"`
	LimitDialog        bool    `json:"limit_dialog"`
	TTSGender          string  `json:"tts_gender"` // male or female
	TTSSpeedMultiplier float64 `json:"tts_speed_multiplier"`
}

// LocationConfig is a minimal location spec from which remaining
// values (e.g. timezone offsets) may be calculated downstream
type LocationConfig struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Name      *string  `json:"name"`
	Timezone  *string  `json:"timezone"`
}

// PrivacyConfig holds data-retention consent flags
type PrivacyConfig struct {
	SaveText  bool `json:"save_text"`
	SaveAudio bool `json:"save_audio"`
}

// PermissionsConfig defines an AccessRole per supported product family
type PermissionsConfig struct {
	Chat AccessRole `json:"chat"`
	Core AccessRole `json:"core"`
	Node AccessRole `json:"node"`
	Hub  AccessRole `json:"hub"`
	LLM  AccessRole `json:"llm"`
}

// TokenConfig describes a token issued to a client on behalf of the user
type TokenConfig struct {
	Description         string `json:"description"`
	ClientID            string `json:"client_id"`
	ExpirationTimestamp int64  `json:"expiration_timestamp"`
	RefreshToken        string `json:"refresh_token"`
	LastUsedTimestamp   int64  `json:"last_used_timestamp"`
}

// User represents a single account record as persisted in storage.
// UserID and CreatedTimestamp are assigned once at creation and are
// immutable afterwards; Username is mutable but globally unique.
// PasswordHash at rest is always a 64-character lowercase hex SHA-256
// digest, never plaintext.
type User struct {
	UserID           string                    `json:"user_id"`
	Username         string                    `json:"username"`
	PasswordHash     string                    `json:"password_hash"`
	CreatedTimestamp int64                     `json:"created_timestamp"`
	Skills           map[string]map[string]any `json:"skills"`
	Profile          ProfileConfig             `json:"profile"`
	Language         LanguageConfig            `json:"language"`
	Units            UnitsConfig               `json:"units"`
	Location         LocationConfig            `json:"location"`
	ResponseMode     ResponseConfig            `json:"response_mode"`
	Privacy          PrivacyConfig             `json:"privacy"`
	Permissions      PermissionsConfig         `json:"permissions"`
	Tokens           []TokenConfig             `json:"tokens"`
}

// NewUser returns a User with a generated UserID, the current creation
// timestamp and default values for every nested section.
func NewUser(username, passwordHash string) *User {
	return &User{
		UserID:           uuid.New().String(),
		Username:         username,
		PasswordHash:     passwordHash,
		CreatedTimestamp: time.Now().Unix(),
		Skills:           map[string]map[string]any{},
		Language: LanguageConfig{
			InputLanguages:  []string{"en-us"},
			OutputLanguages: []string{"en-us"},
		},
		Units: UnitsConfig{
			Time:    12,
			Date:    "MDY",
			Measure: "imperial",
		},
		ResponseMode: ResponseConfig{
			TTSGender:          "female",
			TTSSpeedMultiplier: 1.0,
		},
		Privacy: PrivacyConfig{
			SaveText:  true,
			SaveAudio: false,
		},
		Tokens: []TokenConfig{},
	}
}

// UnmarshalJSON decodes a payload on top of a fully defaulted record,
// so sections absent from the payload keep their defaults and a payload
// without user_id/created_timestamp gets fresh values assigned.
// Unknown fields are dropped by the standard decoder.
func (u *User) UnmarshalJSON(data []byte) error {
	type userAlias User
	a := userAlias(*NewUser("", ""))
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*u = User(a)
	return nil
}

// Validate checks that enum-constrained fields hold allowed values
func (u *User) Validate() error {
	if u.Username == "" {
		return fmt.Errorf("username is required")
	}
	if u.Units.Time != 12 && u.Units.Time != 24 {
		return fmt.Errorf("invalid units.time %d: must be 12 or 24", u.Units.Time)
	}
	switch u.Units.Date {
	case "MDY", "YMD", "YDM", "DMY":
	default:
		return fmt.Errorf("invalid units.date %q: must be one of MDY, YMD, YDM, DMY", u.Units.Date)
	}
	if u.Units.Measure != "imperial" && u.Units.Measure != "metric" {
		return fmt.Errorf("invalid units.measure %q: must be imperial or metric", u.Units.Measure)
	}
	if u.ResponseMode.TTSGender != "male" && u.ResponseMode.TTSGender != "female" {
		return fmt.Errorf("invalid response_mode.tts_gender %q: must be male or female", u.ResponseMode.TTSGender)
	}
	return nil
}

// Clone returns a deep copy of the record. The service layer mutates
// copies only, so a caller-held User is never changed behind its back.
func (u *User) Clone() *User {
	clone := *u

	if u.Skills != nil {
		clone.Skills = make(map[string]map[string]any, len(u.Skills))
		for skill, settings := range u.Skills {
			if settings == nil {
				clone.Skills[skill] = nil
				continue
			}
			copied := make(map[string]any, len(settings))
			for k, v := range settings {
				copied[k] = v
			}
			clone.Skills[skill] = copied
		}
	}

	if u.Language.InputLanguages != nil {
		clone.Language.InputLanguages = append([]string(nil), u.Language.InputLanguages...)
	}
	if u.Language.OutputLanguages != nil {
		clone.Language.OutputLanguages = append([]string(nil), u.Language.OutputLanguages...)
	}

	if u.Location.Latitude != nil {
		v := *u.Location.Latitude
		clone.Location.Latitude = &v
	}
	if u.Location.Longitude != nil {
		v := *u.Location.Longitude
		clone.Location.Longitude = &v
	}
	if u.Location.Name != nil {
		v := *u.Location.Name
		clone.Location.Name = &v
	}
	if u.Location.Timezone != nil {
		v := *u.Location.Timezone
		clone.Location.Timezone = &v
	}

	if u.Tokens != nil {
		clone.Tokens = append([]TokenConfig{}, u.Tokens...)
	}

	return &clone
}

// Redacted returns a copy safe for general-purpose reads: credential
// and token material is cleared
func (u *User) Redacted() *User {
	clone := u.Clone()
	clone.PasswordHash = ""
	clone.Tokens = nil
	return clone
}

// Equal reports whether two records match field for field. Comparison
// goes through canonical JSON so nested maps compare by content.
func (u *User) Equal(other *User) bool {
	if other == nil {
		return false
	}
	a, err := json.Marshal(u)
	if err != nil {
		return false
	}
	b, err := json.Marshal(other)
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}
