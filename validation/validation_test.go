package validation

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestValidatorRequired(t *testing.T) {
	v := New()
	v.Required("meeting_id", "m-1")
	if v.HasErrors() {
		t.Error("expected no errors for valid input")
	}

	v2 := New()
	v2.Required("meeting_id", "   ")
	if !v2.HasErrors() {
		t.Error("expected error for whitespace-only required field")
	}
}

func TestValidatorRequiredUUID(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"valid", uuid.New().String(), false},
		{"empty", "", true},
		{"malformed", "not-a-uuid", true},
		{"nil uuid", uuid.Nil.String(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New().RequiredUUID("profile_id", tt.value)
			if v.HasErrors() != tt.wantErr {
				t.Errorf("HasErrors() = %v, want %v (%v)", v.HasErrors(), tt.wantErr, v.Errors())
			}
		})
	}
}

func TestValidatorUnit(t *testing.T) {
	tests := []struct {
		value   float64
		wantErr bool
	}{
		{0, false},
		{0.7, false},
		{1, false},
		{-0.1, true},
		{1.01, true},
		{math.NaN(), true},
	}
	for _, tt := range tests {
		v := New().Unit("threshold", tt.value)
		if v.HasErrors() != tt.wantErr {
			t.Errorf("Unit(%v) HasErrors() = %v, want %v", tt.value, v.HasErrors(), tt.wantErr)
		}
	}
}

func TestValidatorNonNegativeAndDuration(t *testing.T) {
	v := New().NonNegative("tolerance", 0.05).PositiveDuration("ttl", time.Minute)
	if v.HasErrors() {
		t.Errorf("expected no errors, got %v", v.Errors())
	}

	v2 := New().NonNegative("tolerance", math.Inf(1)).PositiveDuration("ttl", 0)
	if len(v2.Errors()) != 2 {
		t.Errorf("expected 2 errors, got %v", v2.Errors())
	}
}

func TestValidatorOneOf(t *testing.T) {
	v := New().OneOf("format", "markdown", []string{"text", "markdown", "json"})
	if v.HasErrors() {
		t.Error("expected no error for valid oneOf value")
	}

	v2 := New().OneOf("format", "pdf", []string{"text", "markdown", "json"})
	if !v2.HasErrors() {
		t.Error("expected error for invalid oneOf value")
	}
}

func TestValidatorValidate(t *testing.T) {
	if New().Required("name", "Jane").Err() != nil {
		t.Error("expected nil for valid input")
	}

	v := New()
	v.Required("meeting_id", "")
	v.Custom(false, "label", "must differ from target")
	appErr := v.Validate()
	if appErr == nil {
		t.Fatal("expected error")
	}
	if appErr.Details == nil {
		t.Fatal("expected details in error")
	}
	if !strings.Contains(appErr.Message, "meeting_id") || !strings.Contains(appErr.Message, "label") {
		t.Errorf("expected both fields in message, got %q", appErr.Message)
	}
}

func TestStructValidate(t *testing.T) {
	type Settings struct {
		Policy    string  `json:"policy" validate:"required,privacy_mode"`
		Mode      string  `json:"mode" validate:"omitempty,processing_mode"`
		Threshold float64 `json:"threshold" validate:"gte=0,lte=1"`
	}

	if err := Validate(Settings{Policy: "local_only", Mode: "chunked", Threshold: 0.7}); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	err := Validate(Settings{Policy: "cloud", Mode: "stream", Threshold: 2})
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, field := range []string{"policy", "mode", "threshold"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("expected error to mention %q, got %q", field, err.Error())
		}
	}
}

func TestValidateUUIDFunc(t *testing.T) {
	validUUID := uuid.New().String()
	id, err := ValidateUUID("job_id", validUUID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if id.String() != validUUID {
		t.Errorf("expected %s, got %s", validUUID, id.String())
	}

	if _, err := ValidateUUID("job_id", ""); err == nil {
		t.Error("expected error for empty UUID")
	}
	if _, err := ValidateUUID("job_id", "bad"); err == nil {
		t.Error("expected error for invalid UUID")
	}
}

func TestRequiredFunc(t *testing.T) {
	if err := Required("name", "value"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if err := Required("name", ""); err == nil {
		t.Error("expected error for empty required field")
	}
}
