// Cinemood - Emotion-Driven Movie Recommendation Backend
// Copyright 2026 Cinemood Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package validation

import (
	"strings"
	"testing"
)

type advanceRequest struct {
	StepID   int64 `validate:"required,gt=0"`
	OptionID int64 `validate:"required,gt=0"`
}

func TestValidateStructPass(t *testing.T) {
	req := advanceRequest{StepID: 1, OptionID: 10}
	if err := ValidateStruct(&req); err != nil {
		t.Errorf("ValidateStruct(valid) = %v, want nil", err)
	}
}

func TestValidateStructFail(t *testing.T) {
	req := advanceRequest{StepID: 1}
	verr := ValidateStruct(&req)
	if verr == nil {
		t.Fatal("ValidateStruct should reject a missing OptionID")
	}
	if len(verr.Errors()) != 1 {
		t.Fatalf("got %d field errors, want 1", len(verr.Errors()))
	}
	if verr.Errors()[0].Field() != "OptionID" {
		t.Errorf("failed field = %q, want OptionID", verr.Errors()[0].Field())
	}
	if !strings.Contains(verr.Error(), "OptionID") {
		t.Errorf("message %q should name the field", verr.Error())
	}
}

func TestToAPIError(t *testing.T) {
	req := advanceRequest{}
	verr := ValidateStruct(&req)
	if verr == nil {
		t.Fatal("expected validation failure")
	}

	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if len(apiErr.Details) != 2 {
		t.Errorf("Details has %d entries, want 2", len(apiErr.Details))
	}
}

func TestGetValidatorSingleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator must return the same instance")
	}
}
