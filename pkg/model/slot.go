package model

import (
	"encoding/json"
	"time"
)

type Occupant struct {
	ReservationID string `json:"reservationId"`
	PatientName   string `json:"patientName"`
	Complaint     string `json:"complaint"`
	Status        Status `json:"status"`
}

type Slot struct {
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`
	IsOccupied bool      `json:"isOccupied"`
	OccupiedBy *Occupant `json:"occupiedBy,omitempty"`
}

// Envelope wraps every response of the clinic API.
type Envelope struct {
	HTTPStatus  int             `json:"httpStatus"`
	OperationID string          `json:"operationId"`
	Data        json.RawMessage `json:"data,omitempty"`
	Message     string          `json:"message,omitempty"`
	Error       string          `json:"error,omitempty"`
}

type DiagnosisRequest struct {
	Anamnesis   string `json:"anamnesis" validate:"required"`
	Examination string `json:"examination" validate:"required"`
}

type DiagnosisRecommendation struct {
	Diagnosis string `json:"diagnosis"`
	ICD10     string `json:"icd10"`
	Reasoning string `json:"reasoning"`
}

type DiagnosisResult struct {
	Recommendations []DiagnosisRecommendation `json:"recommendations"`
	Summary         string                    `json:"summary"`
}
