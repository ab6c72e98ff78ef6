package dto

import (
	"github.com/google/uuid"

	"medical-assistant-be/pkg/store"
)

type InitChatRequest struct {
	Symptoms string `json:"symptoms" validate:"required"`
}

// ChatTurnResponse is the state snapshot returned after every
// completed dialogue turn.
type ChatTurnResponse struct {
	ThreadId    uuid.UUID             `json:"thread_id"`
	Reply       string                `json:"reply"`
	Rejected    bool                  `json:"rejected,omitempty"`
	Reason      string                `json:"reason,omitempty"`
	MedicalInfo store.MedicalSnapshot `json:"medical_info"`
}

type GenerateFollowUpRequest struct {
	Symptoms string `json:"symptoms" validate:"required"`
	UserInfo string `json:"userInfo"`
}

type GenerateFollowUpResponse struct {
	FollowupQuestions []string `json:"followupQuestions"`
}

type GetAnswersRequest struct {
	ThreadId  uuid.UUID         `json:"thread_id" validate:"required"`
	Responses map[string]string `json:"responses" validate:"required,min=1"`
}

type GenerateFinalPromptRequest struct {
	Symptoms string            `json:"symptoms" validate:"required"`
	UserInfo string            `json:"userInfo"`
	Answers  map[string]string `json:"answers"`
}

type GenerateFinalPromptResponse struct {
	FinalPrompt string `json:"finalPrompt"`
}

type GenerateDiagnosisRequest struct {
	FinalPrompt string `json:"finalPrompt" validate:"required"`
}

type GenerateDiagnosisResponse struct {
	Diagnosis string `json:"diagnosis"`
}
