package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"medical-assistant-be/internal/dto"
	"medical-assistant-be/internal/entity"
	"medical-assistant-be/internal/repository/specification"
	"medical-assistant-be/internal/repository/unitofwork"
	"medical-assistant-be/pkg/dialogue"
	"medical-assistant-be/pkg/dialogue/followup"
	"medical-assistant-be/pkg/dialogue/session"
	"medical-assistant-be/pkg/events"
	"medical-assistant-be/pkg/knowledge"
	"medical-assistant-be/pkg/llm"
	pktNats "medical-assistant-be/pkg/nats"
	"medical-assistant-be/pkg/store"

	"github.com/google/uuid"
)

// IChatService drives the medical dialogue over both transports. The
// streaming methods double as the websocket DialogueService contract.
type IChatService interface {
	Init(ctx context.Context, userId uuid.UUID, req *dto.InitChatRequest) (*dto.ChatTurnResponse, error)
	GenerateFollowUp(ctx context.Context, req *dto.GenerateFollowUpRequest) (*dto.GenerateFollowUpResponse, error)
	GetAnswers(ctx context.Context, userId uuid.UUID, req *dto.GetAnswersRequest) (*dto.ChatTurnResponse, error)
	GenerateFinalPrompt(ctx context.Context, req *dto.GenerateFinalPromptRequest) (*dto.GenerateFinalPromptResponse, error)
	GenerateDiagnosis(ctx context.Context, req *dto.GenerateDiagnosisRequest) (*dto.GenerateDiagnosisResponse, error)

	StreamAnswer(ctx context.Context, userId uuid.UUID, threadId, message string, emit func(chunk string) bool) (store.MedicalSnapshot, error)
	ClearSession(ctx context.Context, threadId string) error
	MedicalSummary(ctx context.Context, threadId string) (store.MedicalSnapshot, error)
}

type chatService struct {
	uowFactory     unitofwork.RepositoryFactory
	orchestrator   *dialogue.Orchestrator
	sessions       *session.Manager
	followupGen    *followup.Generator
	retriever      *knowledge.Retriever
	llmProvider    llm.LLMProvider
	eventPublisher *pktNats.Publisher
	chunkDelay     time.Duration
	logger         *log.Logger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	orchestrator *dialogue.Orchestrator,
	sessions *session.Manager,
	followupGen *followup.Generator,
	retriever *knowledge.Retriever,
	llmProvider llm.LLMProvider,
	eventPublisher *pktNats.Publisher,
	chunkDelay time.Duration,
) IChatService {
	return &chatService{
		uowFactory:     uowFactory,
		orchestrator:   orchestrator,
		sessions:       sessions,
		followupGen:    followupGen,
		retriever:      retriever,
		llmProvider:    llmProvider,
		eventPublisher: eventPublisher,
		chunkDelay:     chunkDelay,
		logger:         initDialogueLogger(),
	}
}

func initDialogueLogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "dialogue.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stdout, "[DIALOGUE] ", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}

// Init creates a thread for the patient and runs the opening turn.
func (cs *chatService) Init(ctx context.Context, userId uuid.UUID, req *dto.InitChatRequest) (*dto.ChatTurnResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	thread := entity.ChatThread{
		Id:        uuid.New(),
		UserId:    userId,
		Title:     threadTitle(req.Symptoms),
		CreatedAt: time.Now(),
	}
	if err := uow.ChatThreadRepository().Create(ctx, &thread); err != nil {
		return nil, err
	}

	cs.publishEvent(ctx, events.BaseEvent{
		Type: "THREAD_CREATED",
		Data: map[string]interface{}{
			"thread_id": thread.Id,
			"user_id":   userId,
			"title":     thread.Title,
		},
		OccurredAt: time.Now(),
	})

	result := cs.runTurn(ctx, userId, thread.Id, req.Symptoms)

	return &dto.ChatTurnResponse{
		ThreadId:    thread.Id,
		Reply:       result.Reply,
		Rejected:    result.Rejected,
		Reason:      result.Reason,
		MedicalInfo: result.State.Snapshot(),
	}, nil
}

// GenerateFollowUp produces clarifying questions for the reported
// symptoms. Stateless; nothing is persisted.
func (cs *chatService) GenerateFollowUp(ctx context.Context, req *dto.GenerateFollowUpRequest) (*dto.GenerateFollowUpResponse, error) {
	questions, err := cs.followupGen.Generate(ctx, req.Symptoms, req.UserInfo)
	if err != nil {
		return nil, err
	}
	return &dto.GenerateFollowUpResponse{FollowupQuestions: questions}, nil
}

// GetAnswers folds the follow-up answers into a single user turn and
// continues the dialogue.
func (cs *chatService) GetAnswers(ctx context.Context, userId uuid.UUID, req *dto.GetAnswersRequest) (*dto.ChatTurnResponse, error) {
	if err := cs.verifyThread(ctx, userId, req.ThreadId); err != nil {
		return nil, err
	}

	result := cs.runTurn(ctx, userId, req.ThreadId, foldAnswers(req.Responses))

	return &dto.ChatTurnResponse{
		ThreadId:    req.ThreadId,
		Reply:       result.Reply,
		Rejected:    result.Rejected,
		Reason:      result.Reason,
		MedicalInfo: result.State.Snapshot(),
	}, nil
}

// GenerateFinalPrompt assembles the consultation summary text. Pure
// string work, no model call.
func (cs *chatService) GenerateFinalPrompt(ctx context.Context, req *dto.GenerateFinalPromptRequest) (*dto.GenerateFinalPromptResponse, error) {
	var sb strings.Builder
	sb.WriteString("Patient symptoms: ")
	sb.WriteString(req.Symptoms)
	sb.WriteString("\n")
	if req.UserInfo != "" {
		sb.WriteString("Patient info: ")
		sb.WriteString(req.UserInfo)
		sb.WriteString("\n")
	}
	if len(req.Answers) > 0 {
		sb.WriteString("Follow-up answers:\n")
		for _, q := range sortedKeys(req.Answers) {
			sb.WriteString(fmt.Sprintf("- Q: %s A: %s\n", q, req.Answers[q]))
		}
	}
	return &dto.GenerateFinalPromptResponse{FinalPrompt: strings.TrimRight(sb.String(), "\n")}, nil
}

// GenerateDiagnosis runs a one-shot retrieval-augmented generation over
// the assembled consultation prompt.
func (cs *chatService) GenerateDiagnosis(ctx context.Context, req *dto.GenerateDiagnosisRequest) (*dto.GenerateDiagnosisResponse, error) {
	var reference []knowledge.Passage
	if passages, err := cs.retriever.Retrieve(ctx, req.FinalPrompt); err != nil {
		cs.logger.Printf("[WARN] Diagnosis retrieval failed, proceeding without reference: %v", err)
	} else {
		reference = passages
	}

	var sb strings.Builder
	sb.WriteString("You are Dr. Mira, a warm and careful virtual health assistant.\n")
	sb.WriteString("Review the consultation summary below and give a clear, structured assessment: ")
	sb.WriteString("likely explanations, self-care guidance, and when to see a doctor.\n")
	sb.WriteString("This is general information, not a diagnosis; say so.\n\n")
	if len(reference) > 0 {
		sb.WriteString("REFERENCE MATERIAL:\n")
		for _, p := range reference {
			sb.WriteString("- ")
			sb.WriteString(p.Content)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("CONSULTATION SUMMARY:\n")
	sb.WriteString(req.FinalPrompt)

	answer, err := cs.llmProvider.Generate(ctx, sb.String(), llm.WithTemperature(0.4))
	if err != nil {
		return nil, err
	}
	return &dto.GenerateDiagnosisResponse{Diagnosis: answer}, nil
}

// StreamAnswer runs one turn and feeds the reply word by word through
// emit, pacing chunks so the client renders a live stream.
func (cs *chatService) StreamAnswer(ctx context.Context, userId uuid.UUID, threadId, message string, emit func(chunk string) bool) (store.MedicalSnapshot, error) {
	tid, err := uuid.Parse(threadId)
	if err != nil {
		return store.MedicalSnapshot{}, fmt.Errorf("invalid thread id")
	}
	if err := cs.verifyThread(ctx, userId, tid); err != nil {
		return store.MedicalSnapshot{}, err
	}

	result := cs.runTurn(ctx, userId, tid, message)

	words := strings.Fields(result.Reply)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 {
			chunk += " "
		}
		if !emit(chunk) {
			break
		}
		select {
		case <-ctx.Done():
			return result.State.Snapshot(), nil
		case <-time.After(cs.chunkDelay):
		}
	}

	return result.State.Snapshot(), nil
}

// ClearSession forgets the in-memory conversation. Persisted chat
// history is left alone.
func (cs *chatService) ClearSession(ctx context.Context, threadId string) error {
	cs.sessions.Clear(threadId)
	return nil
}

func (cs *chatService) MedicalSummary(ctx context.Context, threadId string) (store.MedicalSnapshot, error) {
	unlock := cs.sessions.Lock(threadId)
	defer unlock()
	state := cs.sessions.LoadOrCreate(threadId)
	return state.Snapshot(), nil
}

// runTurn serializes per-thread turns, executes the pipeline, saves the
// session, and persists the exchanged messages. The orchestrator never
// fails a turn, so neither does this.
func (cs *chatService) runTurn(ctx context.Context, userId uuid.UUID, threadId uuid.UUID, message string) *dialogue.TurnResult {
	key := threadId.String()
	unlock := cs.sessions.Lock(key)
	defer unlock()

	state := cs.sessions.LoadOrCreate(key)
	result := cs.orchestrator.RunTurn(ctx, state, message)
	cs.sessions.Save(result.State)

	cs.persistTurn(ctx, threadId, result)
	cs.publishUrgency(ctx, userId, threadId, result.State)

	return result
}

// persistTurn writes the user/assistant exchange to the thread history.
// Persistence is auxiliary: a storage error never fails the turn.
func (cs *chatService) persistTurn(ctx context.Context, threadId uuid.UUID, result *dialogue.TurnResult) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	now := time.Now()

	userMessage := entity.ChatMessage{
		Id:        uuid.New(),
		ThreadId:  threadId,
		Role:      store.RoleUser,
		Content:   result.State.LatestUserMessage,
		CreatedAt: now,
	}
	assistantMessage := entity.ChatMessage{
		Id:        uuid.New(),
		ThreadId:  threadId,
		Role:      store.RoleAssistant,
		Content:   result.Reply,
		CreatedAt: now.Add(1 * time.Second),
	}

	if err := uow.Begin(ctx); err != nil {
		cs.logger.Printf("[WARN] Failed to begin persist transaction for thread %s: %v", threadId, err)
		return
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().Create(ctx, &userMessage); err != nil {
		cs.logger.Printf("[WARN] Failed to persist user message for thread %s: %v", threadId, err)
		return
	}
	if err := uow.ChatMessageRepository().Create(ctx, &assistantMessage); err != nil {
		cs.logger.Printf("[WARN] Failed to persist assistant message for thread %s: %v", threadId, err)
		return
	}
	if err := uow.Commit(); err != nil {
		cs.logger.Printf("[WARN] Failed to commit turn for thread %s: %v", threadId, err)
	}
}

func (cs *chatService) publishUrgency(ctx context.Context, userId uuid.UUID, threadId uuid.UUID, state *store.ConversationState) {
	if state.Urgency == nil || state.Urgency.Level != store.UrgencyEmergency {
		return
	}
	cs.publishEvent(ctx, events.BaseEvent{
		Type: "EMERGENCY_DETECTED",
		Data: map[string]interface{}{
			"thread_id": threadId,
			"user_id":   userId,
			"level":     state.Urgency.Level,
			"reasoning": state.Urgency.Reasoning,
			"red_flags": state.Urgency.RedFlags,
		},
		OccurredAt: time.Now(),
	})
}

func (cs *chatService) publishEvent(ctx context.Context, evt events.BaseEvent) {
	if cs.eventPublisher == nil {
		return
	}
	// Events feed the alerting side channel; never fail the request over them.
	if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
		cs.logger.Printf("[WARN] Failed to publish %s event: %v", evt.Type, err)
	}
}

func (cs *chatService) verifyThread(ctx context.Context, userId uuid.UUID, threadId uuid.UUID) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	thread, err := uow.ChatThreadRepository().FindOne(ctx,
		specification.ByID{ID: threadId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return err
	}
	if thread == nil {
		return ErrThreadNotFound
	}
	return nil
}

func threadTitle(symptoms string) string {
	title := strings.TrimSpace(symptoms)
	runes := []rune(title)
	if len(runes) > 60 {
		title = string(runes[:60]) + "..."
	}
	if title == "" {
		title = "New consultation"
	}
	return title
}

func foldAnswers(responses map[string]string) string {
	var sb strings.Builder
	for _, q := range sortedKeys(responses) {
		sb.WriteString(fmt.Sprintf("%s %s. ", q, responses[q]))
	}
	return strings.TrimSpace(sb.String())
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
