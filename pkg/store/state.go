package store

// Turn roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Urgency levels, ordered from least to most severe
const (
	UrgencyLow       = "low"
	UrgencyMedium    = "medium"
	UrgencyHigh      = "high"
	UrgencyEmergency = "emergency"
)

// Turn is a single message exchange unit within a conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserInfo holds identity fields extracted from the conversation.
// A zero value means the field was never extracted with enough confidence.
type UserInfo struct {
	Name     string `json:"name,omitempty"`
	Age      int    `json:"age,omitempty"`
	Gender   string `json:"gender,omitempty"`
	Location string `json:"location,omitempty"`
}

// IsZero reports whether no identity field is populated.
func (u UserInfo) IsZero() bool {
	return u.Name == "" && u.Age == 0 && u.Gender == "" && u.Location == ""
}

// UrgencyAssessment is the latest severity read for the conversation.
// Overwritten each turn, never accumulated.
type UrgencyAssessment struct {
	Level     string   `json:"level"`
	Reasoning string   `json:"reasoning"`
	RedFlags  []string `json:"red_flags,omitempty"`
}

// ConversationState is the per-session patient record.
// Messages are append-only; the fact sets grow monotonically.
// The dialogue orchestrator owns mutation; everything else reads.
type ConversationState struct {
	ID                 string             `json:"id"`
	Messages           []Turn             `json:"messages"`
	LatestUserMessage  string             `json:"latest_user_message"`
	UserInfo           UserInfo           `json:"user_info"`
	Symptoms           []string           `json:"symptoms"`
	MedicationsTaken   []string           `json:"medications_taken"`
	MedicalHistory     []string           `json:"medical_history"`
	Urgency            *UrgencyAssessment `json:"urgency_assessment,omitempty"`
	SuggestedQuestions []string           `json:"suggested_questions,omitempty"`
}

// NewConversationState creates an empty state for a new session.
func NewConversationState(id string) *ConversationState {
	return &ConversationState{
		ID:               id,
		Messages:         []Turn{},
		Symptoms:         []string{},
		MedicationsTaken: []string{},
		MedicalHistory:   []string{},
	}
}

// AppendTurn adds a message to the conversation log. The log is never
// reordered or truncated; callers window it for prompt building only.
func (s *ConversationState) AppendTurn(role, content string) {
	s.Messages = append(s.Messages, Turn{Role: role, Content: content})
	if role == RoleUser {
		s.LatestUserMessage = content
	}
}

// LastUserTurn returns the most recent user message, if any.
// This is the single accessor used across the pipeline; components must
// not scan the log themselves.
func (s *ConversationState) LastUserTurn() (Turn, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i], true
		}
	}
	return Turn{}, false
}

// RecentTurns returns up to n of the latest turns in chronological order.
func (s *ConversationState) RecentTurns(n int) []Turn {
	if n <= 0 || len(s.Messages) == 0 {
		return nil
	}
	if len(s.Messages) <= n {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}

// Clone makes a deep copy of the state so a turn can work on a
// scratch record and commit only on success.
func (s *ConversationState) Clone() *ConversationState {
	clone := &ConversationState{
		ID:                 s.ID,
		Messages:           append([]Turn{}, s.Messages...),
		LatestUserMessage:  s.LatestUserMessage,
		UserInfo:           s.UserInfo,
		Symptoms:           append([]string{}, s.Symptoms...),
		MedicationsTaken:   append([]string{}, s.MedicationsTaken...),
		MedicalHistory:     append([]string{}, s.MedicalHistory...),
		SuggestedQuestions: append([]string{}, s.SuggestedQuestions...),
	}
	if s.Urgency != nil {
		u := *s.Urgency
		u.RedFlags = append([]string{}, s.Urgency.RedFlags...)
		clone.Urgency = &u
	}
	return clone
}

// MedicalSnapshot is the read-only view emitted to clients after a turn.
type MedicalSnapshot struct {
	Symptoms       []string `json:"symptoms"`
	Medications    []string `json:"medications"`
	MedicalHistory []string `json:"medical_history"`
	UserInfo       UserInfo `json:"user_info"`
	MessageCount   int      `json:"message_count"`
}

// Snapshot captures the current medical facts without exposing the
// mutable state to callers.
func (s *ConversationState) Snapshot() MedicalSnapshot {
	return MedicalSnapshot{
		Symptoms:       append([]string{}, s.Symptoms...),
		Medications:    append([]string{}, s.MedicationsTaken...),
		MedicalHistory: append([]string{}, s.MedicalHistory...),
		UserInfo:       s.UserInfo,
		MessageCount:   len(s.Messages),
	}
}
