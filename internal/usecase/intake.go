package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"education-agent/internal/classify"
	"education-agent/internal/domain"
	"education-agent/internal/extract"
	"education-agent/internal/guidance"
	"education-agent/internal/metrics"
)

const (
	defaultMaxMessage          = 1000
	defaultCollaboratorTimeout = 8 * time.Second
)

type SessionStore interface {
	Update(ctx context.Context, id string, fn func(*domain.ConversationSession) error) error
	Reset(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (domain.ConversationSession, bool, error)
}

type QueryClassifier interface {
	Classify(ctx context.Context, query string, profile *domain.StudentProfile) (domain.Category, classify.Source)
}

type ResponseGenerator interface {
	Generate(ctx context.Context, query string, category domain.Category, profile domain.StudentProfile) (string, error)
}

// ProfileWriter persists intake records. Implementations merge by field: a
// record with empty fields must not erase values saved earlier unless it is
// marked Reopen.
type ProfileWriter interface {
	UpsertProfile(ctx context.Context, rec domain.ProfileRecord) error
}

// IntakeService drives each session through greeting, name, age, interest
// and query collection, then answers with guidance.
type IntakeService struct {
	sessions            SessionStore
	classifier          QueryClassifier
	generator           ResponseGenerator
	profiles            ProfileWriter
	maxMessageLen       int
	collaboratorTimeout time.Duration
}

type ChatInput struct {
	SessionID string
	Message   string
}

type ChatOutput struct {
	Response  string
	SessionID string
	Stage     domain.Stage
	// Category is set only on turns that classified a query.
	Category domain.Category
}

// Label is the category reported to clients: the resolved category once a
// query has been classified, otherwise the current stage name.
func (o ChatOutput) Label() string {
	if o.Stage.Collecting() || o.Category == "" {
		return o.Stage.String()
	}
	return string(o.Category)
}

type ResetInput struct {
	SessionID string
}

type ResetOutput struct {
	Message   string
	SessionID string
}

// NewIntakeService wires the state machine. generator and profiles are
// optional: without a generator the built-in guidance texts are used, and
// without profiles nothing is persisted.
func NewIntakeService(sessions SessionStore, classifier QueryClassifier, generator ResponseGenerator, profiles ProfileWriter, maxMessageLen int, collaboratorTimeout time.Duration) (*IntakeService, error) {
	if sessions == nil {
		return nil, errors.New("usecase: session store must not be nil")
	}
	if classifier == nil {
		return nil, errors.New("usecase: classifier must not be nil")
	}
	if maxMessageLen <= 0 {
		maxMessageLen = defaultMaxMessage
	}
	if collaboratorTimeout <= 0 {
		collaboratorTimeout = defaultCollaboratorTimeout
	}
	return &IntakeService{
		sessions:            sessions,
		classifier:          classifier,
		generator:           generator,
		profiles:            profiles,
		maxMessageLen:       maxMessageLen,
		collaboratorTimeout: collaboratorTimeout,
	}, nil
}

// Chat processes one user message. A missing session id starts a new
// session; an unknown one is created on the spot.
func (s *IntakeService) Chat(ctx context.Context, in ChatInput) (ChatOutput, error) {
	message := strings.TrimSpace(in.Message)
	if utf8.RuneCountInString(message) > s.maxMessageLen {
		return ChatOutput{}, newError(ErrorInvalidInput, "message_too_long", nil)
	}
	id := strings.TrimSpace(in.SessionID)
	if id == "" {
		id = newUUID()
	}

	var out ChatOutput
	err := s.sessions.Update(ctx, id, func(sess *domain.ConversationSession) error {
		out = s.turn(ctx, sess, message)
		return nil
	})
	if err != nil {
		return ChatOutput{}, newError(ErrorInternal, "session_update_error", err)
	}
	out.SessionID = id
	return out, nil
}

// Reset puts the session back at the greeting stage with an empty profile.
func (s *IntakeService) Reset(ctx context.Context, in ResetInput) (ResetOutput, error) {
	id := strings.TrimSpace(in.SessionID)
	if id == "" {
		id = newUUID()
	}
	if err := s.sessions.Reset(ctx, id); err != nil {
		return ResetOutput{}, newError(ErrorInternal, "session_reset_error", err)
	}
	return ResetOutput{Message: resetMessage, SessionID: id}, nil
}

// Session returns a snapshot of the session for id.
func (s *IntakeService) Session(ctx context.Context, id string) (domain.ConversationSession, bool, error) {
	sess, ok, err := s.sessions.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.ConversationSession{}, false, newError(ErrorInternal, "session_read_error", err)
	}
	return sess, ok, nil
}

// turn runs under the session lock and appends exactly two log entries.
func (s *IntakeService) turn(ctx context.Context, sess *domain.ConversationSession, message string) ChatOutput {
	sess.Messages = append(sess.Messages, logEntry(domain.RoleUser, message, sess.Stage))

	step := s.step(ctx, sess, message)
	sess.Stage = transition(sess.Stage, step.advance)

	sess.Messages = append(sess.Messages, logEntry(domain.RoleAssistant, step.reply, sess.Stage))
	metrics.ObserveTurn(sess.Stage.String())

	return ChatOutput{
		Response: step.reply,
		Stage:    sess.Stage,
		Category: step.category,
	}
}

type stepResult struct {
	reply    string
	category domain.Category
	advance  bool
}

// transition is the only place a session's stage changes.
func transition(current domain.Stage, advance bool) domain.Stage {
	if !advance {
		return current
	}
	return current.Next()
}

func (s *IntakeService) step(ctx context.Context, sess *domain.ConversationSession, message string) stepResult {
	switch sess.Stage {
	case domain.StageGreeting:
		return stepResult{reply: welcomePrompt, advance: true}

	case domain.StageName:
		got := extract.Extract(message, sess.Profile)
		if got.Name == "" {
			return stepResult{reply: nameRetryPrompt}
		}
		sess.Profile.Name = got.Name
		rec := domain.NewProfileRecord(sess.ID, sess.Profile)
		rec.Reopen = true
		s.persist(ctx, rec)
		return stepResult{reply: askAgePrompt(sess.Profile.Name), advance: true}

	case domain.StageAge:
		age, matched := attemptAge(message, sess.Profile)
		switch {
		case !matched:
			return stepResult{reply: ageRetryPrompt}
		case !domain.AgeInRange(age):
			return stepResult{reply: ageRangePrompt}
		}
		sess.Profile.Age = age
		s.persist(ctx, domain.NewProfileRecord(sess.ID, sess.Profile))
		return stepResult{reply: askInterestPrompt(age), advance: true}

	case domain.StageInterest:
		interest, ok := attemptInterest(message, sess.Profile)
		if !ok {
			return stepResult{reply: interestRetryPrompt()}
		}
		sess.Profile.Interest = interest
		s.persist(ctx, domain.NewProfileRecord(sess.ID, sess.Profile))
		return stepResult{reply: askQueryPrompt(interest), advance: true}

	case domain.StageQuery:
		sess.Profile.Query = message
		category := s.classify(ctx, message, sess.Profile)
		reply := s.respond(ctx, sess.ID, message, category, sess.Profile)
		rec := domain.NewProfileRecord(sess.ID, sess.Profile)
		if sess.Profile.Complete() {
			rec.GuidanceType = category
		}
		s.persist(ctx, rec)
		return stepResult{reply: reply, category: category, advance: true}

	default:
		category := s.classify(ctx, message, sess.Profile)
		return stepResult{reply: s.respond(ctx, sess.ID, message, category, sess.Profile), category: category}
	}
}

// attemptAge tries the profile-aware extractor, then the raw age pattern on
// the message. The second attempt is what reports an out-of-range number.
func attemptAge(message string, known domain.StudentProfile) (int, bool) {
	if got := extract.Extract(message, known); got.Age > 0 {
		return got.Age, true
	}
	return extract.MatchAge(message)
}

// attemptInterest mirrors attemptAge for the interest keyword table.
func attemptInterest(message string, known domain.StudentProfile) (string, bool) {
	if got := extract.Extract(message, known); got.Interest != "" {
		return got.Interest, true
	}
	in, ok := extract.MatchInterest(message)
	return string(in), ok
}

func (s *IntakeService) classify(ctx context.Context, query string, profile domain.StudentProfile) domain.Category {
	category, source := s.classifier.Classify(ctx, query, &profile)
	if !category.Valid() {
		slog.Warn("classifier returned unknown category", "category", string(category))
		category = domain.CategoryGeneralEducation
	}
	metrics.ObserveClassification(string(source), string(category))
	return category
}

// respond asks the generator for guidance and falls back to the built-in
// text when it is missing, fails or returns nothing.
func (s *IntakeService) respond(ctx context.Context, sessionID, query string, category domain.Category, profile domain.StudentProfile) string {
	if s.generator != nil {
		ctx, cancel := context.WithTimeout(ctx, s.collaboratorTimeout)
		defer cancel()
		text, err := s.generator.Generate(ctx, query, category, profile)
		if err == nil && strings.TrimSpace(text) != "" {
			return text
		}
		if err != nil {
			slog.Warn("response generation failed, using built-in guidance", "session_id", sessionID, "err", err)
			metrics.ObserveCollaboratorFailure("generator")
		}
	}
	return guidance.Text(category, profile)
}

// persist is best effort; failures are logged and never change the turn.
func (s *IntakeService) persist(ctx context.Context, rec domain.ProfileRecord) {
	if s.profiles == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.collaboratorTimeout)
	defer cancel()
	if err := s.profiles.UpsertProfile(ctx, rec); err != nil {
		slog.Warn("profile persistence failed", "session_id", rec.SessionID, "err", err)
		metrics.ObserveCollaboratorFailure("persistence")
	}
}

func logEntry(role, content string, stage domain.Stage) domain.LogEntry {
	return domain.LogEntry{
		Role:      role,
		Content:   content,
		Stage:     stage,
		Timestamp: now().UTC().Format(time.RFC3339Nano),
	}
}

var newUUID = func() string {
	return uuid.NewString()
}

var now = time.Now
