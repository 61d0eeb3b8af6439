package services

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"studymate/internal/format"
	"studymate/internal/models"
	"studymate/internal/store"
)

// ChatService is the turn processor: the only component that calls the
// generation backend and the only one that mutates session messages and
// context. Turns for the same session are serialized; different sessions run
// fully in parallel.
type ChatService struct {
	contextSvc *ContextService
	grounding  *GroundingService
	prompts    *PromptBuilder
	generator  Generator
	progress   *ProgressService
	documents  store.DocumentStore
	metrics    *Metrics

	sessions *cache.Cache // session id -> *models.Session, TTL-evicted

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-session serialization
}

// NewChatService creates a new chat service. sessionTTL bounds how long idle
// sessions stay resident before the retention policy reclaims them.
func NewChatService(
	contextSvc *ContextService,
	grounding *GroundingService,
	prompts *PromptBuilder,
	generator Generator,
	progress *ProgressService,
	documents store.DocumentStore,
	metrics *Metrics,
	sessionTTL time.Duration,
) *ChatService {
	if sessionTTL <= 0 {
		sessionTTL = 30 * time.Minute
	}

	sessions := cache.New(sessionTTL, 10*time.Minute)
	sessions.OnEvicted(func(key string, _ interface{}) {
		log.Printf("🗑️  [CHAT-SERVICE] Session %s expired and was evicted", key)
	})

	return &ChatService{
		contextSvc: contextSvc,
		grounding:  grounding,
		prompts:    prompts,
		generator:  generator,
		progress:   progress,
		documents:  documents,
		metrics:    metrics,
		sessions:   sessions,
		locks:      make(map[string]*sync.Mutex),
	}
}

// sessionLock returns the mutex serializing turns for one session.
func (s *ChatService) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	return lock
}

// session returns the live session, creating it on first message. The
// caller-supplied context seeds a fresh session so a UI reconnecting after a
// server restart keeps its chips.
func (s *ChatService) session(req models.TurnRequest) *models.Session {
	if cached, ok := s.sessions.Get(req.SessionID); ok {
		return cached.(*models.Session)
	}

	now := time.Now().UTC()
	sess := &models.Session{
		ID:        req.SessionID,
		UserID:    req.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Context != nil {
		sess.Context = *req.Context
	}
	s.sessions.Set(req.SessionID, sess, cache.DefaultExpiration)
	return sess
}

// ProcessMessage runs one conversation turn. On backend failure or caller
// cancellation the session is left untouched and no side effects fire.
func (s *ChatService) ProcessMessage(ctx context.Context, req models.TurnRequest) (*models.TurnResponse, error) {
	started := time.Now()

	message := strings.TrimSpace(req.Message)
	if message == "" {
		s.metrics.RecordTurnError(string(ErrKindValidation))
		return nil, NewValidationError("Message is required")
	}
	if strings.TrimSpace(req.SessionID) == "" {
		s.metrics.RecordTurnError(string(ErrKindValidation))
		return nil, NewValidationError("Session ID is required")
	}

	lock := s.sessionLock(req.SessionID)
	lock.Lock()
	defer lock.Unlock()

	sess := s.session(req)

	updatedContext := s.contextSvc.Extract(sess.Context, sess.Messages, message)

	grounding := s.grounding.Assemble(s.candidateDocuments(ctx, req))

	historyWindow := s.prompts.HistoryWindow(sess.Messages)
	prompt := s.prompts.Build(message, grounding, updatedContext, req.Language)

	raw, err := s.generator.Generate(ctx, prompt, historyWindow)
	if err != nil {
		// Session state stays untouched so the caller can retry with the
		// same context.
		s.metrics.RecordTurnError(string(ErrKindBackend))
		log.Printf("❌ [CHAT-SERVICE] Generation failed for session %s: %v", req.SessionID, err)
		return nil, NewBackendError(err)
	}
	if ctx.Err() != nil {
		s.metrics.RecordTurnError(string(ErrKindBackend))
		return nil, NewBackendError(ctx.Err())
	}

	display := format.Format(raw)

	now := time.Now().UTC()
	userMsg := models.Message{
		ID:        int64(len(sess.Messages) + 1),
		Role:      models.RoleUser,
		Text:      message,
		Timestamp: now,
	}
	botMsg := models.Message{
		ID:        int64(len(sess.Messages) + 2),
		Role:      models.RoleAssistant,
		Text:      display,
		RawText:   raw,
		Timestamp: now,
		Sources:   grounding.Sources,
	}
	sess.Messages = append(sess.Messages, userMsg, botMsg)
	sess.Context = updatedContext
	sess.UpdatedAt = now
	s.sessions.Set(sess.ID, sess, cache.DefaultExpiration)

	// Bookkeeping runs concurrently with returning the reply and must never
	// block or fail it.
	if s.progress != nil && req.UserID != "" {
		snapshot := *sess
		snapshot.Messages = append([]models.Message(nil), sess.Messages...)
		go s.progress.RecordTurn(context.WithoutCancel(ctx), req.UserID, &snapshot)
	}

	s.metrics.RecordTurn(time.Since(started).Seconds())

	return &models.TurnResponse{
		Response:    display,
		RawResponse: raw,
		Sources:     grounding.Sources,
		Context:     updatedContext,
	}, nil
}

// candidateDocuments prefers the documents supplied with the request and
// falls back to every processed document in the store. Store failures degrade
// to no grounding rather than failing the turn.
func (s *ChatService) candidateDocuments(ctx context.Context, req models.TurnRequest) []models.DocumentRef {
	if len(req.Documents) > 0 {
		// Request refs usually carry no text; resolve them against the store.
		resolved := make([]models.DocumentRef, 0, len(req.Documents))
		for _, ref := range req.Documents {
			if stored, err := s.documents.Get(ctx, ref.ID); err == nil {
				resolved = append(resolved, *stored)
			} else if ref.Text != "" {
				resolved = append(resolved, ref)
			}
		}
		return resolved
	}

	if s.documents == nil {
		return nil
	}
	docs, err := s.documents.ListProcessed(ctx)
	if err != nil {
		log.Printf("⚠️  [CHAT-SERVICE] Failed to list documents, answering without grounding: %v", err)
		return nil
	}
	return docs
}

// ClearSession resets a session: messages and context are dropped. This is
// the only path on which an established topic may return to empty. It takes
// the session lock so an in-flight turn finishes first and cannot write its
// transcript back over the reset. The lock entry itself stays resident, so
// later turns keep serializing against the same mutex.
func (s *ChatService) ClearSession(sessionID string) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s.sessions.Delete(sessionID)
	log.Printf("🧹 [CHAT-SERVICE] Session %s cleared", sessionID)
}

// SessionSnapshot returns a copy of the live session, if any. Used by tests
// and the history endpoints.
func (s *ChatService) SessionSnapshot(sessionID string) (*models.Session, bool) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	cached, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, false
	}
	sess := cached.(*models.Session)
	snapshot := *sess
	snapshot.Messages = append([]models.Message(nil), sess.Messages...)
	return &snapshot, true
}
