package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"chatpdf/internal/ai"
	"chatpdf/internal/model"
	"chatpdf/internal/pkg/pdfextract"
	"chatpdf/internal/pkg/textsplit"
	"chatpdf/internal/vectorindex"
)

// Chunking and retrieval policy. Tunable, but these are the defaults the
// service ships with.
const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
	chunkSeparator      = "\n"
	defaultTopK         = 4
	embeddingBatchSize  = 10 // embedding APIs often limit batch size
)

var (
	ErrInvalidDocument = errors.New("invalid or empty document")
	ErrSessionNotFound = errors.New("chat session not found")
	ErrNotOwner        = errors.New("chat session belongs to another user")
)

// Failure stages recorded on IngestError and AskError.
const (
	CauseEmbedding  = "embedding"
	CauseIndexing   = "indexing"
	CauseRetrieval  = "retrieval"
	CauseGeneration = "generation"
)

// IngestError wraps a failure downstream of successful text extraction.
type IngestError struct {
	Cause string
	Err   error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest failed at %s: %v", e.Cause, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }

// AskError wraps a failure anywhere in the question-answering pipeline.
type AskError struct {
	Cause string
	Err   error
}

func (e *AskError) Error() string {
	return fmt.Sprintf("ask failed at %s: %v", e.Cause, e.Err)
}

func (e *AskError) Unwrap() error { return e.Err }

// SessionStore persists chat sessions.
type SessionStore interface {
	Create(session *model.ChatSession) error
	GetByID(id uint) (*model.ChatSession, error)
	ListByUserID(userID uint) ([]model.ChatSession, error)
	DeleteByID(id uint) error
}

// TranscriptStore reads and deletes persisted transcript turns. Appends go
// through the AsyncMessagePublisher instead.
type TranscriptStore interface {
	ListBySessionID(sessionID uint, limit int) ([]model.Message, error)
	DeleteBySessionID(sessionID uint) error
}

// VectorIndex is the namespace-partitioned similarity store.
type VectorIndex interface {
	Upsert(ctx context.Context, namespace string, texts []string, vectors [][]float32) error
	Query(ctx context.Context, namespace string, vector []float32, k int) ([]vectorindex.Hit, error)
	DeleteNamespace(ctx context.Context, namespace string) error
}

type AsyncMessagePublisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID uint) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, sessionID uint, messages []model.Message) error
	DeleteHistory(ctx context.Context, sessionID uint) error
	MarkDirty(ctx context.Context, sessionID uint) error
	IsDirty(ctx context.Context, sessionID uint) (bool, error)
}

// ChatService runs the two document QA pipelines: ingestion (PDF to an
// isolated, queryable namespace plus a session record) and ask (question to
// a grounded answer plus a transcript pair).
type ChatService struct {
	sessions     SessionStore
	transcripts  TranscriptStore
	index        VectorIndex
	publisher    AsyncMessagePublisher
	historyCache HistoryCache
	llmClient    *ai.OpenAICompatibleClient
	embConfig    ai.EmbeddingConfig
	chatConfig   ai.ChatConfig
	splitter     textsplit.Splitter
	topK         int

	// extract is swappable so pipeline tests do not need real PDF bytes.
	extract func(io.Reader) (string, error)
}

func NewChatService(
	sessions SessionStore,
	transcripts TranscriptStore,
	index VectorIndex,
	publisher AsyncMessagePublisher,
	historyCache HistoryCache,
	llmClient *ai.OpenAICompatibleClient,
	embConfig ai.EmbeddingConfig,
	chatConfig ai.ChatConfig,
) *ChatService {
	return &ChatService{
		sessions:     sessions,
		transcripts:  transcripts,
		index:        index,
		publisher:    publisher,
		historyCache: historyCache,
		llmClient:    llmClient,
		embConfig:    embConfig,
		chatConfig:   chatConfig,
		splitter:     textsplit.New(defaultChunkSize, defaultChunkOverlap, chunkSeparator),
		topK:         defaultTopK,
		extract:      pdfextract.ExtractText,
	}
}

// IngestInput is one uploaded document.
type IngestInput struct {
	UserID   uint
	FileName string
	Document io.Reader
}

// Ingest turns an uploaded PDF into a queryable chat session: extract,
// chunk, embed, index under a fresh namespace, then create the session
// record. The session is created only after indexing succeeds, so a failure
// at any earlier step leaves nothing visible to the user; vectors already
// written under the never-referenced namespace are the accepted orphan.
func (s *ChatService) Ingest(ctx context.Context, input IngestInput) (*model.ChatSession, error) {
	if input.UserID == 0 || input.Document == nil {
		return nil, ErrInvalidInput
	}
	name := strings.TrimSpace(input.FileName)
	if name == "" || strings.ToLower(filepath.Ext(name)) != ".pdf" {
		return nil, ErrInvalidDocument
	}

	// An empty upload is a bad request, not an extraction failure.
	doc := bufio.NewReader(input.Document)
	if _, err := doc.Peek(1); err != nil {
		return nil, ErrInvalidDocument
	}

	// Extraction errors are user-facing and pass through unchanged so the
	// caller can tell a broken file from a scanned one.
	text, err := s.extract(doc)
	if err != nil {
		return nil, err
	}

	// Random suffix instead of a uniqueness check: the collision odds are
	// negligible and the namespace is never reused after deletion.
	namespace := fmt.Sprintf("user_%d_%s", input.UserID, uuid.NewString()[:8])

	// Whitespace-only chunks (long blank-line runs, blank-page artifacts)
	// have nothing to embed and would desync chunks from vectors.
	var chunks []string
	for _, chunk := range s.splitter.Chunks(text) {
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
	}
	if len(chunks) == 0 {
		return nil, ErrInvalidDocument
	}

	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += embeddingBatchSize {
		end := start + embeddingBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		batchVectors, err := s.llmClient.EmbedBatch(ctx, s.embConfig, batch)
		if err != nil {
			return nil, &IngestError{Cause: CauseEmbedding, Err: err}
		}
		if len(batchVectors) != len(batch) {
			return nil, &IngestError{Cause: CauseEmbedding, Err: fmt.Errorf("got %d embeddings for %d chunks", len(batchVectors), len(batch))}
		}
		vectors = append(vectors, batchVectors...)
	}

	// One upsert per document, so point ordinals are document-global.
	if err := s.index.Upsert(ctx, namespace, chunks, vectors); err != nil {
		return nil, &IngestError{Cause: CauseIndexing, Err: err}
	}

	session := &model.ChatSession{
		UserID:       input.UserID,
		DocumentName: name,
		NamespaceID:  namespace,
	}
	if err := s.sessions.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

// AskInput is one question against an existing session.
type AskInput struct {
	UserID    uint
	SessionID uint
	Question  string
}

// Ask answers a question from the session's indexed chunks and appends the
// (user, assistant) turn pair to the transcript. A transcript append
// failure after a successful generation is logged and swallowed: the caller
// still gets the answer.
func (s *ChatService) Ask(ctx context.Context, input AskInput) (string, error) {
	if input.UserID == 0 || input.SessionID == 0 {
		return "", ErrInvalidInput
	}
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return "", ErrInvalidInput
	}

	// Ownership is checked before any retrieval or generation work.
	session, err := s.authorize(input.UserID, input.SessionID)
	if err != nil {
		return "", err
	}

	queryVector, err := s.llmClient.Embed(ctx, s.embConfig, question)
	if err != nil {
		return "", &AskError{Cause: CauseEmbedding, Err: err}
	}

	hits, err := s.index.Query(ctx, session.NamespaceID, queryVector, s.topK)
	if err != nil {
		return "", &AskError{Cause: CauseRetrieval, Err: err}
	}

	contextTexts := make([]string, len(hits))
	for i, hit := range hits {
		contextTexts[i] = hit.Text
	}
	contextBlock := strings.Join(contextTexts, "\n\n")

	messages := []ai.ChatMessage{
		{
			Role:    "system",
			Content: "You are a helpful assistant. Answer the user's question based only on the provided context from their document. If the context does not contain the answer, say so instead of guessing.",
		},
		{
			Role:    "user",
			Content: "Context:\n" + contextBlock + "\n\nQuestion: " + question + "\n\nAnswer:",
		},
	}

	answer, err := s.llmClient.Complete(ctx, s.chatConfig, messages)
	if err != nil {
		return "", &AskError{Cause: CauseGeneration, Err: err}
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = "The model returned an empty response."
	}

	s.appendTurns(ctx, session, question, answer)
	return answer, nil
}

// appendTurns publishes the user and assistant turns, in that order, for
// async persistence. Failures only degrade history logging, so they are
// logged, not returned.
func (s *ChatService) appendTurns(ctx context.Context, session *model.ChatSession, question, answer string) {
	if s.publisher == nil {
		return
	}
	if s.historyCache != nil {
		_ = s.historyCache.MarkDirty(ctx, session.ID)
		_ = s.historyCache.DeleteHistory(ctx, session.ID)
	}

	now := time.Now()
	userTurn := model.Message{
		SessionID: session.ID,
		UserID:    session.UserID,
		Role:      model.RoleUser,
		Content:   question,
		CreatedAt: now,
	}
	if err := s.publisher.Publish(ctx, userTurn); err != nil {
		log.Printf("append user turn failed for session %d: %v", session.ID, err)
		// Without the user turn the assistant turn would break the pair
		// ordering, so it is dropped too.
		return
	}

	assistantTurn := model.Message{
		SessionID: session.ID,
		UserID:    session.UserID,
		Role:      model.RoleAssistant,
		Content:   answer,
		CreatedAt: now,
	}
	if err := s.publisher.Publish(ctx, assistantTurn); err != nil {
		log.Printf("append assistant turn failed for session %d: %v", session.ID, err)
	}
}

// GetHistory returns the transcript in insertion order, serving from the
// cache when it is present and clean.
func (s *ChatService) GetHistory(ctx context.Context, userID, sessionID uint, limit int) ([]model.Message, error) {
	if userID == 0 || sessionID == 0 {
		return nil, ErrInvalidInput
	}
	if _, err := s.authorize(userID, sessionID); err != nil {
		return nil, err
	}

	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, sessionID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, sessionID); cacheErr == nil && hit {
				return trimMessages(cached, limit), nil
			}
		}
	}

	messages, err := s.transcripts.ListBySessionID(sessionID, limit)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, sessionID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, sessionID, messages)
		}
	}
	return messages, nil
}

// ListSessions returns the user's sessions, newest first.
func (s *ChatService) ListSessions(userID uint) ([]model.ChatSession, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.sessions.ListByUserID(userID)
}

// DeleteSession removes the session, its transcript, and its namespace.
// Namespace deletion is best-effort: an orphaned namespace costs storage
// but can never be reached again once the session record is gone.
func (s *ChatService) DeleteSession(ctx context.Context, userID, sessionID uint) error {
	if userID == 0 || sessionID == 0 {
		return ErrInvalidInput
	}
	session, err := s.authorize(userID, sessionID)
	if err != nil {
		return err
	}

	if err := s.index.DeleteNamespace(ctx, session.NamespaceID); err != nil {
		log.Printf("delete namespace %s failed (continuing): %v", session.NamespaceID, err)
	}
	if err := s.transcripts.DeleteBySessionID(sessionID); err != nil {
		return err
	}
	if err := s.sessions.DeleteByID(sessionID); err != nil {
		return err
	}
	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(ctx, sessionID)
	}
	return nil
}

func (s *ChatService) authorize(userID, sessionID uint) (*model.ChatSession, error) {
	session, err := s.sessions.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.UserID != userID {
		return nil, ErrNotOwner
	}
	return session, nil
}

func trimMessages(messages []model.Message, limit int) []model.Message {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[len(messages)-limit:]
}
