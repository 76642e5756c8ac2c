package assistant

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/hanashi/internal/llm"
	"github.com/hyperjump/hanashi/internal/memory"
	"github.com/hyperjump/hanashi/internal/models"
	"github.com/hyperjump/hanashi/internal/prompt"
	"github.com/hyperjump/hanashi/internal/storage"
)

// scriptedGenerator records prompts and returns a fixed answer or error.
type scriptedGenerator struct {
	answer  string
	err     error
	prompts []string
}

func (g *scriptedGenerator) Generate(ctx context.Context, p string) (string, error) {
	g.prompts = append(g.prompts, p)
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

func (g *scriptedGenerator) Model() string { return "scripted" }
func (g *scriptedGenerator) Close() error  { return nil }

type stubRetriever struct {
	hits []*models.KnowledgeHit
	err  error
	k    int
}

func (r *stubRetriever) Retrieve(ctx context.Context, query string, k int) ([]*models.KnowledgeHit, error) {
	r.k = k
	return r.hits, r.err
}

func newStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "hanashi.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newService(t *testing.T, gen llm.Generator, maxTurns int, opts ...Option) (*Service, *storage.SQLiteStorage) {
	t.Helper()
	store := newStore(t)
	svc := NewService(store, memory.New(store, maxTurns), gen, prompt.NewBuilder("You are a helpful assistant."), opts...)
	return svc, store
}

func TestService_GenerateSavesMemory(t *testing.T) {
	svc, store := newService(t, llm.NewEchoGenerator(), 0)
	ctx := context.Background()

	reply, err := svc.Generate(ctx, &models.GenerateRequest{Query: "hello there friend"})
	require.NoError(t, err)
	assert.Equal(t, "default", reply.SessionID)
	assert.Equal(t, "You said: hello there friend", reply.Answer)
	assert.Equal(t, "echo", reply.Model)
	assert.Equal(t, reply.Answer, strings.Join(reply.Chunks, " "))

	msgs, err := store.ListMessages(ctx, "default", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.Equal(t, "hello there friend", msgs[0].Content)
	assert.Equal(t, models.RoleAssistant, msgs[1].Role)
	assert.Equal(t, reply.Answer, msgs[1].Content)
}

func TestService_PromptCarriesHistory(t *testing.T) {
	gen := &scriptedGenerator{answer: "Paris is the capital of France."}
	svc, _ := newService(t, gen, 0)
	ctx := context.Background()

	_, err := svc.Generate(ctx, &models.GenerateRequest{Query: "capital of France?", SessionID: "s1"})
	require.NoError(t, err)
	_, err = svc.Generate(ctx, &models.GenerateRequest{Query: "and its population?", SessionID: "s1"})
	require.NoError(t, err)

	require.Len(t, gen.prompts, 2)
	assert.Contains(t, gen.prompts[0], "History of conversation so far:\n(none)\n")
	assert.Contains(t, gen.prompts[1], "User: capital of France?\nAssistant: Paris is the capital of France.\n")
	assert.True(t, strings.HasSuffix(gen.prompts[1], "User: and its population?\n"))

	// other sessions do not see s1
	_, err = svc.Generate(ctx, &models.GenerateRequest{Query: "hi", SessionID: "s2"})
	require.NoError(t, err)
	assert.NotContains(t, gen.prompts[2], "France")
}

func TestService_MemoryWindow(t *testing.T) {
	gen := &scriptedGenerator{answer: "ok"}
	svc, _ := newService(t, gen, 1)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Generate(ctx, &models.GenerateRequest{Query: fmt.Sprintf("question %d", i)})
		require.NoError(t, err)
	}
	last := gen.prompts[2]
	assert.Contains(t, last, "User: question 1\n")
	assert.NotContains(t, last, "question 0")
}

func TestService_EmptyQuery(t *testing.T) {
	gen := &scriptedGenerator{answer: "unused"}
	svc, store := newService(t, gen, 0)

	_, err := svc.Generate(context.Background(), &models.GenerateRequest{Query: "   "})
	assert.ErrorIs(t, err, models.ErrEmptyQuery)
	assert.Empty(t, gen.prompts)

	st, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, st.Messages)
}

func TestService_GenerationFailureSkipsMemory(t *testing.T) {
	tests := []struct {
		name string
		gen  *scriptedGenerator
	}{
		{"model error", &scriptedGenerator{err: fmt.Errorf("%w: quota exceeded", llm.ErrGeneration)}},
		{"empty answer", &scriptedGenerator{answer: "  \n"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newService(t, tt.gen, 0)
			_, err := svc.Generate(context.Background(), &models.GenerateRequest{Query: "hi"})
			assert.ErrorIs(t, err, llm.ErrGeneration)

			st, err := store.Stats(context.Background())
			require.NoError(t, err)
			assert.Zero(t, st.Messages)
		})
	}
}

func TestService_Retrieval(t *testing.T) {
	gen := &scriptedGenerator{answer: "Use WAL."}
	r := &stubRetriever{hits: []*models.KnowledgeHit{{DocumentID: "d1", Title: "sqlite.md", Snippet: "enable the write ahead log", Score: 0.9}}}
	svc, _ := newService(t, gen, 0, WithRetriever(r, 4))

	reply, err := svc.Generate(context.Background(), &models.GenerateRequest{Query: "how to make sqlite concurrent?"})
	require.NoError(t, err)
	assert.Equal(t, 4, r.k)
	require.Len(t, reply.Context, 1)
	assert.Contains(t, gen.prompts[0], "Relevant context:\n[1] (sqlite.md) enable the write ahead log\n")
}

func TestService_RetrievalFailureIsNotFatal(t *testing.T) {
	gen := &scriptedGenerator{answer: "still answering"}
	r := &stubRetriever{err: errors.New("index offline")}
	svc, _ := newService(t, gen, 0, WithRetriever(r, 3))

	reply, err := svc.Generate(context.Background(), &models.GenerateRequest{Query: "anything"})
	require.NoError(t, err)
	assert.Equal(t, "still answering", reply.Answer)
	assert.Empty(t, reply.Context)
	assert.NotContains(t, gen.prompts[0], "Relevant context")
}

func TestService_ChunkChars(t *testing.T) {
	gen := &scriptedGenerator{answer: "one two three four five six seven eight nine ten"}
	svc, _ := newService(t, gen, 0, WithChunkChars(5))

	reply, err := svc.Generate(context.Background(), &models.GenerateRequest{Query: "count"})
	require.NoError(t, err)
	assert.Greater(t, len(reply.Chunks), 2)
	assert.Equal(t, gen.answer, strings.Join(reply.Chunks, " "))
}

func TestService_HistoryAndReset(t *testing.T) {
	svc, _ := newService(t, llm.NewEchoGenerator(), 0, WithDefaultSession("main"))
	ctx := context.Background()
	assert.Equal(t, "main", svc.DefaultSession())

	_, err := svc.History(ctx, "")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = svc.Generate(ctx, &models.GenerateRequest{Query: "first"})
	require.NoError(t, err)

	msgs, err := svc.History(ctx, "")
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	sessions, err := svc.Sessions(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "main", sessions[0].ID)
	assert.Equal(t, 2, sessions[0].MessageCount)

	require.NoError(t, svc.Reset(ctx, "main"))
	assert.ErrorIs(t, svc.Reset(ctx, "main"), storage.ErrNotFound)
	_, err = svc.History(ctx, "main")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestService_ContextCancelled(t *testing.T) {
	svc, store := newService(t, llm.NewEchoGenerator(), 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Generate(ctx, &models.GenerateRequest{Query: "hi"})
	assert.Error(t, err)
	st, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, st.Messages)
}
