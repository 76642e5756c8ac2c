package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/hanashi/internal/models"
	"github.com/hyperjump/hanashi/pkg/utils"
)

// OutputFormat selects how results are printed.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputJSON:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteStatus writes server status.
func WriteStatus(w io.Writer, st *models.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "sessions:           %d   # conversations in memory\n", st.Sessions)
	fmt.Fprintf(w, "messages:           %d   # stored user and assistant messages\n", st.Messages)
	fmt.Fprintf(w, "documents:          %d   # knowledge documents\n", st.Documents)
	fmt.Fprintf(w, "chunks:             %d   # knowledge chunks\n", st.Chunks)
	fmt.Fprintf(w, "vector_index_size:  %d   # vectors in semantic index\n", st.VectorIndexSize)
	if st.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # storage + indices on disk\n", *st.DiskUsageBytes)
	}
	fmt.Fprintf(w, "uptime_seconds:     %d\n", st.UptimeSeconds)
	if c := st.Config; c != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		fmt.Fprintf(w, "llm_provider:       %s\n", c.LLMProvider)
		fmt.Fprintf(w, "model:              %s\n", c.Model)
		fmt.Fprintf(w, "max_turns:          %d\n", c.MaxTurns)
		fmt.Fprintf(w, "knowledge_enabled:  %t\n", c.KnowledgeEnabled)
		if c.EmbeddingProvider != "" {
			fmt.Fprintf(w, "embedding_provider: %s\n", c.EmbeddingProvider)
		}
		if c.EmbeddingDimensions > 0 {
			fmt.Fprintf(w, "embedding_dims:     %d\n", c.EmbeddingDimensions)
		}
		if c.ChunkSize > 0 {
			fmt.Fprintf(w, "chunk_size:         %d\n", c.ChunkSize)
			fmt.Fprintf(w, "chunk_overlap:      %d\n", c.ChunkOverlap)
		}
		if c.DatabasePath != "" {
			fmt.Fprintf(w, "database_path:      %s\n", c.DatabasePath)
		}
		if c.BleveIndexPath != "" {
			fmt.Fprintf(w, "bleve_index_path:   %s\n", c.BleveIndexPath)
		}
		if c.VectorIndexPath != "" {
			fmt.Fprintf(w, "vector_index_path:  %s\n", c.VectorIndexPath)
		}
	}
	return nil
}

// WriteHistory writes a session's conversation.
func WriteHistory(w io.Writer, sessionID string, msgs []*models.Message, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"session_id": sessionID, "messages": msgs})
	}
	if len(msgs) == 0 {
		fmt.Fprintf(w, "Session %q has no messages.\n", sessionID)
		return nil
	}
	fmt.Fprintf(w, "Session %s (%d messages)\n\n", sessionID, len(msgs))
	for _, m := range msgs {
		speaker := "User"
		if m.Role == models.RoleAssistant {
			speaker = "Assistant"
		}
		fmt.Fprintf(w, "[%s] %s: %s\n", m.CreatedAt.Local().Format("2006-01-02 15:04:05"), speaker, m.Content)
	}
	return nil
}

// WriteSessions writes a session listing.
func WriteSessions(w io.Writer, sessions []*models.Session, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"sessions": sessions})
	}
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions.")
		return nil
	}
	for _, s := range sessions {
		fmt.Fprintf(w, "%-24s %4d messages   last active %s\n",
			s.ID, s.MessageCount, s.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

// WriteHits writes knowledge search results.
func WriteHits(w io.Writer, query string, hits []*models.KnowledgeHit, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"query": query, "hits": hits})
	}
	fmt.Fprintf(w, "\nFound %d results\n\n", len(hits))
	for i, h := range hits {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f (Keyword: %.4f, Semantic: %.4f)\n",
			i+1, h.Score, h.KeywordScore, h.SemanticScore)
		fmt.Fprintf(w, "ID: %s\n", h.DocumentID)
		if h.Title != "" {
			fmt.Fprintf(w, "Title: %s\n", h.Title)
		}
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(h.Snippet, 200))
	}
	return nil
}

// ChunkPrinter prints streamed chunks on one line, separated by spaces.
type ChunkPrinter struct {
	w     io.Writer
	wrote bool
}

// NewChunkPrinter returns a printer writing to w.
func NewChunkPrinter(w io.Writer) *ChunkPrinter {
	return &ChunkPrinter{w: w}
}

// Print writes one chunk.
func (p *ChunkPrinter) Print(chunk string) {
	if p.wrote {
		fmt.Fprint(p.w, " ")
	}
	fmt.Fprint(p.w, chunk)
	p.wrote = true
}

// End terminates the line if anything was printed.
func (p *ChunkPrinter) End() {
	if p.wrote {
		fmt.Fprintln(p.w)
	}
}
