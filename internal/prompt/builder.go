// Package prompt renders the text sent to the generator.
package prompt

import (
	"fmt"
	"strings"

	"github.com/hyperjump/hanashi/internal/models"
)

// Builder renders prompts from a fixed preamble, retrieved context, history and the query.
type Builder struct {
	preamble string
}

// NewBuilder returns a Builder using preamble as the opening instruction.
func NewBuilder(preamble string) *Builder {
	return &Builder{preamble: strings.TrimSpace(preamble)}
}

// Build renders the full prompt. history must be oldest first.
func (b *Builder) Build(history []*models.Message, hits []*models.KnowledgeHit, query string) string {
	var sb strings.Builder
	if b.preamble != "" {
		sb.WriteString(b.preamble)
		sb.WriteString("\n\n")
	}

	if len(hits) > 0 {
		sb.WriteString("Relevant context:\n")
		for i, h := range hits {
			snippet := oneLine(h.Snippet)
			if h.Title != "" {
				fmt.Fprintf(&sb, "[%d] (%s) %s\n", i+1, h.Title, snippet)
			} else {
				fmt.Fprintf(&sb, "[%d] %s\n", i+1, snippet)
			}
		}
		sb.WriteString("\n")
	}

	sb.WriteString("History of conversation so far:\n")
	if len(history) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, m := range history {
		fmt.Fprintf(&sb, "%s: %s\n", speaker(m.Role), m.Content)
	}

	sb.WriteString("\nUser: ")
	sb.WriteString(strings.TrimSpace(query))
	sb.WriteString("\n")
	return sb.String()
}

func speaker(r models.Role) string {
	if r == models.RoleAssistant {
		return "Assistant"
	}
	return "User"
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
