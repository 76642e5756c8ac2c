package prompt

import (
	"strings"
	"testing"

	"github.com/hyperjump/hanashi/internal/models"
)

func TestBuilder_Build_noHistory(t *testing.T) {
	b := NewBuilder("Be helpful.")
	got := b.Build(nil, nil, "  what is Go?  ")
	want := "Be helpful.\n\nHistory of conversation so far:\n(none)\n\nUser: what is Go?\n"
	if got != want {
		t.Errorf("Build() =\n%q\nwant\n%q", got, want)
	}
}

func TestBuilder_Build_historyInOrder(t *testing.T) {
	b := NewBuilder("P")
	history := []*models.Message{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "hello!"},
	}
	got := b.Build(history, nil, "again")
	if !strings.Contains(got, "User: hi\nAssistant: hello!\n\nUser: again\n") {
		t.Errorf("history not rendered in order:\n%s", got)
	}
	if strings.Contains(got, "(none)") {
		t.Error("(none) should not appear when history exists")
	}
}

func TestBuilder_Build_context(t *testing.T) {
	b := NewBuilder("")
	hits := []*models.KnowledgeHit{
		{Title: "guide.md", Snippet: "line one\nline two"},
		{Snippet: "untitled"},
	}
	got := b.Build(nil, hits, "q")
	if strings.HasPrefix(got, "\n") {
		t.Error("empty preamble should not leave a blank first line")
	}
	if !strings.Contains(got, "Relevant context:\n[1] (guide.md) line one line two\n[2] untitled\n") {
		t.Errorf("context block wrong:\n%s", got)
	}
	if strings.Index(got, "Relevant context") > strings.Index(got, "History of conversation") {
		t.Error("context should precede history")
	}
}
