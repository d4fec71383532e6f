package hook

import (
	"encoding/json"
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/fotescodev/claude-watch/internal/model"
)

func parse(t *testing.T, input string) *Event {
	t.Helper()
	e, err := ParseEvent(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	return e
}

func TestNeedsApproval(t *testing.T) {
	for _, tool := range []string{"Bash", "Edit", "Write", "MultiEdit", "NotebookEdit"} {
		if !NeedsApproval(tool) {
			t.Errorf("NeedsApproval(%q) = false", tool)
		}
	}
	for _, tool := range []string{"Read", "Glob", "AskUserQuestion", ""} {
		if NeedsApproval(tool) {
			t.Errorf("NeedsApproval(%q) = true", tool)
		}
	}
}

func TestApprovalRequestTitles(t *testing.T) {
	tests := []struct {
		name      string
		event     string
		wantTitle string
		wantDesc  string
	}{
		{
			name:      "bash first line truncated",
			event:     `{"tool_name":"Bash","tool_input":{"command":"echo aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa\nsecond"}}`,
			wantTitle: "Run: echo aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		},
		{
			name:      "edit uses filename",
			event:     `{"tool_name":"Edit","tool_input":{"file_path":"/src/pkg/main.go","old_string":"a","new_string":"b"}}`,
			wantTitle: "Edit: main.go",
			wantDesc:  `"a" -> "b"`,
		},
		{
			name:      "write is create",
			event:     `{"tool_name":"Write","tool_input":{"file_path":"/tmp/new.txt","content":"hello"}}`,
			wantTitle: "Create: new.txt",
			wantDesc:  "Write 5 characters",
		},
		{
			name:      "multiedit counts edits",
			event:     `{"tool_name":"MultiEdit","tool_input":{"file_path":"/a/b.go","edits":[{"old_string":"x","new_string":"y"},{"old_string":"p","new_string":"q"}]}}`,
			wantTitle: "Edit: b.go",
			wantDesc:  "2 edits",
		},
		{
			name:      "notebook edit uses notebook path",
			event:     `{"tool_name":"NotebookEdit","tool_input":{"notebook_path":"/n/analysis.ipynb"}}`,
			wantTitle: "Edit: analysis.ipynb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := parse(t, tt.event)
			r, err := e.ApprovalRequest()
			if err != nil {
				t.Fatalf("ApprovalRequest: %v", err)
			}
			if r.Kind != model.KindApproval {
				t.Errorf("kind = %q", r.Kind)
			}
			if r.Title != tt.wantTitle {
				t.Errorf("title = %q, want %q", r.Title, tt.wantTitle)
			}
			if tt.wantDesc != "" && r.Description != tt.wantDesc {
				t.Errorf("description = %q, want %q", r.Description, tt.wantDesc)
			}
		})
	}
}

func TestBashTitleTruncatesOnRuneBoundary(t *testing.T) {
	cmd := "echo " + strings.Repeat("é", 50)
	e := parse(t, `{"tool_name":"Bash","tool_input":{"command":`+strconv.Quote(cmd)+`}}`)
	r, err := e.ApprovalRequest()
	if err != nil {
		t.Fatalf("ApprovalRequest: %v", err)
	}
	want := "Run: echo " + strings.Repeat("é", 35)
	if r.Title != want {
		t.Errorf("title = %q, want %q", r.Title, want)
	}
	if !utf8.ValidString(r.Title) {
		t.Errorf("title is not valid UTF-8: %q", r.Title)
	}
}

func TestExtractQuestionRecommendedMarker(t *testing.T) {
	e := parse(t, `{"tool_name":"AskUserQuestion","tool_input":{"questions":[{
		"question":"Which storage backend?",
		"header":"storage",
		"options":[
			{"label":"SQLite"},
			{"label":"Postgres (Recommended)","description":"managed"},
			{"label":"Files"}
		]}]}}`)

	q, err := e.ExtractQuestion()
	if err != nil {
		t.Fatalf("ExtractQuestion: %v", err)
	}
	if q == nil {
		t.Fatal("no question extracted")
	}
	if q.Header != "storage" {
		t.Errorf("header = %q", q.Header)
	}
	if q.Request.Recommended != 1 {
		t.Errorf("recommended = %d, want 1", q.Request.Recommended)
	}
	if q.Request.Options[1].Label != "Postgres" {
		t.Errorf("marker not stripped: %q", q.Request.Options[1].Label)
	}
	if q.Request.Kind != model.KindQuestion {
		t.Errorf("kind = %q", q.Request.Kind)
	}
}

func TestExtractQuestionDefaultsToFirstOption(t *testing.T) {
	e := parse(t, `{"tool_name":"AskUserQuestion","tool_input":{"questions":[{
		"question":"Proceed?",
		"options":[{"label":"Yes"},{"label":"No"}]}]}}`)

	q, err := e.ExtractQuestion()
	if err != nil {
		t.Fatalf("ExtractQuestion: %v", err)
	}
	if q.Request.Recommended != 0 {
		t.Errorf("recommended = %d, want 0", q.Request.Recommended)
	}
	if q.Header != "question" {
		t.Errorf("header = %q, want default", q.Header)
	}
}

func TestExtractQuestionIgnoresOtherTools(t *testing.T) {
	e := parse(t, `{"tool_name":"Bash","tool_input":{"command":"ls"}}`)
	q, err := e.ExtractQuestion()
	if err != nil || q != nil {
		t.Errorf("got %+v, %v; want nil, nil", q, err)
	}
}

func TestExtractQuestionEmptyOptions(t *testing.T) {
	e := parse(t, `{"tool_name":"AskUserQuestion","tool_input":{"questions":[{"question":"Free text?","options":[]}]}}`)
	q, err := e.ExtractQuestion()
	if err != nil {
		t.Fatalf("ExtractQuestion: %v", err)
	}
	if q != nil {
		t.Errorf("expected nil for option-less question, got %+v", q)
	}
}

func TestAllowOutputShape(t *testing.T) {
	var out struct {
		HookSpecificOutput struct {
			HookEventName      string `json:"hookEventName"`
			PermissionDecision string `json:"permissionDecision"`
		} `json:"hookSpecificOutput"`
	}
	if err := json.Unmarshal(AllowOutput(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.HookSpecificOutput.HookEventName != "PreToolUse" || out.HookSpecificOutput.PermissionDecision != "allow" {
		t.Errorf("output = %+v", out)
	}
}

func TestAnswerOutputShape(t *testing.T) {
	var out struct {
		HookSpecificOutput struct {
			Answers map[string]string `json:"answers"`
		} `json:"hookSpecificOutput"`
	}
	if err := json.Unmarshal(AnswerOutput("storage", "Postgres"), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.HookSpecificOutput.Answers["storage"] != "Postgres" {
		t.Errorf("answers = %v", out.HookSpecificOutput.Answers)
	}
}
