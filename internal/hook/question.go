package hook

import (
	"encoding/json"
	"strings"

	"github.com/fotescodev/claude-watch/internal/model"
)

const recommendedMarker = "(Recommended)"

// questionInput is the AskUserQuestion tool input shape.
type questionInput struct {
	Questions []struct {
		Question string `json:"question"`
		Header   string `json:"header"`
		Options  []struct {
			Label       string `json:"label"`
			Description string `json:"description"`
		} `json:"options"`
	} `json:"questions"`
}

// Question is an extracted single-choice question ready to send.
type Question struct {
	Header  string
	Request *model.Request
}

// ExtractQuestion pulls the first question out of an AskUserQuestion
// event. The recommended option is the one labelled "(Recommended)",
// with the marker stripped for display, or the first option when none
// is marked. Returns nil when the event carries nothing a remote
// device can decide.
func (e *Event) ExtractQuestion() (*Question, error) {
	if e.ToolName != "AskUserQuestion" {
		return nil, nil
	}
	var in questionInput
	if err := json.Unmarshal(e.ToolInput, &in); err != nil {
		return nil, err
	}
	if len(in.Questions) == 0 {
		return nil, nil
	}

	// Only the first question goes remote; multi-question prompts stay
	// in the terminal.
	q := in.Questions[0]
	if q.Question == "" || len(q.Options) == 0 {
		return nil, nil
	}

	recommended := -1
	opts := make([]model.Option, len(q.Options))
	for i, o := range q.Options {
		label := o.Label
		if strings.Contains(label, recommendedMarker) {
			label = strings.TrimSpace(strings.ReplaceAll(label, recommendedMarker, ""))
			if recommended < 0 {
				recommended = i
			}
		}
		opts[i] = model.Option{Label: label, Description: o.Description}
	}
	if recommended < 0 {
		recommended = 0
	}

	header := q.Header
	if header == "" {
		header = "question"
	}
	return &Question{
		Header: header,
		Request: &model.Request{
			Kind:        model.KindQuestion,
			Title:       q.Question,
			Options:     opts,
			Recommended: recommended,
		},
	}, nil
}

// AllowOutput is the JSON verdict permitting a gated tool use.
func AllowOutput() []byte {
	out := map[string]any{
		"hookSpecificOutput": map[string]any{
			"hookEventName":      "PreToolUse",
			"permissionDecision": "allow",
		},
	}
	b, _ := json.Marshal(out)
	return b
}

// AnswerOutput is the JSON verdict answering a question with the
// selected option's label.
func AnswerOutput(header, answer string) []byte {
	out := map[string]any{
		"hookSpecificOutput": map[string]any{
			"hookEventName": "PreToolUse",
			"answers": map[string]string{
				header: answer,
			},
		},
	}
	b, _ := json.Marshal(out)
	return b
}
