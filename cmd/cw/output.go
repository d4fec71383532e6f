package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fotescodev/claude-watch/internal/model"
	"github.com/fotescodev/claude-watch/internal/ui"
)

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func renderStatus(s model.Status) string {
	switch s {
	case model.StatusPending:
		return ui.RenderAccent(s.String())
	case model.StatusApproved, model.StatusAnswered:
		return s.String()
	default:
		return ui.RenderMuted(s.String())
	}
}

func printRequestTable(r *model.Request) {
	fmt.Printf("ID:          %s\n", r.ID)
	fmt.Printf("Pairing:     %s\n", r.PairingID)
	fmt.Printf("Kind:        %s\n", r.Kind)
	fmt.Printf("Title:       %s\n", r.Title)
	fmt.Printf("Status:      %s\n", renderStatus(r.Status))
	if r.Description != "" {
		fmt.Printf("Description: %s\n", r.Description)
	}
	if r.Command != "" {
		fmt.Printf("Command:     %s\n", ui.RenderCommand(r.Command))
	}
	if r.FilePath != "" {
		fmt.Printf("File:        %s\n", r.FilePath)
	}
	for i, opt := range r.Options {
		marker := " "
		if r.Selected != nil && *r.Selected == i {
			marker = "*"
		} else if r.Selected == nil && i == r.Recommended {
			marker = "^"
		}
		line := fmt.Sprintf("  %s [%d] %s", marker, i, opt.Label)
		if opt.Description != "" {
			line += " " + ui.RenderMuted(opt.Description)
		}
		if i == 0 {
			fmt.Printf("Options:\n")
		}
		fmt.Println(line)
	}
	if r.Approved != nil {
		fmt.Printf("Approved:    %t\n", *r.Approved)
	}
	if r.ResolvedBy != "" {
		fmt.Printf("Resolved By: %s\n", r.ResolvedBy)
	}
	if !r.CreatedAt.IsZero() {
		fmt.Printf("Created At:  %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	if r.ResolvedAt != nil {
		fmt.Printf("Resolved At: %s\n", r.ResolvedAt.Format("2006-01-02 15:04:05"))
	}
}

func printRequestListTable(requests []*model.Request) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tKIND\tAGE\tTITLE")
	for _, r := range requests {
		title := r.Title
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.Status,
			r.Kind,
			age(r.CreatedAt),
			title,
		)
	}
	w.Flush()
	fmt.Printf("\n%d requests\n", len(requests))
}

func age(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
}

func printSessionTable(s *model.SessionState) {
	state := "active"
	if !s.Active {
		state = "ended"
	} else if s.Paused() {
		state = "paused"
	}
	fmt.Printf("Pairing:     %s\n", s.PairingID)
	fmt.Printf("State:       %s\n", state)
	if s.SessionID != "" {
		fmt.Printf("Session ID:  %s\n", s.SessionID)
	}
	if !s.UpdatedAt.IsZero() {
		fmt.Printf("Updated At:  %s\n", s.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
