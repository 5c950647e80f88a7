// Package ui renders CLI output with lipgloss.
package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/todopro/todopro-cli/internal/model"
	"github.com/todopro/todopro-cli/internal/sync"
)

var (
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
	headerStyle = lipgloss.NewStyle().Bold(true)
)

// RenderAccent highlights informational markers.
func RenderAccent(s string) string { return accentStyle.Render(s) }

// RenderPass highlights success markers.
func RenderPass(s string) string { return passStyle.Render(s) }

// RenderWarn highlights warning markers.
func RenderWarn(s string) string { return warnStyle.Render(s) }

// RenderFail highlights failure markers.
func RenderFail(s string) string { return failStyle.Render(s) }

// RenderResult formats the per-collection summary of a sync pass.
func RenderResult(r *sync.Result) string {
	var b strings.Builder

	fmt.Fprintln(&b, headerStyle.Render(fmt.Sprintf("%-12s %8s %8s %8s %10s %7s",
		"collection", "created", "updated", "skipped", "conflicted", "errors")))

	for _, coll := range model.Collections() {
		s := r.Collections[coll]
		line := fmt.Sprintf("%-12s %8d %8d %8d %10d %7d",
			coll, s.Created, s.Updated, s.Skipped, s.Conflicted, s.Errors)
		if s.Conflicted > 0 || s.Errors > 0 {
			line = warnStyle.Render(line)
		}
		fmt.Fprintln(&b, line)
		if err, ok := r.Failed[coll]; ok {
			fmt.Fprintln(&b, failStyle.Render(fmt.Sprintf("  ! %v", err)))
		}
	}

	total := r.Total()
	fmt.Fprintln(&b, dimStyle.Render(fmt.Sprintf("%-12s %8d %8d %8d %10d %7d  (%v)",
		"total", total.Created, total.Updated, total.Skipped, total.Conflicted, total.Errors,
		r.Duration.Round(time.Millisecond))))

	return b.String()
}

// RenderConflicts formats the conflict list for user review.
func RenderConflicts(conflicts []sync.Conflict) string {
	if len(conflicts) == 0 {
		return passStyle.Render("No unresolved conflicts.") + "\n"
	}

	var b strings.Builder
	fmt.Fprintln(&b, headerStyle.Render(fmt.Sprintf("%-12s %-38s %6s %6s  %s",
		"collection", "id", "local", "remote", "detected")))
	for _, c := range conflicts {
		fmt.Fprintln(&b, fmt.Sprintf("%-12s %-38s %6d %6d  %s",
			c.Collection, c.ID, c.LocalVersion, c.RemoteVersion,
			c.DetectedAt.Local().Format("2006-01-02 15:04")))
	}
	fmt.Fprintln(&b, dimStyle.Render(fmt.Sprintf("%d conflict(s). Resolve manually, then run 'todopro conflicts clear'.", len(conflicts))))
	return b.String()
}

// RenderCursors formats the stored sync cursors for 'sync status'.
func RenderCursors(cursors map[string]time.Time) string {
	if len(cursors) == 0 {
		return dimStyle.Render("Never synced.") + "\n"
	}

	keys := make([]string, 0, len(cursors))
	for k := range cursors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintln(&b, headerStyle.Render(fmt.Sprintf("%-24s %s", "collection (direction)", "last sync")))
	for _, k := range keys {
		fmt.Fprintln(&b, fmt.Sprintf("%-24s %s", k, cursors[k].Local().Format(time.RFC3339)))
	}
	return b.String()
}

// RenderTasks formats a task listing.
func RenderTasks(records []model.Record) string {
	if len(records) == 0 {
		return dimStyle.Render("No tasks.") + "\n"
	}

	var b strings.Builder
	fmt.Fprintln(&b, headerStyle.Render(fmt.Sprintf("%-38s %-3s %-10s %s", "id", "pri", "due", "content")))
	for _, rec := range records {
		var task model.Task
		if err := model.UnmarshalFields(&rec, &task); err != nil {
			fmt.Fprintln(&b, warnStyle.Render(fmt.Sprintf("%-38s (unreadable: %v)", rec.ID, err)))
			continue
		}

		due := "-"
		if task.DueDate != nil {
			due = task.DueDate.Local().Format("2006-01-02")
		}
		content := task.Content
		if task.IsCompleted {
			content = dimStyle.Render("✓ " + content)
		}
		fmt.Fprintln(&b, fmt.Sprintf("%-38s %-3d %-10s %s", rec.ID, task.Priority, due, content))
	}
	return b.String()
}
