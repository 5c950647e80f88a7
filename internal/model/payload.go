package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Task is the domain payload for the tasks collection.
type Task struct {
	Content     string     `json:"content"`
	Description string     `json:"description,omitempty"`
	ProjectID   string     `json:"project_id,omitempty"`
	SectionID   string     `json:"section_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Priority    int        `json:"priority"` // 1 (lowest) to 4 (highest)
	IsCompleted bool       `json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Labels      []string   `json:"labels,omitempty"`
}

// Project is the domain payload for the projects collection. The sentinel
// Inbox project is marked protected on the envelope, not here.
type Project struct {
	Name       string `json:"name"`
	Color      string `json:"color,omitempty"`
	IsFavorite bool   `json:"is_favorite"`
	IsArchived bool   `json:"is_archived"`
}

// Label is the domain payload for the labels collection.
type Label struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Context is the domain payload for the contexts collection (GTD-style
// work contexts such as @home or @office).
type Context struct {
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

// Section is the domain payload for the sections collection.
type Section struct {
	Name      string `json:"name"`
	ProjectID string `json:"project_id"`
	Order     int    `json:"order"`
}

// Reminder is the domain payload for the reminders collection.
type Reminder struct {
	TaskID   string     `json:"task_id"`
	RemindAt *time.Time `json:"remind_at,omitempty"`
	Kind     string     `json:"kind"` // absolute, relative, location
}

// Filter is the domain payload for the filters collection (saved smart
// views).
type Filter struct {
	Name     string         `json:"name"`
	Color    string         `json:"color,omitempty"`
	Criteria FilterCriteria `json:"criteria"`
}

// FilterCriteria mirrors the remote service's saved-filter query shape.
type FilterCriteria struct {
	Priority      []int    `json:"priority,omitempty"`
	ProjectIDs    []string `json:"project_ids,omitempty"`
	LabelIDs      []string `json:"label_ids,omitempty"`
	DueWithinDays *int     `json:"due_within_days,omitempty"`
}

// Template is the domain payload for the templates collection.
type Template struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Content     string `json:"content,omitempty"`
}

// MarshalFields encodes a domain payload for storage in Record.Fields.
func MarshalFields(payload any) (json.RawMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return data, nil
}

// UnmarshalFields decodes Record.Fields into the given domain payload.
func UnmarshalFields(r *Record, payload any) error {
	if len(r.Fields) == 0 {
		return fmt.Errorf("record %s has no fields payload", r.ID)
	}
	if err := json.Unmarshal(r.Fields, payload); err != nil {
		return fmt.Errorf("failed to parse fields for record %s: %w", r.ID, err)
	}
	return nil
}
