package model

import (
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		rec     Record
		wantErr bool
	}{
		{"valid", Record{ID: "t1", UpdatedAt: now, Version: 1}, false},
		{"missing id", Record{UpdatedAt: now, Version: 1}, true},
		{"zero updated_at", Record{ID: "t1", Version: 1}, true},
		{"zero version", Record{ID: "t1", UpdatedAt: now}, true},
		{"negative version", Record{ID: "t1", UpdatedAt: now, Version: -2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEqualStateIgnoresEnvelopeBookkeeping(t *testing.T) {
	now := time.Now()
	a := Record{ID: "t1", UpdatedAt: now, Version: 3, Fields: []byte(`{"content":"x"}`)}
	b := Record{ID: "t1", UpdatedAt: now.Add(time.Hour), Version: 9, Fields: []byte(`{"content":"x"}`)}

	if !a.EqualState(&b) {
		t.Error("records differing only in version and updated_at should be equal")
	}
}

func TestEqualStateComparesJSONStructurally(t *testing.T) {
	a := Record{Fields: []byte(`{"content":"x","priority":2}`)}
	b := Record{Fields: []byte(`{ "priority": 2, "content": "x" }`)}
	if !a.EqualState(&b) {
		t.Error("key order and whitespace should not matter")
	}

	c := Record{Fields: []byte(`{"content":"y","priority":2}`)}
	if a.EqualState(&c) {
		t.Error("differing field values should not be equal")
	}
}

func TestEqualStateTombstoneAndProtection(t *testing.T) {
	now := time.Now()
	live := Record{Fields: []byte(`{}`)}
	dead := Record{DeletedAt: &now, Fields: []byte(`{}`)}
	if live.EqualState(&dead) {
		t.Error("tombstone status must be part of the state")
	}

	protected := Record{Protected: true, Fields: []byte(`{}`)}
	if live.EqualState(&protected) {
		t.Error("protection must be part of the state")
	}
}

func TestCollectionsOrderParentsFirst(t *testing.T) {
	order := map[Collection]int{}
	for i, c := range Collections() {
		order[c] = i
	}

	if len(order) != 8 {
		t.Fatalf("expected 8 distinct collections, got %d", len(order))
	}
	if order[Projects] >= order[Tasks] {
		t.Error("projects must sync before tasks")
	}
	if order[Projects] >= order[Sections] {
		t.Error("projects must sync before sections")
	}
	if order[Tasks] >= order[Reminders] {
		t.Error("tasks must sync before reminders")
	}
}

func TestCollectionValid(t *testing.T) {
	if !Tasks.Valid() {
		t.Error("tasks should be valid")
	}
	if Collection("widgets").Valid() {
		t.Error("unknown collection should be invalid")
	}
	if Collection("").Valid() {
		t.Error("empty collection should be invalid")
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	due := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	task := Task{
		Content:   "water the plants",
		ProjectID: "inbox",
		DueDate:   &due,
		Priority:  3,
		Labels:    []string{"home", "recurring"},
	}

	fields, err := MarshalFields(task)
	if err != nil {
		t.Fatalf("MarshalFields failed: %v", err)
	}

	rec := Record{ID: "t1", Fields: fields}
	var got Task
	if err := UnmarshalFields(&rec, &got); err != nil {
		t.Fatalf("UnmarshalFields failed: %v", err)
	}

	if got.Content != task.Content || got.Priority != task.Priority {
		t.Errorf("round-trip changed the task: %+v", got)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Errorf("due date = %v, want %v", got.DueDate, due)
	}
	if len(got.Labels) != 2 {
		t.Errorf("labels = %v", got.Labels)
	}
}
