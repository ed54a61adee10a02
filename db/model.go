package db

import "time"

// ===========================
// PROJECT-SCOPED MODELS
// ===========================

// Bug is a defect report inside a project. CreatorID is always stamped from
// the acting identity by the guard layer, never taken from the client.
type Bug struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	CreatorID   string    `json:"creator_id"`
	Name        string    `json:"name"`
	State       string    `json:"state"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created"`

	// Populated on reads that join the assignee set
	AssigneeIDs []string `json:"assignee_ids,omitempty"`
}

// Task is a unit of work inside a project.
type Task struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// Meeting is a scheduled gathering inside a project.
type Meeting struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Date      time.Time `json:"date"`
	Subject   string    `json:"subject"`
	Place     string    `json:"place,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Step is a milestone inside a project.
type Step struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Date      time.Time `json:"date"`
	Name      string    `json:"name"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// ===========================
// MESSAGING MODELS
// ===========================

// Thread is a conversation started by an account. Accounts join a thread
// through an explicit membership link.
type Thread struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is a post by an account inside a thread.
type Message struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	ThreadID  string    `json:"thread_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
