// Package modelsはTodoとユーザーを定義します。
package models

import (
	"time"
)

// Priority はTodoの優先度です。
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid は優先度が既知の値かどうかを返します。
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Todo はストアに保存されるToDoドキュメントです。
// ID・CreatedAt・UpdatedAt はストア側で採番されます。
type Todo struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"` // 作成後は変更不可
	Text      string     `json:"text"`
	Completed bool       `json:"completed"`
	Priority  Priority   `json:"priority,omitempty"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// TodoInput は作成リクエストを検証済みの形で表します。
type TodoInput struct {
	Text      string
	Completed bool
	Priority  Priority
	DueDate   *time.Time
}

// TodoPatch は更新リクエストを表します。
// nil のフィールドは変更しません。Clear* が true の場合はフィールドを削除します。
type TodoPatch struct {
	Text          *string
	Completed     *bool
	Priority      *Priority
	ClearPriority bool
	DueDate       *time.Time
	ClearDueDate  bool
}

// Apply はパッチを t に適用します。UserID には触れません。
func (p TodoPatch) Apply(t *Todo) {
	if p.Text != nil {
		t.Text = *p.Text
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.ClearPriority {
		t.Priority = ""
	} else if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.ClearDueDate {
		t.DueDate = nil
	} else if p.DueDate != nil {
		due := *p.DueDate
		t.DueDate = &due
	}
}
