package audit

import (
	"encoding/json"
	"time"
)

// DefaultPageSize is the listing size when none is requested.
const DefaultPageSize = 50

// MaxPageSize caps one page.
const MaxPageSize = 200

// TimelineFilters narrows the audit listing. Zero values match everything.
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	UserID   *int64
	Action   string
	Page     int
	PageSize int
}

// Entry is one audit_logs row.
type Entry struct {
	ID        int64           `json:"id"`
	UserID    *int64          `json:"user_id,omitempty"`
	Username  string          `json:"username,omitempty"`
	Action    string          `json:"action"`
	Details   json.RawMessage `json:"details"`
	Timestamp time.Time       `json:"timestamp"`
}

// PagingInfo describes the window around the current page.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"per_page"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result is one page of entries.
type Result struct {
	Entries []Entry    `json:"entries"`
	Paging  PagingInfo `json:"paging"`
}
