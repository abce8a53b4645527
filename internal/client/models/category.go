// Package models defines client-side data models for the category
// synchronization core.
package models

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// Category is a single category within a scope. A negative ID is a sentinel:
// the entity was created locally and is not yet acknowledged by the server.
type Category struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	ScopeID        int64     `json:"scope_id"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	DependentCount int       `json:"dependent_count"`
}

// IsPending reports whether the category still carries a sentinel id.
func (c Category) IsPending() bool { return c.ID < 0 }

// CategoryCreateRequest carries the fields of a new category.
type CategoryCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
}

// CategoryUpdateRequest carries a partial update; nil fields are left as-is.
type CategoryUpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

// ApplyTo merges the update into a copy of c and returns it. UpdatedAt is
// stamped with the current time.
func (r CategoryUpdateRequest) ApplyTo(c Category) Category {
	if r.Name != nil {
		c.Name = *r.Name
	}
	if r.Description != nil {
		c.Description = *r.Description
	}
	if r.Active != nil {
		c.Active = *r.Active
	}
	c.UpdatedAt = time.Now().UTC()
	return c
}

// ListParams selects a page of categories on the server side.
type ListParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Search   string `json:"search,omitempty"`
	Active   *bool  `json:"active,omitempty"`
	SortBy   string `json:"sort_by,omitempty"`
	SortDesc bool   `json:"sort_desc,omitempty"`
}

// Fingerprint renders the params into a stable cache-key fragment.
func (p ListParams) Fingerprint() string {
	var b strings.Builder
	b.WriteString("p=")
	b.WriteString(itoa(int64(p.Page)))
	b.WriteString(";s=")
	b.WriteString(itoa(int64(p.PageSize)))
	b.WriteString(";q=")
	b.WriteString(p.Search)
	b.WriteString(";a=")
	switch {
	case p.Active == nil:
		b.WriteString("any")
	case *p.Active:
		b.WriteString("true")
	default:
		b.WriteString("false")
	}
	b.WriteString(";o=")
	b.WriteString(p.SortBy)
	if p.SortDesc {
		b.WriteString(":desc")
	}
	return b.String()
}

// Page is one page of a listing response.
type Page struct {
	Items    []Category `json:"items"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}

var sentinelCounter atomic.Int64

// NextSentinelID allocates the next local placeholder id (-1, -2, ...).
// Sentinel ids are unique per process, which makes them unique within any
// scope the process touches.
func NextSentinelID() int64 {
	return -sentinelCounter.Add(1)
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
