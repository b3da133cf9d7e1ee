package models

import (
	"time"

	id "streetwatch/pkg/domain"
)

// ScopeKind restricts a query to what the calling role may see. It is a
// hard pre-filter: optional filters narrow the scope, never widen it.
type ScopeKind string

const (
	ScopeAll     ScopeKind = "ALL"
	ScopeAgent   ScopeKind = "OWNED_BY_AGENT"
	ScopeCitizen ScopeKind = "OWNED_BY_CITIZEN"
)

// Scope pairs a kind with the owning actor it is bound to.
type Scope struct {
	Kind    ScopeKind
	ActorID id.UserID
}

func ScopeForAll() Scope                     { return Scope{Kind: ScopeAll} }
func ScopeForAgent(agentID id.UserID) Scope  { return Scope{Kind: ScopeAgent, ActorID: agentID} }
func ScopeForCitizen(citID id.UserID) Scope  { return Scope{Kind: ScopeCitizen, ActorID: citID} }

// Contains reports whether an incident falls inside the scope.
func (s Scope) Contains(inc *Incident) bool {
	switch s.Kind {
	case ScopeAgent:
		return inc.AssignedTo(s.ActorID)
	case ScopeCitizen:
		return inc.ReportedBy(s.ActorID)
	default:
		return true
	}
}

// Filters are the optional query dimensions, combined with AND semantics.
// Nil or zero fields mean "dimension not filtered". From and To are
// expected pre-widened to day boundaries by the service.
type Filters struct {
	Status    *Status
	Category  *Category
	Region    string
	SubRegion string
	AgentID   id.UserID
	From      *time.Time
	To        *time.Time
}

// SortField names a sortable incident column.
type SortField string

const (
	SortByCreatedAt SortField = "created_at"
	SortByPriority  SortField = "priority"
	SortByStatus    SortField = "status"
)

type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// PageRequest is zero-based pagination plus ordering.
type PageRequest struct {
	Page     int
	PageSize int
	SortBy   SortField
	Dir      SortDir
}

const DefaultPageSize = 20

// Normalize fills defaults: non-negative page, sane page size, creation
// date descending when no sort is given.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.SortBy == "" {
		p.SortBy = SortByCreatedAt
		if p.Dir == "" {
			p.Dir = SortDesc
		}
	}
	if p.Dir == "" {
		p.Dir = SortAsc
	}
	return p
}

// Page is one slice of a query result plus the totals needed for paging.
type Page struct {
	Items      []*Incident `json:"items"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalItems int64       `json:"total_items"`
	TotalPages int         `json:"total_pages"`
}

// Stats are the aggregate counters derived from one scope+filter
// composition. PerStatus always carries all five statuses and PerPriority
// all four priorities, zero-valued when absent.
type Stats struct {
	Total       int64              `json:"total"`
	Unassigned  int64              `json:"unassigned"`
	PerStatus   map[Status]int64   `json:"per_status"`
	PerPriority map[Priority]int64 `json:"per_priority"`
}

// NewStats returns a Stats with every counter key present.
func NewStats() *Stats {
	s := &Stats{
		PerStatus:   make(map[Status]int64, 5),
		PerPriority: make(map[Priority]int64, 4),
	}
	for _, status := range Statuses() {
		s.PerStatus[status] = 0
	}
	for _, priority := range Priorities() {
		s.PerPriority[priority] = 0
	}
	return s
}
