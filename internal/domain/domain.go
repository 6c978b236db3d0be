package domain

import (
	"strings"
	"time"
)

// Role is a subject's place in the authority order.
type Role int

const (
	RoleFidele Role = iota
	RoleFD
	RoleLeader
	RolePasteur
	RoleAdmin
)

var roleNames = map[Role]string{
	RoleFidele:  "fidele",
	RoleFD:      "fd",
	RoleLeader:  "leader",
	RolePasteur: "pasteur",
	RoleAdmin:   "admin",
}

// ParseRole maps a role string to a Role. Unknown values map to RoleFidele.
func ParseRole(s string) Role {
	key := strings.ToLower(strings.TrimSpace(s))
	for r, name := range roleNames {
		if name == key {
			return r
		}
	}
	return RoleFidele
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return roleNames[RoleFidele]
}

// Known reports whether r is one of the declared roles.
func (r Role) Known() bool {
	_, ok := roleNames[r]
	return ok
}

// AtLeast compares authority. Undeclared roles never reach any threshold above Fidele.
func (r Role) AtLeast(min Role) bool {
	if !r.Known() {
		return min == RoleFidele
	}
	return r >= min
}

type ReportStatus string

const (
	StatusDraft     ReportStatus = "draft"
	StatusSubmitted ReportStatus = "submitted"
	StatusValidated ReportStatus = "validated"
)

// Valid reports whether s is a known lifecycle state.
func (s ReportStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusValidated:
		return true
	}
	return false
}

// Report is one subject's activity record for one calendar day.
type Report struct {
	ID         string
	SubjectID  string
	Date       time.Time
	Status     ReportStatus
	Reviewed   bool
	Comment    string
	Activities map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ReportRequest carries the owner-editable part of a report.
type ReportRequest struct {
	Date       time.Time
	Activities map[string]any
}

// Subject is a person placed in the discipleship hierarchy.
type Subject struct {
	ID           string
	Name         string
	Role         Role
	SupervisorID string
	RegionID     string
	ZoneID       string
	LocalUnitID  string
	SubUnitID    string
}

// SubjectRequest carries subject fields to write. Nil pointers leave fields unchanged.
type SubjectRequest struct {
	Name         string
	Role         *Role
	SupervisorID *string
	RegionID     *string
	ZoneID       *string
	LocalUnitID  *string
	SubUnitID    *string
}

// UnitLevel is a depth in the organizational containment tree.
type UnitLevel string

const (
	LevelRegion UnitLevel = "region"
	LevelZone   UnitLevel = "zone"
	LevelLocal  UnitLevel = "local"
	LevelSub    UnitLevel = "sub"
)

// Levels lists unit levels from top to leaf.
var Levels = []UnitLevel{LevelRegion, LevelZone, LevelLocal, LevelSub}

// Parent returns the level above l, or false for regions.
func (l UnitLevel) Parent() (UnitLevel, bool) {
	for i, lvl := range Levels {
		if lvl == l && i > 0 {
			return Levels[i-1], true
		}
	}
	return "", false
}

// Child returns the level below l, or false for leaf units.
func (l UnitLevel) Child() (UnitLevel, bool) {
	for i, lvl := range Levels {
		if lvl == l && i < len(Levels)-1 {
			return Levels[i+1], true
		}
	}
	return "", false
}

func (l UnitLevel) Valid() bool {
	for _, lvl := range Levels {
		if lvl == l {
			return true
		}
	}
	return false
}

// OrgUnit is a node of the organizational tree. ChildCount is the server's count.
type OrgUnit struct {
	ID         string
	Level      UnitLevel
	Name       string
	ParentID   string
	ChildCount int
}

type OrgUnitRequest struct {
	Name     string
	ParentID string
}

// Account is the login attached to a subject.
type Account struct {
	ID        string
	SubjectID string
	Email     string
	Role      Role
	Active    bool
	CreatedAt time.Time
}

type AccountRequest struct {
	SubjectID string
	Email     string
	Role      *Role
	Active    *bool
}

// Viewer is the authenticated user on whose behalf facades act.
type Viewer struct {
	ID   string
	Role Role
}

// DateOnly truncates t to its UTC calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
