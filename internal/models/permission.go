package models

import (
	"fmt"
	"time"
)

// ResourceType is the kind of entity a grant applies to.
type ResourceType string

const (
	ResourceFolder   ResourceType = "folder"
	ResourceDocument ResourceType = "document"
)

func (t ResourceType) Valid() bool {
	return t == ResourceFolder || t == ResourceDocument
}

func ParseResourceType(s string) (ResourceType, error) {
	t := ResourceType(s)
	if !t.Valid() {
		return "", fmt.Errorf("invalid resource type %q", s)
	}
	return t, nil
}

// SubjectType is the kind of principal a grant is held by.
type SubjectType string

const (
	SubjectUser  SubjectType = "user"
	SubjectGroup SubjectType = "group"
)

func (t SubjectType) Valid() bool {
	return t == SubjectUser || t == SubjectGroup
}

func ParseSubjectType(s string) (SubjectType, error) {
	t := SubjectType(s)
	if !t.Valid() {
		return "", fmt.Errorf("invalid subject type %q", s)
	}
	return t, nil
}

// Level is the strength of a grant. Read, write and admin are ordered;
// deny sits outside the order and always wins when encountered.
type Level string

const (
	LevelRead  Level = "read"
	LevelWrite Level = "write"
	LevelAdmin Level = "admin"
	LevelDeny  Level = "deny"
)

var levelRank = map[Level]int{
	LevelRead:  1,
	LevelWrite: 2,
	LevelAdmin: 3,
}

func (l Level) Valid() bool {
	return l == LevelDeny || levelRank[l] > 0
}

// Rank is 0 for deny and unknown levels.
func (l Level) Rank() int {
	return levelRank[l]
}

// Satisfies reports whether a grant at level l is enough for required.
// Deny never satisfies anything, and nothing satisfies a required deny.
func (l Level) Satisfies(required Level) bool {
	if l.Rank() == 0 || required.Rank() == 0 {
		return false
	}
	return l.Rank() >= required.Rank()
}

func ParseLevel(s string) (Level, error) {
	l := Level(s)
	if !l.Valid() {
		return "", fmt.Errorf("invalid permission level %q", s)
	}
	return l, nil
}

type Resource struct {
	Type ResourceType `json:"type"`
	ID   int64        `json:"id"`
}

func (r Resource) String() string {
	return fmt.Sprintf("%s:%d", r.Type, r.ID)
}

type Subject struct {
	Type SubjectType `json:"type"`
	ID   int64       `json:"id"`
}

func (s Subject) String() string {
	return fmt.Sprintf("%s:%d", s.Type, s.ID)
}

// Permission is one grant. (ResourceType, ResourceID, SubjectType,
// SubjectID) is unique.
type Permission struct {
	ID           int64        `json:"id"`
	ResourceType ResourceType `json:"resource_type"`
	ResourceID   int64        `json:"resource_id"`
	SubjectType  SubjectType  `json:"subject_type"`
	SubjectID    int64        `json:"subject_id"`
	Level        Level        `json:"permission"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (p Permission) Resource() Resource {
	return Resource{Type: p.ResourceType, ID: p.ResourceID}
}

func (p Permission) Subject() Subject {
	return Subject{Type: p.SubjectType, ID: p.SubjectID}
}
