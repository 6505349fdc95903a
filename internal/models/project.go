package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Project is a shared workspace: a member set, the current file set, and the
// chat log of its room.
type Project struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Members   []string   `json:"users"`
	Files     []File     `json:"files"`
	Messages  []*Message `json:"messages,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// File is one entry of a project's current file set.
type File struct {
	Name     string `json:"name"`
	Content  string `json:"content"`
	Language string `json:"language"`
}

// NewProject creates a new Project owned by ownerID. The owner is the only member.
func NewProject(name, ownerID string) *Project {
	now := time.Now()
	return &Project{
		ID:        uuid.New().String(),
		Name:      NormalizeProjectName(name),
		Members:   []string{ownerID},
		Files:     []File{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasMember reports whether userID is in the project's member set.
func (p *Project) HasMember(userID string) bool {
	for _, id := range p.Members {
		if id == userID {
			return true
		}
	}
	return false
}

// NormalizeProjectName trims and lowercases a project name.
func NormalizeProjectName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidID reports whether id is a syntactically valid entity key.
func ValidID(id string) bool {
	if id == "" {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
