package projects

import (
	"fmt"
	"strings"

	"github.com/good-yellow-bee/devroom/internal/models"
)

const (
	maxNameLength     = 100
	maxFiles          = 200
	maxFileNameLength = 255
	maxLanguageLength = 32
	maxFileContent    = 1 << 20
)

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidateName checks a project name.
func ValidateName(name string) []FieldError {
	name = strings.TrimSpace(name)
	if name == "" {
		return []FieldError{{Field: "name", Message: "name is required"}}
	}
	if len(name) > maxNameLength {
		return []FieldError{{Field: "name", Message: fmt.Sprintf("name must be %d characters or less", maxNameLength)}}
	}
	return nil
}

// ValidateMemberIDs checks the shape of a member list. Existence is checked by the handler.
func ValidateMemberIDs(ids []string) []FieldError {
	if len(ids) == 0 {
		return []FieldError{{Field: "users", Message: "users must be a non-empty array"}}
	}
	var fields []FieldError
	for i, id := range ids {
		if !models.ValidID(id) {
			fields = append(fields, FieldError{Field: fmt.Sprintf("users[%d]", i), Message: "invalid user id: " + id})
		}
	}
	return fields
}

// ValidateFiles checks a replacement file set. An empty set is allowed.
func ValidateFiles(files []models.File) []FieldError {
	if len(files) > maxFiles {
		return []FieldError{{Field: "files", Message: fmt.Sprintf("at most %d files allowed", maxFiles)}}
	}

	var fields []FieldError
	seen := make(map[string]bool, len(files))
	for i, f := range files {
		prefix := fmt.Sprintf("files[%d].", i)
		name := strings.TrimSpace(f.Name)
		switch {
		case name == "":
			fields = append(fields, FieldError{Field: prefix + "name", Message: "file name is required"})
		case len(name) > maxFileNameLength:
			fields = append(fields, FieldError{Field: prefix + "name", Message: "file name is too long"})
		case seen[name]:
			fields = append(fields, FieldError{Field: prefix + "name", Message: "duplicate file name " + name})
		}
		seen[name] = true

		lang := strings.TrimSpace(f.Language)
		if lang == "" {
			fields = append(fields, FieldError{Field: prefix + "language", Message: "file language is required"})
		} else if len(lang) > maxLanguageLength {
			fields = append(fields, FieldError{Field: prefix + "language", Message: "file language is too long"})
		}

		if len(f.Content) > maxFileContent {
			fields = append(fields, FieldError{Field: prefix + "content", Message: "file content exceeds 1 MiB"})
		}
	}
	return fields
}
