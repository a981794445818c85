package server

import (
	"strings"

	"taskhub/internal/domain/errors"
	"taskhub/internal/domain/models"
)

// sortableFields is the allow-list of task fields a client may sort by.
// Anything else is rejected so arbitrary names never reach the storage query.
var sortableFields = map[string]bool{
	"title":     true,
	"status":    true,
	"priority":  true,
	"dueDate":   true,
	"createdAt": true,
}

// parseSort turns a comma-separated sort spec ("priority,-createdAt") into an
// ordered field list. A "-" prefix marks descending order. An empty spec
// yields the newest-first default.
func parseSort(spec string) ([]models.SortField, error) {
	if strings.TrimSpace(spec) == "" {
		return []models.SortField{{Field: "createdAt", Descending: true}}, nil
	}

	var fields []models.SortField
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		descending := false
		if strings.HasPrefix(part, "-") {
			descending = true
			part = part[1:]
		}
		if !sortableFields[part] {
			return nil, errors.ErrInvalidSortField
		}
		fields = append(fields, models.SortField{Field: part, Descending: descending})
	}
	if len(fields) == 0 {
		return []models.SortField{{Field: "createdAt", Descending: true}}, nil
	}
	return fields, nil
}
