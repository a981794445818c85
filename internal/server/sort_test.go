package server

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"taskhub/internal/domain/errors"
	"taskhub/internal/domain/models"
)

func TestParseSort(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want struct {
			fields []models.SortField
			err    error
		}
	}{
		{
			name: "empty spec defaults to newest first",
			spec: "",
			want: struct {
				fields []models.SortField
				err    error
			}{
				fields: []models.SortField{{Field: "createdAt", Descending: true}},
			},
		},
		{
			name: "single ascending field",
			spec: "priority",
			want: struct {
				fields []models.SortField
				err    error
			}{
				fields: []models.SortField{{Field: "priority"}},
			},
		},
		{
			name: "descending prefix",
			spec: "-dueDate",
			want: struct {
				fields []models.SortField
				err    error
			}{
				fields: []models.SortField{{Field: "dueDate", Descending: true}},
			},
		},
		{
			name: "multiple fields keep order",
			spec: "status,-priority,createdAt",
			want: struct {
				fields []models.SortField
				err    error
			}{
				fields: []models.SortField{
					{Field: "status"},
					{Field: "priority", Descending: true},
					{Field: "createdAt"},
				},
			},
		},
		{
			name: "whitespace and empty parts are skipped",
			spec: " title , ,-createdAt ",
			want: struct {
				fields []models.SortField
				err    error
			}{
				fields: []models.SortField{
					{Field: "title"},
					{Field: "createdAt", Descending: true},
				},
			},
		},
		{
			name: "unknown field is rejected",
			spec: "password",
			want: struct {
				fields []models.SortField
				err    error
			}{
				err: errors.ErrInvalidSortField,
			},
		},
		{
			name: "unknown field among valid ones is rejected",
			spec: "title,user_id",
			want: struct {
				fields []models.SortField
				err    error
			}{
				err: errors.ErrInvalidSortField,
			},
		},
		{
			name: "only commas falls back to default",
			spec: ",,,",
			want: struct {
				fields []models.SortField
				err    error
			}{
				fields: []models.SortField{{Field: "createdAt", Descending: true}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, err := parseSort(tt.spec)
			if tt.want.err != nil {
				assert.ErrorIs(t, err, tt.want.err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want.fields, fields)
		})
	}
}
