package server

import (
	"github.com/go-playground/validator"
)

var jsonFieldNames = map[string]string{
	"Name":            "name",
	"Email":           "email",
	"Password":        "password",
	"Role":            "role",
	"Title":           "title",
	"Description":     "description",
	"Status":          "status",
	"Priority":        "priority",
	"DueDate":         "dueDate",
	"CurrentPassword": "currentPassword",
	"NewPassword":     "newPassword",
}

var fieldMessages = map[string]string{
	"name":            "name must be between 2 and 50 characters",
	"email":           "please provide a valid email",
	"password":        "password must be at least 6 characters",
	"role":            "role must be either user or admin",
	"title":           "title is required and must be at most 100 characters",
	"description":     "description is required and must be at most 500 characters",
	"status":          "status must be one of pending, in-progress, completed",
	"priority":        "priority must be one of low, medium, high",
	"dueDate":         "dueDate must be a valid date",
	"currentPassword": "current password is required",
	"newPassword":     "new password must be at least 6 characters",
}

// validationFieldErrors translates validator failures into the ordered
// field-level error list rendered in the 400 envelope.
func validationFieldErrors(err error) []FieldError {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldError{{Field: "body", Message: "invalid request data"}}
	}

	fieldErrors := make([]FieldError, 0, len(verrs))
	for _, verr := range verrs {
		field := jsonFieldNames[verr.Field()]
		if field == "" {
			field = verr.Field()
		}
		message := fieldMessages[field]
		if message == "" {
			message = field + " is invalid"
		}
		fieldErrors = append(fieldErrors, FieldError{Field: field, Message: message})
	}
	return fieldErrors
}
