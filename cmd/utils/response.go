package utils

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Pagination mirrors the listing envelope used by the paged endpoints.
type Pagination struct {
	CurrentPage  int   `json:"current_page"`
	TotalPages   int64 `json:"total_pages"`
	TotalItems   int64 `json:"total_items"`
	ItemsPerPage int   `json:"items_per_page"`
}

func NewPagination(page, limit int, total int64) Pagination {
	return Pagination{
		CurrentPage:  page,
		TotalPages:   (total + int64(limit) - 1) / int64(limit),
		TotalItems:   total,
		ItemsPerPage: limit,
	}
}

func WriteSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{Success: true, Message: message, Data: data})
}

func WriteError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{Success: false, Message: message})
}

// WriteDomainError maps the error kinds onto HTTP statuses. Validation and
// conflict failures both answer 400; not found answers 404 and is reserved for
// direct lookups of an unknown resource id. Anything else is an internal
// failure and is not leaked to the caller.
func WriteDomainError(w http.ResponseWriter, err error) {
	var nf *NotFoundError
	var ve *ValidationError
	var ce *ConflictError

	switch {
	case errors.As(err, &nf):
		WriteError(w, http.StatusNotFound, nf.Error())
	case errors.As(err, &ve):
		WriteError(w, http.StatusBadRequest, ve.Error())
	case errors.As(err, &ce):
		WriteError(w, http.StatusBadRequest, ce.Error())
	default:
		log.Printf("internal error: %v", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}
