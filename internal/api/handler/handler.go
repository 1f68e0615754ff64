// Package handler exposes the complaint service over HTTP with gin.
package handler

import (
	"errors"
	"log"
	"net/http"

	"grievance/backend/internal/complaint"
	"grievance/backend/internal/localization"

	"github.com/gin-gonic/gin"
)

// Handler holds what the HTTP endpoints need.
type Handler struct {
	Complaints *complaint.Service
	Localizer  *localization.Localizer
	secret     []byte
}

func NewHandler(svc *complaint.Service, l *localization.Localizer, jwtSecret string) *Handler {
	return &Handler{Complaints: svc, Localizer: l, secret: []byte(jwtSecret)}
}

var statusByCode = map[complaint.Code]int{
	complaint.CodeNotFound:             http.StatusNotFound,
	complaint.CodeUnauthorized:         http.StatusForbidden,
	complaint.CodeAlreadyResolved:      http.StatusConflict,
	complaint.CodeTerminalStage:        http.StatusConflict,
	complaint.CodeEscalationNotAllowed: http.StatusConflict,
	complaint.CodeValidation:           http.StatusBadRequest,
	complaint.CodeStore:                http.StatusInternalServerError,
	complaint.CodeConflict:             http.StatusConflict,
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// fail writes err as a localized JSON error.
func (h *Handler) fail(c *gin.Context, err error) {
	var cerr *complaint.Error
	if !errors.As(err, &cerr) {
		cerr = &complaint.Error{Code: complaint.CodeStore, Message: "internal error", Err: err}
	}
	status, ok := statusByCode[cerr.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status == http.StatusInternalServerError {
		log.Printf("ERROR: %s %s: %v", c.Request.Method, c.FullPath(), err)
	}

	body := errorBody{
		Code:    string(cerr.Code),
		Message: h.message(c, string(cerr.Code), cerr.Message),
	}
	// internal details never leave the server
	if status != http.StatusInternalServerError {
		body.Detail = cerr.Message
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

func (h *Handler) abort(c *gin.Context, status int, code, fallback string) {
	c.AbortWithStatusJSON(status, gin.H{"error": errorBody{
		Code:    code,
		Message: h.message(c, code, fallback),
	}})
}

func (h *Handler) message(c *gin.Context, code, fallback string) string {
	if h.Localizer == nil {
		return fallback
	}
	lang := h.Localizer.PreferredLanguage(c.GetHeader("Accept-Language"))
	return h.Localizer.ErrorMessage(lang, code, fallback)
}
