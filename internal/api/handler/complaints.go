package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"grievance/backend/internal/complaint"
	"grievance/backend/internal/models"
	"grievance/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// bind decodes an optional JSON body. Field rules are checked by the service.
func (h *Handler) bind(c *gin.Context, v any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	// chunked requests report ContentLength -1 even when empty
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		h.abort(c, http.StatusBadRequest, "bad_request", "request body is not valid JSON")
		return false
	}
	return true
}

// SubmitComplaint handles POST /api/complaints.
func (h *Handler) SubmitComplaint(c *gin.Context) {
	var in complaint.SubmitInput
	if !h.bind(c, &in) {
		return
	}
	out, err := h.Complaints.Submit(c.Request.Context(), actorFrom(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// ListComplaints handles GET /api/complaints.
//
// Query parameters: stage, handler, status, office, sort (created_at,
// updated_at or stage, prefixed with "-" for descending), limit, offset.
func (h *Handler) ListComplaints(c *gin.Context) {
	f := storage.ComplaintFilter{
		StakeholderOfficeID: c.Query("office"),
		Stage:               models.Stage(c.Query("stage")),
		Handler:             models.Handler(c.Query("handler")),
		Status:              models.Status(c.Query("status")),
	}
	if f.Stage != "" && !f.Stage.Valid() {
		h.fail(c, &complaint.Error{Code: complaint.CodeValidation, Message: "unknown stage " + string(f.Stage)})
		return
	}
	if f.Handler != "" && !f.Handler.Valid() {
		h.fail(c, &complaint.Error{Code: complaint.CodeValidation, Message: "unknown handler " + string(f.Handler)})
		return
	}
	if f.Status != "" && !f.Status.Valid() {
		h.fail(c, &complaint.Error{Code: complaint.CodeValidation, Message: "unknown status " + string(f.Status)})
		return
	}

	srt, err := storage.ParseSort(c.Query("sort"))
	if err != nil {
		h.fail(c, &complaint.Error{Code: complaint.CodeValidation, Message: err.Error()})
		return
	}
	limit, err1 := queryInt(c, "limit")
	offset, err2 := queryInt(c, "offset")
	if err1 != nil || err2 != nil {
		h.fail(c, &complaint.Error{Code: complaint.CodeValidation, Message: "limit and offset must be integers"})
		return
	}

	res, err := h.Complaints.List(c.Request.Context(), actorFrom(c), f, srt, storage.Page{Limit: limit, Offset: offset})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// GetComplaint handles GET /api/complaints/:id.
func (h *Handler) GetComplaint(c *gin.Context) {
	out, err := h.Complaints.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// RespondToComplaint handles POST /api/complaints/:id/responses.
func (h *Handler) RespondToComplaint(c *gin.Context) {
	var in complaint.RespondInput
	if !h.bind(c, &in) {
		return
	}
	out, err := h.Complaints.Respond(c.Request.Context(), actorFrom(c), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// AcceptResponse handles POST /api/complaints/:id/accept.
func (h *Handler) AcceptResponse(c *gin.Context) {
	out, err := h.Complaints.Accept(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type escalateRequest struct {
	Reason string `json:"reason"`
}

// EscalateComplaint handles POST /api/complaints/:id/escalate.
func (h *Handler) EscalateComplaint(c *gin.Context) {
	var in escalateRequest
	if !h.bind(c, &in) {
		return
	}
	out, err := h.Complaints.Escalate(c.Request.Context(), actorFrom(c), c.Param("id"), in.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// SubmitSecondStage handles POST /api/complaints/:id/second-stage.
func (h *Handler) SubmitSecondStage(c *gin.Context) {
	var in complaint.SecondStageInput
	if !h.bind(c, &in) {
		return
	}
	out, err := h.Complaints.SubmitSecondStage(c.Request.Context(), actorFrom(c), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// GetPerformance handles GET /api/performance/:office/:role.
func (h *Handler) GetPerformance(c *gin.Context) {
	out, err := h.Complaints.Performance(c.Request.Context(), actorFrom(c), c.Param("office"), models.Role(c.Param("role")))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
