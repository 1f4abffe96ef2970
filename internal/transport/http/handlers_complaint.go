package httptransport

import (
	"net/http"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"sayit/internal/attachment"
	"sayit/internal/complaint"
	complaintservice "sayit/internal/complaint/service"
	id "sayit/pkg/domain"
	dErrors "sayit/pkg/domain-errors"
)

type createComplaintRequest struct {
	Title          string                `json:"title" valid:"required,stringlength(3|200)"`
	Description    string                `json:"description" valid:"required"`
	CategoryID     string                `json:"category_id" valid:"required"`
	AgencyID       string                `json:"agency_id"`
	SubmissionType string                `json:"submission_type"`
	Priority       string                `json:"priority"`
	Attachments    []attachment.Metadata `json:"attachments"`
}

type complaintResponse struct {
	ID             string                `json:"id"`
	TrackingID     string                `json:"tracking_id"`
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	CategoryID     string                `json:"category_id"`
	AgencyID       string                `json:"agency_id"`
	SubmissionType string                `json:"submission_type"`
	Status         string                `json:"status"`
	Priority       string                `json:"priority"`
	Attachments    []attachment.Metadata `json:"attachments,omitempty"`
	ResolvedAt     *time.Time            `json:"resolved_at,omitempty"`
	ClosedAt       *time.Time            `json:"closed_at,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

type responsePayload struct {
	ID         string    `json:"id"`
	AuthorKind string    `json:"author_kind"`
	Message    string    `json:"message"`
	StatusOld  string    `json:"status_old,omitempty"`
	StatusNew  string    `json:"status_new,omitempty"`
	IsInternal bool      `json:"is_internal"`
	CreatedAt  time.Time `json:"created_at"`
}

func toComplaintResponse(c *complaint.Complaint) complaintResponse {
	out := complaintResponse{
		ID:             c.ID.String(),
		TrackingID:     c.TrackingID,
		Title:          c.Title,
		Description:    c.Description,
		CategoryID:     c.CategoryID.String(),
		AgencyID:       c.AgencyID.String(),
		SubmissionType: string(c.SubmissionType),
		Status:         c.Status.String(),
		Priority:       string(c.Priority),
		Attachments:    c.Attachments,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
	if !c.ResolvedAt.IsZero() {
		t := c.ResolvedAt
		out.ResolvedAt = &t
	}
	if !c.ClosedAt.IsZero() {
		t := c.ClosedAt
		out.ClosedAt = &t
	}
	return out
}

func toResponsePayload(r *complaint.Response) responsePayload {
	out := responsePayload{
		ID:         r.ID.String(),
		AuthorKind: r.AuthorKind.String(),
		Message:    r.Message,
		IsInternal: r.IsInternal,
		CreatedAt:  r.CreatedAt,
	}
	if r.StatusChange != nil {
		out.StatusOld = r.StatusChange.Old.String()
		out.StatusNew = r.StatusChange.New.String()
	}
	return out
}

// handleCreateComplaint files a complaint for the authenticated actor.
// Citizens and anonymous identities file on their own behalf; staff may file
// external complaints received out of band.
func (h *Handler) handleCreateComplaint(w http.ResponseWriter, r *http.Request) {
	var req createComplaintRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if _, err := govalidator.ValidateStruct(req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, err.Error()))
		return
	}

	categoryID, err := id.ParseCategoryID(req.CategoryID)
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid category id"))
		return
	}

	create := complaintservice.CreateRequest{
		Title:       req.Title,
		Description: req.Description,
		CategoryID:  categoryID,
		Attachments: req.Attachments,
	}
	if req.AgencyID != "" {
		agencyID, err := id.ParseAgencyID(req.AgencyID)
		if err != nil {
			writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid agency id"))
			return
		}
		create.AgencyID = agencyID
	}
	if req.Priority != "" {
		priority, err := complaint.ParsePriority(req.Priority)
		if err != nil {
			writeError(w, dErrors.New(dErrors.CodeInvalidInput, "unknown priority"))
			return
		}
		create.Priority = priority
	}

	caller := callerAccountRef(r)
	switch {
	case req.SubmissionType == string(complaint.SubmissionExternal):
		create.SubmissionType = complaint.SubmissionExternal
	case caller.Kind == id.ActorAnonymous:
		create.SubmissionType = complaint.SubmissionAnonymous
		create.Submitter = caller
	default:
		create.SubmissionType = complaint.SubmissionStandard
		create.Submitter = caller
	}

	c, err := h.complaints.Create(r.Context(), create)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toComplaintResponse(c))
}

// handleGetByTrackingID resolves the shareable handle. Runs behind
// OptionalAuth: a staff token widens the response to internal entries.
func (h *Handler) handleGetByTrackingID(w http.ResponseWriter, r *http.Request) {
	trackingID := chi.URLParam(r, "trackingID")

	c, responses, err := h.complaints.GetByTrackingID(r.Context(), trackingID)
	if err != nil {
		writeError(w, err)
		return
	}

	payload := make([]responsePayload, 0, len(responses))
	for i := range responses {
		payload = append(payload, toResponsePayload(&responses[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"complaint": toComplaintResponse(c),
		"responses": payload,
	})
}

type addResponseRequest struct {
	Message    string `json:"message" valid:"required"`
	IsInternal bool   `json:"is_internal"`
}

func (h *Handler) handleAddResponse(w http.ResponseWriter, r *http.Request) {
	complaintID, err := id.ParseComplaintID(chi.URLParam(r, "complaintID"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeNotFound, "complaint not found"))
		return
	}

	var req addResponseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if _, err := govalidator.ValidateStruct(req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, err.Error()))
		return
	}

	resp, err := h.complaints.AddResponse(r.Context(), complaintID, req.Message, req.IsInternal)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResponsePayload(resp))
}

type assignRequest struct {
	AgentID string `json:"agent_id" valid:"required"`
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	complaintID, err := id.ParseComplaintID(chi.URLParam(r, "complaintID"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeNotFound, "complaint not found"))
		return
	}

	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	agentID, err := id.ParseActorID(req.AgentID)
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid agent id"))
		return
	}

	c, err := h.complaints.Assign(r.Context(), complaintID, agentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toComplaintResponse(c))
}

type setStatusRequest struct {
	Status string `json:"status" valid:"required"`
	Note   string `json:"note"`
}

func (h *Handler) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	complaintID, err := id.ParseComplaintID(chi.URLParam(r, "complaintID"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeNotFound, "complaint not found"))
		return
	}

	var req setStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	status, err := complaint.ParseStatus(req.Status)
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "unknown status"))
		return
	}

	c, err := h.complaints.SetStatus(r.Context(), complaintID, status, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toComplaintResponse(c))
}

// handleUploadAttachment accepts a multipart upload and returns the stored
// metadata. The binary lands in the attachment store; complaints only ever
// reference the metadata.
func (h *Handler) handleUploadAttachment(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "missing file field"))
		return
	}
	defer file.Close()

	meta, err := h.attachments.Put(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store attachment"))
		return
	}
	writeJSON(w, http.StatusCreated, meta)
}

// handleListAgencies exposes the flat agency/category registry so filing
// clients can offer a picker.
func (h *Handler) handleListAgencies(w http.ResponseWriter, r *http.Request) {
	agencies, err := h.agencies.ListAgencies(r.Context())
	if err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list agencies"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"agencies": agencies})
}
