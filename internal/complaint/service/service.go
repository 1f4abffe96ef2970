package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"sayit/internal/actor"
	agencystore "sayit/internal/agency/store"
	"sayit/internal/attachment"
	"sayit/internal/audit"
	"sayit/internal/complaint"
	"sayit/internal/complaint/store"
	"sayit/internal/notification"
	"sayit/internal/notifier"
	"sayit/internal/platform/metrics"
	id "sayit/pkg/domain"
	dErrors "sayit/pkg/domain-errors"
	"sayit/pkg/email"
	"sayit/pkg/platform/sentinel"
	"sayit/pkg/requestcontext"
)

const trackingIDMaxRetries = 5

// Directory is the slice of the actor service the engine needs: agent lookup
// on assignment and submitter addresses for outbound mail.
type Directory interface {
	FindAccount(ctx context.Context, ref actor.Ref) (*actor.Account, error)
}

// Engine owns the complaint lifecycle. Every transition goes through one
// atomic store write holding the status change, its audit responses, and the
// submitter's notification; the audit pipeline and outbound mail run after
// commit and never inside it.
type Engine struct {
	complaints store.Store
	agencies   agencystore.Store
	accounts   Directory
	mailer     notifier.Notifier
	audit      *audit.Publisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

func NewEngine(
	complaints store.Store,
	agencies agencystore.Store,
	accounts Directory,
	mailer notifier.Notifier,
	auditPub *audit.Publisher,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Engine {
	return &Engine{
		complaints: complaints,
		agencies:   agencies,
		accounts:   accounts,
		mailer:     mailer,
		audit:      auditPub,
		logger:     logger,
		metrics:    m,
		tracer:     otel.Tracer("sayit/complaint"),
	}
}

// CreateRequest carries a new filing. Submitter is zero for external
// submissions; AgencyID overrides the category's default routing when set.
type CreateRequest struct {
	Title          string
	Description    string
	CategoryID     id.CategoryID
	AgencyID       id.AgencyID
	SubmissionType complaint.SubmissionType
	Submitter      actor.Ref
	Priority       complaint.Priority
	Attachments    []attachment.Metadata
}

// Create files a complaint. The tracking ID is drawn randomly and re-rolled
// when the store reports a collision, so two concurrent filings always end up
// with distinct handles.
func (e *Engine) Create(ctx context.Context, req CreateRequest) (*complaint.Complaint, error) {
	ctx, span := e.tracer.Start(ctx, "complaint.Create")
	defer span.End()

	if req.SubmissionType == complaint.SubmissionExternal && !requestcontext.ActorKind(ctx).IsStafflike() {
		return nil, dErrors.New(dErrors.CodeForbidden, "external filings are staff-only")
	}

	category, err := e.agencies.FindCategory(ctx, req.CategoryID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown category")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve category")
	}

	agencyID := category.AgencyID
	if !req.AgencyID.IsNil() {
		if _, err := e.agencies.FindAgency(ctx, req.AgencyID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown agency")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve agency")
		}
		agencyID = req.AgencyID
	}

	priority := req.Priority
	if priority == "" {
		priority = complaint.PriorityMedium
	}

	now := requestcontext.Now(ctx)
	c := &complaint.Complaint{
		ID:             id.NewComplaintID(),
		Title:          req.Title,
		Description:    req.Description,
		CategoryID:     req.CategoryID,
		AgencyID:       agencyID,
		SubmissionType: req.SubmissionType,
		SubmitterKind:  req.Submitter.Kind,
		SubmitterID:    req.Submitter.ID,
		Status:         complaint.StatusPending,
		Priority:       priority,
		Attachments:    req.Attachments,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := c.Validate(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid complaint")
	}

	for attempt := 0; ; attempt++ {
		c.TrackingID = complaint.NewTrackingID(now)
		err := e.complaints.Create(ctx, c)
		if err == nil {
			break
		}
		if errors.Is(err, sentinel.ErrConflict) && attempt < trackingIDMaxRetries {
			continue
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to file complaint")
	}
	span.SetAttributes(attribute.String("complaint.tracking_id", c.TrackingID))

	e.metrics.ComplaintsCreated.Inc()
	e.publishAudit(ctx, audit.ActionComplaintCreated, c, map[string]string{
		"tracking_id": c.TrackingID,
	})
	e.logger.InfoContext(ctx, "complaint filed",
		"tracking_id", c.TrackingID,
		"category_id", c.CategoryID.String(),
		"agency_id", c.AgencyID.String(),
		"submission_type", string(c.SubmissionType),
	)
	return c, nil
}

// GetByTrackingID resolves the public handle. The handle is shareable: anyone
// holding it can read the complaint, but internal responses stay visible to
// staff and agents only.
func (e *Engine) GetByTrackingID(ctx context.Context, trackingID string) (*complaint.Complaint, []complaint.Response, error) {
	ctx, span := e.tracer.Start(ctx, "complaint.GetByTrackingID")
	defer span.End()

	if !complaint.ValidTrackingID(trackingID) {
		return nil, nil, dErrors.New(dErrors.CodeNotFound, "complaint not found")
	}
	c, err := e.complaints.FindByTrackingID(ctx, trackingID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "complaint not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load complaint")
	}

	includeInternal := requestcontext.ActorKind(ctx).IsStafflike()
	responses, err := e.complaints.ListResponses(ctx, c.ID, includeInternal)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load responses")
	}
	return c, responses, nil
}

// Assign routes a complaint to an agent and forces status to assigned,
// whatever the prior status was. The agent must belong to the complaint's
// agency.
func (e *Engine) Assign(ctx context.Context, complaintID id.ComplaintID, agentID id.ActorID) (*complaint.Complaint, error) {
	ctx, span := e.tracer.Start(ctx, "complaint.Assign")
	defer span.End()

	actorRef := callerRef(ctx)
	if !actorRef.Kind.IsStafflike() {
		return nil, dErrors.New(dErrors.CodeForbidden, "staff or agent access required")
	}

	c, err := e.loadForWrite(ctx, complaintID)
	if err != nil {
		return nil, err
	}

	agent, err := e.accounts.FindAccount(ctx, actor.Ref{Kind: id.ActorAgent, ID: agentID})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown agent")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve agent")
	}
	if agent.AgencyID != c.AgencyID {
		return nil, dErrors.New(dErrors.CodeForbidden, "agency mismatch")
	}

	now := requestcontext.Now(ctx)
	old := c.Status
	c.AssignedAgentID = agentID
	c.Status = complaint.StatusAssigned
	c.UpdatedAt = now

	auditResp := e.systemResponse(c.ID, fmt.Sprintf("Complaint assigned to agent %s.", agentID), now)
	if old != complaint.StatusAssigned {
		auditResp.StatusChange = &complaint.StatusChange{Old: old, New: complaint.StatusAssigned}
	}

	w := store.TransitionWrite{
		Complaint:    c,
		Responses:    []*complaint.Response{auditResp},
		Notification: e.submitterNotification(c, actorRef, fmt.Sprintf("Your complaint %s has been assigned for handling.", c.TrackingID), now),
	}
	if err := e.commitTransition(ctx, w); err != nil {
		return nil, err
	}

	if old != complaint.StatusAssigned {
		e.metrics.ObserveTransition(complaint.StatusAssigned.String())
	}
	e.publishAudit(ctx, audit.ActionComplaintAssign, c, map[string]string{
		"agent_id": agentID.String(),
		"from":     old.String(),
	})
	return c, nil
}

// SetStatus is the explicit staff/agent transition. Setting the current
// status again is a no-op.
func (e *Engine) SetStatus(ctx context.Context, complaintID id.ComplaintID, target complaint.Status, note string) (*complaint.Complaint, error) {
	ctx, span := e.tracer.Start(ctx, "complaint.SetStatus")
	defer span.End()

	actorRef := callerRef(ctx)
	if !actorRef.Kind.IsStafflike() {
		return nil, dErrors.New(dErrors.CodeForbidden, "staff or agent access required")
	}

	c, err := e.loadForWrite(ctx, complaintID)
	if err != nil {
		return nil, err
	}

	next, changed := complaint.NextStatus(c.Status, actorRef.Kind, complaint.Event{
		Type:   complaint.EventSetStatus,
		Target: target,
	})
	if !changed {
		return c, nil
	}

	now := requestcontext.Now(ctx)
	old := c.Status
	c.Status = next
	c.UpdatedAt = now
	stampEntry(c, next, now)

	message := note
	if message == "" {
		message = fmt.Sprintf("Status changed from %s to %s.", old, next)
	}
	auditResp := e.systemResponse(c.ID, message, now)
	auditResp.StatusChange = &complaint.StatusChange{Old: old, New: next}

	w := store.TransitionWrite{
		Complaint:    c,
		Responses:    []*complaint.Response{auditResp},
		Notification: e.submitterNotification(c, actorRef, fmt.Sprintf("Your complaint %s is now %s.", c.TrackingID, next), now),
	}
	if err := e.commitTransition(ctx, w); err != nil {
		return nil, err
	}

	e.metrics.ObserveTransition(next.String())
	e.publishAudit(ctx, audit.ActionComplaintMoved, c, map[string]string{
		"from": old.String(),
		"to":   next.String(),
	})
	e.sendStatusMail(ctx, c, next)
	return c, nil
}

// AddResponse appends to the thread. Side effects follow the transition
// rules: a staff/agent response on a queued complaint advances it to
// in_progress, a submitter response on a terminal one reopens it. When the
// status moves, a separate system audit response records the change in the
// same transaction.
func (e *Engine) AddResponse(ctx context.Context, complaintID id.ComplaintID, message string, isInternal bool) (*complaint.Response, error) {
	ctx, span := e.tracer.Start(ctx, "complaint.AddResponse")
	defer span.End()

	actorRef := callerRef(ctx)
	if actorRef.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if message == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "message required")
	}

	c, err := e.loadForWrite(ctx, complaintID)
	if err != nil {
		return nil, err
	}

	if actorRef.Kind.IsSubmitter() {
		submitter, ok := c.Submitter()
		if !ok || submitter != actorRef {
			return nil, dErrors.New(dErrors.CodeForbidden, "not your complaint")
		}
		if isInternal {
			return nil, dErrors.New(dErrors.CodeForbidden, "internal responses are staff-only")
		}
	}

	now := requestcontext.Now(ctx)
	resp := &complaint.Response{
		ID:          id.NewResponseID(),
		ComplaintID: c.ID,
		AuthorKind:  actorRef.Kind,
		AuthorID:    actorRef.ID,
		Message:     message,
		IsInternal:  isInternal,
		CreatedAt:   now,
	}

	next, changed := complaint.NextStatus(c.Status, actorRef.Kind, complaint.Event{Type: complaint.EventResponse})
	w := store.TransitionWrite{Responses: []*complaint.Response{resp}}

	old := c.Status
	if changed {
		c.Status = next
		c.UpdatedAt = now
		stampEntry(c, next, now)
		auditResp := e.systemResponse(c.ID, fmt.Sprintf("Status changed from %s to %s.", old, next), now)
		auditResp.StatusChange = &complaint.StatusChange{Old: old, New: next}
		w.Complaint = c
		w.Responses = append(w.Responses, auditResp)
		w.Notification = e.submitterNotification(c, actorRef, fmt.Sprintf("Your complaint %s is now %s.", c.TrackingID, next), now)
	} else if !isInternal && actorRef.Kind.IsStafflike() {
		if submitter, ok := c.Submitter(); ok {
			w.Notification = notification.NewResponseAdded(submitter, resp.ID,
				fmt.Sprintf("A new response was added to your complaint %s.", c.TrackingID), now)
		}
	}

	if err := e.commitTransition(ctx, w); err != nil {
		return nil, err
	}

	if changed {
		e.metrics.ObserveTransition(next.String())
		e.publishAudit(ctx, audit.ActionComplaintMoved, c, map[string]string{
			"from": old.String(),
			"to":   next.String(),
		})
		e.sendStatusMail(ctx, c, next)
	}
	e.publishAudit(ctx, audit.ActionResponseAdded, c, map[string]string{
		"response_id": resp.ID.String(),
	})
	return resp, nil
}

// loadForWrite fetches the complaint and enforces agency scoping for agents.
func (e *Engine) loadForWrite(ctx context.Context, complaintID id.ComplaintID) (*complaint.Complaint, error) {
	c, err := e.complaints.FindByID(ctx, complaintID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "complaint not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load complaint")
	}
	if requestcontext.ActorKind(ctx) == id.ActorAgent {
		if agencyID := requestcontext.AgencyID(ctx); agencyID != c.AgencyID {
			return nil, dErrors.New(dErrors.CodeForbidden, "agency mismatch")
		}
	}
	return c, nil
}

// commitTransition runs the atomic write group. Failures surface as
// tx_aborted so callers know an explicit retry is safe: the next attempt
// derives its transition from the persisted status again.
func (e *Engine) commitTransition(ctx context.Context, w store.TransitionWrite) error {
	if err := e.complaints.ApplyTransition(ctx, w); err != nil {
		e.metrics.TransactionAborts.Inc()
		return dErrors.Wrap(err, dErrors.CodeTxAborted, "transaction aborted")
	}
	return nil
}

func (e *Engine) systemResponse(complaintID id.ComplaintID, message string, now time.Time) *complaint.Response {
	return &complaint.Response{
		ID:          id.NewResponseID(),
		ComplaintID: complaintID,
		AuthorKind:  id.ActorSystem,
		Message:     message,
		CreatedAt:   now,
	}
}

// submitterNotification builds the inbox entry for a transition, or nil when
// the complaint is external or the acting actor is the submitter.
func (e *Engine) submitterNotification(c *complaint.Complaint, acting actor.Ref, message string, now time.Time) *notification.Notification {
	submitter, ok := c.Submitter()
	if !ok || submitter == acting {
		return nil
	}
	return notification.NewComplaintUpdate(submitter, c.ID, message, now)
}

// sendStatusMail mails the submitter about a status change, fire-and-forget.
// Only citizen submitters have an address; anonymous ones follow their
// complaint via the tracking ID.
func (e *Engine) sendStatusMail(ctx context.Context, c *complaint.Complaint, next complaint.Status) {
	if c.SubmitterKind != id.ActorCitizen {
		return
	}
	account, err := e.accounts.FindAccount(ctx, actor.Ref{Kind: id.ActorCitizen, ID: c.SubmitterID})
	if err != nil {
		e.logger.WarnContext(ctx, "status mail skipped, submitter lookup failed",
			"error", err, "tracking_id", c.TrackingID)
		return
	}

	subject := fmt.Sprintf("Complaint %s update", c.TrackingID)
	body := fmt.Sprintf("<p>%s</p><p>Your complaint %q (%s) is now <b>%s</b>.</p>",
		email.Greeting(account.Email), c.Title, c.TrackingID, next)

	go func() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := e.mailer.Send(sendCtx, account.Email, subject, body); err != nil {
			e.logger.Warn("failed to send status mail", "error", err, "tracking_id", c.TrackingID)
		}
	}()
}

func (e *Engine) publishAudit(ctx context.Context, action string, c *complaint.Complaint, metadata map[string]string) {
	if e.audit == nil {
		return
	}
	ev := audit.NewEvent(action, "complaint", c.ID.String(), requestcontext.Now(ctx))
	ev.ActorKind = requestcontext.ActorKind(ctx)
	if actorID := requestcontext.ActorID(ctx); !actorID.IsNil() {
		ev.ActorID = actorID.String()
	}
	ev.Metadata = metadata
	e.audit.Publish(ev)
}

func callerRef(ctx context.Context) actor.Ref {
	return actor.Ref{
		Kind: requestcontext.ActorKind(ctx),
		ID:   requestcontext.ActorID(ctx),
	}
}

func stampEntry(c *complaint.Complaint, next complaint.Status, now time.Time) {
	switch next {
	case complaint.StatusResolved:
		if c.ResolvedAt.IsZero() {
			c.ResolvedAt = now
		}
	case complaint.StatusClosed:
		if c.ClosedAt.IsZero() {
			c.ClosedAt = now
		}
	}
}
