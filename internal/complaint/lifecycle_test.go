package complaint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "sayit/pkg/domain"
)

func TestNextStatus(t *testing.T) {
	cases := []struct {
		name        string
		current     Status
		actorKind   id.ActorKind
		event       Event
		wantStatus  Status
		wantChanged bool
	}{
		{
			name:       "staff sets any explicit status",
			current:    StatusPending,
			actorKind:  id.ActorStaff,
			event:      Event{Type: EventSetStatus, Target: StatusResolved},
			wantStatus: StatusResolved, wantChanged: true,
		},
		{
			name:       "agent sets explicit status",
			current:    StatusInProgress,
			actorKind:  id.ActorAgent,
			event:      Event{Type: EventSetStatus, Target: StatusRejected},
			wantStatus: StatusRejected, wantChanged: true,
		},
		{
			name:       "staff may walk a complaint backward",
			current:    StatusResolved,
			actorKind:  id.ActorStaff,
			event:      Event{Type: EventSetStatus, Target: StatusInProgress},
			wantStatus: StatusInProgress, wantChanged: true,
		},
		{
			name:       "setting the current status is a no-op",
			current:    StatusAssigned,
			actorKind:  id.ActorStaff,
			event:      Event{Type: EventSetStatus, Target: StatusAssigned},
			wantStatus: StatusAssigned, wantChanged: false,
		},
		{
			name:       "citizen cannot set status explicitly",
			current:    StatusPending,
			actorKind:  id.ActorCitizen,
			event:      Event{Type: EventSetStatus, Target: StatusResolved},
			wantStatus: StatusPending, wantChanged: false,
		},
		{
			name:       "staff response on pending advances to in_progress",
			current:    StatusPending,
			actorKind:  id.ActorStaff,
			event:      Event{Type: EventResponse},
			wantStatus: StatusInProgress, wantChanged: true,
		},
		{
			name:       "agent response on under_review advances to in_progress",
			current:    StatusUnderReview,
			actorKind:  id.ActorAgent,
			event:      Event{Type: EventResponse},
			wantStatus: StatusInProgress, wantChanged: true,
		},
		{
			name:       "agent response on assigned advances to in_progress",
			current:    StatusAssigned,
			actorKind:  id.ActorAgent,
			event:      Event{Type: EventResponse},
			wantStatus: StatusInProgress, wantChanged: true,
		},
		{
			name:       "staff response on resolved does not reopen",
			current:    StatusResolved,
			actorKind:  id.ActorStaff,
			event:      Event{Type: EventResponse},
			wantStatus: StatusResolved, wantChanged: false,
		},
		{
			name:       "citizen response on resolved reopens",
			current:    StatusResolved,
			actorKind:  id.ActorCitizen,
			event:      Event{Type: EventResponse},
			wantStatus: StatusInProgress, wantChanged: true,
		},
		{
			name:       "anonymous response on closed reopens",
			current:    StatusClosed,
			actorKind:  id.ActorAnonymous,
			event:      Event{Type: EventResponse},
			wantStatus: StatusInProgress, wantChanged: true,
		},
		{
			name:       "citizen response on rejected reopens",
			current:    StatusRejected,
			actorKind:  id.ActorCitizen,
			event:      Event{Type: EventResponse},
			wantStatus: StatusInProgress, wantChanged: true,
		},
		{
			name:       "citizen response on in_progress is a no-op",
			current:    StatusInProgress,
			actorKind:  id.ActorCitizen,
			event:      Event{Type: EventResponse},
			wantStatus: StatusInProgress, wantChanged: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, changed := NextStatus(tc.current, tc.actorKind, tc.event)
			assert.Equal(t, tc.wantStatus, got)
			assert.Equal(t, tc.wantChanged, changed)
		})
	}
}

func TestTrackingID(t *testing.T) {
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

	t.Run("matches the public handle shape", func(t *testing.T) {
		for range 50 {
			tid := NewTrackingID(now)
			require.True(t, ValidTrackingID(tid), "unexpected shape: %s", tid)
			assert.Contains(t, tid, "SAY-2024-")
		}
	})

	t.Run("rejects malformed handles", func(t *testing.T) {
		for _, bad := range []string{"", "SAY-24-00001", "SAY-2024-1", "say-2024-00001", "ABC-2024-00001"} {
			assert.False(t, ValidTrackingID(bad), "accepted %q", bad)
		}
	})
}

func TestComplaintValidate(t *testing.T) {
	base := func() Complaint {
		return Complaint{
			Title:      "Pothole on Main St",
			CategoryID: id.NewCategoryID(),
		}
	}

	t.Run("standard requires a citizen submitter", func(t *testing.T) {
		c := base()
		c.SubmissionType = SubmissionStandard
		c.SubmitterKind = id.ActorCitizen
		c.SubmitterID = id.NewActorID()
		assert.NoError(t, c.Validate())

		c.SubmitterKind = id.ActorAnonymous
		assert.Error(t, c.Validate())
	})

	t.Run("anonymous requires an anonymous submitter", func(t *testing.T) {
		c := base()
		c.SubmissionType = SubmissionAnonymous
		c.SubmitterKind = id.ActorAnonymous
		c.SubmitterID = id.NewActorID()
		assert.NoError(t, c.Validate())
	})

	t.Run("external must not carry a submitter", func(t *testing.T) {
		c := base()
		c.SubmissionType = SubmissionExternal
		assert.NoError(t, c.Validate())

		c.SubmitterKind = id.ActorCitizen
		c.SubmitterID = id.NewActorID()
		assert.Error(t, c.Validate())
	})
}
