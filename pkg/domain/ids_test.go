package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "sayit/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseActorID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseComplaintID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseActorID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseActorID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, ActorID(validUUID), id)
	})
}

// TestTypeDistinction verifies the compiler enforces type safety between ID
// families. If this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	actorID := ActorID(uuid.New())
	complaintID := ComplaintID(uuid.New())

	// These would fail to compile if types were interchangeable:
	// var _ ActorID = complaintID   // compile error
	// var _ ComplaintID = actorID   // compile error

	assert.NotEqual(t, uuid.UUID(actorID), uuid.UUID(complaintID))
}

func TestParseActorKind(t *testing.T) {
	for _, s := range []string{"citizen", "anonymous", "agent", "staff"} {
		kind, err := ParseActorKind(s)
		require.NoError(t, err)
		assert.Equal(t, s, kind.String())
	}

	t.Run("system is not a login kind", func(t *testing.T) {
		_, err := ParseActorKind("system")
		require.Error(t, err)
	})

	t.Run("rejects unknown kinds", func(t *testing.T) {
		_, err := ParseActorKind("robot")
		require.Error(t, err)
	})
}

func TestActorKindCapabilities(t *testing.T) {
	assert.True(t, ActorStaff.IsStafflike())
	assert.True(t, ActorAgent.IsStafflike())
	assert.False(t, ActorCitizen.IsStafflike())
	assert.False(t, ActorAnonymous.IsStafflike())

	assert.True(t, ActorCitizen.IsSubmitter())
	assert.True(t, ActorAnonymous.IsSubmitter())
	assert.False(t, ActorStaff.IsSubmitter())
	assert.False(t, ActorSystem.IsSubmitter())
}

func TestParseStaffRole(t *testing.T) {
	for _, s := range []string{"admin", "supervisor", "moderator", "analyst"} {
		role, err := ParseStaffRole(s)
		require.NoError(t, err)
		assert.Equal(t, s, role.String())
	}

	// Agents carry RoleAgent implicitly; it is not assignable to staff.
	_, err := ParseStaffRole("agent")
	require.Error(t, err)
}
