package domain

import (
	"fmt"
)

// ActorKind discriminates the four party variants that can authenticate
// against the service. Tokens, notifications, and responses all carry a kind
// next to the actor ID because IDs are only unique within a kind's collection.
type ActorKind string

const (
	ActorCitizen   ActorKind = "citizen"
	ActorAnonymous ActorKind = "anonymous"
	ActorAgent     ActorKind = "agent"
	ActorStaff     ActorKind = "staff"
	// ActorSystem authors machine-generated audit responses. It never logs in
	// and never receives a token.
	ActorSystem ActorKind = "system"
)

// ParseActorKind validates a kind received at a trust boundary. ActorSystem is
// deliberately not parseable: it exists only as an author tag.
func ParseActorKind(s string) (ActorKind, error) {
	switch ActorKind(s) {
	case ActorCitizen, ActorAnonymous, ActorAgent, ActorStaff:
		return ActorKind(s), nil
	}
	return "", fmt.Errorf("unknown actor kind: %q", s)
}

func (k ActorKind) String() string { return string(k) }

// IsStafflike reports whether the kind acts on behalf of the administration
// (may see internal responses, may drive forward status transitions).
func (k ActorKind) IsStafflike() bool {
	return k == ActorAgent || k == ActorStaff
}

// IsSubmitter reports whether the kind can file complaints on its own behalf.
func (k ActorKind) IsSubmitter() bool {
	return k == ActorCitizen || k == ActorAnonymous
}

// StaffRole scopes a staff token's lifetime and admin surface.
type StaffRole string

const (
	RoleAdmin      StaffRole = "admin"
	RoleSupervisor StaffRole = "supervisor"
	RoleModerator  StaffRole = "moderator"
	RoleAnalyst    StaffRole = "analyst"

	// RoleAgent is the single fixed role for agency agents.
	RoleAgent StaffRole = "agent"
)

func ParseStaffRole(s string) (StaffRole, error) {
	switch StaffRole(s) {
	case RoleAdmin, RoleSupervisor, RoleModerator, RoleAnalyst:
		return StaffRole(s), nil
	}
	return "", fmt.Errorf("unknown staff role: %q", s)
}

func (r StaffRole) String() string { return string(r) }
