package dispatch

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Registration carries the sign-up fields for a new profile.
type Registration struct {
	Role              Role
	Username          string
	Profession        string
	WorkerDescription string
	Number            string
	IsVerified        bool
	Location          string
}

// NewRecord builds the initial record for a sign-up. Every order field starts
// null/false; workers start Ready.
func NewRecord(id uuid.UUID, reg Registration, now time.Time) (WorkerRecord, error) {
	if id == uuid.Nil {
		return WorkerRecord{}, newValidationError("id", "must be set")
	}
	username := strings.TrimSpace(reg.Username)
	if username == "" {
		return WorkerRecord{}, newValidationError("username", "must not be empty")
	}

	rec := WorkerRecord{
		ID:        id,
		Role:      reg.Role,
		Username:  username,
		Location:  strings.TrimSpace(reg.Location),
		Number:    strings.TrimSpace(reg.Number),
		UpdatedAt: now,
	}

	switch reg.Role {
	case RoleWorker:
		profession := strings.TrimSpace(reg.Profession)
		if profession == "" {
			return WorkerRecord{}, newValidationError("profession", "must not be empty")
		}
		rec.Profession = profession
		rec.WorkerDescription = strings.TrimSpace(reg.WorkerDescription)
		rec.IsVerified = reg.IsVerified
		rec.Status = StatusReady
	case RoleCustomer:
	default:
		return WorkerRecord{}, newValidationError("role", "must be worker or customer")
	}

	return rec, nil
}

// ProfileEdit carries the account fields a user may change after sign-up.
// Nil fields are left as they are.
type ProfileEdit struct {
	Username   *string
	Profession *string
	IsVerified *bool
}

// UpdateProfile computes an account edit. Profession and verification only
// exist on worker profiles.
func UpdateProfile(rec WorkerRecord, edit ProfileEdit) (Change, error) {
	var patch Patch

	if edit.Username != nil {
		username := strings.TrimSpace(*edit.Username)
		if username == "" {
			return Change{}, newValidationError("username", "must not be empty")
		}
		if username != rec.Username {
			patch.Username = &username
		}
	}

	if rec.Role != RoleWorker && (edit.Profession != nil || edit.IsVerified != nil) {
		return Change{}, newValidationError("profession", "only workers have a profession")
	}
	if edit.Profession != nil {
		profession := strings.TrimSpace(*edit.Profession)
		if profession == "" {
			return Change{}, newValidationError("profession", "must not be empty")
		}
		if profession != rec.Profession {
			patch.Profession = &profession
		}
	}
	if edit.IsVerified != nil && *edit.IsVerified != rec.IsVerified {
		patch.IsVerified = ptr(*edit.IsVerified)
	}

	if patch.IsEmpty() {
		return Change{Transition: TransitionUpdateProfile, Noop: true}, nil
	}
	return Change{Transition: TransitionUpdateProfile, Patch: patch}, nil
}
