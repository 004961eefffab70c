package attendance

import "github.com/stafftrack/attendance/internal/models"

// CanForce reports whether the actor may force attendance for the target.
// Self-targeting is always rejected; forced actions must leave a second
// person accountable.
func CanForce(actor, target *models.User) error {
	if !actor.Role.IsStaffAdmin() {
		return ErrForbidden
	}
	if actor.ID == target.ID {
		return ErrSelfTarget
	}
	return nil
}

// CanSchedule reports whether the actor may create a scheduled entry for
// the target. Managers are confined to their own sector; everyone below
// manager may only schedule for themselves.
func CanSchedule(actor, target *models.User) error {
	if actor.Role.IsStaffAdmin() {
		return nil
	}
	if actor.Role == models.RoleRukovodilac {
		if actor.SectorID == nil {
			return ErrForbidden
		}
		if actor.ID == target.ID {
			return nil
		}
		if target.SectorID == nil || *target.SectorID != *actor.SectorID {
			return ErrForbidden
		}
		return nil
	}
	if actor.ID != target.ID {
		return ErrForbidden
	}
	return nil
}
