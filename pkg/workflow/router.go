package workflow

import (
	"github.com/oa-lab/hrdesk/dao/model"
)

// OwningRole is the escalation router: a pure function from escalation
// state to the reviewer role that currently owns a consultation. It is
// re-evaluated on every call rather than cached, since escalation can
// happen mid-session.
func OwningRole(isEscalated bool) model.Role {
	if isEscalated {
		return model.RoleCentralReviewer
	}
	return model.RoleUnitReviewer
}

// checkConsultationOwner verifies that the actor is the reviewer role
// currently owning the consultation. Unit reviewers are additionally
// scoped to the consultation's owning unit; once escalated they keep
// read access but lose every write path.
func checkConsultationOwner(actor Actor, c *model.Consultation) error {
	owner := OwningRole(c.IsEscalated)
	if actor.Role != owner {
		return errUnauthorized("consultation %d is owned by %s", c.ID, owner)
	}
	if owner == model.RoleUnitReviewer && actor.UnitID != c.UnitID {
		return errUnauthorized("consultation %d belongs to unit %d", c.ID, c.UnitID)
	}
	return nil
}
