package workflow

import (
	"github.com/oa-lab/hrdesk/dao/model"
)

// Actor identifies who performs an engine call. It is always passed in
// explicitly; the engine never reads ambient session state, which keeps
// every authorization check a pure function of its inputs.
type Actor struct {
	ID     uint
	Role   model.Role
	UnitID uint
}

// canReviewUnit reports whether the actor may act as a unit reviewer for
// the given owning unit.
func (a Actor) canReviewUnit(unitID uint) bool {
	return a.Role == model.RoleUnitReviewer && a.UnitID == unitID
}

func (a Actor) isCentral() bool {
	return a.Role == model.RoleCentralReviewer
}
