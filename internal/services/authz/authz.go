package authz

// Admins is the single authorization capability for administrator-only
// operations. The allow-list comes from configuration at startup and is
// immutable afterwards, so checks are safe from any goroutine.
type Admins struct {
	ids map[int64]struct{}
}

func NewAdmins(ids []int64) *Admins {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id > 0 {
			set[id] = struct{}{}
		}
	}
	return &Admins{ids: set}
}

func (a *Admins) IsAdmin(userID int64) bool {
	if a == nil {
		return false
	}
	_, ok := a.ids[userID]
	return ok
}
