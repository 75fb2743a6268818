package service

// Actor is the user a request acts on behalf of. The zero value is anonymous.
type Actor struct {
	UserID  uint
	IsAdmin bool
}

func Anonymous() Actor {
	return Actor{}
}

func (a Actor) Authenticated() bool {
	return a.UserID != 0
}

// CanModify reports whether the actor may change a resource owned by authorID.
func (a Actor) CanModify(authorID uint) bool {
	return a.Authenticated() && (a.IsAdmin || a.UserID == authorID)
}

func requireAuth(a Actor) error {
	if !a.Authenticated() {
		return ErrUnauthorized
	}
	return nil
}
