package state

// Reduce is the terminal middleware stage: it applies a
// [Reducible] action to s in place. Actions that don't implement
// Reducible (thunks, and any action consumed by an earlier middleware
// stage such as persistence/recorder) reach here as a no-op, since
// internal/store's pipeline never lets them fall through this far.
func Reduce(s *State, a any) error {
	r, ok := a.(Reducible)
	if !ok {
		return nil
	}
	return r.Reduce(s)
}
