package channel

import "fmt"

// PoisonError is returned by Read/Write/ExtInput once a channel has been
// poisoned. Match it with errors.Is(err, new(PoisonError))
// regardless of the channel's name.
type PoisonError struct {
	Name string
}

func (e *PoisonError) Error() string {
	if e.Name == "" {
		return "gocsp: channel poisoned"
	}
	return fmt.Sprintf("gocsp: channel %q poisoned", e.Name)
}

// Is reports whether target is also a *PoisonError, ignoring Name, so
// callers can use errors.Is without knowing a channel's debug name.
func (e *PoisonError) Is(target error) bool {
	_, ok := target.(*PoisonError)
	return ok
}
