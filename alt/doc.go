// Package alt is the sole place kernel.ProcState's Alting* states are
// driven through their CAS transitions; guard.go's fireAlter is the
// central synchronization point. Guards contributed
// by other packages (channel.Reader's EnableAlt/DisableAlt) plug into
// that same fire callback without alt needing to know their internals.
package alt
