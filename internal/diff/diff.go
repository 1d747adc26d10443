// Package diff computes identity-based differences between two snapshots
// of a collection.
package diff

// Identifiable is an element with a unique identity and a value-equality
// comparison against other elements of the same type.
type Identifiable[E any] interface {
	Identity() string
	Equal(other E) bool
}

// Op is the kind of change detected between two snapshots.
type Op int

const (
	Inserted Op = iota
	Changed
	Removed
)

func (op Op) String() string {
	switch op {
	case Inserted:
		return "inserted"
	case Changed:
		return "changed"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Change is a single difference between two snapshots.
type Change[E any] struct {
	Op      Op
	Element E
}

// Changes calculates the differences between current and previous. Unlike
// an ordering diff it only reports presence and value changes: an element
// present in current but not previous is Inserted, present in both but no
// longer value-equal is Changed, and present only in previous is Removed.
// Index or offset changes between the collections are not detected.
//
// Inserted and Changed events are emitted in the iteration order of
// current, followed by Removed events in the iteration order of previous.
//
// An identity appearing more than once within either collection is a usage
// error: the result is unspecified (no attempt is made at best-effort
// resolution).
func Changes[E Identifiable[E]](current, previous []E) []Change[E] {
	byID := make(map[string]E, len(previous))
	for _, element := range previous {
		byID[element.Identity()] = element
	}

	currentIDs := make(map[string]struct{}, len(current))
	var changes []Change[E]

	// Walk current, comparing against elements in previous
	for _, element := range current {
		currentIDs[element.Identity()] = struct{}{}
		if other, ok := byID[element.Identity()]; ok {
			if !element.Equal(other) {
				changes = append(changes, Change[E]{Op: Changed, Element: element})
			}
		} else {
			changes = append(changes, Change[E]{Op: Inserted, Element: element})
		}
	}

	// Walk previous, checking for elements that no longer exist in current
	for _, element := range previous {
		if _, ok := currentIDs[element.Identity()]; !ok {
			changes = append(changes, Change[E]{Op: Removed, Element: element})
		}
	}

	return changes
}
