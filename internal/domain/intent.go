package domain

// IntentKind distinguishes entry from exit intents.
type IntentKind string

// Intent kind codes
const (
	IntentEntry IntentKind = "ENTRY"
	IntentExit  IntentKind = "EXIT"
)

// OrderIntent is the abstract order handed to the execution collaborator.
// The engine never places real orders; it emits intents and waits for a
// bounded confirmation before committing the matching state transition.
type OrderIntent struct {
	PositionID string
	Direction  Direction
	Quantity   int64
	Kind       IntentKind
	Price      float64 // reference premium at emission, for audit
}
