package table

import (
	"time"

	"github.com/Liars-Bar/Liars-bar/internal/events"
)

// animationTTL is how long a trigger stays visible before auto-expiry.
const animationTTL = 2500 * time.Millisecond

// animationFor maps an event to a UI trigger name, or "" for events with no
// animation. Purely presentational, no gameplay semantics.
func animationFor(ev events.Event) string {
	switch ev.(type) {
	case events.CardsShuffledFor:
		return "shuffle"
	case events.CardPlaced:
		return "placeCard"
	case events.LiarCalled:
		return "liarCall"
	case events.EmptyBulletFired:
		return "emptyBullet"
	case events.PlayerEliminated:
		return "elimination"
	case events.GameWinner:
		return "victory"
	default:
		return ""
	}
}
