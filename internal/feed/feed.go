package feed

import "github.com/jpalmerr/resultboard"

// Feed publishes the current view of a result store.
//
// Implementations must be safe for concurrent access.
type Feed interface {
	// Latest returns the most recently published view.
	Latest() resultboard.View

	// Subscribe returns a channel that receives every published view.
	// The channel has a buffer; slow consumers may miss views.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan resultboard.View

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan resultboard.View)
}

// Source is the part of a resultboard Store a feed listens to.
type Source interface {
	Subscribe(fn func(resultboard.State)) (unsubscribe func())
	CurrentView() resultboard.View
}
