// Package push implements the connection and channel registry at the heart
// of Pushgate.
//
// The Manager tracks live client connections (several per user id), named
// channels and their member user ids, per-channel auth tokens and content
// tokens, and directional presence visibility. It resolves publish targets
// to the connections that are live at publish time and delivers to each of
// them in isolation.
//
// # Ownership
//
// A single Manager is constructed at process start and handed to every
// component that needs it:
//
//	mgr := push.NewManager(push.Options{StrictPublish: cfg.Push.StrictPublish})
//	defer mgr.Shutdown()
//
// # Errors
//
// Every operation reports failures as one of the sentinel errors in this
// package, wrapped with context. Use errors.Is to classify them, or KindOf
// to obtain the kind name:
//
//	if errors.Is(err, push.ErrNoActiveSession) {
//	    // the user must connect first
//	}
//
// The package performs no logging and has no transport dependencies; callers
// supply Connection implementations and translate errors for their clients.
//
// Thread Safety: All Manager methods are safe for concurrent use.
// Mutations of one channel are serialised; unrelated channels do not block
// each other.
package push
