// Package relaykit is the realtime delivery core of a collaboration
// platform: it moves chat messages and notifications from producers to
// connected clients across multiple stateless processes, with presence,
// typing indicators, delivery/read receipts, and bounded replay on reconnect.
//
// The core is transport- and storage-agnostic. Persistence, authentication,
// and chatability rules are collaborators injected through small interfaces;
// a Redis-backed broker carries all cross-process coordination.
//
// Construct a Service at process startup, Start it, mount the
// modules/realtime router, and Stop it on shutdown:
//
//	b, _ := broker.Connect(ctx, cfg)
//	svc := relaykit.New(relaykit.Deps{
//	    Broker:        b,
//	    MessageStore:  store,
//	    ChatableUsers: rules,
//	})
//	_ = svc.Start(ctx)
//	defer svc.Stop(ctx)
package relaykit
