// Package broker wraps the publish/subscribe backend that coordinates
// realtime delivery across stateless processes.
//
// The Broker contract covers four concerns:
//
//   - channel publish and glob pattern subscribe for event fan-out
//   - TTL-based presence keys (existence = online, no reference counting)
//   - a bounded per-user replay list used as the notification catch-up cache
//   - deterministic channel and key naming shared by every process
//
// Two implementations are provided: RedisBroker for production clusters
// (github.com/redis/go-redis) and MemoryBroker for tests and single-process
// runs. Publish is best effort on both: the persistence layer, not the
// broker, is the system of record.
//
// # Usage
//
//	b, err := broker.Connect(ctx, cfg)
//	if err != nil {
//	    // terminate: the broker is required infrastructure
//	}
//	defer b.Close()
//
//	sub, err := b.SubscribePatterns(ctx, broker.Patterns()...)
//	if err != nil {
//	    // reconnect with backoff
//	}
//	for ev := range sub.Events() {
//	    class, userID, ok := broker.SplitChannel(ev.Channel)
//	    ...
//	}
package broker
