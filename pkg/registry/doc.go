// Package registry tracks the live transport sessions hosted by this process.
//
// The registry is the only shared mutable structure in the realtime core. It
// answers one question for the relay listener: which local streams should
// receive an event for a given user. It deliberately knows nothing about
// other processes; distributed presence is the broker's job.
package registry
