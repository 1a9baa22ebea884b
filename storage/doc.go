// Package storage provides the durable key/value store a client keeps its tokens in,
// together with change notifications between clients sharing that store.
//
// A write carries the origin found on its context ([WithOrigin]); subscribers use
// it to ignore their own writes, the same way a browser does not deliver a storage
// event to the tab that caused it.
//
// Two implementations ship: [Memory] for a single process and [Redis] for clients
// spread over processes.
package storage
