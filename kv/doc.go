// Package kv defines the flat key-value backend contract the crypto
// store is built on, plus an in-memory implementation.
//
// # Contract
//
// A Backend is a flat namespace of string keys to string values with
// four operations:
//
//   - ListKeys: enumerate every key in the namespace
//   - Get: fetch one value, reporting absence explicitly
//   - Set: store one value, overwriting any previous value
//   - Remove: delete one key; removing an absent key is not an error
//
// There are no range queries, no multi-key operations, and no
// transactions. Higher layers (cryptostore) emulate structure and
// secondary indexes entirely out of these four primitives.
//
// # Implementations
//
// Memory is the reference implementation and test double. Durable
// substrates live in subpackages: sqlkv (SQLite), boltkv (bbolt),
// pebblekv (Pebble). All of them pass the shared conformance suite in
// kv/kvtest.
package kv
