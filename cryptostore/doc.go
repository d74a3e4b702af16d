// Package cryptostore adapts a flat key-value backend into the full
// data-access contract of a Matrix end-to-end-encryption subsystem.
//
// # Architecture
//
// The package is built from four pieces:
//
//   - Key codec: a reversible mapping from (entity kind, identifier
//     components) to a single flat storage key, safe under prefix
//     listing because every component is percent-escaped.
//   - Entity codec: JSON serialization of entity values, where both an
//     absent key and a stored literal null decode to "no value".
//   - Batch: a completion aggregator that groups any number of
//     operations and fires one signal when all of them have finished.
//   - FlatStore: the entity operations themselves, composed from the
//     codecs and the backend's list/get/set/remove primitives.
//
// # Data Layout
//
// Every key lives under the root tag "crypto":
//
//	crypto.account                                  account pickle
//	crypto.device_data                              device data blob
//	crypto.cross_signing_keys                       cross-signing blob
//	crypto.sessions/<senderKey>/<sessionID>         Olm sessions
//	crypto.inbound_group_sessions/<sk>/<sid>        Megolm sessions
//	crypto.inbound_group_sessions_withheld/<sk>/<sid>
//	crypto.rooms/<roomID>                           room encryption config
//	crypto.secret_store_keys/<type>                 secret-storage keys
//	crypto.outgoing_key_requests/<requestID>        key requests
//	crypto.session_problems/<senderKey>             problem logs
//	crypto.notified_error_devices                   notified-device map
//	crypto.sessions_needing_backup                  backup membership set
//	crypto.shared_history_sessions/<roomID>         shared-history lists
//	crypto.parked_shared_history/<roomID>           parked history lists
//	crypto.migration_state                          migration progress
//
// Range queries do not exist in the backend, so listing is always a
// full ListKeys scan filtered by prefix, and the secondary indexes
// (backup membership, shared history) are ordinary values maintained
// alongside the data they annotate.
//
// # Not a Transaction
//
// Batch gives the caller exactly one guarantee: a single signal once
// every grouped operation has finished, carrying the first error if any
// failed. There is no atomicity, no isolation between concurrently open
// batches, and no rollback of operations that completed before a later
// one failed. See the Batch type for details.
package cryptostore
