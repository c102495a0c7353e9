package storage

// Package storage persists the bot's two ledgers:
//   - handled_notifications: notification ids that were already processed
//   - cooldowns: last granted analysis per requester DID
//
// The schema is created idempotently on startup; there is no versioning.
