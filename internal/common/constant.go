package common

// ScopeRecordKeyPrefix prefixes the persistence key for per-scope records,
// both in the local database and in object storage.
const ScopeRecordKeyPrefix = "categorysync:scope:"
