// Package sqlite provides a local docstore.Store backed by SQLite for
// development and single-host deployments without Firestore.
package sqlite
