// Package content owns practice items and the sets they ship in: parsing
// set files, the process-wide current set, and the catalog, draft, and
// promotion flows over object storage and the document store.
package content
