// Package content reads the site's Markdown/MDX files into Items and
// answers the queries the public API needs.
//
// The core components are:
//   - [Loader]: lists, parses and validates content files on every call
//   - [Search], [Categories], [FilterByTags]: pure functions over loaded items
//   - [Watcher]: publishes a revision digest of the content directory
//
// The loader keeps no state between calls. Edits on disk are visible to
// the next request without a restart.
package content
