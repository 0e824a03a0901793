// Package store persists admin-managed content records.
//
// Postgres is the production implementation; Memory serves local
// development and handler tests. Both return ErrNotFound and ErrDuplicate
// so callers can classify failures with xerrors.KindOf.
package store
