// Package sqlstore is a [scopeAuth.UserDirectory] over database/sql.
//
// Two dialects are supported: PostgreSQL through the pgx stdlib driver and
// SQLite through mattn/go-sqlite3. The schema is embedded and applied with
// goose by [Store.Migrate].
//
// Scopes are stored space separated in a single column, the same encoding
// OAuth2 uses on the wire.
package sqlstore
