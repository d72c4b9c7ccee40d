// Package contrib provides tools and test utilities built on the pgstac
// client.
//
// Note that this package is outside of the backward compatibility guarantees
// provided by the core client. Changes to this package may introduce breaking
// changes without following semantic versioning.
//
// [github.com/stac-utils/pgstac-go/contrib/testenv] runs tests against a live
// pgstac database, one rolled-back transaction per test.
// [github.com/stac-utils/pgstac-go/contrib/pgstacdump] and
// [github.com/stac-utils/pgstac-go/contrib/pgstacload] copy collections and
// items between databases through newline-delimited JSON or CBOR files.
package contrib
