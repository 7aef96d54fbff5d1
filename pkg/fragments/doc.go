// Package fragments provides owned, typed storage of opaque content
// fragments with on-read format conversion.
//
// A Fragment is a metadata record (owner, media type, size, timestamps)
// paired 1:1 with a raw data blob. Metadata and data are persisted through
// two separate store interfaces so backends can be mixed (for example
// Postgres metadata with S3 blobs). The Service type is the only API the
// surrounding HTTP layer calls: it enforces type immutability, owner
// isolation and size consistency, and delegates format conversion to the
// convert package.
//
// Storage backends live under store/ (memory, fs, s3, postgres). The
// in-memory backend is the reference implementation used by tests.
package fragments
