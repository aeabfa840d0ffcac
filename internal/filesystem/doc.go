/*
Package filesystem provides the filesystem primitives the indexer builds on:
directory enumeration, ignore rules and NFS-resilient stat/open.

# Enumeration

WalkFiles visits every regular file below a root. Symbolic links, devices and
other special files are skipped. Entries below the root that cannot be read
are logged and skipped so a single bad directory does not stop a scan.

# Ignore rules

Patterns use .gitignore syntax (github.com/sabhiram/go-gitignore) and are
matched against paths relative to the root:

	m := filesystem.NewIgnoreMatcher([]string{"*.tmp", "@eaDir/", ".thumbnails/"})

# Retry Behavior

StatWithRetry and OpenWithRetry retry only ESTALE (stale NFS file handle)
errors, with exponential backoff driven by github.com/avast/retry-go/v4.
Defaults: 3 retries, 50ms initial backoff, 500ms cap. All other errors are
returned immediately.
*/
package filesystem
