/*
Package workers sizes the scanner and thumbnail worker pools.

Worker counts are configured with INDEX_WORKERS and THUMBNAIL_WORKERS. Both
default to 1 (sequential). The value "auto" derives a count from GOMAXPROCS,
which Go sets from the container CPU limit, rather than runtime.NumCPU, which
reports the host:

	n := workers.Resolve(cfg.IndexWorkers, workers.ForIO, 32)

Hashing is I/O-bound so the scanner uses ForIO; thumbnail decoding and
resizing are CPU-bound and use ForCPU.
*/
package workers
