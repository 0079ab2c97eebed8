package common

import "io"

// BlobStore describes a form of storage targeted at storing files, regardless of the data they
// embed. A file is stored under a given key that can be used for further retrieval. It aims at
// abstracting disk storage as well as Amazon S3 (and alike) distributed storage platforms
type BlobStore interface {
	Put(key string, data io.Reader, size int64) error
	Get(key string) (data io.ReadCloser, err error)

	// List returns the keys living under a given prefix. Batch transform jobs write one output
	// file per input file under their output prefix, hence the need to enumerate them.
	List(prefix string) (keys []string, err error)

	Delete(key string) error
}
