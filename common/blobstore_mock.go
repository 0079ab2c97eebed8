/*
 * Copyright Tabular Pipeline Org. 2026
 *
 * contact@tabular-pipeline.io
 *
 * This software is part of the Tabular Pipeline project, an open-source
 * machine learning pipeline.
 *
 * This software is governed by the CeCILL license, compatible with the
 * GNU GPL, under French law and abiding by the rules of distribution of
 * free software. You can  use, modify and/ or redistribute the software
 * under the terms of the CeCILL license as circulated by CEA, CNRS and
 * INRIA at the following URL "http://www.cecill.info".
 *
 * As a counterpart to the access to the source code and  rights to copy,
 * modify and redistribute granted by the license, users are provided only
 * with a limited warranty  and the software's author,  the holder of the
 * economic rights,  and the successive licensors  have only  limited
 * liability.
 *
 * In this respect, the user's attention is drawn to the risks associated
 * with loading,  using,  modifying and/or developing or reproducing the
 * software by the user in light of its specific status of free software,
 * that may mean  that it is complicated to manipulate,  and  that  also
 * therefore means  that it is reserved for developers  and  experienced
 * professionals having in-depth computer knowledge. Users are therefore
 * encouraged to load and test the software's suitability as regards their
 * requirements in conditions enabling the security of their systems and/or
 * data to be ensured and,  more generally, to use and operate it in the
 * same conditions as regards security.
 *
 * The fact that you are presently reading this means that you have had
 * knowledge of the CeCILL license and that you accept its terms.
 */

package common

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"sort"
	"strings"
	"sync"
)

// Poison values for the fake blob store (tests & local dev. purposes)
const (
	// ViciousDevilUUID makes any Get on a key containing it fail
	ViciousDevilUUID = "76dfb1b6-9b9c-4cbe-a79f-9d4ee0b83d46"

	// NaughtySize makes any Put with that announced size fail
	NaughtySize = "666666666"
)

// FakeBlobStore is an in-memory BlobStore (for tests & local dev. purposes)
type FakeBlobStore struct {
	blobs map[string][]byte
	lock  sync.Mutex
}

// NewFakeBlobStore instantiates our in-memory blob store
func NewFakeBlobStore() *FakeBlobStore {
	return &FakeBlobStore{
		blobs: map[string][]byte{},
	}
}

// Put reads the blob in memory, unless the announced size is naughty
func (s *FakeBlobStore) Put(key string, data io.Reader, size int64) error {
	if fmt.Sprintf("%d", size) == NaughtySize {
		return fmt.Errorf("[fake-storage] Error uploading blob %s: naughty size", key)
	}

	content, err := ioutil.ReadAll(data)
	if err != nil {
		return fmt.Errorf("[fake-storage] Error reading blob %s: %s", key, err)
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.blobs[key] = content
	return nil
}

// Get returns the blob stored under the given key, unless the key hosts a vicious devil
func (s *FakeBlobStore) Get(key string) (data io.ReadCloser, err error) {
	if strings.Contains(key, ViciousDevilUUID) {
		return nil, fmt.Errorf("[fake-storage] Error retrieving blob %s: the devil ate it", key)
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	content, ok := s.blobs[key]
	if !ok {
		return ioutil.NopCloser(bytes.NewBufferString("fakeblobcontent")), nil
	}
	return ioutil.NopCloser(bytes.NewReader(content)), nil
}

// List enumerates the in-memory keys stored under the given prefix
func (s *FakeBlobStore) List(prefix string) (keys []string, err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	for key := range s.blobs {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete forwards the blob under the given key... to oblivion
func (s *FakeBlobStore) Delete(key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.blobs, key)
	return nil
}
