package common

import (
	"io/ioutil"
	"os"
	"strings"
	"testing"
)

func TestFakeBlobStoreRoundTrip(t *testing.T) {
	store := NewFakeBlobStore()

	content := "age,workclass\n39,State-gov\n"
	err := store.Put("census/train/train.csv", strings.NewReader(content), int64(len(content)))
	if err != nil {
		t.Fatalf("Error uploading blob: %s", err)
	}

	blob, err := store.Get("census/train/train.csv")
	if err != nil {
		t.Fatalf("Error retrieving blob: %s", err)
	}
	defer blob.Close()

	data, err := ioutil.ReadAll(blob)
	if err != nil {
		t.Fatalf("Error reading blob: %s", err)
	}
	if string(data) != content {
		t.Errorf("Blob content changed through the round trip: %s", data)
	}
}

func TestFakeBlobStoreList(t *testing.T) {
	store := NewFakeBlobStore()

	for _, key := range []string{"census/output/b.out", "census/output/a.out", "census/train/train.csv"} {
		if err := store.Put(key, strings.NewReader("x"), 1); err != nil {
			t.Fatalf("Error uploading blob %s: %s", key, err)
		}
	}

	keys, err := store.List("census/output")
	if err != nil {
		t.Fatalf("Error listing blobs: %s", err)
	}
	if len(keys) != 2 {
		t.Fatalf("Expected 2 keys under census/output, got %d", len(keys))
	}
	if keys[0] != "census/output/a.out" || keys[1] != "census/output/b.out" {
		t.Errorf("Expected sorted keys, got %v", keys)
	}
}

func TestFakeBlobStoreDelete(t *testing.T) {
	store := NewFakeBlobStore()

	store.Put("census/tmp", strings.NewReader("x"), 1)
	if err := store.Delete("census/tmp"); err != nil {
		t.Fatalf("Error deleting blob: %s", err)
	}

	keys, _ := store.List("census/tmp")
	if len(keys) != 0 {
		t.Errorf("Expected no keys after delete, got %v", keys)
	}
}

func TestFakeBlobStorePoisonValues(t *testing.T) {
	store := NewFakeBlobStore()

	// A naughty announced size makes the upload fail
	if err := store.Put("census/tmp", strings.NewReader("x"), 666666666); err == nil {
		t.Errorf("Expected an error on a naughty size")
	}

	// A key hosting the vicious devil makes the download fail
	if _, err := store.Get("artifact/" + ViciousDevilUUID); err == nil {
		t.Errorf("Expected an error on a vicious key")
	}
}

func TestLocalBlobStoreRoundTrip(t *testing.T) {
	dataDir, err := ioutil.TempDir("", "blobstore-test")
	if err != nil {
		t.Fatalf("Error creating temporary directory: %s", err)
	}
	defer os.RemoveAll(dataDir)

	store, err := NewLocalBlobStore(dataDir)
	if err != nil {
		t.Fatalf("Error creating local blob store: %s", err)
	}

	content := "39,State-gov,77516\n"
	if err = store.Put("census/test/test.csv", strings.NewReader(content), int64(len(content))); err != nil {
		t.Fatalf("Error uploading blob: %s", err)
	}

	blob, err := store.Get("census/test/test.csv")
	if err != nil {
		t.Fatalf("Error retrieving blob: %s", err)
	}
	defer blob.Close()

	data, err := ioutil.ReadAll(blob)
	if err != nil {
		t.Fatalf("Error reading blob: %s", err)
	}
	if string(data) != content {
		t.Errorf("Blob content changed through the round trip: %s", data)
	}
}

func TestLocalBlobStoreList(t *testing.T) {
	dataDir, err := ioutil.TempDir("", "blobstore-test")
	if err != nil {
		t.Fatalf("Error creating temporary directory: %s", err)
	}
	defer os.RemoveAll(dataDir)

	store, _ := NewLocalBlobStore(dataDir)
	for _, key := range []string{"census/output/a.out", "census/output/b.out", "census/labels.csv"} {
		if err := store.Put(key, strings.NewReader("x"), 1); err != nil {
			t.Fatalf("Error uploading blob %s: %s", key, err)
		}
	}

	keys, err := store.List("census/output")
	if err != nil {
		t.Fatalf("Error listing blobs: %s", err)
	}
	if len(keys) != 2 {
		t.Errorf("Expected 2 keys under census/output, got %v", keys)
	}
}

func TestLocalBlobStoreDelete(t *testing.T) {
	dataDir, err := ioutil.TempDir("", "blobstore-test")
	if err != nil {
		t.Fatalf("Error creating temporary directory: %s", err)
	}
	defer os.RemoveAll(dataDir)

	store, _ := NewLocalBlobStore(dataDir)
	store.Put("census/tmp", strings.NewReader("x"), 1)

	if err = store.Delete("census/tmp"); err != nil {
		t.Fatalf("Error deleting blob: %s", err)
	}
	if _, err = store.Get("census/tmp"); err == nil {
		t.Errorf("Expected an error retrieving a deleted blob")
	}
}
