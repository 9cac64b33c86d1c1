package filestore_test

import (
	"path/filepath"
	"testing"

	"oss.nandlabs.io/jobforge/jobstorage"
	"oss.nandlabs.io/jobforge/jobstorage/filestore"
	"oss.nandlabs.io/jobforge/jobstorage/storagetest"
)

func TestFileStorage_ConformsToSuite(t *testing.T) {
	for _, ext := range []string{".json", ".yaml", ".xml"} {
		ext := ext
		t.Run(ext, func(t *testing.T) {
			storagetest.Run(t, func(t *testing.T) jobstorage.Storage {
				path := filepath.Join(t.TempDir(), "jobs"+ext)
				s, err := filestore.NewFileStorage(path)
				if err != nil {
					t.Fatalf("NewFileStorage: %v", err)
				}
				t.Cleanup(func() { s.Close() })
				return s
			})
		})
	}
}
