package jobstorage_test

import (
	"testing"

	"oss.nandlabs.io/jobforge/jobstorage"
	"oss.nandlabs.io/jobforge/jobstorage/storagetest"
)

func TestInMemoryStorage_ConformsToSuite(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) jobstorage.Storage {
		return jobstorage.NewInMemoryStorage()
	})
}
