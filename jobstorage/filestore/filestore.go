package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"oss.nandlabs.io/jobforge/codec"
	"oss.nandlabs.io/jobforge/fsutils"
	"oss.nandlabs.io/jobforge/jobmodel"
	"oss.nandlabs.io/jobforge/jobstorage"
	"oss.nandlabs.io/jobforge/uuid"
)

func init() {
	jobstorage.RegisterStorage("file", func(dsn string) (jobstorage.Storage, error) {
		return NewFileStorage(dsn)
	})
}

const (
	lockTTL          = 5 * time.Second
	maxLockAttempts  = 200
	lockRetryBackoff = 2 * time.Millisecond
)

// FileStorage is the embedded-KV reference backend: all six logical trees
// live in one serialized document, encoded by the codec matching the file
// extension (.json, .yaml, .xml). Every mutation reads the whole document,
// applies its change, and rewrites it atomically via a temp-file-then-rename.
type FileStorage struct {
	mu   sync.Mutex
	path string
	c    codec.Codec
}

// NewFileStorage opens or creates the document at path. The serialization
// format is chosen from the file extension via fsutils.LookupContentType.
func NewFileStorage(path string) (*FileStorage, error) {
	contentType := fsutils.LookupContentType(path)
	c, err := codec.GetDefault(contentType)
	if err != nil {
		return nil, fmt.Errorf("filestore: unsupported file type %q for %s: %w", contentType, filepath.Base(path), err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	fs := &FileStorage{path: path, c: c}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if writeErr := fs.writeDoc(newDocument(time.Now())); writeErr != nil {
			return nil, writeErr
		}
	}
	return fs, nil
}

func (fs *FileStorage) readDoc() (*document, error) {
	f, err := os.Open(fs.path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	doc := newDocument(time.Now())
	if err := fs.c.Read(f, doc); err != nil {
		return nil, err
	}
	for i := range doc.JobInfo {
		doc.JobInfo[i].RehydrateBackoff()
	}
	return doc, nil
}

// writeDoc persists doc to a temp file and renames it over fs.path so a
// crash mid-write never leaves a corrupt document in place.
func (fs *FileStorage) writeDoc(doc *document) error {
	for i := range doc.JobInfo {
		doc.JobInfo[i].SnapshotBackoff()
	}

	tmp := fs.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := fs.c.Write(doc, f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, fs.path)
}

// GenerateID returns NextID and persists its successor.
func (fs *FileStorage) GenerateID(context.Context) (uint64, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.readDoc()
	if err != nil {
		return 0, err
	}
	doc.NextID++
	id := doc.NextID
	if err := fs.writeDoc(doc); err != nil {
		return 0, err
	}
	return id, nil
}

// SaveJob inserts or overwrites job by id in the jobinfo tree.
func (fs *FileStorage) SaveJob(_ context.Context, job jobmodel.JobInfo) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.readDoc()
	if err != nil {
		return err
	}
	if i := doc.findJob(job.Id); i >= 0 {
		doc.JobInfo[i] = job
	} else {
		doc.JobInfo = append(doc.JobInfo, job)
	}
	return fs.writeDoc(doc)
}

// FetchJob reads a job by id from the jobinfo tree.
func (fs *FileStorage) FetchJob(_ context.Context, id uint64) (jobmodel.JobInfo, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.readDoc()
	if err != nil {
		return jobmodel.JobInfo{}, err
	}
	i := doc.findJob(id)
	if i < 0 {
		return jobmodel.JobInfo{}, jobstorage.ErrJobNotFound
	}
	return doc.JobInfo[i], nil
}

// FetchJobFromQueue takes the per-queue spinlock in the lock tree, then
// atomically removes and returns the first ready job in queue.
func (fs *FileStorage) FetchJobFromQueue(_ context.Context, queue string, now time.Time) (jobmodel.JobInfo, error) {
	token, err := fs.acquireQueueLock(queue)
	if err != nil {
		return jobmodel.JobInfo{}, err
	}
	defer fs.releaseQueueLock(queue, token)

	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.readDoc()
	if err != nil {
		return jobmodel.JobInfo{}, err
	}

	qi := doc.findQueue(queue)
	if qi < 0 {
		return jobmodel.JobInfo{}, jobstorage.ErrQueueEmpty
	}
	ids := doc.Queue[qi].IDs
	for i, id := range ids {
		ji := doc.findJob(id)
		if ji < 0 || !doc.JobInfo[ji].Ready(now) {
			continue
		}
		job := doc.JobInfo[ji]
		doc.Queue[qi].IDs = append(ids[:i:i], ids[i+1:]...)
		if err := fs.writeDoc(doc); err != nil {
			return jobmodel.JobInfo{}, err
		}
		return job, nil
	}
	return jobmodel.JobInfo{}, jobstorage.ErrQueueEmpty
}

// acquireQueueLock CAS-installs a fresh uuid.V1 token into the lock tree
// under queue, retrying on conflict until maxLockAttempts is exhausted. A
// lock whose Expires has already passed is treated as stale and may be
// stolen.
func (fs *FileStorage) acquireQueueLock(queue string) (string, error) {
	id, err := uuid.V1()
	if err != nil {
		return "", err
	}
	token := id.String()

	for attempt := 0; attempt < maxLockAttempts; attempt++ {
		acquired, err := fs.tryAcquireQueueLock(queue, token)
		if err != nil {
			return "", err
		}
		if acquired {
			return token, nil
		}
		time.Sleep(lockRetryBackoff)
	}
	return "", jobstorage.ErrLockHeld
}

func (fs *FileStorage) tryAcquireQueueLock(queue, token string) (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.readDoc()
	if err != nil {
		return false, err
	}

	now := time.Now()
	li := doc.findLock(queue)
	if li >= 0 && now.Before(doc.Lock[li].Expires) {
		return false, nil
	}

	entry := lockTreeEntry{Queue: queue, Owner: token, Expires: now.Add(lockTTL)}
	if li >= 0 {
		doc.Lock[li] = entry
	} else {
		doc.Lock = append(doc.Lock, entry)
	}
	if err := fs.writeDoc(doc); err != nil {
		return false, err
	}
	return true, nil
}

func (fs *FileStorage) releaseQueueLock(queue, token string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.readDoc()
	if err != nil {
		return
	}
	li := doc.findLock(queue)
	if li >= 0 && doc.Lock[li].Owner == token {
		doc.Lock = append(doc.Lock[:li:li], doc.Lock[li+1:]...)
		_ = fs.writeDoc(doc)
	}
}

// QueueJob places id at the tail of queue, clearing any runner binding
// first.
func (fs *FileStorage) QueueJob(_ context.Context, queue string, id uint64) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.readDoc()
	if err != nil {
		return err
	}
	doc.clearRunnerBinding(id)
	doc.appendToQueue(queue, id)
	return fs.writeDoc(doc)
}

// RunJob binds id to runnerID, clearing any prior binding on either side,
// and removes id from every queue.
func (fs *FileStorage) RunJob(_ context.Context, id uint64, runnerID uint64) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.readDoc()
	if err != nil {
		return err
	}
	doc.clearRunnerBinding(id)
	doc.clearRunnerID(runnerID)
	doc.bindRunner(id, runnerID)
	doc.removeFromAllQueues(id)
	return fs.writeDoc(doc)
}

// DeleteJob removes id and all its queue/runner bindings.
func (fs *FileStorage) DeleteJob(_ context.Context, id uint64) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.readDoc()
	if err != nil {
		return err
	}
	i := doc.findJob(id)
	if i < 0 {
		return jobstorage.ErrJobNotFound
	}
	doc.JobInfo = append(doc.JobInfo[:i:i], doc.JobInfo[i+1:]...)
	doc.clearRunnerBinding(id)
	doc.removeFromAllQueues(id)
	return fs.writeDoc(doc)
}

// GetStats returns the current stats snapshot.
func (fs *FileStorage) GetStats(context.Context) (jobmodel.Stats, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.readDoc()
	if err != nil {
		return jobmodel.Stats{}, err
	}
	return doc.Stats, nil
}

// UpdateStats applies f to the stats tree and persists the result.
func (fs *FileStorage) UpdateStats(_ context.Context, f func(*jobmodel.Stats)) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.readDoc()
	if err != nil {
		return err
	}
	f(&doc.Stats)
	return fs.writeDoc(doc)
}

// Close is a no-op: the file is opened and closed on each operation.
func (fs *FileStorage) Close() error {
	return nil
}
