package rotate

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	E "github.com/sagernet/sing/common/exceptions"
)

// writeDate swaps the live handle when the entry's calendar day (UTC)
// differs from the open bucket, then appends. The bucket comes from the
// entry timestamp, not wall-clock time, so backdated entries land in their
// own day's file. Swapping is synchronous: opening an append handle is not
// destructive, so it does not go through the task queue.
func (w *Writer) writeDate(message []byte, timestamp time.Time) error {
	bucket := timestamp.UTC().Format(dateFormat)
	if bucket != w.bucket || w.file == nil {
		if w.file != nil {
			w.file.Close()
			w.file = nil
		}
		w.bucket = bucket
		file, err := os.OpenFile(w.bucketPath(bucket, 0, false), os.O_APPEND|os.O_CREATE|os.O_WRONLY, fileMode)
		if err != nil {
			// No live stream; entries are dropped until a later write
			// succeeds in reopening.
			return E.Cause(err, "open bucket file")
		}
		w.file = file
	}
	_, err := w.file.Write(message)
	return err
}

// writeHybrid is writeDate plus a size check against the entry's bucket
// file. The size is read from disk on every write since the bucket may have
// just switched.
func (w *Writer) writeHybrid(message []byte, timestamp time.Time) error {
	bucket := timestamp.UTC().Format(dateFormat)
	path := w.bucketPath(bucket, 0, false)
	if info, err := os.Stat(path); err == nil && info.Size()+int64(len(message)) > w.maxFileSize {
		if w.rotatePending.CompareAndSwap(false, true) {
			w.queue.EnqueueNotifyDrop(func() error {
				return w.rotateBucket(path, bucket)
			}, w.clearRotatePending)
		}
	}
	return w.writeDate(message, timestamp)
}

// rotateBucket runs on the task queue. Unlike size rotation there is no
// generation shift: hybrid files are partitioned per bucket, so the
// over-sized file moves to the first unused numeric suffix of its own day.
// The live stream is reopened lazily by the next write's bucket check.
func (w *Writer) rotateBucket(path string, bucket string) error {
	defer w.clearRotatePending()
	w.access.Lock()
	defer w.access.Unlock()
	if !fileExists(path) {
		return nil
	}
	if w.file != nil && w.bucket == bucket {
		w.file.Close()
		w.file = nil
	}
	number := 1
	for fileExists(w.bucketPath(bucket, number, false)) || fileExists(w.bucketPath(bucket, number, true)) {
		number++
	}
	target := w.bucketPath(bucket, number, false)
	err := os.Rename(path, target)
	if err != nil {
		return E.Cause(err, "archive bucket file")
	}
	if w.compress {
		err = compressFile(target)
		if err != nil {
			return E.Cause(err, "compress ", target)
		}
	}
	return nil
}

func (w *Writer) bucketPath(bucket string, number int, compressed bool) string {
	name := w.pattern + "-" + bucket
	if number > 0 {
		name += "." + strconv.Itoa(number)
	}
	name += ".log"
	if compressed {
		name += compressSuffix
	}
	return filepath.Join(w.directory, name)
}
