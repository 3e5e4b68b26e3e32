package rotate

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sagernet/sing-log/taskqueue"
	E "github.com/sagernet/sing/common/exceptions"
	"github.com/sagernet/sing/common/logger"
)

// Trigger selects the rotation strategy of a Writer. It is fixed at
// construction time.
type Trigger string

const (
	// TriggerSize rotates when the live file grows past MaxFileSize,
	// keeping numbered generations (base.log.1, base.log.2, ...).
	TriggerSize Trigger = "size"
	// TriggerDate writes to one file per calendar day (UTC), keyed by the
	// entry timestamp.
	TriggerDate Trigger = "date"
	// TriggerHybrid combines both: one file per day, rotated to numbered
	// per-day files when it grows past MaxFileSize.
	TriggerHybrid Trigger = "hybrid"
)

const (
	DefaultMaxFileSize = 10 << 20
	DefaultMaxFiles    = 5
	DefaultMaxDays     = 30

	dateFormat     = "2006-01-02"
	compressSuffix = ".gz"
	fileMode       = 0o644
	directoryMode  = 0o755
)

type Options struct {
	// FilePath is the live log file. Rotated files are kept in the same
	// directory.
	FilePath string

	// Pattern is the base name of date and hybrid bucket files. Defaults to
	// the FilePath base name without extension.
	Pattern string

	Trigger     Trigger
	MaxFileSize int64
	Compress    bool
	MaxFiles    int
	MaxDays     int

	// Queue runs rotation and compression off the write path. It may be
	// shared across writers; rotations then serialize at the queue level.
	Queue *taskqueue.Queue

	// Logger receives swallowed rotation errors when the writer creates its
	// own queue.
	Logger logger.Logger
}

// Writer owns the live file handle of one rotating log. At most one live
// handle exists per Writer; it is replaced, never mutated in place, when a
// rotation fires or the date bucket changes.
//
// WriteEntry never waits for rotation: slow filesystem work (rename,
// compress, cleanup) runs on the task queue, and an entry that trips the
// size threshold still lands in the file about to be rotated.
type Writer struct {
	access        sync.Mutex
	filePath      string
	directory     string
	pattern       string
	trigger       Trigger
	maxFileSize   int64
	compress      bool
	maxFiles      int
	maxDays       int
	queue         *taskqueue.Queue
	bucketPattern *regexp.Regexp

	file          *os.File
	size          int64
	bucket        string
	rotatePending atomic.Bool
}

func NewWriter(options Options) (*Writer, error) {
	if options.FilePath == "" {
		return nil, E.New("missing file path")
	}
	trigger := options.Trigger
	if trigger == "" {
		trigger = TriggerSize
	}
	switch trigger {
	case TriggerSize, TriggerDate, TriggerHybrid:
	default:
		return nil, E.New("unknown rotation trigger: ", trigger)
	}
	maxFileSize := options.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	maxFiles := options.MaxFiles
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	maxDays := options.MaxDays
	if maxDays <= 0 {
		maxDays = DefaultMaxDays
	}
	pattern := options.Pattern
	if pattern == "" {
		base := filepath.Base(options.FilePath)
		pattern = strings.TrimSuffix(base, filepath.Ext(base))
	}
	queue := options.Queue
	if queue == nil {
		queue = taskqueue.New(taskqueue.Options{Logger: options.Logger})
	}
	writer := &Writer{
		filePath:    options.FilePath,
		directory:   filepath.Dir(options.FilePath),
		pattern:     pattern,
		trigger:     trigger,
		maxFileSize: maxFileSize,
		compress:    options.Compress,
		maxFiles:    maxFiles,
		maxDays:     maxDays,
		queue:       queue,
		bucketPattern: regexp.MustCompile(
			`^` + regexp.QuoteMeta(pattern) + `-(\d{4}-\d{2}-\d{2})\.(\d+)\.log(\.gz)?$`,
		),
	}
	err := os.MkdirAll(writer.directory, directoryMode)
	if err != nil {
		return nil, E.Cause(err, "create log directory")
	}
	if trigger == TriggerSize {
		err = writer.openLive()
		if err != nil {
			return nil, E.Cause(err, "open log file")
		}
	}
	writer.Cleanup()
	return writer, nil
}

// Queue returns the task queue the writer rotates on.
func (w *Writer) Queue() *taskqueue.Queue {
	return w.queue
}

// WriteEntry appends a formatted entry to the live file. The timestamp
// selects the date bucket in date and hybrid mode and is ignored in size
// mode. Size checks happen before the write, but the write always proceeds
// to the current handle, so the file may exceed the threshold by one entry
// until the queued rotation completes.
func (w *Writer) WriteEntry(message []byte, timestamp time.Time) error {
	w.access.Lock()
	defer w.access.Unlock()
	switch w.trigger {
	case TriggerDate:
		return w.writeDate(message, timestamp)
	case TriggerHybrid:
		return w.writeHybrid(message, timestamp)
	default:
		return w.writeSize(message)
	}
}

// Rotate schedules a size rotation regardless of the current file size.
func (w *Writer) Rotate() {
	if w.trigger != TriggerSize {
		return
	}
	if w.rotatePending.CompareAndSwap(false, true) {
		w.queue.EnqueueNotifyDrop(w.rotateGenerations, w.clearRotatePending)
	}
}

func (w *Writer) Close() error {
	w.access.Lock()
	defer w.access.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *Writer) openLive() error {
	file, err := os.OpenFile(w.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, fileMode)
	if err != nil {
		return err
	}
	w.file = file
	w.size = 0
	if info, statErr := file.Stat(); statErr == nil {
		w.size = info.Size()
	}
	return nil
}

func (w *Writer) writeSize(message []byte) error {
	if w.size+int64(len(message)) > w.maxFileSize && w.rotatePending.CompareAndSwap(false, true) {
		w.queue.EnqueueNotifyDrop(w.rotateGenerations, w.clearRotatePending)
	}
	if w.file == nil {
		err := w.openLive()
		if err != nil {
			return err
		}
	}
	n, err := w.file.Write(message)
	w.size += int64(n)
	return err
}

// clearRotatePending re-arms rotation scheduling. It runs when a rotation
// task finishes and when the queue's overflow policy drops one before it
// could run, so a lost rotation only defers the next attempt.
func (w *Writer) clearRotatePending() {
	w.rotatePending.Store(false)
}

// rotateGenerations runs on the task queue. It shifts every existing
// generation up one slot, moves the live file into slot 1 and recreates the
// live handle. Shifting walks from the highest generation down so no file
// is renamed onto one that has not moved yet.
func (w *Writer) rotateGenerations() error {
	defer w.clearRotatePending()
	w.access.Lock()
	defer w.access.Unlock()
	if w.file != nil {
		w.file.Close()
		w.file = nil
	}
	err := w.shiftGenerations()
	if err != nil {
		return err
	}
	if fileExists(w.filePath) {
		target := w.generationPath(1, false)
		err = os.Rename(w.filePath, target)
		if err != nil {
			return E.Cause(err, "archive live file")
		}
		if w.compress {
			err = compressFile(target)
			if err != nil {
				return E.Cause(err, "compress ", target)
			}
		}
	}
	err = w.openLive()
	if err != nil {
		return E.Cause(err, "reopen live file")
	}
	return nil
}

func (w *Writer) shiftGenerations() error {
	generations, err := w.listGenerations()
	if err != nil {
		return E.Cause(err, "list rotated files")
	}
	sort.Slice(generations, func(i, j int) bool {
		return generations[i].number > generations[j].number
	})
	for _, current := range generations {
		if current.number+1 > w.maxFiles {
			err = os.Remove(current.path)
		} else {
			err = os.Rename(current.path, w.generationPath(current.number+1, current.compressed))
		}
		if err != nil {
			return E.Cause(err, "shift generation ", current.number)
		}
	}
	return nil
}

type generationFile struct {
	path       string
	number     int
	compressed bool
}

func (w *Writer) listGenerations() ([]generationFile, error) {
	entries, err := os.ReadDir(w.directory)
	if err != nil {
		return nil, err
	}
	prefix := filepath.Base(w.filePath) + "."
	var generations []generationFile
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		suffix := strings.TrimPrefix(name, prefix)
		compressed := strings.HasSuffix(suffix, compressSuffix)
		if compressed {
			suffix = strings.TrimSuffix(suffix, compressSuffix)
		}
		number, numberErr := strconv.Atoi(suffix)
		if numberErr != nil || number < 1 {
			continue
		}
		generations = append(generations, generationFile{
			path:       filepath.Join(w.directory, name),
			number:     number,
			compressed: compressed,
		})
	}
	return generations, nil
}

func (w *Writer) generationPath(number int, compressed bool) string {
	path := w.filePath + "." + strconv.Itoa(number)
	if compressed {
		path += compressSuffix
	}
	return path
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
