package rotate

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var bucketDatePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// Cleanup deletes rotated files past the retention limits. It runs at
// construction and may be invoked manually; rotation itself bounds
// generation count as a side effect of shifting. Any listing or deletion
// failure aborts the sweep silently: a failed cleanup never interrupts
// logging.
func (w *Writer) Cleanup() {
	switch w.trigger {
	case TriggerDate:
		w.cleanupByAge(time.Now())
	case TriggerHybrid:
		w.cleanupByAge(time.Now())
		w.cleanupBuckets()
	default:
		w.cleanupByCount()
	}
}

// cleanupByAge removes files whose embedded YYYY-MM-DD date is strictly
// older than maxDays relative to the reference time. Files without a
// parseable date are never deleted by this path.
func (w *Writer) cleanupByAge(now time.Time) {
	entries, err := os.ReadDir(w.directory)
	if err != nil {
		return
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, w.pattern+"-") {
			continue
		}
		match := bucketDatePattern.FindString(name)
		if match == "" {
			continue
		}
		fileDate, parseErr := time.Parse(dateFormat, match)
		if parseErr != nil {
			continue
		}
		days := int(now.UTC().Sub(fileDate).Hours() / 24)
		if days > w.maxDays {
			if os.Remove(filepath.Join(w.directory, name)) != nil {
				return
			}
		}
	}
}

// cleanupByCount removes size-mode generations beyond the maxFiles most
// recent. Generation 1 is the most recent, so everything numbered past
// maxFiles goes.
func (w *Writer) cleanupByCount() {
	generations, err := w.listGenerations()
	if err != nil {
		return
	}
	for _, current := range generations {
		if current.number > w.maxFiles {
			if os.Remove(current.path) != nil {
				return
			}
		}
	}
}

// cleanupBuckets bounds hybrid per-day rotated files. Suffixes are handed
// out ascending within a day, so the highest numbers are the most recent
// and the lowest are deleted first.
func (w *Writer) cleanupBuckets() {
	entries, err := os.ReadDir(w.directory)
	if err != nil {
		return
	}
	buckets := make(map[string][]generationFile)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := w.bucketPattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		number, parseErr := strconv.Atoi(match[2])
		if parseErr != nil {
			continue
		}
		buckets[match[1]] = append(buckets[match[1]], generationFile{
			path:   filepath.Join(w.directory, entry.Name()),
			number: number,
		})
	}
	for _, rotated := range buckets {
		if len(rotated) <= w.maxFiles {
			continue
		}
		sort.Slice(rotated, func(i, j int) bool {
			return rotated[i].number > rotated[j].number
		})
		for _, current := range rotated[w.maxFiles:] {
			if os.Remove(current.path) != nil {
				return
			}
		}
	}
}
