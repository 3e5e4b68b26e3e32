package rotate

import (
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// compressFile gzips path in place, producing path.gz and deleting the
// original. It runs after the rotated file has been renamed, so the live
// path is already free while compression is still in flight. On failure the
// partial archive is removed and the uncompressed file is kept.
func compressFile(path string) error {
	source, err := os.Open(path)
	if err != nil {
		return err
	}
	target, err := os.OpenFile(path+compressSuffix, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fileMode)
	if err != nil {
		source.Close()
		return err
	}
	writer := gzip.NewWriter(target)
	_, err = io.Copy(writer, source)
	source.Close()
	if closeErr := writer.Close(); err == nil {
		err = closeErr
	}
	if closeErr := target.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path + compressSuffix)
		return err
	}
	return os.Remove(path)
}
