package fileutil

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/option"
	_ "github.com/viant/afsc/s3"
)

var fileSystem = afs.New()

// ReadFileBytes reads the whole file at filename into memory.
// The filename may be a plain path or an afs URL such as s3://bucket/key.
func ReadFileBytes(filename string) ([]byte, error) {
	file, err := fileSystem.OpenURL(context.Background(), filename)
	if err != nil {
		return nil, err
	}
	defer func(file io.Closer) {
		err = errors.Join(err, file.Close())
	}(file)

	buf := &bytes.Buffer{}
	_, readErr := io.Copy(buf, file)
	if readErr != nil {
		return nil, readErr
	}
	return buf.Bytes(), err
}

func OpenFile(filename string) (io.ReadCloser, error) {
	return fileSystem.OpenURL(context.Background(), filename)
}

func FileExists(filename string) (bool, error) {
	return fileSystem.Exists(context.Background(), filename)
}

func DeleteFile(filename string) error {
	return fileSystem.Delete(context.Background(), filename)
}

// NewFileWriter truncates any existing file at filename and returns a writer to it.
func NewFileWriter(filename string) (io.WriteCloser, error) {
	exists, err := FileExists(filename)
	if err != nil {
		return nil, err
	}
	if exists {
		if err := fileSystem.Delete(context.Background(), filename); err != nil {
			return nil, err
		}
	}
	return fileSystem.NewWriter(context.Background(), filename, 0o644, option.NewSkipChecksum(true))
}

// List returns the names of the entries directly under the directory URL.
func List(dir string) ([]string, error) {
	objects, err := fileSystem.List(context.Background(), dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(objects))
	for _, object := range objects {
		name := object.Name()
		if name == "" || strings.TrimSuffix(object.URL(), "/") == strings.TrimSuffix(dir, "/") {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// ReadLine returns a single line (without the ending \n)
// from the input buffered reader.
// This function is needed to avoid the 65K char line limit.
func ReadLine(r *bufio.Reader) ([]byte, error) {
	var (
		isPrefix = true
		err      error
		line, ln []byte
	)
	for isPrefix && err == nil {
		line, isPrefix, err = r.ReadLine()
		ln = append(ln, line...)
	}
	return ln, err
}

// ForEachLine streams filename line by line into fn, stopping at the first
// error returned by fn. Used by the dataset adapters so that large splits
// are never held in memory twice.
func ForEachLine(filename string, fn func(i int, line []byte) error) error {
	file, err := OpenFile(filename)
	if err != nil {
		return err
	}
	defer func(file io.Closer) {
		err = errors.Join(err, file.Close())
	}(file)

	reader := bufio.NewReader(file)
	for i := 0; ; i++ {
		line, readErr := ReadLine(reader)
		if readErr == io.EOF {
			if len(line) > 0 {
				if fnErr := fn(i, line); fnErr != nil {
					return fnErr
				}
			}
			return err
		}
		if readErr != nil {
			return readErr
		}
		if fnErr := fn(i, line); fnErr != nil {
			return fnErr
		}
	}
}

// PathJoinSafe wrapper around filepath.Join to ensure that paths are correctly constructed
// if the path is a normal OS path, just use filepath.Join
// if the path is S3, trim any trailing slashes and construct it manually from the components
// so that double slashes (e.g. s3://) are preserved.
func PathJoinSafe(elem ...string) string {
	if strings.HasPrefix(elem[0], "s3://") {
		basePath := strings.TrimSuffix(elem[0], "/")
		return basePath + "/" + filepath.ToSlash(filepath.Join(elem[1:]...))
	}
	return filepath.Join(elem...)
}
