// Package fileutil copies photos into the output tree without ever
// overwriting an existing file.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
)

// CopyFile streams src into a newly created dst and returns the number of
// bytes written. It fails with an error satisfying errors.Is(err,
// fs.ErrExist) when dst already exists. The source permissions and
// modification time are carried over; a partial dst is removed on failure.
func CopyFile(src, dst string) (int64, error) {
	written, _, err := copyNew(src, dst, false)
	return written, err
}

// CopyFileVerified behaves like CopyFile, then re-reads dst from disk and
// compares its SHA-256 against the source stream. dst is removed on mismatch.
func CopyFileVerified(src, dst string) (int64, error) {
	written, srcSum, err := copyNew(src, dst, true)
	if err != nil {
		return 0, err
	}
	dstSum, dstSize, err := hashFile(dst)
	if err != nil {
		_ = os.Remove(dst)
		return 0, fmt.Errorf("verify copy: %w", err)
	}
	if dstSize != written {
		_ = os.Remove(dst)
		return 0, fmt.Errorf("copy size mismatch: copied %d bytes, read back %d bytes", written, dstSize)
	}
	if !bytes.Equal(srcSum, dstSum) {
		_ = os.Remove(dst)
		return 0, fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}
	return written, nil
}

func copyNew(src, dst string, hash bool) (int64, []byte, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, nil, err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, nil, fmt.Errorf("stat source: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return 0, nil, err
	}

	var reader io.Reader = in
	hasher := sha256.New()
	if hash {
		reader = io.TeeReader(in, hasher)
	}
	written, err := io.Copy(out, reader)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err == nil && written != info.Size() {
		err = fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", info.Size(), written)
	}
	if err != nil {
		_ = os.Remove(dst)
		return 0, nil, err
	}

	_ = os.Chtimes(dst, info.ModTime(), info.ModTime())
	if !hash {
		return written, nil, nil
	}
	return written, hasher.Sum(nil), nil
}

func hashFile(path string) ([]byte, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	hasher := sha256.New()
	n, err := io.Copy(hasher, f)
	if err != nil {
		return nil, 0, err
	}
	return hasher.Sum(nil), n, nil
}
