/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Disk writes uploads under a local directory served at baseURL.
type Disk struct {
	dir     string
	baseURL string
}

func NewDisk(dir, baseURL string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}

	return &Disk{dir: dir, baseURL: baseURL}, nil
}

func (d *Disk) Dir() string { return d.dir }

func (d *Disk) Put(_ context.Context, name, contentType string, r io.Reader, size int64) (Object, error) {
	_, ext, err := Classify(name, contentType)
	if err != nil {
		return Object{}, err
	}

	key := NewKey(ext)

	f, err := os.CreateTemp(d.dir, ".upload-*")
	if err != nil {
		return Object{}, fmt.Errorf("creating upload: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Object{}, fmt.Errorf("writing upload: %w", err)
	}
	if size > 0 && n != size {
		return Object{}, fmt.Errorf("writing upload: short write (%d of %d bytes)", n, size)
	}

	if err := os.Rename(tmp, filepath.Join(d.dir, key)); err != nil {
		return Object{}, fmt.Errorf("storing upload: %w", err)
	}

	return Object{Key: key, URL: d.baseURL + key, Size: n}, nil
}

func (d *Disk) Check(context.Context) error {
	info, err := os.Stat(d.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", d.dir)
	}
	return nil
}
