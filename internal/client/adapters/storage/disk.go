package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/peterbourgon/diskv/v3"

	"gotodo/internal/client/ports/storage"
)

// cacheSizeMaxBytes - размер кэша diskv в памяти.
const cacheSizeMaxBytes = 16 * 1024

// Константы ошибок.
const (
	ErrorFailedToRead   = "failed to read value from disk"
	ErrorFailedToWrite  = "failed to write value to disk"
	ErrorFailedToDelete = "failed to delete value from disk"
)

// DiskKV хранит значения файлами в одном каталоге.
type DiskKV struct {
	dv *diskv.Diskv
}

// NewDiskKV создает хранилище в каталоге dir.
func NewDiskKV(dir string) *DiskKV {
	flatTransform := func(string) []string { return []string{} }

	return &DiskKV{dv: diskv.New(diskv.Options{
		BasePath:     dir,
		Transform:    flatTransform,
		CacheSizeMax: cacheSizeMaxBytes,
		FilePerm:     0o600,
		PathPerm:     0o700,
	})}
}

// Get читает значение по ключу.
func (d *DiskKV) Get(_ context.Context, key string) (string, error) {
	if !d.dv.Has(key) {
		return "", storage.ErrNotFound
	}

	value, err := d.dv.Read(key)
	if errors.Is(err, fs.ErrNotExist) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", ErrorFailedToRead, err)
	}
	return string(value), nil
}

// Set записывает значение.
func (d *DiskKV) Set(_ context.Context, key string, value string) error {
	if err := d.dv.Write(key, []byte(value)); err != nil {
		return fmt.Errorf("%s: %w", ErrorFailedToWrite, err)
	}
	return nil
}

// Delete стирает ключи; отсутствующие ключи игнорируются.
func (d *DiskKV) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		if !d.dv.Has(key) {
			continue
		}
		if err := d.dv.Erase(key); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", ErrorFailedToDelete, err)
		}
	}
	return nil
}

// Close ничего не делает: diskv не держит открытых файлов.
func (d *DiskKV) Close() error {
	return nil
}
