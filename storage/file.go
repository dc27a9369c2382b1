package storage

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"aia-port/log"
)

const blobSuffix = ".blob"

// FileStore 把每个blob保存为目录下的一个文件。
//
// 写入先落到临时文件再重命名，重命名在同一文件系统内是原子的，
// 因此读者只会看到旧内容或新内容。
type FileStore struct {
	dir string
}

// NewFileStore 创建基于目录的存储，目录不存在时创建
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("创建blob目录失败: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// path 返回键对应的文件路径，键经过转义以免包含路径分隔符
func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+blobSuffix)
}

// Store 原子地写入blob
func (s *FileStore) Store(key string, blob []byte) error {
	f, err := os.CreateTemp(s.dir, "*.tmp")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpPath := f.Name()
	if _, err := f.Write(blob); err != nil {
		_ = f.Close()
		return errors.Join(fmt.Errorf("写入临时文件失败: %w", err), os.Remove(tmpPath))
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return errors.Join(fmt.Errorf("同步临时文件失败: %w", err), os.Remove(tmpPath))
	}
	if err := f.Close(); err != nil {
		return errors.Join(fmt.Errorf("关闭临时文件失败: %w", err), os.Remove(tmpPath))
	}
	if err := os.Rename(tmpPath, s.path(key)); err != nil {
		return errors.Join(fmt.Errorf("重命名blob文件失败: %w", err), os.Remove(tmpPath))
	}
	return nil
}

// Load 读取blob到缓冲区
func (s *FileStore) Load(key string, blob []byte) error {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return fmt.Errorf("读取blob文件失败: %w", err)
	}
	if len(data) > len(blob) {
		return fmt.Errorf("%w: key(%s) used(%d) size(%d)", ErrTooLarge, key, len(data), len(blob))
	}
	copy(blob, data)
	return nil
}

// Size 返回blob文件的大小
func (s *FileStore) Size(key string) int {
	info, err := os.Stat(s.path(key))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Errorf("获取blob大小失败: key(%s): %v", key, err)
		}
		return 0
	}
	return int(info.Size())
}

// Exists 判断blob文件是否存在
func (s *FileStore) Exists(key string) bool {
	_, err := os.Stat(s.path(key))
	return err == nil
}

// Cleanup 删除中断写入残留的临时文件
func (s *FileStore) Cleanup() error {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.tmp"))
	if err != nil {
		return err
	}
	var errs []error
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			errs = append(errs, fmt.Errorf("删除临时文件%s失败: %w", m, err))
		}
	}
	return errors.Join(errs...)
}
