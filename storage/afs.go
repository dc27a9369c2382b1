package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	"aia-port/log"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	afsurl "github.com/viant/afs/url"
)

// AFSStore 把blob保存为抽象文件系统中的对象，支持file://、mem://以及云存储等scheme
type AFSStore struct {
	fs      afs.Service
	baseURL string
}

// NewAFSStore 创建基于afs的存储
func NewAFSStore(baseURL string) *AFSStore {
	return &AFSStore{fs: afs.New(), baseURL: baseURL}
}

// objectURL 返回键对应的对象地址
func (s *AFSStore) objectURL(key string) string {
	return afsurl.Join(s.baseURL, url.PathEscape(key)+blobSuffix)
}

// Store 直接上传到键对应的对象。afs的Move把目标当作目录，
// 先写临时对象再移动会让对象地址变成目录，这里不使用
func (s *AFSStore) Store(key string, blob []byte) error {
	if err := s.fs.Upload(context.Background(), s.objectURL(key), file.DefaultFileOsMode, bytes.NewReader(blob)); err != nil {
		return fmt.Errorf("上传对象失败: key(%s): %w", key, err)
	}
	return nil
}

// Load 下载对象到缓冲区
func (s *AFSStore) Load(key string, blob []byte) error {
	data, err := s.fs.DownloadWithURL(context.Background(), s.objectURL(key))
	if err != nil {
		return fmt.Errorf("下载对象失败: key(%s): %w", key, err)
	}
	if len(data) > len(blob) {
		return fmt.Errorf("%w: key(%s) used(%d) size(%d)", ErrTooLarge, key, len(data), len(blob))
	}
	copy(blob, data)
	return nil
}

// Size 返回对象的字节数
func (s *AFSStore) Size(key string) int {
	ctx := context.Background()
	URL := s.objectURL(key)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil || !exists {
		return 0
	}
	object, err := s.fs.Object(ctx, URL)
	if err != nil {
		log.Errorf("获取对象信息失败: key(%s): %v", key, err)
		return 0
	}
	return int(object.Size())
}

// Exists 判断对象是否存在
func (s *AFSStore) Exists(key string) bool {
	exists, err := s.fs.Exists(context.Background(), s.objectURL(key))
	return err == nil && exists
}
