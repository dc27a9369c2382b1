package storage

import (
	"fmt"
	"io"

	"aia-port/config"
	"aia-port/log"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open 根据配置创建blob存储
// 参数:
//   - cfg: 存储配置
//
// 返回:
//   - BlobStore: 创建的存储
//   - io.Closer: 释放存储资源，不需要释放时为空操作
//   - error: 创建失败时返回错误
func Open(cfg config.StorageConfig) (BlobStore, io.Closer, error) {
	switch cfg.Backend {
	case "", "memory":
		capacities := cfg.Capacities
		if len(capacities) == 0 {
			capacities = DefaultCapacities
		}
		log.Infof("使用内存blob存储，键数量: %d", len(capacities))
		return NewMemoryStore(capacities), nopCloser{}, nil
	case "file":
		s, err := NewFileStore(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		if err := s.Cleanup(); err != nil {
			log.Warnf("清理临时文件失败: %v", err)
		}
		log.Infof("使用文件blob存储: %s", cfg.Dir)
		return s, nopCloser{}, nil
	case "bolt":
		s, err := OpenBoltStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		log.Infof("使用bolt blob存储: %s", cfg.Path)
		return s, s, nil
	case "sqlite":
		s, err := OpenSQLiteStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		log.Infof("使用sqlite blob存储: %s", cfg.Path)
		return s, s, nil
	case "afs":
		log.Infof("使用afs blob存储: %s", cfg.URL)
		return NewAFSStore(cfg.URL), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("未知的存储后端: %s", cfg.Backend)
	}
}
