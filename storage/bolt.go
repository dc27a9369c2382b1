package storage

import (
	"errors"
	"fmt"
	"time"

	"aia-port/log"

	"go.etcd.io/bbolt"
)

var bucketBlobs = []byte("blobs")

// errNotFound 在事务内部表示键不存在
var errNotFound = errors.New("blob不存在")

// BoltStore 使用bbolt单文件数据库保存blob，每次写入是一个事务
type BoltStore struct {
	db *bbolt.DB
}

// OpenBoltStore 打开或创建bbolt数据库
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("打开bolt数据库失败: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketBlobs)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("创建bucket失败: %w", err)
	}
	log.Debugf("已打开bolt数据库: %s", path)
	return &BoltStore{db: db}, nil
}

// Close 关闭数据库
func (s *BoltStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Store 在一个事务内写入blob
func (s *BoltStore) Store(key string, blob []byte) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		// bbolt不接受nil值，空blob保存为零长度切片
		value := make([]byte, len(blob))
		copy(value, blob)
		return tx.Bucket(bucketBlobs).Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("写入bolt失败: key(%s): %w", key, err)
	}
	return nil
}

// Load 读取blob到缓冲区
func (s *BoltStore) Load(key string, blob []byte) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		value := tx.Bucket(bucketBlobs).Get([]byte(key))
		if value == nil {
			return fmt.Errorf("%w: %s", errNotFound, key)
		}
		if len(value) > len(blob) {
			return fmt.Errorf("%w: key(%s) used(%d) size(%d)", ErrTooLarge, key, len(value), len(blob))
		}
		// value只在事务内有效
		copy(blob, value)
		return nil
	})
}

// Size 返回blob的字节数
func (s *BoltStore) Size(key string) int {
	size := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		size = len(tx.Bucket(bucketBlobs).Get([]byte(key)))
		return nil
	})
	if err != nil {
		log.Errorf("获取blob大小失败: key(%s): %v", key, err)
		return 0
	}
	return size
}

// Exists 判断blob是否存在
func (s *BoltStore) Exists(key string) bool {
	exists := false
	_ = s.db.View(func(tx *bbolt.Tx) error {
		exists = tx.Bucket(bucketBlobs).Get([]byte(key)) != nil
		return nil
	})
	return exists
}
