package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"aia-port/log"

	_ "modernc.org/sqlite" // 纯Go的sqlite驱动
)

// SQLiteStore 使用sqlite的单表保存blob
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore 打开或创建sqlite数据库并建表
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("打开sqlite数据库失败: %w", err)
	}
	// sqlite只允许一个写者，单连接避免busy错误
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS blobs (
		key   TEXT PRIMARY KEY,
		value BLOB
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("创建blobs表失败: %w", err)
	}
	log.Debugf("已打开sqlite数据库: %s", path)
	return &SQLiteStore{db: db}, nil
}

// sqliteDSN 为文件数据库追加WAL和busy_timeout参数，内存数据库保持不变
func sqliteDSN(path string) string {
	if path == ":memory:" || strings.HasPrefix(path, "file::memory:") {
		return path
	}
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

// Close 关闭数据库
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Store 写入或替换blob
func (s *SQLiteStore) Store(key string, blob []byte) error {
	if blob == nil {
		blob = []byte{}
	}
	_, err := s.db.Exec(`INSERT INTO blobs(key, value) VALUES(?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, blob)
	if err != nil {
		return fmt.Errorf("写入sqlite失败: key(%s): %w", key, err)
	}
	return nil
}

// Load 读取blob到缓冲区
func (s *SQLiteStore) Load(key string, blob []byte) error {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM blobs WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", errNotFound, key)
		}
		return fmt.Errorf("读取sqlite失败: key(%s): %w", key, err)
	}
	if len(value) > len(blob) {
		return fmt.Errorf("%w: key(%s) used(%d) size(%d)", ErrTooLarge, key, len(value), len(blob))
	}
	copy(blob, value)
	return nil
}

// Size 返回blob的字节数
func (s *SQLiteStore) Size(key string) int {
	var size int
	err := s.db.QueryRow(`SELECT COALESCE(length(value), 0) FROM blobs WHERE key = ?`, key).Scan(&size)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Errorf("获取blob大小失败: key(%s): %v", key, err)
		}
		return 0
	}
	return size
}

// Exists 判断blob是否存在
func (s *SQLiteStore) Exists(key string) bool {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM blobs WHERE key = ?`, key).Scan(&one)
	return err == nil
}
