package alert

import "errors"

var (
	// ErrInvalidArgument 表示参数不合法，例如令牌长度错误，此时不会进行任何I/O
	ErrInvalidArgument = errors.New("参数无效")
	// ErrCapacityExceeded 表示告警表中找不到可写入的位置
	ErrCapacityExceeded = errors.New("本地告警数量已达上限")
	// ErrCorruptTable 表示已存储的告警表长度不是槽宽度的整数倍
	ErrCorruptTable = errors.New("告警表已损坏")
	// ErrStorage 表示blob存储读写失败
	ErrStorage = errors.New("告警存储失败")
)
