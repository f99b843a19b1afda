package errors

import (
	"errors"
	"fmt"
)

// ErrStoreUnavailable 存储层故障（连接中断、事务中止等），调用方不重试
var ErrStoreUnavailable = errors.New("数据存储暂不可用")

// Store 包装底层存储错误，保留原始错误链
// 已是 ErrStoreUnavailable 的错误原样返回
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
