package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrIntegrity 数据完整性告警：持久化状态与不可变账本重算结果不一致
var ErrIntegrity = errors.New("数据完整性校验失败")

// ErrDuplicate 唯一约束冲突（由仓储层从 PostgreSQL 23505 转换而来）
var ErrDuplicate = errors.New("记录已存在")
