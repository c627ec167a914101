// internal/service/customer/domain/repository.go
package domain

import "context"

// UserRepository 是用户档案的持久化端口。
type UserRepository interface {
	// FindByID 未命中返回 ErrUserNotFound。
	FindByID(ctx context.Context, userID string) (*User, error)
	Create(ctx context.Context, user *User) error
}
