// internal/service/customer/domain/user.go
package domain

import (
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("customer: user not found")

// UserStatus 标记账号可用性。停用账号在存在性校验里按不存在处理。
type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusDisabled UserStatus = "DISABLED"
)

type User struct {
	ID        string
	Name      string
	Email     string
	Status    UserStatus
	CreatedAt time.Time
}

func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}
