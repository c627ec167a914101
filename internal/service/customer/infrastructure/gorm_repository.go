// internal/service/customer/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"storefront/internal/service/customer/domain"
)

// UserModel 对应 user 表。
type UserModel struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	UserID    string `gorm:"type:varchar(64);uniqueIndex;not null"`
	Name      string `gorm:"type:varchar(128)"`
	Email     string `gorm:"type:varchar(128);index"`
	Status    string `gorm:"type:varchar(16);not null;default:'ACTIVE'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (UserModel) TableName() string { return "user" }

// GormUserRepository 是 UserRepository 的 GORM 实现。
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) FindByID(ctx context.Context, userID string) (*domain.User, error) {
	var model UserModel
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, pkgerrors.Wrapf(err, "find user %s", userID)
	}
	return &domain.User{
		ID:        model.UserID,
		Name:      model.Name,
		Email:     model.Email,
		Status:    domain.UserStatus(model.Status),
		CreatedAt: model.CreatedAt,
	}, nil
}

func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	model := UserModel{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Status: string(user.Status),
	}
	return pkgerrors.Wrapf(r.db.WithContext(ctx).Create(&model).Error, "create user %s", user.ID)
}

var _ domain.UserRepository = (*GormUserRepository)(nil)
