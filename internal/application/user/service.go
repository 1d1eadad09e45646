// Package user 实现用户管理
package user

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"rag-gateway/internal/domain/entity"
	"rag-gateway/internal/domain/repository"
	"rag-gateway/pkg/errors"
	"rag-gateway/pkg/logger"
)

var tracer = otel.Tracer("user")

// Service 用户服务
type Service struct {
	repo repository.UserRepository
}

// NewService 创建用户服务
func NewService(repo repository.UserRepository) *Service {
	return &Service{repo: repo}
}

// RegisterInput 注册请求
type RegisterInput struct {
	Username string
	Password string
	Phone    string
	Email    string
}

// Register 注册新用户
func (s *Service) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	ctx, span := tracer.Start(ctx, "user.Register")
	defer span.End()

	if in.Username == "" {
		return nil, errors.New(errors.CodeInvalidParam, "username is empty")
	}

	exists, err := s.repo.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to check username")
	}
	if exists {
		return nil, errors.New(errors.CodeConflict, "username already taken")
	}

	u := entity.NewUser(in.Username)
	u.ID = uuid.NewString()
	u.Phone = in.Phone
	u.Email = in.Email
	if in.Password != "" {
		if err := u.SetPassword(in.Password); err != nil {
			return nil, errors.Wrap(err, errors.CodeInternalError, "failed to hash password")
		}
	}

	if err := s.repo.Create(ctx, u); err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to create user")
	}

	logger.Info(ctx, "user registered", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// Get 按 ID 获取用户
func (s *Service) Get(ctx context.Context, id string) (*entity.User, error) {
	ctx, span := tracer.Start(ctx, "user.Get")
	defer span.End()

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to get user")
	}
	if u == nil {
		return nil, errors.ErrUserNotFound
	}
	return u, nil
}

// GetByUsername 按用户名获取用户
func (s *Service) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	ctx, span := tracer.Start(ctx, "user.GetByUsername")
	defer span.End()

	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to get user")
	}
	if u == nil {
		return nil, errors.ErrUserNotFound
	}
	return u, nil
}

// List 列出全部用户
func (s *Service) List(ctx context.Context) ([]*entity.User, error) {
	ctx, span := tracer.Start(ctx, "user.List")
	defer span.End()

	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to list users")
	}
	return users, nil
}

// Delete 删除用户
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "user.Delete")
	defer span.End()

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to get user")
	}
	if u == nil {
		return errors.ErrUserNotFound
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		span.RecordError(err)
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to delete user")
	}
	logger.Info(ctx, "user deleted", "user_id", id)
	return nil
}
