package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/mapper"
	"github.com/straye-as/crm-api/internal/policy"
	"github.com/straye-as/crm-api/internal/repository"
	"go.uber.org/zap"
)

// UserService manages the staff directory
type UserService struct {
	userRepo *repository.UserRepository
	logger   *zap.Logger
}

func NewUserService(userRepo *repository.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{userRepo: userRepo, logger: logger}
}

func (s *UserService) List(ctx context.Context, filters domain.UserFilters, sort repository.SortConfig, page, pageSize int) (*domain.PaginatedResponse, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(p.Actor(), policy.EntityUser, policy.OpList); err != nil {
		return nil, err
	}

	page, pageSize = normalizePage(page, pageSize)
	users, total, err := s.userRepo.List(ctx, filters, sort, page, pageSize)
	if err != nil {
		return nil, translate(err, "user", "list users")
	}

	dtos := make([]domain.UserDTO, len(users))
	for i := range users {
		dtos[i] = mapper.ToUserDTO(&users[i])
	}
	return paginated(dtos, total, page, pageSize), nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.UserDTO, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(p.Actor(), policy.EntityUser, policy.OpRetrieve); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "user", "get user")
	}
	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

func (s *UserService) Create(ctx context.Context, req *domain.CreateUserRequest) (*domain.UserDTO, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(p.Actor(), policy.EntityUser, policy.OpCreate); err != nil {
		logRejection(s.logger, "user.create", p, err)
		return nil, err
	}
	if !req.Role.IsValid() {
		return nil, domain.ValidationFailed(string(policy.FieldRole), "unknown role "+string(req.Role))
	}

	if _, err := s.userRepo.GetByUsername(ctx, req.Username); err == nil {
		return nil, domain.Conflict("a user with this username already exists")
	}

	user := &domain.User{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Role:      req.Role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if isDuplicate(err) {
			return nil, domain.Conflict("a user with this username already exists")
		}
		return nil, translate(err, "user", "create user")
	}

	s.logger.Info("user created",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
		zap.String("by", p.ID.String()))

	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

func (s *UserService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateUserRequest) (*domain.UserDTO, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(p.Actor(), policy.EntityUser, policy.OpUpdate); err != nil {
		logRejection(s.logger, "user.update", p, err)
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "user", "get user")
	}
	if err := policy.CheckRoleUnchanged(user, req.Role); err != nil {
		logRejection(s.logger, "user.update", p, err)
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if err := s.userRepo.Update(ctx, id, updates); err != nil {
		return nil, translate(err, "user", "update user")
	}

	user, err = s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "user", "reload user")
	}
	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := principalFrom(ctx)
	if err != nil {
		return err
	}
	if err := policy.Authorize(p.Actor(), policy.EntityUser, policy.OpDelete); err != nil {
		logRejection(s.logger, "user.delete", p, err)
		return err
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return translate(err, "user", "get user")
	}
	if err := policy.CheckUserDelete(p.Actor(), user); err != nil {
		logRejection(s.logger, "user.delete", p, err)
		return err
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return translate(err, "user", "delete user")
	}

	s.logger.Info("user deleted", zap.String("user_id", id.String()), zap.String("by", p.ID.String()))
	return nil
}
