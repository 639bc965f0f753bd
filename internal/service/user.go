package service

import (
	"fmt"
	"log/slog"

	"github.com/regkit/regkit/internal/model"
	"github.com/regkit/regkit/internal/repository"
)

type UserService struct {
	userRepository repository.UserRepository
}

func NewUserService(userRepository repository.UserRepository) *UserService {
	return &UserService{userRepository: userRepository}
}

func (s *UserService) ByID(id string) (*model.User, error) {
	return s.userRepository.ByID(id)
}

func (s *UserService) ByEmail(email string) (*model.User, error) {
	return s.userRepository.ByEmail(email)
}

func (s *UserService) All() ([]model.User, error) {
	return s.userRepository.All()
}

// UpdateUserParams carries the mutable fields of a user record. Nil means
// "leave unchanged".
type UpdateUserParams struct {
	Password *string
	IsActive *bool
}

func (s *UserService) Update(id string, params UpdateUserParams) (*model.User, error) {
	user, err := s.userRepository.ByID(id)
	if err != nil {
		return nil, err
	}

	if params.Password != nil {
		hashedBytes, err := hashPassword(*params.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = hashedBytes
	}
	if params.IsActive != nil {
		user.IsActive = *params.IsActive
	}

	err = s.userRepository.Update(user)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	slog.Info("user updated", "user_id", id)
	return user, nil
}

func (s *UserService) Delete(id string) error {
	err := s.userRepository.Delete(id)
	if err != nil {
		return err
	}

	slog.Info("user deleted", "user_id", id)
	return nil
}
