package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/khalildhmine/fmbq-sub002/internal/auth"
	"github.com/khalildhmine/fmbq-sub002/internal/config"
	"github.com/khalildhmine/fmbq-sub002/internal/datamodels/user"
)

type UserService struct {
	repo user.Repository
	jwt  *config.JWTConfig
}

func NewUserService(repo user.Repository, jwt *config.JWTConfig) *UserService {
	return &UserService{repo: repo, jwt: jwt}
}

func hashPassword(raw, salt string) string {
	h := sha256.Sum256([]byte(raw + salt))
	return hex.EncodeToString(h[:])
}

// Register 注册普通用户
func (s *UserService) Register(ctx context.Context, username, password, nickname string) (*user.User, error) {
	u := &user.User{
		Username: username,
		Nickname: nickname,
		Role:     user.RoleCustomer,
		Salt:     "fmbq", // 简化实现，真实业务请使用随机盐
	}
	if u.Nickname == "" {
		u.Nickname = username
	}
	u.Password = hashPassword(password, u.Salt)
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login 登录并返回携带角色的 JWT
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if hashPassword(password, u.Salt) != u.Password {
		return "", errors.New("invalid password")
	}
	return auth.GenerateToken(s.jwt, u.ID, u.Username, u.Nickname, u.Role)
}

// ListAgents 客服账号列表（后台管理用）
func (s *UserService) ListAgents(ctx context.Context) ([]*user.User, error) {
	return s.repo.ListByRole(ctx, user.RoleAgent)
}
