package auth

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/kataras/golog"

	"github.com/khalildhmine/fmbq-sub002/internal/config"
	"github.com/khalildhmine/fmbq-sub002/internal/datamodels/chat"
)

// Credentials 连接握手时可能携带的凭证
// Token 来自 Authorization 头或 token 查询参数；
// UserID/Name 是历史客户端在查询参数里直接带的结构化凭证
type Credentials struct {
	Token  string
	UserID string
	Name   string
}

// AuthenticateConnection 把连接凭证解析成参与者身份
// 约定：凭证缺失或解析失败一律降级为匿名访客，绝不拒绝连接；
// 是否强制登录由上层路由决定，这里只负责身份解析
func AuthenticateConnection(ctx context.Context, cfg *config.JWTConfig, cache *TokenCache, logger *golog.Logger, creds Credentials) chat.Participant {
	if creds.Token != "" {
		if claims, ok := parseWithCache(ctx, cfg, cache, creds.Token); ok {
			role := claims.Role
			if role != chat.RoleAgent {
				role = chat.RoleCustomer
			}
			name := claims.Nickname
			if name == "" {
				name = claims.Username
			}
			return chat.Participant{
				ID:          strconv.FormatInt(claims.UserID, 10),
				DisplayName: name,
				Role:        role,
			}
		}
		// 解析失败不是连接错误，记录后按访客处理
		if logger != nil {
			logger.Warnf("chat auth: bad token, downgrade to guest")
		}
	}

	// 历史客户端：查询参数里直接带 userId，无签名，只能当访客对待但保留其标识
	if creds.UserID != "" {
		name := creds.Name
		if name == "" {
			name = "Guest"
		}
		return chat.Participant{ID: creds.UserID, DisplayName: name, Role: chat.RoleGuest}
	}

	name := creds.Name
	if name == "" {
		name = "Guest"
	}
	return chat.Participant{
		ID:          "guest-" + uuid.NewString(),
		DisplayName: name,
		Role:        chat.RoleGuest,
	}
}

func parseWithCache(ctx context.Context, cfg *config.JWTConfig, cache *TokenCache, token string) (*Claims, bool) {
	if cache != nil {
		if claims, hit, err := cache.Get(ctx, token); err == nil && hit {
			return claims, true
		}
	}
	claims, err := ParseToken(cfg, token)
	if err != nil {
		return nil, false
	}
	if cache != nil {
		_ = cache.Set(ctx, token, claims)
	}
	return claims, true
}
