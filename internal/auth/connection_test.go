package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/khalildhmine/fmbq-sub002/internal/config"
	"github.com/khalildhmine/fmbq-sub002/internal/datamodels/chat"
)

var testJWT = &config.JWTConfig{Secret: "test-secret"}

func TestAuthenticateAgentToken(t *testing.T) {
	token, err := GenerateToken(testJWT, 7, "alice", "Alice", "agent")
	if err != nil {
		t.Fatal(err)
	}

	p := AuthenticateConnection(context.Background(), testJWT, nil, nil, Credentials{Token: token})
	if p.Role != chat.RoleAgent {
		t.Fatalf("role = %s, want agent", p.Role)
	}
	if p.ID != "7" || p.DisplayName != "Alice" {
		t.Fatalf("participant = %+v", p)
	}
}

func TestAuthenticateCustomerToken(t *testing.T) {
	token, err := GenerateToken(testJWT, 42, "bob", "", "customer")
	if err != nil {
		t.Fatal(err)
	}

	p := AuthenticateConnection(context.Background(), testJWT, nil, nil, Credentials{Token: token})
	if p.Role != chat.RoleCustomer {
		t.Fatalf("role = %s, want customer", p.Role)
	}
	// 没有昵称时回退到用户名
	if p.DisplayName != "bob" {
		t.Fatalf("display name = %s, want bob", p.DisplayName)
	}
}

func TestAuthenticateUnknownRoleDowngraded(t *testing.T) {
	token, err := GenerateToken(testJWT, 9, "eve", "Eve", "superadmin")
	if err != nil {
		t.Fatal(err)
	}
	p := AuthenticateConnection(context.Background(), testJWT, nil, nil, Credentials{Token: token})
	if p.Role != chat.RoleCustomer {
		t.Fatalf("unexpected role %s, unknown roles must map to customer", p.Role)
	}
}

func TestAuthenticateBadTokenFallsBackToGuest(t *testing.T) {
	p := AuthenticateConnection(context.Background(), testJWT, nil, nil, Credentials{Token: "not-a-jwt"})
	if p.Role != chat.RoleGuest {
		t.Fatalf("role = %s, want guest", p.Role)
	}
	if !strings.HasPrefix(p.ID, "guest-") {
		t.Fatalf("guest id = %s, want guest- prefix", p.ID)
	}
}

func TestAuthenticateLegacyUserIDKeptAsGuest(t *testing.T) {
	p := AuthenticateConnection(context.Background(), testJWT, nil, nil, Credentials{UserID: "legacy-123", Name: "Old Client"})
	if p.Role != chat.RoleGuest {
		t.Fatalf("role = %s, want guest", p.Role)
	}
	// 历史客户端的自报 ID 原样保留，断线重连还能回到原会话
	if p.ID != "legacy-123" || p.DisplayName != "Old Client" {
		t.Fatalf("participant = %+v", p)
	}
}

func TestAuthenticateAnonymousGuest(t *testing.T) {
	a := AuthenticateConnection(context.Background(), testJWT, nil, nil, Credentials{})
	b := AuthenticateConnection(context.Background(), testJWT, nil, nil, Credentials{})
	if a.Role != chat.RoleGuest || b.Role != chat.RoleGuest {
		t.Fatal("anonymous connections must be guests")
	}
	if a.ID == b.ID {
		t.Fatal("anonymous guests must get distinct ids")
	}
	if a.DisplayName != "Guest" {
		t.Fatalf("display name = %s, want Guest", a.DisplayName)
	}
}
