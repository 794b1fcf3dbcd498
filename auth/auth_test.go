package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"dealspot-web/pkg/deals"
	"encoding/pem"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v4"
)

func newKey(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	return key, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
}

func sign(t *testing.T, key *rsa.PrivateKey, claims tokenClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestJWTVerifier(t *testing.T) {
	key, pub := newKey(t)
	otherKey, _ := newKey(t)
	v, err := NewJWTVerifier(pub, "https://id.dealspot.app")
	if err != nil {
		t.Fatalf("NewJWTVerifier() error = %v", err)
	}

	valid := func() tokenClaims {
		return tokenClaims{
			Email: "ana@example.com",
			Name:  "Ana",
			Role:  "partner",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-1",
				Issuer:    "https://id.dealspot.app",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
	}

	tests := []struct {
		name    string
		token   func() string
		wantErr bool
	}{
		{"valid", func() string { return sign(t, key, valid()) }, false},
		{"wrong key", func() string { return sign(t, otherKey, valid()) }, true},
		{"expired", func() string {
			c := valid()
			c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
			return sign(t, key, c)
		}, true},
		{"wrong issuer", func() string {
			c := valid()
			c.Issuer = "https://evil.example"
			return sign(t, key, c)
		}, true},
		{"missing subject", func() string {
			c := valid()
			c.Subject = ""
			return sign(t, key, c)
		}, true},
		{"hmac", func() string {
			s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, valid()).SignedString(pub)
			if err != nil {
				t.Fatalf("sign hmac: %v", err)
			}
			return s
		}, true},
		{"garbage", func() string { return "not.a.token" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := v.Verify(context.Background(), tt.token())
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidToken) {
					t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if claims.Subject != "user-1" || claims.Role != deals.RolePartner || claims.Email != "ana@example.com" {
				t.Errorf("Verify() = %+v", claims)
			}
		})
	}
}

func TestNewJWTVerifierRejectsBadPEM(t *testing.T) {
	if _, err := NewJWTVerifier([]byte("nope"), ""); err == nil {
		t.Error("NewJWTVerifier() error = nil, want error")
	}
}

type fakeIDTokens struct {
	token *fbauth.Token
	err   error
}

func (f fakeIDTokens) VerifyIDToken(context.Context, string) (*fbauth.Token, error) {
	return f.token, f.err
}

func TestFirebaseVerifier(t *testing.T) {
	v := &FirebaseVerifier{client: fakeIDTokens{token: &fbauth.Token{
		UID:    "fb-9",
		Claims: map[string]any{"email": "bo@example.com", "role": "ADMIN", "banned": true},
	}}}
	claims, err := v.Verify(context.Background(), "id-token")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	want := Claims{Subject: "fb-9", Email: "bo@example.com", Role: deals.RoleAdmin, Banned: true}
	if *claims != want {
		t.Errorf("Verify() = %+v, want %+v", *claims, want)
	}

	v = &FirebaseVerifier{client: fakeIDTokens{err: errors.New("token revoked")}}
	if _, err := v.Verify(context.Background(), "id-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestDevVerifier(t *testing.T) {
	tests := []struct {
		token      string
		wantErr    bool
		wantRole   deals.Role
		wantBanned bool
	}{
		{"dev:customer:alice", false, deals.RoleCustomer, false},
		{"dev:partner:bob", false, deals.RolePartner, false},
		{"dev:admin:root", false, deals.RoleAdmin, false},
		{"dev:customer:carl+banned", false, deals.RoleCustomer, true},
		{"dev:unknown:dan", false, deals.RoleCustomer, false},
		{"dev:customer:", true, "", false},
		{"prod:customer:alice", true, "", false},
		{"alice", true, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			claims, err := DevVerifier{}.Verify(context.Background(), tt.token)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidToken) {
					t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if claims.Role != tt.wantRole || claims.Banned != tt.wantBanned {
				t.Errorf("Verify() = %+v, want role %s banned %v", claims, tt.wantRole, tt.wantBanned)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		got, ok := BearerToken(r)
		if got != tt.want || ok != tt.ok {
			t.Errorf("BearerToken(%q) = %q, %v, want %q, %v", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}
