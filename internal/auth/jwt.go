package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// UserInfo 当前请求的用户身份
type UserInfo struct {
	ID       string
	Username string
	FullName string
	Role     string
}

// DisplayName 返回用户显示名称,优先使用全名
func (u *UserInfo) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// Claims JWT 载荷
type Claims struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenValidator JWT Token 验证器
type TokenValidator struct {
	secret []byte
	issuer string
}

// NewTokenValidator 创建 Token 验证器
func NewTokenValidator(secret string, issuer string) *TokenValidator {
	return &TokenValidator{secret: []byte(secret), issuer: issuer}
}

// Validate 验证 token 并返回用户身份
func (v *TokenValidator) Validate(tokenString string) (*UserInfo, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if v.issuer != "" {
		issuer, err := claims.GetIssuer()
		if err != nil || issuer != v.issuer {
			return nil, errors.New("invalid token issuer")
		}
	}

	return &UserInfo{
		ID:       claims.Subject,
		Username: claims.Username,
		FullName: claims.FullName,
		Role:     claims.Role,
	}, nil
}

type contextKey struct{}

// WithUser 把用户身份写入 context
func WithUser(ctx context.Context, user *UserInfo) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFromContext 从 context 读取用户身份,不存在时返回 nil
func UserFromContext(ctx context.Context) *UserInfo {
	user, _ := ctx.Value(contextKey{}).(*UserInfo)
	return user
}

// Middleware 认证中间件:解析 Bearer token 并把用户身份写入请求 context
func Middleware(validator *TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    http.StatusUnauthorized,
				"message": "missing bearer token",
			})
			return
		}

		user, err := validator.Validate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    http.StatusUnauthorized,
				"message": "invalid token",
				"detail":  err.Error(),
			})
			return
		}

		c.Request = c.Request.WithContext(WithUser(c.Request.Context(), user))
		c.Next()
	}
}

// RequireCapability 能力检查中间件,必须挂在 Middleware 之后
func RequireCapability(capability Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := UserFromContext(c.Request.Context())
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    http.StatusUnauthorized,
				"message": "authentication required",
			})
			return
		}
		if !CanPerform(user.Role, capability) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    http.StatusForbidden,
				"message": "insufficient role for this operation",
			})
			return
		}
		c.Next()
	}
}
