package httpx

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set("rid", rid)
		c.Writer.Header().Set("X-Request-ID", rid)
		c.Next()
	}
}

func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		rid, _ := c.Get("rid")
		log.Printf("[http] rid=%v %s %s status=%d dur=%s",
			rid, c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// Auth parses a Bearer JWT and puts the subject into the context as user_id.
// With required=false an absent or invalid token just leaves the request
// anonymous (carts work for anonymous sessions).
func Auth(secret string, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if raw == "" || raw == c.GetHeader("Authorization") {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
				return
			}
			c.Next()
			return
		}

		token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			c.Next()
			return
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if sub, _ := claims["sub"].(string); sub != "" {
				c.Set("user_id", sub)
			}
		}
		c.Next()
	}
}

// UserID returns the authenticated user id, empty when anonymous.
func UserID(c *gin.Context) string {
	uid, _ := c.Get("user_id")
	s, _ := uid.(string)
	return s
}

// SessionID returns the anonymous session identifier supplied by the client.
func SessionID(c *gin.Context) string {
	return c.GetHeader("X-Session-ID")
}

// RateLimit enforces a fixed-window counter per client in redis, so the limit
// holds across multiple server instances. Redis being down fails open: better
// to serve unthrottled than to drop checkout traffic.
func RateLimit(rdb *redis.Client, max int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		client := UserID(c)
		if client == "" {
			client = c.ClientIP()
		}
		bucket := time.Now().Unix() / int64(window.Seconds())
		key := fmt.Sprintf("rl:%s:%s:%d", c.FullPath(), client, bucket)

		n, err := rdb.Incr(c.Request.Context(), key).Result()
		if err != nil {
			log.Printf("[ratelim] redis incr failed: %v", err)
			c.Next()
			return
		}
		if n == 1 {
			rdb.Expire(c.Request.Context(), key, window)
		}
		if n > int64(max) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
