package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/KitaosakaSystem/webSyuhai/config"

	"github.com/redis/go-redis/v9"
)

type RedisClient struct {
	Client *redis.Client
}

// NewRedisClient opens and PING-tests a connection.
func NewRedisClient(cfg *config.RedisConfig) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("redis client connection test failed: %w", err)
	}

	return &RedisClient{
		Client: client,
	}, nil
}

func (r *RedisClient) Close() error {
	return r.Client.Close()
}

// UserInfo is one entry of a room's online list.
type UserInfo struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	UserType string `json:"user_type"`
}

func onlineUsersKey(roomID string) string {
	return fmt.Sprintf("chat:room:%s:online_users", roomID)
}

// AddOnlineUser registers a user in the room's presence hash.
func (r *RedisClient) AddOnlineUser(ctx context.Context, roomID string, user UserInfo) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	key := onlineUsersKey(roomID)
	if err := r.Client.HSet(ctx, key, user.UserID, data).Err(); err != nil {
		return err
	}
	// presence entries die with the day
	return r.Client.Expire(ctx, key, 24*time.Hour).Err()
}

// RemoveOnlineUser drops a user from the room's presence hash.
func (r *RedisClient) RemoveOnlineUser(ctx context.Context, roomID, userID string) error {
	return r.Client.HDel(ctx, onlineUsersKey(roomID), userID).Err()
}

// GetOnlineUsers returns the room's current online list.
func (r *RedisClient) GetOnlineUsers(ctx context.Context, roomID string) ([]UserInfo, error) {
	result, err := r.Client.HGetAll(ctx, onlineUsersKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch online users for room %s: %w", roomID, err)
	}

	users := make([]UserInfo, 0, len(result))
	for _, data := range result {
		var user UserInfo
		if err := json.Unmarshal([]byte(data), &user); err != nil {
			log.Printf("Failed to unmarshal user info: %v", err)
			continue
		}
		users = append(users, user)
	}
	return users, nil
}
