package config

import (
	"context"
	"net"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisConfig Mode 为空表示不启用 Redis；single 单机，sentinel 哨兵
type RedisConfig struct {
	Mode       string `yaml:"mode"`
	Host       string `yaml:"host"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	MasterName string `yaml:"master-name"`
}

func (r RedisConfig) Enabled() bool {
	return r.Mode != ""
}

func InitRDB(redisConfig RedisConfig, proxyConfig ProxyConfig) *redis.Client {
	var dial func(ctx context.Context, network, addr string) (net.Conn, error)
	if proxyConfig.Enabled {
		dialer := proxyConfig.GetDialer()
		dial = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}

	if redisConfig.Mode == "single" {
		return redis.NewClient(&redis.Options{
			Addr:     redisConfig.Host,
			Password: redisConfig.Password,
			DB:       redisConfig.DB,
			Dialer:   dial,
		})
	}

	masterName := redisConfig.MasterName
	if masterName == "" {
		masterName = "mymaster"
	}
	return redis.NewFailoverClient(&redis.FailoverOptions{
		MasterName:       masterName,
		SentinelAddrs:    strings.Split(redisConfig.Host, ","),
		Password:         redisConfig.Password,
		SentinelPassword: redisConfig.Password,
		DB:               redisConfig.DB,
		Dialer:           dial,
	})
}
