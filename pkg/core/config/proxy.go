package config

import (
	"fmt"
	"net"
	"time"

	"golang.org/x/net/proxy"
)

// ProxyConfig 出站连接使用的 SOCKS5 代理，作用于数据库、Redis 与通知渠道
type ProxyConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

func directDialer() *net.Dialer {
	return &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
}

// GetDialer 未启用代理或代理创建失败时返回直连 dialer
func (p ProxyConfig) GetDialer() proxy.Dialer {
	if !p.Enabled {
		return directDialer()
	}

	var auth *proxy.Auth
	if p.Username != "" && p.Password != "" {
		auth = &proxy.Auth{
			User:     p.Username,
			Password: p.Password,
		}
	}

	dialer, err := proxy.SOCKS5("tcp", fmt.Sprintf("%s:%d", p.Host, p.Port), auth, proxy.Direct)
	if err != nil {
		return directDialer()
	}
	return dialer
}

// FasthttpDial 供 fasthttp.Client.Dial 使用
func (p ProxyConfig) FasthttpDial() func(addr string) (net.Conn, error) {
	if !p.Enabled {
		return nil
	}
	dialer := p.GetDialer()
	return func(addr string) (net.Conn, error) {
		return dialer.Dial("tcp", addr)
	}
}
