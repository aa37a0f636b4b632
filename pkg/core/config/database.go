package config

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/glebarez/sqlite"
	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database 数据库连接配置，Type 取值 mysql / postgres / sqlite
type Database struct {
	Type         string `yaml:"type" json:"type,omitempty"`
	Host         string `yaml:"host" json:"host,omitempty"`
	Port         int64  `yaml:"port" json:"port,omitempty"`
	User         string `yaml:"user" json:"user,omitempty"`
	Password     string `yaml:"password" json:"password,omitempty"`
	DbName       string `yaml:"db-name" json:"db-name,omitempty"`
	Path         string `yaml:"path" json:"path,omitempty"`
	MaxIdleConns int    `yaml:"max-idle-conns" json:"max-idle-conns,omitempty"`
	MaxOpenConns int    `yaml:"max-open-conns" json:"max-open-conns,omitempty"`
	LogLevel     string `yaml:"log-level" json:"log-level,omitempty"`
}

// Open 根据 Type 选择驱动建立连接
func Open(database Database, proxyConfig ProxyConfig) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch database.Type {
	case "", "mysql":
		db, err = InitMysql(database, proxyConfig)
	case "postgres":
		db, err = InitPg(database)
	case "sqlite":
		db, err = InitSqlite(database)
	default:
		return nil, fmt.Errorf("不支持的数据库类型: %s", database.Type)
	}
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if database.Type == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	}

	maxIdle, maxOpen := database.MaxIdleConns, database.MaxOpenConns
	if maxIdle <= 0 {
		maxIdle = 10
	}
	if maxOpen <= 0 {
		maxOpen = 100
	}
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

func gormConfig(database Database) *gorm.Config {
	level := gormlogger.Warn
	switch database.LogLevel {
	case "silent":
		level = gormlogger.Silent
	case "error":
		level = gormlogger.Error
	case "info":
		level = gormlogger.Info
	}
	return &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
		// 时间统一按 UTC 写入，窗口查询依赖这一点
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

func InitPg(database Database) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=disable password=%s",
		database.Host, database.Port, database.User, database.DbName, database.Password)

	return gorm.Open(postgres.Open(dsn), gormConfig(database))
}

func InitMysql(database Database, proxyConfig ProxyConfig) (*gorm.DB, error) {
	cfg := mysqldriver.NewConfig()
	cfg.User = database.User
	cfg.Passwd = database.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", database.Host, database.Port)
	cfg.DBName = database.DbName
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}

	if proxyConfig.Enabled {
		// 注册自定义 dialer，让 MySQL 连接走代理
		dialerName := fmt.Sprintf("proxy_%d", time.Now().UnixNano())
		dialer := proxyConfig.GetDialer()
		mysqldriver.RegisterDialContext(dialerName, func(ctx context.Context, addr string) (net.Conn, error) {
			return dialer.Dial("tcp", addr)
		})
		cfg.Net = dialerName
	}

	return gorm.Open(mysql.Open(cfg.FormatDSN()), gormConfig(database))
}

// InitSqlite 本地开发与测试使用的纯 Go SQLite
func InitSqlite(database Database) (*gorm.DB, error) {
	path := database.Path
	if path == "" {
		path = "file::memory:?cache=shared"
	}
	return gorm.Open(sqlite.Open(path), gormConfig(database))
}
