package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	JWT     JWTConfig     `mapstructure:"jwt"`
	Storage StorageConfig `mapstructure:"storage"`
	Office  OfficeConfig  `mapstructure:"office"`
	Upload  UploadConfig  `mapstructure:"upload"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`      // json 或 text
	Output     string `mapstructure:"output"`      // stdout 或 file
	MaxSize    int    `mapstructure:"max_size"`    // 兆字节
	MaxBackups int    `mapstructure:"max_backups"` // 备份数量
	MaxAge     int    `mapstructure:"max_age"`     // 天数
	Compress   bool   `mapstructure:"compress"`    // 是否压缩旧文件
}

type JWTConfig struct {
	Secret     string `mapstructure:"secret"`      // JWT 密钥
	ExpireTime int    `mapstructure:"expire_time"` // 过期时间（小时）
	Issuer     string `mapstructure:"issuer"`      // 签发者
}

// 上传后端类型
const (
	StorageBackendBucket = "bucket"
	StorageBackendOffice = "office"
)

// StorageConfig 对象存储配置
type StorageConfig struct {
	Backend string `mapstructure:"backend"`  // 上传后端，bucket 或 office
	BaseURL string `mapstructure:"base_url"` // 存储服务地址
	Bucket  string `mapstructure:"bucket"`   // 桶名称
	Token   string `mapstructure:"token"`    // Bearer 令牌
}

// OfficeConfig 办公存储代理配置（Graph API）
type OfficeConfig struct {
	TenantID     string `mapstructure:"tenant_id"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	DriveID      string `mapstructure:"drive_id"`  // 上传目标驱动器
	GraphURL     string `mapstructure:"graph_url"` // Graph API 地址
	TokenURL     string `mapstructure:"token_url"` // 令牌地址模板，%s 为租户ID
}

// UploadConfig 上传相关配置
type UploadConfig struct {
	StagingDir   string `mapstructure:"staging_dir"`    // 暂存目录
	DropDir      string `mapstructure:"drop_dir"`       // 监控投递目录，空则禁用
	ProxyBaseURL string `mapstructure:"proxy_base_url"` // URL 下载代理地址，空则只走直连
}

func Load() *Config {
	setDefaults()

	// 读取配置
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("未找到配置文件，使用默认配置")
		} else {
			log.Fatalf("读取配置文件出错: %v", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("无法解码配置: %v", err)
	}

	// 验证配置
	if err := validateConfig(&config); err != nil {
		log.Fatalf("配置验证失败: %v", err)
	}

	return &config
}

// setDefaults 设置默认配置
func setDefaults() {
	viper.SetDefault("server.port", "5000")

	// 日志默认配置
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.max_size", 100)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age", 28)
	viper.SetDefault("log.compress", true)

	// JWT默认配置
	viper.SetDefault("jwt.secret", "your-secret-key-change-in-production")
	viper.SetDefault("jwt.expire_time", 24) // 24小时
	viper.SetDefault("jwt.issuer", "video-vault")

	// 对象存储默认配置
	viper.SetDefault("storage.backend", StorageBackendBucket)
	viper.SetDefault("storage.bucket", "videos")

	// 办公存储默认配置
	viper.SetDefault("office.graph_url", "https://graph.microsoft.com/v1.0")
	viper.SetDefault("office.token_url", "https://login.microsoftonline.com/%s/oauth2/v2.0/token")

	// 上传默认配置
	viper.SetDefault("upload.staging_dir", "data/staging")
}

// validateConfig 验证配置的有效性
func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("服务器端口未设置")
	}
	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT密钥未设置")
	}
	if config.Upload.StagingDir == "" {
		return fmt.Errorf("上传暂存目录未设置")
	}
	switch config.Storage.Backend {
	case StorageBackendBucket:
	case StorageBackendOffice:
		if config.Office.TenantID == "" || config.Office.DriveID == "" {
			return fmt.Errorf("办公存储后端需要配置 office.tenant_id 和 office.drive_id")
		}
	default:
		return fmt.Errorf("未知的存储后端: %s", config.Storage.Backend)
	}
	return nil
}
