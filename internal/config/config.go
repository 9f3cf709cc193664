// internal/config/config.go
package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

// 当前配置的单例实例
var (
	currentConfig *Config
	configMutex   sync.RWMutex
)

// Config 存储应用配置
type Config struct {
	Port      string
	DataDir   string
	DBPath    string // sqlite 数据库文件；设为 ":memory:" 时使用内存后端
	DebugMode bool
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	// 尝试加载.env文件（可选）
	godotenv.Load()

	config := &Config{
		Port:      getEnv("PORT", "8080"),
		DataDir:   getEnvPath("DATA_DIR", "data"),
		DebugMode: getEnvBool("DEBUG_MODE", true),
	}
	config.DBPath = getEnv("DB_PATH", filepath.Join(config.DataDir, "sceneweaver.db"))

	configMutex.Lock()
	currentConfig = config
	configMutex.Unlock()

	return config, nil
}

// GetCurrentConfig 获取当前配置，未加载时返回默认配置
func GetCurrentConfig() *Config {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if currentConfig == nil {
		return &Config{
			Port:      "8080",
			DataDir:   "data",
			DBPath:    filepath.Join("data", "sceneweaver.db"),
			DebugMode: true,
		}
	}
	return currentConfig
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvPath 获取环境变量表示的路径，如果不存在则返回默认值
func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)

	// 确保目录存在
	if _, err := os.Stat(path); os.IsNotExist(err) {
		os.MkdirAll(path, 0755)
	}
	return path
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}
