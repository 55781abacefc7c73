package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/dunya-jewellery/shop/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// MustInit loads .env (if present) and config.yaml, then installs the default logger.
func MustInit() {
	if err := godotenv.Load("./.env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic("error while loading .env file: " + err.Error())
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/shop")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("shop")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		panic("error while reading config file: " + err.Error())
	}
	SetupLogger()
}

func setDefaults() {
	viper.SetDefault("service.name", "dunya-jewellery-backend")
	viper.SetDefault("service.version", "1.0.0")
	viper.SetDefault("server.http.port", "8000")
	viper.SetDefault("server.grpc.port", "9000")
	viper.SetDefault("notifier.mode", "inline")
	viper.SetDefault("notifier.timeout_seconds", 15)
	viper.SetDefault("notifier.timezone", "Asia/Tashkent")
	viper.SetDefault("notifier.api_url", "https://api.telegram.org")
	viper.SetDefault("redis.ttl_seconds", 30)
	viper.SetDefault("log.level", "info")
}

func SetupLogger() {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log.level"))); err != nil {
		level = slog.LevelInfo
	}

	handler := logger.NewHandler(&slog.HandlerOptions{Level: level})
	log := slog.New(handler)
	slog.SetDefault(log)
}
