package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env:"LISTEN_BIND_IP" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env:"LISTEN_PORT" env-default:"8080"`
}

type MongoConfig struct {
	Enabled  bool   `yaml:"enabled" env:"MONGO_ENABLED" env-default:"true"`
	Host     string `yaml:"host" env:"MONGO_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"MONGO_PORT" env-default:"27017"`
	User     string `yaml:"user" env:"MONGO_USER" env-default:""`
	Password string `yaml:"password" env:"MONGO_PASSWORD" env-default:""`
	Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"bklreg"`
}

type OtpConfig struct {
	BaseUrl string `yaml:"base_url" env:"OTP_BASE_URL" env-default:""`
	ApiKey  string `yaml:"api_key" env:"OTP_API_KEY" env-default:""`
	// Country resolves the dial code prefixed to the 10-digit national
	// number at the gateway boundary. Name or ISO code, e.g. "India" or "IN".
	Country  string `yaml:"country" env:"OTP_COUNTRY" env-default:"IN"`
	SenderId string `yaml:"sender_id" env:"OTP_SENDER_ID" env-default:"BKLREG"`
}

type AdminConfig struct {
	Username string `yaml:"username" env:"ADMIN_USERNAME" env-default:""`
	Password string `yaml:"password" env:"ADMIN_PASSWORD" env-default:""`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled" env:"TELEGRAM_ENABLED" env-default:"false"`
	ApiKey  string `yaml:"api_key" env:"TELEGRAM_API_KEY" env-default:""`
	ChatId  int64  `yaml:"chat_id" env:"TELEGRAM_CHAT_ID" env-default:"0"`
}

type Config struct {
	Mongo    MongoConfig    `yaml:"mongo"`
	Otp      OtpConfig      `yaml:"otp"`
	Admin    AdminConfig    `yaml:"admin"`
	Telegram TelegramConfig `yaml:"telegram"`
	Listen   Listen         `yaml:"listen"`
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}
