package infra

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config — корневая структура конфигурации обоих сервисов (api + consumer).
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig описывает настройки HTTP-сервера.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig описывает подключение к PostgreSQL.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// RedisConfig описывает подключение к Redis (Streams и Pub/Sub).
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// QueueConfig — настройки цикла вычитки callback-очереди.
// Дефолты повторяют контракт потребителя: пауза 5с, пачка 5, long-poll 10с.
type QueueConfig struct {
	Stream   string `mapstructure:"stream"`
	Group    string `mapstructure:"group"`
	Consumer string `mapstructure:"consumer"`

	PollDelay time.Duration `mapstructure:"poll_delay"`
	BatchSize int           `mapstructure:"batch_size"`
	WaitTime  time.Duration `mapstructure:"wait_time"`

	// VisibilityTimeout — сколько неподтвержденное сообщение «висит» за потребителем,
	// прежде чем XAutoClaim отдаст его на повторную доставку.
	VisibilityTimeout time.Duration `mapstructure:"visibility_timeout"`
}

// NotifyConfig — построение ссылок решения и темп отправки писем.
type NotifyConfig struct {
	BaseURL  string  `mapstructure:"base_url"`
	SendRate float64 `mapstructure:"send_rate"` // писем в секунду
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	v.SetConfigName("config")    // имя файла без расширения
	v.SetConfigType("yaml")      // формат
	v.AddConfigPath(".")         // ищем в корне
	v.AddConfigPath("./configs") // и в папке с конфигами

	// 2. Настройка переменных окружения (ENV)
	// Позволяет перекрывать конфиг: QUEUE_BATCH_SIZE=10 перекроет queue.batch_size
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Установка дефолтных значений
	setDefaults(v)

	// 4. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет — работаем на ENV и дефолтах
	}

	// 5. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("database.max_conns", 15)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("queue.stream", RedisKeyCallbackStream)
	v.SetDefault("queue.group", "callback-consumers")
	v.SetDefault("queue.consumer", "consumer-1")
	v.SetDefault("queue.poll_delay", 5*time.Second)
	v.SetDefault("queue.batch_size", 5)
	v.SetDefault("queue.wait_time", 10*time.Second)
	v.SetDefault("queue.visibility_timeout", 30*time.Second)
	// Заглушка на случай пустого конфига — ссылки должны оставаться валидными URL
	v.SetDefault("notify.base_url", "https://example.com")
	v.SetDefault("notify.send_rate", 10)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
}
