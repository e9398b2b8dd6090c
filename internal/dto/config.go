package dto

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                int
	QuestionPath        string
	QuestionFile        string
	PollInterval        time.Duration
	LoadQuestionOnStart bool
	TrustProxy          bool

	RabbitMQURL      string
	RabbitMQExchange string
	KafkaBrokers     []string
	KafkaTopic       string
	MQTTBrokerURL    string
	MQTTTopic        string
	DatabaseURL      string

	LogLevel  string
	LogFormat string
}

// QuestionFilePath returns the watched question file location.
func (c Config) QuestionFilePath() string {
	return filepath.Join(c.QuestionPath, c.QuestionFile)
}

// LoadConfig reads an optional env file and then the process environment.
// A missing env file is not an error; a malformed value is.
func LoadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: loading %s: %v", ErrValidation, envFile, err)
		}
	}

	cfg := Config{
		QuestionPath:     getEnv("QUESTION_PATH", "."),
		QuestionFile:     getEnv("QUESTION_FILE", "question.txt"),
		RabbitMQURL:      os.Getenv("RABBITMQ_URL"),
		RabbitMQExchange: getEnv("RABBITMQ_EXCHANGE", "results"),
		KafkaTopic:       getEnv("KAFKA_TOPIC", "results"),
		MQTTBrokerURL:    os.Getenv("MQTT_BROKER_URL"),
		MQTTTopic:        getEnv("MQTT_TOPIC", "kvanc/results"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
	}

	var err error
	if cfg.Port, err = strconv.Atoi(getEnv("PORT", "8080")); err != nil {
		return Config{}, fmt.Errorf("%w: invalid PORT: %v", ErrValidation, err)
	}
	if cfg.PollInterval, err = time.ParseDuration(getEnv("POLL_INTERVAL", "100ms")); err != nil {
		return Config{}, fmt.Errorf("%w: invalid POLL_INTERVAL: %v", ErrValidation, err)
	}
	if cfg.PollInterval <= 0 {
		return Config{}, fmt.Errorf("%w: POLL_INTERVAL must be positive", ErrValidation)
	}
	if cfg.LoadQuestionOnStart, err = strconv.ParseBool(getEnv("LOAD_QUESTION_ON_START", "false")); err != nil {
		return Config{}, fmt.Errorf("%w: invalid LOAD_QUESTION_ON_START: %v", ErrValidation, err)
	}
	if cfg.TrustProxy, err = strconv.ParseBool(getEnv("TRUST_PROXY", "false")); err != nil {
		return Config{}, fmt.Errorf("%w: invalid TRUST_PROXY: %v", ErrValidation, err)
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
