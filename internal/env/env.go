package env

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	ListenAddr       = "RELAY_LISTEN_ADDR"
	JWTSecret        = "JWT_SECRET"
	AWSRegion        = "AWS_REGION"
	AWSID            = "AWS_ID"
	AWSSecret        = "AWS_SECRET"
	AWSToken         = "AWS_TOKEN"
	DynamoDBEndpoint = "DYNAMODB_ENDPOINT"
	ChatRedisURL     = "CHAT_REDIS_URL"
	ChatRedisPass    = "CHAT_REDIS_PASS"
	ChatRedisChannel = "CHAT_REDIS_CHANNEL"
	UploadDir        = "UPLOAD_DIR"
	UploadPublicPath = "UPLOAD_PUBLIC_PATH"
	ServiceKeyHash   = "RELAY_SERVICE_KEY_HASH"
	AllowedOrigins   = "RELAY_ALLOWED_ORIGINS"
	Workers          = "RELAY_WORKERS"
	QueueSize        = "RELAY_QUEUE_SIZE"
	LogLevel         = "LOG_LEVEL"
	LogFormat        = "LOG_FORMAT"
)

// InsecureJWTSecret is used when JWT_SECRET is unset. It only exists so a
// local relay starts without configuration and must be overridden in production.
const InsecureJWTSecret = "helpdesk-relay-insecure-secret"

// Require reports the first of keys that is not set.
func Require(keys ...string) error {
	for _, key := range keys {
		if os.Getenv(key) == "" {
			return fmt.Errorf("env: required environment variable not set: %s", key)
		}
	}
	return nil
}

func Get(key string) string {
	return os.Getenv(key)
}

func GetOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func GetInt(key string, defaultVal int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}

// GetList splits a comma separated value, dropping empty entries.
func GetList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if strings.TrimSpace(val) == "" {
		return defaultVal
	}
	out := make([]string, 0)
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

func MustGet(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic("env: required environment variable not set: " + key)
	}
	return val
}
