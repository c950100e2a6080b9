package internal

import "time"

type Config struct {
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,required=true"`
	LimitMessages        *int          `env:"LIMIT_MESSAGES"`
	HeartbeatInterval    time.Duration `env:"HEARTBEAT_INTERVAL,required=true"`
	AuthSecret           string        `env:"AUTH_SECRET,required=true"`
	AllowedOrigin        string        `env:"ALLOWED_ORIGIN"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel             string        `env:"LOG_LEVEL,required=true"`
	Host                 string        `env:"HOST,required=true"`
	Port                 int           `env:"PORT,required=true"`
}
