package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Signaling struct {
	Port       int           `mapstructure:"port"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	SendBuffer int           `mapstructure:"send_buffer"`
}

type Supervisor struct {
	Port         int           `mapstructure:"port"`
	StaticPath   string        `mapstructure:"static_path"`
	SignalingCmd []string      `mapstructure:"signaling_cmd"`
	StreamerCmd  []string      `mapstructure:"streamer_cmd"`
	// StartupDelay is a best-effort ordering delay between spawning the
	// signaling relay and binding the control endpoint. It is not a
	// synchronized handshake: if the relay is slow to bind, the race is
	// accepted, not detected.
	StartupDelay time.Duration `mapstructure:"startup_delay"`
}

type Streamer struct {
	SignalingURL   string        `mapstructure:"signaling_url"`
	UseWebcam      bool          `mapstructure:"use_webcam"`
	WebcamIndex    int           `mapstructure:"webcam_index"`
	VideoFile      string        `mapstructure:"video_file"`
	StunServers    []string      `mapstructure:"stun_servers"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type Config struct {
	Mode       string     `mapstructure:"mode"`
	Signaling  Signaling  `mapstructure:"signaling"`
	Supervisor Supervisor `mapstructure:"supervisor"`
	Streamer   Streamer   `mapstructure:"streamer"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")

	v.SetDefault("signaling.port", 8080)
	v.SetDefault("signaling.read_limit", 65536)
	v.SetDefault("signaling.ping_period", "54s")
	v.SetDefault("signaling.send_buffer", 32)

	v.SetDefault("supervisor.port", 3000)
	v.SetDefault("supervisor.static_path", "./web")
	v.SetDefault("supervisor.signaling_cmd", []string{"./bin/camstream-signaling"})
	v.SetDefault("supervisor.streamer_cmd", []string{"./bin/camstream-streamer"})
	v.SetDefault("supervisor.startup_delay", "1500ms")

	v.SetDefault("streamer.signaling_url", "ws://localhost:8080/ws")
	v.SetDefault("streamer.use_webcam", false)
	v.SetDefault("streamer.webcam_index", 0)
	v.SetDefault("streamer.video_file", "media/test-video.ivf")
	v.SetDefault("streamer.stun_servers", []string{
		"stun:stun.l.google.com:19302",
		"stun:stun1.l.google.com:19302",
		"stun:stun2.l.google.com:19302",
	})
	v.SetDefault("streamer.max_retries", 3)
	v.SetDefault("streamer.retry_delay", "5s")
	v.SetDefault("streamer.connect_timeout", "30s")

	// Environment overrides keep the names the streamer has always used.
	_ = v.BindEnv("streamer.signaling_url", "SIGNALING_URL")
	_ = v.BindEnv("streamer.use_webcam", "USE_WEBCAM")
	_ = v.BindEnv("streamer.webcam_index", "WEBCAM_INDEX")
	_ = v.BindEnv("streamer.video_file", "VIDEO_FILE")
	_ = v.BindEnv("streamer.max_retries", "MAX_RETRIES")
	_ = v.BindEnv("streamer.retry_delay", "RETRY_DELAY")
	_ = v.BindEnv("streamer.connect_timeout", "CONNECTION_TIMEOUT")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
