package core

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config contains all of the configuration options available to the
// hexfield server components.
type Config struct {
	// Hostname or IP address on which the server will listen for connections.
	Hostname string `mapstructure:"hostname"`
	// Maximum number of concurrent connections the server will allow.
	MaxConnections int `mapstructure:"max_connections"`
	// Name of the game announced to connecting clients.
	GameName string `mapstructure:"game_name"`
	// Message of the day sent to every newly admitted player. Blank sends nothing.
	MOTD string `mapstructure:"motd"`
	// Full path to file to which logs will be written. Blank will write to stdout.
	LogFilePath string `mapstructure:"log_file_path"`
	// Minimum level of a log required to be written. Options: debug, info, warn, error
	LogLevel string `mapstructure:"log_level"`

	GameServer struct {
		// Port on which the TCP packet server will listen.
		Port int `mapstructure:"port"`
		// Number of outbound packets that may be queued per client before the
		// connection is considered dead and dropped.
		SendQueueSize int `mapstructure:"send_queue_size"`
	} `mapstructure:"game_server"`

	WebSocketServer struct {
		// Port for the websocket transport. Zero disables it.
		Port int `mapstructure:"port"`
	} `mapstructure:"websocket_server"`

	Events struct {
		// Comma-separated kafka broker addresses for the session event feed.
		// Blank disables the feed entirely.
		Brokers string `mapstructure:"brokers"`
		// Topic to which session events are published.
		Topic string `mapstructure:"topic"`
	} `mapstructure:"events"`

	Shutdown struct {
		// Seconds to wait for connections to drain before a hard exit.
		GracePeriod int `mapstructure:"grace_period"`
	} `mapstructure:"shutdown"`
}

const envVarPrefix = "HEXFIELD"

// LoadConfig initializes Viper with the contents of the config file under configPath.
func LoadConfig(configPath string) *Config {
	viper.AddConfigPath(configPath)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix(envVarPrefix)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if errors.Is(err, viper.ConfigFileNotFoundError{}) {
			fmt.Printf("error reading config file: no config file in path %s", configPath)
		} else {
			fmt.Printf("error reading config file: %v", err)
		}
		os.Exit(1)
	}

	// This allows us to set nested yaml config options through environment
	// variables. For example, game_server.port can be set using:
	// <envVarPrefix>_GAME_SERVER_PORT
	for _, k := range viper.AllKeys() {
		envVar := strings.ReplaceAll(strings.ToUpper(k), ".", "_")
		if err := viper.BindEnv(k, envVarPrefix+"_"+envVar); err != nil {
			fmt.Printf("error binding %s to %s", k, envVarPrefix+"_"+envVar)
			os.Exit(1)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		fmt.Printf("error unmarshaling config object: %v", err)
		os.Exit(1)
	}

	if config.GameServer.SendQueueSize <= 0 {
		config.GameServer.SendQueueSize = 256
	}
	return config
}

// GameAddress returns the listen address for the TCP packet server.
func (c *Config) GameAddress() string {
	return fmt.Sprintf("%s:%d", c.Hostname, c.GameServer.Port)
}

// WebSocketAddress returns the listen address for the websocket transport.
func (c *Config) WebSocketAddress() string {
	return fmt.Sprintf("%s:%d", c.Hostname, c.WebSocketServer.Port)
}

// EventBrokers splits the configured broker list, returning nil when the
// event feed is disabled.
func (c *Config) EventBrokers() []string {
	if c.Events.Brokers == "" {
		return nil
	}
	return strings.Split(c.Events.Brokers, ",")
}
