package board

import (
	"flag"
	"os"
	"time"

	"github.com/robotalks/wonder.go/pkg/button"
	"github.com/robotalks/wonder.go/pkg/env"
)

// Config defines the simulated board and where its telemetry goes.
type Config struct {
	// ID identifies the board in telemetry topics.
	ID string
	// DebounceTimeout is how long a press must last to be accepted.
	DebounceTimeout time.Duration
	// PollInterval is the minimum duration of a busy executor round.
	PollInterval time.Duration
	// SPILatency is the number of would-block attempts before each
	// byte on the gyro bus.
	SPILatency int
	// I2CLatency is the number of status reads before each byte slot on
	// the magnetometer bus.
	I2CLatency int
	// I2CStopDelay is the number of status reads a stop condition takes
	// after a not-acknowledge.
	I2CStopDelay int
	// UARTCapacity is the link buffer towards the host in bytes.
	UARTCapacity int

	// MQTTBrokerURL specifies the MQTT broker to publish to.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	// WebsocketURL specifies a websocket endpoint receiving samples.
	WebsocketURL string
	// RecordFile is a file samples are appended to.
	RecordFile string
}

var defaultConfig = Config{
	DebounceTimeout: button.DefaultDebounceTimeout,
	PollInterval:    time.Millisecond,
	SPILatency:      1,
	I2CLatency:      2,
	I2CStopDelay:    2,
	UARTCapacity:    256,
}

func init() {
	if val := os.Getenv("WONDER_BOARD_ID"); val != "" {
		defaultConfig.ID = val
	}
	if val := os.Getenv("WONDER_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("WONDER_WS_URL"); val != "" {
		defaultConfig.WebsocketURL = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Board ID, machine ID by default")
	flag.DurationVar(&defaultConfig.DebounceTimeout, "debounce", defaultConfig.DebounceTimeout, "Button debounce timeout")
	flag.DurationVar(&defaultConfig.PollInterval, "poll-interval", defaultConfig.PollInterval, "Minimum executor round duration")
	flag.IntVar(&defaultConfig.SPILatency, "spi-latency", defaultConfig.SPILatency, "Would-block attempts per SPI byte")
	flag.IntVar(&defaultConfig.I2CLatency, "i2c-latency", defaultConfig.I2CLatency, "Status reads per I2C byte")
	flag.IntVar(&defaultConfig.I2CStopDelay, "i2c-stop-delay", defaultConfig.I2CStopDelay, "Status reads per stop after NACK")
	flag.IntVar(&defaultConfig.UARTCapacity, "uart-capacity", defaultConfig.UARTCapacity, "Link buffer size in bytes")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL")
	flag.StringVar(&defaultConfig.WebsocketURL, "ws", defaultConfig.WebsocketURL, "Websocket URL")
	flag.StringVar(&defaultConfig.RecordFile, "record", defaultConfig.RecordFile, "File to record samples")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// BoardID returns ID, or the machine derived ID when empty.
func (c *Config) BoardID() string {
	if c.ID != "" {
		return c.ID
	}
	return env.DefaultBoardID()
}
