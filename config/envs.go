package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the application's configuration values.
type Config struct {
	ProxyIP  string // Proxy IP of client server
	HostIP   string // Host name the UDP socket binds to
	GrpcPort int    // Port for the GRPC server

	UdpPort                int // Port for the UDP socket
	UDPBufferSize          int // Size of the buffer for incoming UDP packets (in bytes)
	UDPHeartbeatExpiration int // Expiration time for UDP heartbeat (in milliseconds)

	ObserverPort int    // Port for the HTTP observer
	DBPath       string // SQLite session cache
	TuningPath   string // YAML game tuning, optional

	FeeRouting     string // "treasury" or "owner", no default
	PaymentVariant string // wallet integration, see payment.VariantByName
}

// Envs holds the application's configuration loaded from environment variables.
var Envs = initConfig()

// initConfig initializes and returns the application configuration.
// It loads environment variables from a .env file.
func initConfig() Config {
	// Load .env file if available
	if err := godotenv.Load(); err != nil {
		log.Printf("[APP] [INFO] .env file not found or could not be loaded: %v", err)
	}

	return Config{
		ProxyIP:  mustGetEnv("PROXY_IP"),
		HostIP:   getEnv("HOST_IP", "0.0.0.0"),
		GrpcPort: mustGetEnvAsInt("GRPC_PORT"),

		UdpPort:                mustGetEnvAsInt("UDP_PORT"),
		UDPBufferSize:          mustGetEnvAsInt("UDP_BUFFER_SIZE"),
		UDPHeartbeatExpiration: getEnvAsInt("UDP_HEARTBEAT_EXPIRATION", 3000),

		ObserverPort: getEnvAsInt("OBSERVER_PORT", 8081),
		DBPath:       getEnv("DB_PATH", "data/treasure-maze.sqlite"),
		TuningPath:   getEnv("TUNING_PATH", "tuning.yaml"),

		FeeRouting:     mustGetEnv("FEE_ROUTING"),
		PaymentVariant: getEnv("PAYMENT_VARIANT", "local-simulation"),
	}
}

// mustGetEnv retrieves the value of an environment variable or logs a fatal error if not set.
func mustGetEnv(key string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		log.Fatalf("%s[APP]%s %s[FATAL]%s Environment variable %s is not set", ColorGreen, ColorReset, ColorRed, ColorReset, key)
	}
	return value
}

// mustGetEnvAsInt retrieves the value of an environment variable as an integer or logs a fatal error if not set or cannot be parsed.
func mustGetEnvAsInt(key string) int {
	valueStr := mustGetEnv(key)
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Fatalf("[APP] [FATAL] Environment variable %s must be an integer: %v", key, err)
	}
	return value
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr, ok := os.LookupEnv(key)
	if !ok || valueStr == "" {
		return fallback
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Fatalf("[APP] [FATAL] Environment variable %s must be an integer: %v", key, err)
	}
	return value
}
