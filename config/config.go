package config

import (
	"os"
	"path"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

var once sync.Once
var Conf *Config

const (
	EnvPrefix      = "SMARTC"
	ConfigName     = "client"
	DefaultRoom    = "go-chat-room"
	DefaultApiBase = "http://localhost:8080"
	DefaultHubURL  = "http://localhost:5001/signalhub"
	DefaultStun    = "stun:stun.l.google.com:19302"
)

// Config is the session configuration shared by every layer of the SDK.
// It is built once and passed around by value.
type Config struct {
	Api    ApiConfig    `mapstructure:"api"`
	Hub    HubConfig    `mapstructure:"hub"`
	Ice    IceConfig    `mapstructure:"ice"`
	Client ClientConfig `mapstructure:"client"`
	Log    LogConfig    `mapstructure:"log"`
}

type ApiConfig struct {
	BaseURL string        `mapstructure:"baseUrl"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type HubConfig struct {
	URL               string        `mapstructure:"url"`
	OpenTimeout       time.Duration `mapstructure:"openTimeout"`
	SendTimeout       time.Duration `mapstructure:"sendTimeout"`
	KeepAliveInterval time.Duration `mapstructure:"keepAliveInterval"`
	// dial the websocket endpoint directly instead of negotiating
	SkipNegotiation bool `mapstructure:"skipNegotiation"`
}

type TurnServer struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

// IceConfig is the fallback used when the backend cannot provide ICE servers.
type IceConfig struct {
	StunServers []string     `mapstructure:"stunServers"`
	TurnServers []TurnServer `mapstructure:"turnServers"`
}

type ClientConfig struct {
	DefaultRoom string `mapstructure:"defaultRoom"`
	Role        string `mapstructure:"role"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
	File   string `mapstructure:"file"`
}

func getCurDir() string {
	_, filename, _, _ := runtime.Caller(1)
	aPath := strings.Split(filename, "/")
	dir := strings.Join(aPath[:len(aPath)-1], "/")
	return dir
}

func GetMode() string {
	env := os.Getenv("RUN_MODE")
	if env == "" {
		return "dev"
	}
	return env
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.baseUrl", DefaultApiBase)
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("hub.url", DefaultHubURL)
	v.SetDefault("hub.openTimeout", 5*time.Second)
	v.SetDefault("hub.sendTimeout", 10*time.Second)
	v.SetDefault("hub.keepAliveInterval", 10*time.Second)
	v.SetDefault("hub.skipNegotiation", false)
	v.SetDefault("ice.stunServers", []string{DefaultStun})
	v.SetDefault("client.defaultRoom", DefaultRoom)
	v.SetDefault("client.role", "User")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
}

// Default returns the built-in configuration without touching the filesystem.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var c Config
	// defaults always decode
	_ = v.Unmarshal(&c)
	return c
}

// Load reads the configuration. An explicit file path must exist; without
// one, config/<RUN_MODE>/client.toml is used when present. SMARTC_* env vars
// override both, e.g. SMARTC_API_BASEURL.
func Load(file string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", file)
		}
	} else {
		v.AddConfigPath(path.Join(getCurDir(), GetMode()))
		v.SetConfigName(ConfigName)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, errors.Wrap(err, "read config")
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Init loads the process-wide configuration once.
func Init(file string) (err error) {
	once.Do(func() {
		var c Config
		if c, err = Load(file); err != nil {
			return
		}
		Conf = &c
	})
	return
}

func (c Config) Validate() error {
	if c.Api.BaseURL == "" {
		return errors.New("api.baseUrl is empty")
	}
	if c.Hub.URL == "" {
		return errors.New("hub.url is empty")
	}
	if c.Api.Timeout <= 0 {
		return errors.New("api.timeout must be positive")
	}
	if c.Hub.OpenTimeout <= 0 || c.Hub.SendTimeout <= 0 {
		return errors.New("hub timeouts must be positive")
	}
	return nil
}
