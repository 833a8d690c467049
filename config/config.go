package config

import (
	"fmt"
	"os"
	"path"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// SysConfig system configuration
type SysConfig struct {
	Appid    string `yaml:"appid" json:"appid"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

type WebConfig struct {
	Host   string `yaml:"host" json:"host"`
	Port   int    `yaml:"port" json:"port"`
	Secret string `yaml:"secret" json:"secret"`
}

type DBConfig struct {
	Type     string `yaml:"type" json:"type"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Name     string `yaml:"name" json:"name"`
	User     string `yaml:"user" json:"user"`
	Passwd   string `yaml:"passwd" json:"passwd"`
	MaxConn  int    `yaml:"max_conn" json:"max_conn"`
	IdleConn int    `yaml:"idle_conn" json:"idle_conn"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

type LogConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

// ChatbotConfig external answer-service settings
type ChatbotConfig struct {
	Url         string `yaml:"url" json:"url"`
	Timeout     int    `yaml:"timeout" json:"timeout"`           // seconds
	RetryWait   int    `yaml:"retry_wait" json:"retry_wait"`     // seconds
	MaxAttempts int    `yaml:"max_attempts" json:"max_attempts"` // total tries incl. first
}

// RelayConfig back-office webhook settings
type RelayConfig struct {
	Url     string `yaml:"url" json:"url"`
	Timeout int    `yaml:"timeout" json:"timeout"` // seconds
}

// WhatsAppConfig session and media settings
type WhatsAppConfig struct {
	DefaultSession string `yaml:"default_session" json:"default_session"`
	DefaultSender  string `yaml:"default_sender" json:"default_sender"`
	MediaDir       string `yaml:"media_dir" json:"media_dir"`
	QrDir          string `yaml:"qr_dir" json:"qr_dir"`
	FFmpegBin      string `yaml:"ffmpeg_bin" json:"ffmpeg_bin"`
	SendTimeout    int    `yaml:"send_timeout" json:"send_timeout"` // seconds
	Workers        int    `yaml:"workers" json:"workers"`
}

type AppConfig struct {
	System   SysConfig      `yaml:"system" json:"system"`
	Web      WebConfig      `yaml:"web" json:"web"`
	Database DBConfig       `yaml:"database" json:"database"`
	Logger   LogConfig      `yaml:"logger" json:"logger"`
	Chatbot  ChatbotConfig  `yaml:"chatbot" json:"chatbot"`
	Relay    RelayConfig    `yaml:"relay" json:"relay"`
	WhatsApp WhatsAppConfig `yaml:"whatsapp" json:"whatsapp"`
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

func (c *AppConfig) GetMediaDir() string {
	if c.WhatsApp.MediaDir != "" {
		return c.WhatsApp.MediaDir
	}
	return path.Join(c.System.Workdir, "media")
}

func (c *AppConfig) GetQrDir() string {
	if c.WhatsApp.QrDir != "" {
		return c.WhatsApp.QrDir
	}
	return path.Join(c.System.Workdir, "qrcodes")
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "wabridge",
		Location: "Asia/Jakarta",
		Workdir:  "/var/wabridge",
		Debug:    true,
	},
	Web: WebConfig{
		Host:   "0.0.0.0",
		Port:   21465,
		Secret: "9b6de5cc-wabridge-0cc5-untrusted",
	},
	Database: DBConfig{
		Type:     "postgres",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "wabridge",
		User:     "postgres",
		Passwd:   "",
		MaxConn:  100,
		IdleConn: 10,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/wabridge/wabridge.log",
	},
	Chatbot: ChatbotConfig{
		Url:         "https://api.majadigidev.jatimprov.go.id/api/external/chatbot/send-message",
		Timeout:     40,
		RetryWait:   5,
		MaxAttempts: 3,
	},
	Relay: RelayConfig{
		Url:     "http://localhost:3333/api/whatsapp/webhook/whatsapp",
		Timeout: 30,
	},
	WhatsApp: WhatsAppConfig{
		DefaultSession: "mySession",
		DefaultSender:  "08123456789",
		FFmpegBin:      "ffmpeg",
		SendTimeout:    30,
		Workers:        16,
	},
}

func setEnvValue(name string, f func(v string)) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		f(evalue)
	}
}

func setEnvIntValue(name string, f func(v int64)) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		f(cast.ToInt64(evalue))
	}
}

func setEnvBoolValue(name string, f func(v bool)) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		f(evalue == "true" || evalue == "1" || evalue == "on")
	}
}

// LoadConfig reads the YAML config file and applies environment overrides.
// A missing file falls back to defaults so the service can run from env only.
func LoadConfig(cfile string) *AppConfig {
	cfg := DefaultAppConfig
	if cfile != "" {
		if _, err := os.Stat(cfile); err == nil {
			data, err := os.ReadFile(cfile)
			if err != nil {
				panic(err)
			}
			cfg = new(AppConfig)
			if err := yaml.Unmarshal(data, cfg); err != nil {
				panic(fmt.Errorf("parse config %s: %w", cfile, err))
			}
		}
	}

	setEnvValue("WABRIDGE_SYSTEM_WORKDIR", func(v string) { cfg.System.Workdir = v })
	setEnvValue("WABRIDGE_SYSTEM_LOCATION", func(v string) { cfg.System.Location = v })
	setEnvBoolValue("WABRIDGE_SYSTEM_DEBUG", func(v bool) { cfg.System.Debug = v })

	setEnvValue("WABRIDGE_WEB_HOST", func(v string) { cfg.Web.Host = v })
	setEnvIntValue("WABRIDGE_WEB_PORT", func(v int64) { cfg.Web.Port = int(v) })
	setEnvValue("WABRIDGE_WEB_SECRET", func(v string) { cfg.Web.Secret = v })

	setEnvValue("WABRIDGE_DB_TYPE", func(v string) { cfg.Database.Type = v })
	setEnvValue("WABRIDGE_DB_HOST", func(v string) { cfg.Database.Host = v })
	setEnvIntValue("WABRIDGE_DB_PORT", func(v int64) { cfg.Database.Port = int(v) })
	setEnvValue("WABRIDGE_DB_NAME", func(v string) { cfg.Database.Name = v })
	setEnvValue("WABRIDGE_DB_USER", func(v string) { cfg.Database.User = v })
	setEnvValue("WABRIDGE_DB_PWD", func(v string) { cfg.Database.Passwd = v })

	setEnvValue("WABRIDGE_CHATBOT_URL", func(v string) { cfg.Chatbot.Url = v })
	setEnvIntValue("WABRIDGE_CHATBOT_TIMEOUT", func(v int64) { cfg.Chatbot.Timeout = int(v) })
	setEnvValue("ADONIS_SERVER_URL", func(v string) { cfg.Relay.Url = v + "/api/whatsapp/webhook/whatsapp" })
	setEnvValue("WABRIDGE_RELAY_URL", func(v string) { cfg.Relay.Url = v })

	setEnvValue("WABRIDGE_WA_SESSION", func(v string) { cfg.WhatsApp.DefaultSession = v })
	setEnvValue("WABRIDGE_WA_SENDER", func(v string) { cfg.WhatsApp.DefaultSender = v })
	setEnvValue("WABRIDGE_FFMPEG_BIN", func(v string) { cfg.WhatsApp.FFmpegBin = v })
	setEnvIntValue("WABRIDGE_WA_WORKERS", func(v int64) { cfg.WhatsApp.Workers = int(v) })

	return cfg
}
