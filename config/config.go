package config

import (
	"os"
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// DBConfig database config
type DBConfig struct {
	Type     string `yaml:"type"` // sqlite | postgres
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

// SysConfig system config
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

// WebConfig web server config
type WebConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	StaticDir string `yaml:"static_dir"`
}

type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

type ShopConfig struct {
	Name        string `yaml:"name"`
	CountryCode string `yaml:"country_code"`
}

type SFTPConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Passwd     string `yaml:"passwd"`
	KnownHosts string `yaml:"known_hosts"`
	RemoteDir  string `yaml:"remote_dir"`
}

type ReportConfig struct {
	Dir     string     `yaml:"dir"`
	DailyAt string     `yaml:"daily_at"` // HH:MM local time
	SFTP    SFTPConfig `yaml:"sftp"`
}

type WhatsAppConfig struct {
	Enabled bool `yaml:"enabled"`
	PrintQR bool `yaml:"print_qr"`
}

type MailConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	User    string `yaml:"user"`
	Passwd  string `yaml:"passwd"`
	From    string `yaml:"from"`
	AdminTo string `yaml:"admin_to"`
}

type AppConfig struct {
	System   SysConfig      `yaml:"system"`
	Web      WebConfig      `yaml:"web"`
	Database DBConfig       `yaml:"database"`
	Logger   LogConfig      `yaml:"logger"`
	Shop     ShopConfig     `yaml:"shop"`
	Report   ReportConfig   `yaml:"report"`
	WhatsApp WhatsAppConfig `yaml:"whatsapp"`
	Mail     MailConfig     `yaml:"mail"`
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

// GetReportDir returns the report output directory, relative paths resolved against workdir.
func (c *AppConfig) GetReportDir() string {
	if c.Report.Dir == "" {
		return path.Join(c.System.Workdir, "reports")
	}
	if path.IsAbs(c.Report.Dir) {
		return c.Report.Dir
	}
	return path.Join(c.System.Workdir, c.Report.Dir)
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "UrbanGulal",
		Location: "Asia/Kolkata",
		Workdir:  "./var",
	},
	Web: WebConfig{
		Host:      "0.0.0.0",
		Port:      3002,
		StaticDir: "public",
	},
	Database: DBConfig{
		Type:     "sqlite",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "urbangulal",
		User:     "postgres",
		MaxConn:  20,
		IdleConn: 5,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: false,
		Filename:   "var/logs/urbangulal.log",
	},
	Shop: ShopConfig{
		Name:        "Urban Gulal",
		CountryCode: "91",
	},
	Report: ReportConfig{
		Dir:     "reports",
		DailyAt: "23:55",
		SFTP:    SFTPConfig{Port: 22, RemoteDir: "."},
	},
	WhatsApp: WhatsAppConfig{PrintQR: true},
	Mail:     MailConfig{Port: 587},
}

// LoadConfig reads the yaml file (optional), then applies env overrides.
func LoadConfig(cfile string) (*AppConfig, error) {
	cfg := *DefaultAppConfig
	if cfile != "" {
		data, err := os.ReadFile(cfile)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, errors.Wrapf(err, "parse config %s", cfile)
			}
		case os.IsNotExist(err):
		default:
			return nil, errors.Wrapf(err, "read config %s", cfile)
		}
	}
	setEnvValue("URBANGULAL_SYSTEM_WORKDIR", &cfg.System.Workdir)
	setEnvValue("URBANGULAL_SYSTEM_LOCATION", &cfg.System.Location)
	setEnvBoolValue("URBANGULAL_SYSTEM_DEBUG", &cfg.System.Debug)

	setEnvValue("URBANGULAL_WEB_HOST", &cfg.Web.Host)
	setEnvIntValue("URBANGULAL_WEB_PORT", &cfg.Web.Port)
	setEnvValue("URBANGULAL_WEB_STATIC_DIR", &cfg.Web.StaticDir)

	setEnvValue("URBANGULAL_DB_TYPE", &cfg.Database.Type)
	setEnvValue("URBANGULAL_DB_HOST", &cfg.Database.Host)
	setEnvIntValue("URBANGULAL_DB_PORT", &cfg.Database.Port)
	setEnvValue("URBANGULAL_DB_NAME", &cfg.Database.Name)
	setEnvValue("URBANGULAL_DB_USER", &cfg.Database.User)
	setEnvValue("URBANGULAL_DB_PWD", &cfg.Database.Passwd)
	setEnvBoolValue("URBANGULAL_DB_DEBUG", &cfg.Database.Debug)

	setEnvValue("URBANGULAL_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBoolValue("URBANGULAL_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)

	setEnvValue("URBANGULAL_REPORT_DIR", &cfg.Report.Dir)
	setEnvValue("URBANGULAL_REPORT_DAILY_AT", &cfg.Report.DailyAt)
	setEnvBoolValue("URBANGULAL_SFTP_ENABLED", &cfg.Report.SFTP.Enabled)
	setEnvValue("URBANGULAL_SFTP_HOST", &cfg.Report.SFTP.Host)
	setEnvValue("URBANGULAL_SFTP_USER", &cfg.Report.SFTP.User)
	setEnvValue("URBANGULAL_SFTP_PWD", &cfg.Report.SFTP.Passwd)

	setEnvBoolValue("URBANGULAL_WHATSAPP_ENABLED", &cfg.WhatsApp.Enabled)

	setEnvBoolValue("URBANGULAL_MAIL_ENABLED", &cfg.Mail.Enabled)
	setEnvValue("URBANGULAL_MAIL_HOST", &cfg.Mail.Host)
	setEnvIntValue("URBANGULAL_MAIL_PORT", &cfg.Mail.Port)
	setEnvValue("URBANGULAL_MAIL_USER", &cfg.Mail.User)
	setEnvValue("URBANGULAL_MAIL_PWD", &cfg.Mail.Passwd)
	setEnvValue("URBANGULAL_MAIL_ADMIN_TO", &cfg.Mail.AdminTo)

	if p := os.Getenv("PORT"); p != "" {
		cfg.Web.Port = cast.ToInt(p)
	}
	return &cfg, nil
}

func setEnvValue(name string, val *string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*val = v
	}
}

func setEnvBoolValue(name string, val *bool) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*val = cast.ToBool(v)
	}
}

func setEnvIntValue(name string, val *int) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if i, err := cast.ToIntE(v); err == nil {
			*val = i
		}
	}
}
