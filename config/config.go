// Package config loads the engine's INI configuration file, following the
// load-defaults-then-overlay pattern: SetDefaultConfig resets every field to
// its built-in default, ReadConfigFile overlays whatever the file supplies,
// and assertConfigInvariants validates the result before it's trusted.
package config

import (
	"fmt"
	"time"

	"gopkg.in/ini.v1"
)

// Config is the single instance the rest of the engine reads from. It is
// populated once at startup and never mutated afterward.
var Config EngineConfig

// EngineConfig mirrors the three sections of the INI file described in the
// external interfaces: [database], [spider], [search_server].
type EngineConfig struct {
	Database struct {
		Host     string `ini:"host"`
		Port     int    `ini:"port"`
		DBName   string `ini:"dbname"`
		User     string `ini:"user"`
		Password string `ini:"password"`
	}

	Spider struct {
		StartURL             string `ini:"start_url"`
		MaxDepth             int    `ini:"max_depth"`
		ThreadCount          int    `ini:"thread_count"`
		RequestTimeout       int    `ini:"request_timeout"`
		UserAgent            string `ini:"user_agent"`
		DelayBetweenRequests int    `ini:"delay_between_requests"`
	}

	SearchServer struct {
		Host       string `ini:"host"`
		Port       int    `ini:"port"`
		MaxResults int    `ini:"max_results"`
		Threads    int    `ini:"threads"`
	}
}

// SetDefaultConfig resets Config to its built-in defaults, regardless of any
// previously loaded file.
func SetDefaultConfig() {
	Config.Database.Host = "localhost"
	Config.Database.Port = 5432
	Config.Database.DBName = "searchengine"
	Config.Database.User = "searchengine"
	Config.Database.Password = ""

	Config.Spider.StartURL = ""
	Config.Spider.MaxDepth = 2
	Config.Spider.ThreadCount = 4
	Config.Spider.RequestTimeout = 10
	Config.Spider.UserAgent = "SearchEngine/1.0"
	Config.Spider.DelayBetweenRequests = 0

	Config.SearchServer.Host = "0.0.0.0"
	Config.SearchServer.Port = 8080
	Config.SearchServer.MaxResults = 20
	Config.SearchServer.Threads = 8
}

// ReadConfigFile loads path, overlaying SetDefaultConfig's values with
// whatever the file supplies. Missing keys keep their defaults; unknown
// sections and keys are ignored.
func ReadConfigFile(path string) error {
	SetDefaultConfig()

	file, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("failed to read config file (%v): %w", path, err)
	}

	if err := overlaySection(file, "database", &Config.Database); err != nil {
		return err
	}
	if err := overlaySection(file, "spider", &Config.Spider); err != nil {
		return err
	}
	if err := overlaySection(file, "search_server", &Config.SearchServer); err != nil {
		return err
	}

	return assertConfigInvariants()
}

// overlaySection maps one INI section onto dst, leaving fields for absent
// keys at whatever SetDefaultConfig already put there.
func overlaySection(file *ini.File, name string, dst interface{}) error {
	if !file.HasSection(name) {
		return nil
	}
	if err := file.Section(name).MapTo(dst); err != nil {
		return fmt.Errorf("failed to parse [%v] section: %w", name, err)
	}
	return nil
}

// Validate checks the currently loaded Config against the engine's
// invariants. Callers that skip ReadConfigFile (running entirely on
// defaults) should still call this before trusting Config.
func Validate() error {
	return assertConfigInvariants()
}

func assertConfigInvariants() error {
	var errs []string

	if Config.Spider.StartURL == "" {
		errs = append(errs, "spider.start_url must be set")
	}
	if Config.Spider.MaxDepth < 0 {
		errs = append(errs, "spider.max_depth must be >= 0")
	}
	if Config.Spider.ThreadCount < 1 {
		errs = append(errs, "spider.thread_count must be >= 1")
	}
	if Config.Spider.RequestTimeout < 1 {
		errs = append(errs, "spider.request_timeout must be >= 1 second")
	}
	if Config.SearchServer.Threads < 1 {
		errs = append(errs, "search_server.threads must be >= 1")
	}
	if Config.SearchServer.MaxResults < 1 {
		errs = append(errs, "search_server.max_results must be >= 1")
	}

	if len(errs) > 0 {
		msg := ""
		for _, e := range errs {
			msg += "\t" + e + "\n"
		}
		return fmt.Errorf("config error:\n%v", msg)
	}
	return nil
}

// DatabaseDSN builds a lib/pq connection string from the [database] section.
func DatabaseDSN() string {
	dsn := fmt.Sprintf("host=%v port=%v dbname=%v user=%v sslmode=disable",
		Config.Database.Host, Config.Database.Port, Config.Database.DBName, Config.Database.User)
	if Config.Database.Password != "" {
		dsn += fmt.Sprintf(" password=%v", Config.Database.Password)
	}
	return dsn
}

// RequestTimeoutDuration returns spider.request_timeout as a time.Duration.
func RequestTimeoutDuration() time.Duration {
	return time.Duration(Config.Spider.RequestTimeout) * time.Second
}

// DelayBetweenRequestsDuration returns spider.delay_between_requests as a
// time.Duration.
func DelayBetweenRequestsDuration() time.Duration {
	return time.Duration(Config.Spider.DelayBetweenRequests) * time.Millisecond
}
