package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Mode selects which pipeline variant runs for a playlist.
type Mode string

const (
	ModeSubtitle Mode = "subtitle"
	ModeDubbing  Mode = "dubbing"
)

// OutputFile is the fixed name of the finished video inside an archive
// record for this mode.
func (m Mode) OutputFile() string {
	if m == ModeDubbing {
		return "output_dub.mp4"
	}
	return "output_sub.mp4"
}

type Config struct {
	Monitor   MonitorConfig             `toml:"monitor"`
	Paths     PathsConfig               `toml:"paths"`
	Pipeline  PipelineConfig            `toml:"pipeline"`
	Proxy     ProxyConfig               `toml:"proxy"`
	Logging   LoggingConfig             `toml:"logging"`
	Playlists []PlaylistConfig          `toml:"playlists"`
	Uploaders map[string]UploaderConfig `toml:"uploaders"`
}

type MonitorConfig struct {
	Interval  string `toml:"interval"`
	ItemDelay string `toml:"item_delay"`
	RunOnce   bool   `toml:"run_once"`
}

type PathsConfig struct {
	StateFile  string `toml:"state_file"`
	PublishDB  string `toml:"publish_db"`
	HistoryDir string `toml:"history_dir"`
	ScratchDir string `toml:"scratch_dir"`
	LockFile   string `toml:"lock_file"`
}

type PipelineConfig struct {
	Command    string   `toml:"command"`
	Args       []string `toml:"args"`
	Resolution string   `toml:"resolution"`
}

type ProxyConfig struct {
	Enabled    bool   `toml:"enabled"`
	HTTPProxy  string `toml:"http_proxy"`
	HTTPSProxy string `toml:"https_proxy"`
	YtdlpProxy string `toml:"ytdlp_proxy"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

// PlaylistConfig describes one monitored playlist. Playlists are swept in
// the order they appear in the config file.
type PlaylistConfig struct {
	Name        string `toml:"name"`
	URL         string `toml:"url"`
	Mode        Mode   `toml:"mode"`
	Source      string `toml:"source"`
	Description string `toml:"description"`
}

type UploaderConfig struct {
	Enabled      bool   `toml:"enabled"`
	Command      string `toml:"command"`
	AutoSchedule bool   `toml:"auto_schedule"`
	// ScheduleTime is an "HH:MM" time of day; the publish is scheduled for
	// tomorrow at that time. Empty means publish immediately.
	ScheduleTime string `toml:"schedule_time"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func validateConfig(config *Config) error {
	if config.Monitor.Interval == "" {
		config.Monitor.Interval = "60s"
	}
	if _, err := time.ParseDuration(config.Monitor.Interval); err != nil {
		return fmt.Errorf("invalid interval: %w", err)
	}

	if config.Monitor.ItemDelay == "" {
		config.Monitor.ItemDelay = "5s"
	}
	if _, err := time.ParseDuration(config.Monitor.ItemDelay); err != nil {
		return fmt.Errorf("invalid item_delay: %w", err)
	}

	if config.Paths.StateFile == "" {
		config.Paths.StateFile = "playlist_monitor/processed_videos.json"
	}
	if config.Paths.PublishDB == "" {
		config.Paths.PublishDB = "playlist_monitor/publish.db"
	}
	if config.Paths.HistoryDir == "" {
		config.Paths.HistoryDir = "history"
	}
	if config.Paths.ScratchDir == "" {
		config.Paths.ScratchDir = "output"
	}
	if config.Paths.LockFile == "" {
		config.Paths.LockFile = "playlist_monitor/monitor.lock"
	}

	if config.Pipeline.Command == "" {
		config.Pipeline.Command = "videolingo"
	}
	if config.Pipeline.Resolution == "" {
		config.Pipeline.Resolution = "1080"
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	if len(config.Playlists) == 0 {
		return fmt.Errorf("at least one playlist must be configured")
	}

	seen := make(map[string]bool, len(config.Playlists))
	for i := range config.Playlists {
		pl := &config.Playlists[i]
		if pl.Name == "" {
			return fmt.Errorf("playlist %d: name is required", i)
		}
		if seen[pl.Name] {
			return fmt.Errorf("duplicate playlist name: %s", pl.Name)
		}
		seen[pl.Name] = true

		if pl.URL == "" {
			return fmt.Errorf("playlist %s: url is required", pl.Name)
		}

		if pl.Mode == "" {
			pl.Mode = ModeSubtitle
		}
		if pl.Mode != ModeSubtitle && pl.Mode != ModeDubbing {
			return fmt.Errorf("playlist %s: unknown mode %q", pl.Name, pl.Mode)
		}

		if pl.Source == "" {
			pl.Source = "ytdlp"
		}
	}

	for name, up := range config.Uploaders {
		if !up.Enabled {
			continue
		}
		if up.Command == "" {
			return fmt.Errorf("uploader %s: command is required when enabled", name)
		}
		if up.AutoSchedule && up.ScheduleTime != "" {
			if _, _, err := ParseTimeOfDay(up.ScheduleTime); err != nil {
				return fmt.Errorf("uploader %s: %w", name, err)
			}
		}
	}

	return nil
}

// ParseTimeOfDay parses an "HH:MM" clock time.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	if n, perr := fmt.Sscanf(s, "%d:%d", &hour, &minute); perr != nil || n != 2 {
		return 0, 0, fmt.Errorf("invalid schedule_time %q", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid schedule_time %q: out of range", s)
	}
	return hour, minute, nil
}

// PlaylistNames returns configured playlist names in configuration order.
func (c *Config) PlaylistNames() []string {
	names := make([]string, 0, len(c.Playlists))
	for _, pl := range c.Playlists {
		names = append(names, pl.Name)
	}
	return names
}

func (c *Config) Interval() time.Duration {
	d, _ := time.ParseDuration(c.Monitor.Interval)
	return d
}

func (c *Config) ItemDelay() time.Duration {
	d, _ := time.ParseDuration(c.Monitor.ItemDelay)
	return d
}
