package config

import (
	"encoding/json"

	"github.com/djwackey/dorps/utils"
)

const (
	DefaultRtspPort     = 554
	DefaultUpstreamPort = 554
)

type Config struct {
	Port     int
	Log      LogConf
	Upstream *UpstreamConf
}

type LogConf struct {
	Mode     string
	Level    int
	FileName string

	AccessFileName string
	AccessFileSize int // megabytes per access log file
	AccessFileNum  int
	AccessSaveDay  int
}

// UpstreamConf describes the single upstream RTSP source this proxy relays
// to. Options is an opaque bag handed to the upstream client unmodified.
type UpstreamConf struct {
	Address    string
	Port       int
	MediaPath  string
	RtpPortMin int
	RtpPortMax int
	Transport  string // "udp" or "tcp"
	Options    map[string]string
}

func Load(file string) (*Config, error) {
	data, err := utils.ReadAllFile(file)
	if err != nil {
		return nil, err
	}

	conf := new(Config)
	if err = json.Unmarshal(data, conf); err != nil {
		return nil, err
	}

	conf.setDefaults()
	return conf, nil
}

func (c *Config) setDefaults() {
	if c.Port == 0 {
		c.Port = DefaultRtspPort
	}
	if c.Log.Mode == "" {
		c.Log.Mode = "console"
	}
	if c.Upstream != nil {
		if c.Upstream.Port == 0 {
			c.Upstream.Port = DefaultUpstreamPort
		}
		if c.Upstream.Transport == "" {
			c.Upstream.Transport = "udp"
		}
	}
}
