package config

import (
	"github.com/spf13/pflag"
)

// DefaultConfigPath is used when --config is not given
const DefaultConfigPath = "tunedeck.toml"

// Flags holds command line overrides. Only flags that were set on the
// command line are applied.
type Flags struct {
	ConfigPath string
	Port       string
	Host       string
	RootDir    string
	MusicDir   string
	Watch      bool

	set *pflag.FlagSet
}

// NewFlagSet registers the command line flags on a new flag set
func NewFlagSet(name string) (*pflag.FlagSet, *Flags) {
	f := &Flags{}
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringVarP(&f.ConfigPath, "config", "c", DefaultConfigPath, "path to the TOML config file")
	fs.StringVarP(&f.Port, "port", "p", "", "listen port (default 1306)")
	fs.StringVar(&f.Host, "host", "", "listen address (default all interfaces)")
	fs.StringVar(&f.RootDir, "root", "", "directory served as static files")
	fs.StringVar(&f.MusicDir, "music-dir", "", "directory scanned for audio files")
	fs.BoolVar(&f.Watch, "watch", false, "log changes to the music directory")
	f.set = fs
	return fs, f
}

// Apply copies the flags that were set onto c
func (f *Flags) Apply(c *Config) {
	if f.set == nil {
		return
	}
	if f.set.Changed("port") {
		c.Server.Port = f.Port
	}
	if f.set.Changed("host") {
		c.Server.Host = f.Host
	}
	if f.set.Changed("root") {
		c.Server.RootDir = f.RootDir
	}
	if f.set.Changed("music-dir") {
		c.Music.Dir = f.MusicDir
	}
	if f.set.Changed("watch") {
		c.Music.WatchForChanges = f.Watch
	}
}
