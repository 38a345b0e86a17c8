package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "config.yaml"
	EventLogName      = "events.log"
)

type Configuration struct {
	configFs afero.Fs
	dir      string

	Prompt      string `json:"prompt"`
	Color       string `json:"color" validate:"oneof=always auto never"`
	HistoryFile string `json:"history_file"`

	Capture             string `json:"capture" validate:"oneof=memory disk"`
	CaptureDir          string `json:"capture_dir"`
	DrainBytesPerSecond int64  `json:"drain_bytes_per_second" validate:"gte=0"`

	OnExit string `json:"on_exit" validate:"oneof=hangup kill orphan"`

	EventLog bool `json:"event_log"`

	Aliases map[string]string `json:"aliases" validate:"dive,keys,required,excludesall=0x7C<>&,endkeys,required"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

func (c *Configuration) fs() afero.Fs {
	return c.configFs
}

// Dir is the directory the configuration was loaded from, blank if the
// configuration is the built in default.
func (c *Configuration) Dir() string {
	return c.dir
}

// HistoryPath is the absolute path of the history file, blank if history
// isn't persisted.
func (c *Configuration) HistoryPath() string {
	if c.HistoryFile == "" || c.dir == "" {
		return ""
	}
	if filepath.IsAbs(c.HistoryFile) {
		return c.HistoryFile
	}
	return filepath.Join(c.dir, c.HistoryFile)
}

// OpenEventLog opens the event log in an append only state.
func (c *Configuration) OpenEventLog() (afero.File, error) {
	return c.fs().OpenFile(EventLogName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

// ReadEventLog opens the event log for reading.
func (c *Configuration) ReadEventLog() (afero.File, error) {
	return c.fs().OpenFile(EventLogName, os.O_RDONLY, 0600)
}

// Alias returns the replacement for word, if any.
func (c *Configuration) Alias(word string) (string, bool) {
	value, ok := c.Aliases[word]
	return value, ok
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}

// Default returns the built in configuration. It's backed by memory so
// nothing is persisted.
func Default() *Configuration {
	out := defaultConfig()
	out.configFs = afero.NewMemMapFs()
	return out
}
