// Package config loads the runtime settings for the entity manager, the scene
// serializer and logging from YAML or JSON.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/citrus/internal/core/ecs"
	"github.com/zeusync/citrus/internal/core/observability/log"
)

var (
	ErrUnknownFormat = errors.New("config: unknown file format")
	ErrInvalid       = errors.New("config: invalid value")
)

type Config struct {
	Log     log.Config    `json:"log" yaml:"log"`
	Manager ManagerConfig `json:"manager" yaml:"manager"`
	Scene   SceneConfig   `json:"scene" yaml:"scene"`
}

type ManagerConfig struct {
	// ResolvePolicy is "each_entity" or "at_end".
	ResolvePolicy string `json:"resolve_policy" yaml:"resolve_policy"`
}

type SceneConfig struct {
	// Indent is used for scene files; empty writes compact JSON.
	Indent string `json:"indent" yaml:"indent"`
}

const (
	PolicyEachEntity = "each_entity"
	PolicyAtEnd      = "at_end"
)

func Default() *Config {
	return &Config{
		Log: log.Config{
			Level:    "info",
			Encoding: "json",
		},
		Manager: ManagerConfig{ResolvePolicy: PolicyEachEntity},
		Scene:   SceneConfig{Indent: "  "},
	}
}

// LoadYAML loads config from a YAML reader on top of Default.
func LoadYAML(r io.Reader) (*Config, error) {
	c := Default()
	if err := yaml.NewDecoder(r).Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadJSON loads config from a JSON reader on top of Default.
func LoadJSON(r io.Reader) (*Config, error) {
	c := Default()
	if err := json.NewDecoder(r).Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode json: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFile picks the decoder from the file extension.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(f)
	case ".json":
		return LoadJSON(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

func (c *Config) Validate() error {
	if _, err := c.Manager.Policy(); err != nil {
		return err
	}
	switch c.Log.Encoding {
	case "", "json", "console":
	default:
		return fmt.Errorf("%w: log encoding %q", ErrInvalid, c.Log.Encoding)
	}
	if strings.Trim(c.Scene.Indent, " \t") != "" {
		return fmt.Errorf("%w: scene indent must be whitespace", ErrInvalid)
	}
	return nil
}

// Policy maps ResolvePolicy onto the manager option. Empty means each_entity.
func (m ManagerConfig) Policy() (ecs.ResolvePolicy, error) {
	switch m.ResolvePolicy {
	case "", PolicyEachEntity:
		return ecs.ResolveEachEntity, nil
	case PolicyAtEnd:
		return ecs.ResolveAtEnd, nil
	default:
		return 0, fmt.Errorf("%w: resolve policy %q", ErrInvalid, m.ResolvePolicy)
	}
}
