package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	defaultURL     = "http://localhost:3030"
	defaultProfile = "default"
	envURL         = "PATHCONVERT_URL"
	envAPIKey      = "PATHCONVERT_API_KEY"
)

// profile is one named server connection.
type profile struct {
	URL    string `yaml:"url,omitempty"`
	APIKey string `yaml:"api_key,omitempty"`
}

// configFile is ~/.pathconvert/config.yaml. The top-level url and api_key
// predate profiles and are still honoured beneath the active profile.
type configFile struct {
	URL           string             `yaml:"url,omitempty"`
	APIKey        string             `yaml:"api_key,omitempty"`
	Profiles      map[string]profile `yaml:"profiles,omitempty"`
	ActiveProfile string             `yaml:"active_profile,omitempty"`
}

// active returns the connection of the active profile, with unset fields
// taken from the top-level values.
func (f *configFile) active() profile {
	if f == nil {
		return profile{}
	}

	p := profile{URL: f.URL, APIKey: f.APIKey}

	name := f.ActiveProfile
	if name == "" {
		name = defaultProfile
	}

	if named, ok := f.Profiles[name]; ok {
		if named.URL != "" {
			p.URL = named.URL
		}

		if named.APIKey != "" {
			p.APIKey = named.APIKey
		}
	}

	return p
}

// setProfile stores p under name and makes it active.
func (f *configFile) setProfile(name string, p profile) {
	if f.Profiles == nil {
		f.Profiles = make(map[string]profile)
	}

	f.Profiles[name] = p
	f.ActiveProfile = name
}

func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}

	return filepath.Join(home, ".pathconvert", "config.yaml"), nil
}

// loadConfigFile reads path. A missing file yields an empty config.
func loadConfigFile(path string) (*configFile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &configFile{}, nil
	}

	if err != nil {
		return nil, err
	}

	var f configFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return &f, nil
}

func saveConfigFile(path string, f *configFile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// connection is the server the CLI talks to.
type connection struct {
	URL    string
	APIKey string
}

// resolveConnection merges sources by precedence: an explicit flag, then the
// environment, then the config file, then the default URL.
func resolveConnection(flagURL, flagKey string, getenv func(string) string, file *configFile) connection {
	fromFile := file.active()

	return connection{
		URL:    firstNonEmpty(flagURL, getenv(envURL), fromFile.URL, defaultURL),
		APIKey: firstNonEmpty(flagKey, getenv(envAPIKey), fromFile.APIKey),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
