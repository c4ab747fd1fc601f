package util

import (
	_ "embed"
	"fmt"
	"gopkg.in/yaml.v3"
	"log"
	"os"
	"strconv"
	"time"
)

const Name = "skypress"
const ConfigFileName = "config.yaml"

//go:embed config_default.yaml
var embeddedConfig []byte

type AppConfig struct {
	Conf struct {
		Host            string
		SshPort         int    `yaml:"sshPort"`
		HttpPort        int    `yaml:"httpPort"`
		ApiBase         string `yaml:"apiBase"`
		PublishDelaySec int    `yaml:"publishDelaySec"`
		StaleAfterMin   int    `yaml:"staleAfterMin"`
		MaxRetries      int    `yaml:"maxRetries"`
		AuthTimeoutSec  int    `yaml:"authTimeoutSec"`
		FetchTimeoutSec int    `yaml:"fetchTimeoutSec"`
	}
	// EncryptionKey is never read from the yaml file, only from the
	// SKYPRESS_ENCRYPTION_KEY environment variable.
	EncryptionKey string `yaml:"-"`
}

func (c *AppConfig) PublishDelay() time.Duration {
	return time.Duration(c.Conf.PublishDelaySec) * time.Second
}

func (c *AppConfig) StaleAfter() time.Duration {
	return time.Duration(c.Conf.StaleAfterMin) * time.Minute
}

func (c *AppConfig) AuthTimeout() time.Duration {
	return time.Duration(c.Conf.AuthTimeoutSec) * time.Second
}

func (c *AppConfig) FetchTimeout() time.Duration {
	return time.Duration(c.Conf.FetchTimeoutSec) * time.Second
}

func ReadConf() (*AppConfig, error) {

	c := &AppConfig{}

	// Try to resolve config file path (local first, then user dir)
	configPath := ResolveFilePath(ConfigFileName)

	var buf []byte
	var err error

	// Try to read from resolved path
	buf, err = os.ReadFile(configPath)
	if err != nil {
		// If file doesn't exist, use embedded config and create user config file
		log.Printf("Config file not found at %s, using embedded defaults", configPath)
		buf = embeddedConfig

		// Try to write default config to user config directory
		configDir, dirErr := GetConfigDir()
		if dirErr == nil {
			userConfigPath := configDir + "/" + ConfigFileName
			writeErr := os.WriteFile(userConfigPath, embeddedConfig, 0644)
			if writeErr != nil {
				log.Printf("Warning: could not write default config to %s: %v", userConfigPath, writeErr)
			} else {
				log.Printf("Created default config file at %s", userConfigPath)
			}
		}
	}

	err = yaml.Unmarshal(buf, c)
	if err != nil {
		return nil, fmt.Errorf("in config file: %w", err)
	}

	envHost := os.Getenv("SKYPRESS_HOST")
	envSshPort := os.Getenv("SKYPRESS_SSHPORT")
	envHttpPort := os.Getenv("SKYPRESS_HTTPPORT")
	envApiBase := os.Getenv("SKYPRESS_APIBASE")
	envPublishDelay := os.Getenv("SKYPRESS_PUBLISH_DELAY_SEC")
	envMaxRetries := os.Getenv("SKYPRESS_MAX_RETRIES")

	if envHost != "" {
		c.Conf.Host = envHost
	}

	if envSshPort != "" {
		v, err := strconv.Atoi(envSshPort)
		if err != nil {
			fmt.Println(err)
		}
		c.Conf.SshPort = v
	}

	if envHttpPort != "" {
		v, err := strconv.Atoi(envHttpPort)
		if err != nil {
			fmt.Println(err)
		}
		c.Conf.HttpPort = v
	}

	if envApiBase != "" {
		c.Conf.ApiBase = envApiBase
	}

	if envPublishDelay != "" {
		v, err := strconv.Atoi(envPublishDelay)
		if err != nil {
			fmt.Println(err)
		}
		c.Conf.PublishDelaySec = v
	}

	if envMaxRetries != "" {
		v, err := strconv.Atoi(envMaxRetries)
		if err != nil {
			fmt.Println(err)
		}
		c.Conf.MaxRetries = v
	}

	c.EncryptionKey = os.Getenv("SKYPRESS_ENCRYPTION_KEY")

	return c, nil
}
