/*
Copyright 2024 JB Products Info Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5005"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	Port      string `json:"port" envconfig:"JBINFO_SERVER_PORT"`
	Secure    bool   `json:"secure" envconfig:"JBINFO_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"JBINFO_SERVER_SECRET_KEY"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"JBINFO_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"JBINFO_REDIS_DNS"`
}

type FeedsConfig struct {
	DataServicesURL string `json:"data_services_url" envconfig:"JBINFO_FEEDS_DATA_SERVICES_URL"`
	UpdatesURL      string `json:"updates_url" envconfig:"JBINFO_FEEDS_UPDATES_URL"`
	TimeoutSec      int    `json:"timeout_sec" envconfig:"JBINFO_FEEDS_TIMEOUT_SEC"`
}

type QueueConfig struct {
	BuildsToProcessQueue string `json:"builds_to_process_queue" envconfig:"JBINFO_QUEUE_BUILDS_TO_PROCESS"`
	Concurrency          int    `json:"concurrency" envconfig:"JBINFO_QUEUE_CONCURRENCY"`
	NackDelaySeconds     int    `json:"nack_delay_seconds" envconfig:"JBINFO_QUEUE_NACK_DELAY_SECONDS"`
	MonitoringPort       string `json:"monitoring_port" envconfig:"JBINFO_QUEUE_MONITORING_PORT"`
}

type ProcessingConfig struct {
	TargetFileName               string `json:"target_file_name" envconfig:"JBINFO_PROCESSING_TARGET_FILE_NAME"`
	DownloadTimeoutSec           int    `json:"download_timeout_sec" envconfig:"JBINFO_PROCESSING_DOWNLOAD_TIMEOUT_SEC"`
	TargetBuildsAgeDays          int    `json:"target_builds_age_days" envconfig:"JBINFO_PROCESSING_TARGET_BUILDS_AGE_DAYS"`
	QueuedExpireMinutes          int    `json:"queued_expire_minutes" envconfig:"JBINFO_PROCESSING_QUEUED_EXPIRE_MINUTES"`
	ProcessingExpireMinutes      int    `json:"processing_expire_minutes" envconfig:"JBINFO_PROCESSING_PROCESSING_EXPIRE_MINUTES"`
	FailedToProcessExpireMinutes int    `json:"failed_to_process_expire_minutes" envconfig:"JBINFO_PROCESSING_FAILED_EXPIRE_MINUTES"`
	ScheduleCronSpec             string `json:"schedule_cron_spec" envconfig:"JBINFO_PROCESSING_SCHEDULE_CRON_SPEC"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"JBINFO_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"JBINFO_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"JBINFO_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type Notification struct {
	Webhook struct {
		Url     string            `json:"url"`
		Headers map[string]string `json:"headers"`
	} `json:"webhook"`
}

type Configuration struct {
	ProjectName  string           `json:"project_name" envconfig:"JBINFO_PROJECT_NAME"`
	Server       ServerConfig     `json:"server"`
	DataSource   DataSourceConfig `json:"data_source"`
	Redis        RedisConfig      `json:"redis"`
	Feeds        FeedsConfig      `json:"feeds"`
	Queue        QueueConfig      `json:"queue"`
	Processing   ProcessingConfig `json:"processing"`
	RateLimit    RateLimitConfig  `json:"rate_limit"`
	Notification Notification     `json:"notification"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("jbinfo", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called jbinfo.json with your config")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "JB Products Info"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.Server.Secure && cnf.Server.SecretKey == "" {
		log.Println("Error: Secure mode is enabled but no secret key is set.")
		return errors.New("secret key is required when secure mode is enabled")
	}

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Feeds.DataServicesURL == "" {
		cnf.Feeds.DataServicesURL = "https://data.services.jetbrains.com"
	}
	if cnf.Feeds.UpdatesURL == "" {
		cnf.Feeds.UpdatesURL = "https://www.jetbrains.com/updates"
	}
	if cnf.Feeds.TimeoutSec == 0 {
		cnf.Feeds.TimeoutSec = 30
	}

	if cnf.Queue.BuildsToProcessQueue == "" {
		cnf.Queue.BuildsToProcessQueue = "builds_to_process"
	}
	if cnf.Queue.Concurrency == 0 {
		cnf.Queue.Concurrency = 2
	}
	if cnf.Queue.NackDelaySeconds == 0 {
		cnf.Queue.NackDelaySeconds = 60
	}
	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = "5006"
	}

	if cnf.Processing.TargetFileName == "" {
		cnf.Processing.TargetFileName = "product-info.json"
	}
	if cnf.Processing.DownloadTimeoutSec == 0 {
		cnf.Processing.DownloadTimeoutSec = 1800
	}
	if cnf.Processing.TargetBuildsAgeDays == 0 {
		cnf.Processing.TargetBuildsAgeDays = 30
	}
	if cnf.Processing.QueuedExpireMinutes == 0 {
		cnf.Processing.QueuedExpireMinutes = 60
	}
	if cnf.Processing.ProcessingExpireMinutes == 0 {
		cnf.Processing.ProcessingExpireMinutes = 30
	}
	if cnf.Processing.FailedToProcessExpireMinutes == 0 {
		cnf.Processing.FailedToProcessExpireMinutes = 120
	}
	if cnf.Processing.ScheduleCronSpec == "" {
		cnf.Processing.ScheduleCronSpec = "0 * * * *"
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// ExpireParams collects the staleness thresholds used by the orchestrator.
func (cnf *Configuration) ExpireParams() (queued, processing, failed int) {
	return cnf.Processing.QueuedExpireMinutes,
		cnf.Processing.ProcessingExpireMinutes,
		cnf.Processing.FailedToProcessExpireMinutes
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
