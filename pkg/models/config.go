/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package models holds the data types shared by the scan agent and core.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sgich/assetradar/pkg/logger"
)

var (
	errInvalidDuration        = errors.New("invalid duration")
	errListenAddrRequired     = errors.New("listen_addr is required")
	errUnknownDatabaseDriver  = errors.New("database.driver must be postgres or memory")
	errDatabaseHostRequired   = errors.New("database.host and database.name are required")
	errJWTSecretRefRequired   = errors.New("jwt_secret_ref is required")
	errUnknownPingMode        = errors.New("reachability.mode must be exec or icmp")
	errExternalURLRequired    = errors.New("ai.external_url is required when ai.use_external is set")
	errNATSURLRequired        = errors.New("nats.url is required")
	errMetricsEndpointMissing = errors.New("metrics.endpoint is required when metrics are enabled")
	errBuiltinIDsRequired     = errors.New("system_partner_id, ai_partner_id and ai_channel_id must be positive")
)

const (
	DatabaseDriverPostgres = "postgres"
	DatabaseDriverMemory   = "memory"

	PingModeExec = "exec"
	PingModeICMP = "icmp"

	defaultListenAddr      = ":8090"
	defaultPostgresPort    = 5432
	defaultMaxConnections  = 10
	defaultTokenTTL        = 12 * time.Hour
	defaultPingInterval    = 5 * time.Minute
	defaultPingTimeout     = 2 * time.Second
	defaultExportInterval  = 30 * time.Second
	defaultLocalAIBaseURL  = "http://127.0.0.1:1234/v1"
	defaultSubjectPrefix   = "assetradar"
	defaultApplicationName = "assetradar-core"
)

// Duration accepts either nanoseconds or a Go duration string in JSON.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// CoreServiceConfig is the on-disk configuration of the core server.
type CoreServiceConfig struct {
	ListenAddr      string             `json:"listen_addr"`
	Database        DatabaseConfig     `json:"database"`
	JWTSecretRef    string             `json:"jwt_secret_ref"`
	TokenTTL        Duration           `json:"token_ttl"`
	Modules         ModulesConfig      `json:"modules"`
	NATS            *NATSConfig        `json:"nats,omitempty"`
	Reachability    ReachabilityConfig `json:"reachability"`
	AI              AIConfig           `json:"ai"`
	AIPartnerID     int64              `json:"ai_partner_id"`
	AIChannelID     int64              `json:"ai_channel_id"`
	SystemPartnerID int64              `json:"system_partner_id"`
	Logging         *logger.Config     `json:"logging,omitempty"`
	Metrics         MetricsConfig      `json:"metrics"`
	Users           []UserSeed         `json:"users,omitempty"`
}

// UserSeed is a system user created at startup when its login is unknown.
// PasswordHash is a bcrypt hash as printed by "core hash-password".
type UserSeed struct {
	Login        string `json:"login"`
	PasswordHash string `json:"password_hash"`
	Name         string `json:"name,omitempty"`
	System       bool   `json:"system,omitempty"`
}

// DatabaseConfig selects and parameterises the store backend.
type DatabaseConfig struct {
	Driver            string   `json:"driver"`
	Host              string   `json:"host"`
	Port              int      `json:"port"`
	Name              string   `json:"name"`
	Username          string   `json:"username"`
	PasswordRef       string   `json:"password_ref"`
	SSLMode           string   `json:"ssl_mode"`
	ApplicationName   string   `json:"application_name"`
	MaxConnections    int32    `json:"max_connections"`
	MinConnections    int32    `json:"min_connections"`
	MaxConnLifetime   Duration `json:"max_conn_lifetime"`
	HealthCheckPeriod Duration `json:"health_check_period"`
	ConnectTimeout    Duration `json:"connect_timeout"`

	// Password is resolved from PasswordRef at startup and never read from disk.
	Password string `json:"-"`
}

// ModulesConfig lists the optional inventory modules the server advertises.
type ModulesConfig struct {
	Hardware bool `json:"hardware"`
	Software bool `json:"software"`
	Network  bool `json:"network"`
}

type NATSConfig struct {
	URL           string `json:"url"`
	SubjectPrefix string `json:"subject_prefix"`
	CredsFile     string `json:"creds_file,omitempty"`
}

type ReachabilityConfig struct {
	Enabled  bool     `json:"enabled"`
	Interval Duration `json:"interval"`
	Timeout  Duration `json:"timeout"`
	Mode     string   `json:"mode"`
}

// AIConfig selects the LLM backend. APIKeyRef names a vault entry, never the key itself.
type AIConfig struct {
	UseExternal  bool   `json:"use_external"`
	ExternalURL  string `json:"external_url"`
	LocalBaseURL string `json:"local_base_url"`
	LocalModelID string `json:"local_model_id"`
	APIKeyRef    string `json:"api_key_ref"`
}

type MetricsConfig struct {
	Enabled        bool              `json:"enabled"`
	Endpoint       string            `json:"endpoint"`
	Insecure       bool              `json:"insecure"`
	Headers        map[string]string `json:"headers,omitempty"`
	ExportInterval Duration          `json:"export_interval"`
}

// ApplyDefaults fills the unset fields of c.
func (c *CoreServiceConfig) ApplyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}

	if c.Database.Driver == "" {
		c.Database.Driver = DatabaseDriverPostgres
	}

	if c.Database.Port == 0 {
		c.Database.Port = defaultPostgresPort
	}

	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}

	if c.Database.ApplicationName == "" {
		c.Database.ApplicationName = defaultApplicationName
	}

	if c.Database.MaxConnections == 0 {
		c.Database.MaxConnections = defaultMaxConnections
	}

	if c.TokenTTL == 0 {
		c.TokenTTL = Duration(defaultTokenTTL)
	}

	if c.Reachability.Interval == 0 {
		c.Reachability.Interval = Duration(defaultPingInterval)
	}

	if c.Reachability.Timeout == 0 {
		c.Reachability.Timeout = Duration(defaultPingTimeout)
	}

	if c.Reachability.Mode == "" {
		c.Reachability.Mode = PingModeExec
	}

	if c.AI.LocalBaseURL == "" {
		c.AI.LocalBaseURL = defaultLocalAIBaseURL
	}

	if c.SystemPartnerID == 0 {
		c.SystemPartnerID = 1
	}

	if c.AIPartnerID == 0 {
		c.AIPartnerID = 2
	}

	if c.AIChannelID == 0 {
		c.AIChannelID = 1
	}

	if c.NATS != nil && c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = defaultSubjectPrefix
	}

	if c.Metrics.ExportInterval == 0 {
		c.Metrics.ExportInterval = Duration(defaultExportInterval)
	}
}

func (c *CoreServiceConfig) Validate() error {
	if c.ListenAddr == "" {
		return errListenAddrRequired
	}

	switch c.Database.Driver {
	case DatabaseDriverMemory:
	case DatabaseDriverPostgres:
		if c.Database.Host == "" || c.Database.Name == "" {
			return errDatabaseHostRequired
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownDatabaseDriver, c.Database.Driver)
	}

	if c.JWTSecretRef == "" {
		return errJWTSecretRefRequired
	}

	if c.Reachability.Mode != PingModeExec && c.Reachability.Mode != PingModeICMP {
		return fmt.Errorf("%w: %q", errUnknownPingMode, c.Reachability.Mode)
	}

	if c.AI.UseExternal && c.AI.ExternalURL == "" {
		return errExternalURLRequired
	}

	if c.NATS != nil && c.NATS.URL == "" {
		return errNATSURLRequired
	}

	if c.Metrics.Enabled && c.Metrics.Endpoint == "" {
		return errMetricsEndpointMissing
	}

	if c.SystemPartnerID <= 0 || c.AIPartnerID <= 0 || c.AIChannelID <= 0 {
		return errBuiltinIDsRequired
	}

	return nil
}
