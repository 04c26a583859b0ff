// Package config provides hierarchical configuration loading for Guardian.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the Guardian service.
type Config struct {
	Server    Server     `yaml:"server"`
	Store     Store      `yaml:"store"`
	Planner   Planner    `yaml:"planner"`
	Engine    Engine     `yaml:"engine"`
	Databases []Database `yaml:"databases"`
	Logging   Logging    `yaml:"logging"`
}

// Server holds HTTP server configuration.
type Server struct {
	Addr    string `yaml:"addr"`
	MCPPort int    `yaml:"mcp_port"`
}

// Store selects and configures the session store backend.
type Store struct {
	// Backend is one of "memory", "file", "redis".
	Backend string `yaml:"backend"`
	File    File   `yaml:"file"`
	Redis   Redis  `yaml:"redis"`
}

// File holds file store configuration.
type File struct {
	Path string `yaml:"path"`
}

// Redis holds Redis store and locker configuration.
type Redis struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // Session expiry; 0 keeps sessions forever
}

// Planner holds chat model configuration.
type Planner struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"` // OpenAI-compatible endpoint override
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
}

// Engine holds workflow step loop configuration.
type Engine struct {
	MaxSteps int `yaml:"max_steps"`
	LogTail  int `yaml:"log_tail"`
}

// Database configures one SQL database exposed as a capability named
// "<name>_sql_db_query".
type Database struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	DSN         string `yaml:"dsn"`
	MaxConns    int32  `yaml:"max_conns"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level string `yaml:"level"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: Server{
			Addr:    ":8000",
			MCPPort: 8001,
		},
		Store: Store{
			Backend: "memory",
			File:    File{Path: ".guardian/sessions"},
		},
		Planner: Planner{
			Model: "gpt-4o",
		},
		Engine: Engine{
			MaxSteps: 16,
			LogTail:  3,
		},
		Databases: []Database{
			{Name: "hr", Description: "HR database: departments, employees, salaries"},
			{Name: "sales", Description: "Sales database: customers, products, orders, order_items"},
		},
		Logging: Logging{Level: "info"},
	}
}
