package main

import "time"

// GlobalFlags holds minimal global/persistent flags for CLI commands
type GlobalFlags struct {
	ConfigPath string
}

// ServeFlags Flag structs to decouple cobra from logic for testing.
type ServeFlags struct {
	ConfigPath string
	Listen     string
	BasePath   string
	Framework  string
}

// ClientFlags configure commands that talk to a running server.
type ClientFlags struct {
	APIUrl     string
	APITimeout time.Duration
}
