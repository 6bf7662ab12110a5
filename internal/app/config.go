package app

import (
	"errors"
	"fmt"
)

// Commands understood by App.Run.
const (
	CommandRun    = "run"
	CommandFreeze = "freeze"
	CommandList   = "list"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Command string
	// Args are the workflow tokens handed to the command.
	Args []string
	// Output is the document path written by the freeze command.
	Output string
	// Registry is the stage registry searched unless the workflow names
	// another one.
	Registry string

	LogFormat string
	LogLevel  string
}

func NewConfig(cfg Config) (*Config, error) {
	switch cfg.Command {
	case CommandRun, CommandList:
	case CommandFreeze:
		if cfg.Output == "" {
			return nil, errors.New("freeze requires an output path")
		}
	case "":
		return nil, errors.New("Command is a required configuration field and cannot be empty")
	default:
		return nil, fmt.Errorf("unknown command %q", cfg.Command)
	}
	return &cfg, nil
}
