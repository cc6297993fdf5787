package main

import (
	"fmt"

	"github.com/fwojciec/listscrape"
	"github.com/fwojciec/listscrape/yaml"
)

// Run executes the config command.
func (c *ConfigCmd) Run(deps *Dependencies) error {
	cfg, err := loadConfig(c.Config)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", listscrape.ErrorMessage(err))
		return err
	}

	data, err := yaml.EncodeConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	_, err = deps.Stdout.Write(data)
	return err
}
