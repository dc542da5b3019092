package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/agenthub/agenthub/pkg/config"
)

// ValidateCmd validates a catalog file.
type ValidateCmd struct {
	Catalog string `arg:"" name:"catalog" help:"Catalog file path." type:"path"`

	PrintConfig bool `short:"p" name:"print-config" help:"Print the expanded catalog (defaults applied, env vars resolved)."`
}

func (c *ValidateCmd) Run(cli *CLI) error {
	cfg, err := config.Load(c.Catalog)
	if err != nil {
		return fmt.Errorf("invalid catalog: %w", err)
	}

	fmt.Printf("%s: valid (%d tenants, %d models, %d agents, %d tools)\n",
		c.Catalog, len(cfg.Tenants), len(cfg.Models), len(cfg.Agents), len(cfg.Tools))

	if c.PrintConfig {
		encoder := yaml.NewEncoder(os.Stdout)
		encoder.SetIndent(2)
		defer encoder.Close()
		if err := encoder.Encode(cfg); err != nil {
			return fmt.Errorf("failed to print catalog: %w", err)
		}
	}
	return nil
}

// SchemaCmd generates the JSON Schema for the catalog format. Output
// goes to stdout so it can be redirected.
type SchemaCmd struct{}

func (c *SchemaCmd) Run(cli *CLI) error {
	data, err := config.GenerateSchema()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}
	_, err = os.Stdout.Write(data)
	return err
}
