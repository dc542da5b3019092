package main

import (
	"fmt"
	"strings"

	"github.com/agenthub/agenthub/pkg/rag"
)

// IngestCmd loads documents into a tenant's knowledge base.
type IngestCmd struct {
	Paths []string `arg:"" help:"Files to ingest (txt, md, pdf, docx, xlsx)." type:"existingfile"`

	Tenant string            `required:"" help:"Tenant ID."`
	Tags   map[string]string `help:"Metadata tags attached to every chunk (key=value)."`
}

func (c *IngestCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	platform, shutdown, err := newPlatform(ctx, cli)
	if err != nil {
		return err
	}
	defer shutdown()

	var tags map[string]any
	if len(c.Tags) > 0 {
		tags = make(map[string]any, len(c.Tags))
		for k, v := range c.Tags {
			tags[k] = v
		}
	}

	for _, path := range c.Paths {
		result, err := platform.Ingest(ctx, c.Tenant, &rag.FileSource{Path: path}, tags)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}
		fmt.Printf("%s: %d chunks\n", path, result.ChunkCount)
	}
	return nil
}

// QueryCmd runs a similarity search against a tenant's knowledge base.
type QueryCmd struct {
	Text []string `arg:"" help:"Query text."`

	Tenant string `required:"" help:"Tenant ID."`
	TopK   int    `name:"top-k" help:"Number of matches to return." default:"5"`
}

func (c *QueryCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	platform, shutdown, err := newPlatform(ctx, cli)
	if err != nil {
		return err
	}
	defer shutdown()

	matches, err := platform.Query(ctx, c.Tenant, strings.Join(c.Text, " "), c.TopK)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		fmt.Println("no matches")
		return nil
	}
	for i, match := range matches {
		source, _ := match.Metadata["source"].(string)
		fmt.Printf("%d. [distance=%.4f source=%s]\n%s\n\n", i+1, match.Distance, source, match.Content)
	}
	return nil
}

// ForgetCmd removes all chunks ingested from a source.
type ForgetCmd struct {
	Source string `arg:"" help:"Source name to delete (e.g. a file's base name)."`

	Tenant string `required:"" help:"Tenant ID."`
}

func (c *ForgetCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	platform, shutdown, err := newPlatform(ctx, cli)
	if err != nil {
		return err
	}
	defer shutdown()

	if err := platform.DeleteSource(ctx, c.Tenant, c.Source); err != nil {
		return err
	}
	fmt.Printf("deleted chunks from %s\n", c.Source)
	return nil
}

// StatsCmd prints knowledge base statistics for a tenant.
type StatsCmd struct {
	Tenant string `required:"" help:"Tenant ID."`
}

func (c *StatsCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	platform, shutdown, err := newPlatform(ctx, cli)
	if err != nil {
		return err
	}
	defer shutdown()

	count, err := platform.Stats(ctx, c.Tenant)
	if err != nil {
		return err
	}
	fmt.Printf("tenant %s: %d chunks\n", c.Tenant, count)
	return nil
}
