package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	hub "github.com/agenthub/agenthub/pkg/agenthub"
)

// ChatCmd sends one message, or starts an interactive session when no
// message is given.
type ChatCmd struct {
	Message []string `arg:"" optional:"" help:"Message to send. Omit for an interactive session."`

	Tenant  string `required:"" help:"Tenant ID."`
	User    string `help:"End-user ID (messages from the same user within the session window share history)." default:"cli"`
	Token   string `help:"Bearer token forwarded to HTTP and OCR tools." env:"AGENTHUB_BEARER_TOKEN"`
	Verbose bool   `short:"v" help:"Print routing and tool call details."`
}

func (c *ChatCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	platform, shutdown, err := newPlatform(ctx, cli)
	if err != nil {
		return err
	}
	defer shutdown()

	if len(c.Message) > 0 {
		return c.send(ctx, platform, strings.Join(c.Message, " "))
	}

	fmt.Println("Interactive session. Ctrl-D or /quit to exit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			break
		}
		if err := c.send(ctx, platform, line); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
	return scanner.Err()
}

func (c *ChatCmd) send(ctx context.Context, platform *hub.Platform, message string) error {
	result, err := platform.RouteAndExecute(ctx, hub.Request{
		TenantID:    c.Tenant,
		UserID:      c.User,
		Message:     message,
		BearerToken: c.Token,
	})
	if err != nil {
		return err
	}

	fmt.Println(result.Response)

	if c.Verbose {
		fmt.Fprintf(os.Stderr, "[agent=%s intent=%s status=%s %dms]\n",
			result.Agent, result.Intent, result.Status, result.Metadata.DurationMS)
		for _, call := range result.Metadata.ToolCalls {
			status := "ok"
			if call.Error != "" {
				status = call.Error
			}
			fmt.Fprintf(os.Stderr, "[tool %s: %s]\n", call.Tool, status)
		}
	}
	return nil
}
