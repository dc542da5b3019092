// Package agenthub provides a multi-tenant conversational agent platform.
//
// AgentHub routes end-user messages to domain agents with an LLM-backed
// intent router, executes the selected agent's pipeline (entity
// extraction, tool calls, response assembly), and keeps per-session
// conversation memory with mid-turn checkpoints. A tenant-isolated
// retrieval engine backs the document search tool.
//
// # Quick Start
//
// Install the CLI:
//
//	go install github.com/agenthub/agenthub/cmd/agenthub@latest
//
// Create a catalog file:
//
//	tenants:
//	  - id: acme
//	    name: "Acme Corp"
//	    status: active
//	models:
//	  - id: gpt4o
//	    provider: openai
//	    model: gpt-4o-mini
//	bindings:
//	  - tenant_id: acme
//	    model_id: gpt4o
//	    api_key: "${OPENAI_API_KEY}"
//	agents:
//	  - id: support
//	    name: support
//	    description: "Answers product and policy questions"
//	    prompt_template: "You are a support agent.\n{context}"
//	    active: true
//	agent_permissions:
//	  - tenant_id: acme
//	    agent: support
//	    enabled: true
//
// Send a message:
//
//	agenthub chat --config catalog.yaml --tenant acme --user u1 "where is my order?"
//
// # Using as Go Library
//
// Import the platform facade:
//
//	import "github.com/agenthub/agenthub/pkg/agenthub"
//
// Or wire the pieces yourself from the specific packages: pkg/config
// (catalog, tenants, permissions), pkg/router (intent routing),
// pkg/agent (execution pipeline), pkg/tools (tool adapters),
// pkg/memory (sessions), pkg/checkpoint (mid-turn state) and pkg/rag
// (document retrieval).
package agenthub
