// Package agentscan provides an automated security scanner for AI agents.
//
// Agentscan drives a target agent (a chatbot, RAG system, or tool-using
// agent reachable over HTTP) through probing conversations, classifies the
// responses against the OWASP Agentic Top-10 (ASI01–ASI10), and emits a
// structured, schema-versioned report.
//
// # Quick Start
//
// Install the CLI:
//
//	go install github.com/agentscan/agentscan/cmd/agentscan@latest
//
// Describe the target in a client file:
//
//	providers:
//	  - id: "openai:gpt-4o-mini"
//	    label: "Demo Assistant"
//	    config:
//	      api_key: "${OPENAI_API_KEY}"
//
// Run a scan:
//
//	agentscan scan --client-file target.yaml --repo ./my-agent --output report.json
//
// # Architecture
//
// A scan runs a three-stage pipeline:
//
//	Stage 1  Information Collection   one recon agent, sequential
//	Stage 2  Vulnerability Detection  one worker per detection skill, parallel
//	Stage 3  Vulnerability Review     one reviewer agent, sequential
//
// Each stage is an iterative reasoning loop (pkg/agent) that talks to the
// scanner's own LLM, dispatches tools (pkg/tools), and reaches the target
// agent through a multi-protocol provider adapter (pkg/providers). Stage 3's
// output is parsed into the final report (pkg/report) and published on the
// structured event stream (pkg/scanlog).
//
// # Using as a Go Library
//
//	import (
//	    "github.com/agentscan/agentscan/pkg/providers"
//	    "github.com/agentscan/agentscan/pkg/report"
//	    "github.com/agentscan/agentscan/pkg/scanner"
//	)
//
// See pkg/scanner for the top-level entry point.
package agentscan
