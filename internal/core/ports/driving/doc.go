// Package driving provides interfaces for application entry points
// (primary/inbound ports) consumed by the CLI.
package driving
