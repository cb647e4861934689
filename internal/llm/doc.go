// Package llm provides a unified completion client for multiple AI
// providers. It normalizes chat-completion requests, responses, and
// server-sent-event streaming across two wire-format families (typed
// content blocks and choices/delta fragments), selected per model by a
// provider tag on its configuration.
//
// The client deliberately carries no retry logic. Consumers wrap calls
// with their own retry policy; a failed call surfaces a typed error
// describing exactly where the round trip broke down.
package llm
