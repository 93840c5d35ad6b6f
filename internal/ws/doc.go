// Package ws implements the WebSocket transport for the chat backend: the
// connection handler and its pumps, the intent/frame wire protocol, the
// protocol router executing one operation per intent, and the idle-session
// sweeper.
package ws
