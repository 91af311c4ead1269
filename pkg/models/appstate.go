package models

import (
	"github.com/TheApexWu/lacuna/config"
)

// AppState is a struct that holds the state of the application
// Use cmd.NewAppState to create a new instance
type AppState struct {
	EmbeddingClient EmbeddingClient
	// Interpreter is optional; a nil provider disables prose
	// explanations without affecting the core pipeline.
	Interpreter InterpretationProvider
	Config      *config.Config
}
