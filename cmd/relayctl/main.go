package main

import (
	"log/slog"

	"github.com/JaykaiDos/signaling-server/internal/commands"
	"github.com/JaykaiDos/signaling-server/internal/logging"
)

func main() {
	// Quiet by default: only errors reach the terminal unless LOG_LEVEL says otherwise.
	logging.Init(slog.LevelError, false)
	commands.Execute()
}
