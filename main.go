package main

import (
	"log/slog"
	"os"

	"github.com/venudhannoju-glitch/ChitChat/cmd"
	"github.com/venudhannoju-glitch/ChitChat/internal/logging"
)

func main() {
	// Quiet by default; serve replaces this with its configured logger.
	logging.Init(logging.ParseLevel(os.Getenv("LOG_LEVEL"), slog.LevelError), os.Getenv("LOG_FORMAT"))
	cmd.Execute()
}
