package main

import (
	"fmt"
	"os"

	"github.com/serpimage/mcp/internal/config"
	"github.com/serpimage/mcp/internal/logger"
	"github.com/serpimage/mcp/pkg/server"
)

func main() {
	// Configure logging
	logger.SetShowDateTime(true)

	// Stdout carries the protocol stream, so logs go to a file
	logger.SetLogOutput('f')

	logger.Info("Starting github.com/serpimage/mcp application")

	// The credential must be present before any tool is registered
	if err := config.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Initialize the MCP server singleton
	s := server.GetInstance()

	// Start the server
	logger.Info("Starting MCP server...")
	if err := s.Start(); err != nil {
		logger.Error("Server error:", err)
		os.Exit(1)
	}

	logger.Info("MCP server shutting down")
}
