package cmd

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/theapemachine/mongo-memory/pkg/memory"
	"github.com/theapemachine/mongo-memory/pkg/prompts"
	"github.com/theapemachine/mongo-memory/pkg/tools"
)

var (
	portFlag     int
	hostFlag     string
	inMemoryFlag bool

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the memory MCP service",
		Long:  longServe,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	mcpCmd = &cobra.Command{
		Use:   "mcp",
		Short: "Serve the memory tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, store, err := buildServer(cmd)

			if err != nil {
				return err
			}

			defer store.Close(cmd.Context())

			return server.ServeStdio(srv)
		},
	}

	sseCmd = &cobra.Command{
		Use:   "sse",
		Short: "Serve the memory tools over SSE",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, store, err := buildServer(cmd)

			if err != nil {
				return err
			}

			defer store.Close(cmd.Context())

			addr := fmt.Sprintf("%s:%d", hostFlag, portFlag)
			log.Info("serving memory tools", "addr", addr)

			return server.NewSSEServer(srv).Start(addr)
		},
	}
)

// buildServer constructs the store and an MCP server with the memory tool
// set registered.
func buildServer(cmd *cobra.Command) (*server.MCPServer, *memory.Store, error) {
	var (
		store *memory.Store
		err   error
	)

	if inMemoryFlag {
		// Volatile store, useful for trying the tools without a database.
		store = memory.NewWithBackend(memory.NewInMemoryBackend(), memory.Config{})

		if err = store.EnsureSchema(cmd.Context()); err != nil {
			return nil, nil, err
		}
	} else {
		if store, err = memory.New(cmd.Context(), memory.ConfigFromViper()); err != nil {
			return nil, nil, err
		}
	}

	srv := server.NewMCPServer(
		"mongo-memory",
		"1.0.0",
		server.WithLogging(),
		server.WithToolCapabilities(true),
		server.WithPromptCapabilities(true),
		server.WithInstructions(prompts.Instructions),
	)

	tools.RegisterMemoryTools(srv, store)
	prompts.Register(srv)

	return srv, store, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.AddCommand(mcpCmd)
	serveCmd.AddCommand(sseCmd)

	serveCmd.PersistentFlags().BoolVar(&inMemoryFlag, "in-memory", false, "Use a volatile in-memory store instead of MongoDB")

	sseCmd.Flags().IntVarP(&portFlag, "port", "p", 3210, "Port to serve on")
	sseCmd.Flags().StringVarP(&hostFlag, "host", "H", "0.0.0.0", "Host address to bind to")
}

var longServe = `
Serve the memory tools over MCP.

Examples:
  # Serve over stdio against the configured MongoDB
  mongo-memory serve mcp

  # Serve over SSE on port 3000
  mongo-memory serve sse --port 3000

  # Try the tools without a database
  mongo-memory serve mcp --in-memory
`
