package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/TheBeachLab/mods-mcp/internal/catalog"
	"github.com/TheBeachLab/mods-mcp/internal/config"
	"github.com/TheBeachLab/mods-mcp/internal/eventbus"
	"github.com/TheBeachLab/mods-mcp/internal/server"
	"github.com/TheBeachLab/mods-mcp/internal/storage"
	"github.com/TheBeachLab/mods-mcp/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "mods-mcp",
		Short:         "MCP server driving a browser-hosted mods workspace",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	rootCmd.Version = version.String()
	rootCmd.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newIntrospectCmd())
	rootCmd.AddCommand(newBuildCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	paths, err := config.EnsureDirs()
	if err != nil {
		return fmt.Errorf("prepare instance directories: %w", err)
	}

	if err := setupLogging(paths); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialise logging: %v\n", err)
	}

	settings, err := config.LoadSettings(paths.Settings)
	if err != nil {
		return err
	}

	files := storage.NewLocal()
	cat, err := catalog.Open(files, paths.CatalogDB)
	if err != nil {
		return fmt.Errorf("open module catalog: %w", err)
	}
	defer cat.Close()

	srv := server.New(server.Options{
		Settings: settings,
		Paths:    paths,
		Files:    files,
		Catalog:  cat,
		Bus:      eventbus.New(),
	})
	if err := srv.StartHTTP(); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("[Main] received signal %s, shutting down", sig)
		cancel()
	}()

	log.Printf("[Main] mods-mcp %s started (PID: %d)", version.String(), os.Getpid())
	runErr := srv.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Main] shutdown: %v", err)
	}

	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	log.Printf("[Main] stopped")
	return nil
}

// setupLogging mirrors everything to a log file so logs survive when stdout
// is occupied by the MCP stdio transport.
func setupLogging(paths config.Paths) error {
	logPath := filepath.Join(paths.Logs, "server.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	multi := io.MultiWriter(os.Stderr, logFile)
	log.SetOutput(multi)
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	return nil
}

// OutputFormatter handles CLI output in either human or JSON form.
type OutputFormatter struct {
	jsonMode bool
}

func newOutputFormatter(cmd *cobra.Command) *OutputFormatter {
	jsonMode, _ := cmd.Flags().GetBool("json")
	return &OutputFormatter{jsonMode: jsonMode}
}

// Print outputs data in the appropriate format.
func (f *OutputFormatter) Print(data interface{}) error {
	if f.jsonMode {
		jsonBytes, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(jsonBytes))
		return nil
	}
	switch v := data.(type) {
	case string:
		fmt.Println(v)
	default:
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	}
	return nil
}
