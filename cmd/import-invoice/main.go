// Command import-invoice extracts invoice fields from a PDF or image file
// and prints them as JSON. Useful for checking extraction quality before
// enabling the importer in the server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/invopilot/invopilot/internal/config"
	"github.com/invopilot/invopilot/internal/importer"
	"github.com/invopilot/invopilot/pkg/utils"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: import-invoice [-config path] <document.pdf>")
		os.Exit(2)
	}
	docPath := flag.Arg(0)

	_ = gotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if cfg.Importer.APIKey == "" {
		fmt.Fprintln(os.Stderr, "OPENAI_API_KEY is not set; the importer is disabled")
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: "stdout",
		Format:     "console",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	imp := importer.New(
		cfg.Importer.APIKey,
		cfg.Importer.Model,
		cfg.Importer.Temperature,
		cfg.Importer.Timeout,
		logger,
	)

	extracted, err := imp.Import(context.Background(), docPath)
	if err != nil {
		logger.Fatal("Import failed", zap.Error(err))
	}

	out, err := json.MarshalIndent(extracted, "", "  ")
	if err != nil {
		logger.Fatal("Failed to encode result", zap.Error(err))
	}
	fmt.Println(string(out))
}
