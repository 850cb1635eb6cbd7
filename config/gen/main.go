package main

import (
	"log/slog"
	"os"

	"github.com/brensch/uploader/config"
	"gopkg.in/yaml.v3"
)

// Writes a config skeleton with every key present and empty, for hand editing.
func main() {
	out := "./config.example.yaml"
	if len(os.Args) > 1 {
		out = os.Args[1]
	}

	slog.Info("generating empty config", "path", out)
	var emptyConf config.AppConfig

	confYAML, err := yaml.Marshal(emptyConf)
	if err != nil {
		slog.Error("failed to marshal empty yaml", "err", err)
		os.Exit(1)
	}

	err = os.WriteFile(out, confYAML, 0644)
	if err != nil {
		slog.Error("failed to write blank conf to file", "err", err)
		os.Exit(1)
	}
}
