package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"

	"github.com/matheus3301/groupweaver/internal/client"
	"github.com/matheus3301/groupweaver/internal/config"
	"github.com/matheus3301/groupweaver/internal/profile"
	"github.com/spf13/cobra"
)

var (
	profileFlag string
	baseFlag    string
	addrFlag    string
	jsonFlag    bool
)

var rootCmd = &cobra.Command{
	Use:           "gwctl",
	Short:         "Inspect and drive a running gwd",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&profileFlag, "profile", "", "profile name (overrides config default)")
	rootCmd.PersistentFlags().StringVar(&baseFlag, "base", "", "state directory (default $GROUPWEAVER_HOME or ~/.groupweaver)")
	rootCmd.PersistentFlags().StringVar(&addrFlag, "addr", "", "daemon HTTP address (default from config.toml)")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output in JSON format")

	rootCmd.AddGroup(
		&cobra.Group{ID: "daemon", Title: "Daemon Commands:"},
		&cobra.Group{ID: "lists", Title: "List Commands:"},
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func baseDir() string {
	if baseFlag != "" {
		return baseFlag
	}
	return profile.BaseDir()
}

// profilePaths resolves the active profile the same way gwd does.
func profilePaths() (profile.Paths, error) {
	base := baseDir()
	name := profile.Resolve(base, profileFlag)
	if err := profile.ValidateName(name); err != nil {
		return profile.Paths{}, err
	}
	return profile.New(base, name), nil
}

// daemonURL picks --addr, falling back to the listen address in config.toml
// with environment overrides applied. A wildcard host is dialed on loopback.
func daemonURL() (string, error) {
	addr := addrFlag
	if addr == "" {
		cfg, err := config.LoadOrDefault(profile.ConfigPath(baseDir()))
		if err != nil {
			return "", fmt.Errorf("load config: %w", err)
		}
		cfg.ApplyEnv(os.Getenv)
		addr = cfg.ListenAddr
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("invalid address %q: %w", addr, err)
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port), nil
}

func newClient() (*client.Client, error) {
	u, err := daemonURL()
	if err != nil {
		return nil, err
	}
	return client.New(u), nil
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
