package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/matheus3301/groupweaver/internal/config"
	"github.com/matheus3301/groupweaver/internal/daemon"
	"github.com/matheus3301/groupweaver/internal/profile"
	"go.uber.org/fx"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	baseFlag := flag.String("base", "", "state directory (default $GROUPWEAVER_HOME or ~/.groupweaver)")
	flag.Parse()

	base := *baseFlag
	if base == "" {
		base = profile.BaseDir()
	}

	name := profile.Resolve(base, *profileFlag)
	if err := profile.ValidateName(name); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadOrDefault(profile.ConfigPath(base))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: load config: %v\n", err)
		os.Exit(1)
	}
	cfg.ApplyEnv(os.Getenv)

	app := fx.New(
		daemon.Module(daemon.Params{Profile: name, BaseDir: base, Config: cfg}),
	)

	app.Run()
}
