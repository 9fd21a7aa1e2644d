package profile

import "github.com/matheus3301/groupweaver/internal/config"

const DefaultName = "main"

// Resolve determines the active profile name using precedence:
// 1. flagOverride (--profile flag)
// 2. config.toml default_profile under base
// 3. "main"
func Resolve(base, flagOverride string) string {
	if flagOverride != "" {
		return flagOverride
	}
	if base == "" {
		base = BaseDir()
	}
	cfg, err := config.Load(ConfigPath(base))
	if err == nil && cfg.DefaultProfile != "" {
		return cfg.DefaultProfile
	}
	return DefaultName
}
