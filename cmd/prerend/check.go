package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/prerend-dev/prerend/pkg/modmap"
)

func checkCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and module map offline",
		Long: `Validate the gateway configuration and module map without
starting a server.

Checks performed:
  • prerend.json parses and passes the same validation serve applies
  • the base origin is an absolute http(s) origin
  • the module map parses and every route's bundle file exists

Examples:
  prerend check
  prerend check --config=deploy/prerend.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to prerend.json")

	return cmd
}

func runCheck(configPath string) error {
	icfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if icfg.Path() != "" {
		info("Config: %s", icfg.Path())
	}

	if err := icfg.Validate(); err != nil {
		errorMsg("Configuration invalid")
		return err
	}
	success("Configuration valid (base origin %s)", icfg.BaseOrigin)

	if icfg.ModuleMapPath() == "" {
		info("No module map configured; routes render without lazy modules")
		return nil
	}

	m, err := modmap.Load(icfg.ModuleMapPath())
	if err != nil {
		errorMsg("Module map unreadable")
		return err
	}
	success("Module map: %d route patterns", m.Len())

	// Resolve every mapped route so missing bundles surface now rather
	// than as render failures under traffic.
	loader := modmap.NewBundleLoader(os.DirFS(icfg.StaticPath()))
	resolver := modmap.NewResolver(m, loader)
	failed := 0
	for _, route := range m.Routes() {
		mods, err := resolver.Resolve(context.Background(), route)
		if err != nil {
			errorMsg("%s: %s", route, err)
			failed++
			continue
		}
		for _, mod := range mods {
			info("%s -> %s (%d bytes)", route, mod.Bundle, mod.Size)
		}
	}
	if failed > 0 {
		errorMsg("%d route(s) failed to resolve", failed)
		os.Exit(1)
	}
	success("All routes resolve")
	return nil
}
