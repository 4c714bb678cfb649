package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mp4-creator/internal/startup"
	"mp4-creator/internal/transcoder"
	"mp4-creator/internal/workspace"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	serveCmd := newServeCommand(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "mp4-creator",
		Short:         "Merge uploaded videos into a single MP4",
		SilenceUsage:  true,
		SilenceErrors: true,
		// Running without a subcommand starts the server.
		RunE: serveCmd.RunE,
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (TOML)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newSweepCommand(&configFlag))
	rootCmd.AddCommand(newProbeCommand(&configFlag))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newServeCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), *configFlag)
		},
	}
}

func newSweepCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove workspaces left behind by a previous run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := startup.Resolve(*configFlag)
			if err != nil {
				return err
			}

			workspaces := newWorkspaceManager(cfg)
			removed, err := workspaces.SweepOrphans()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d orphaned workspace(s) from %s\n", removed, workspaces.Root())
			return nil
		},
	}
}

func newProbeCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check that ffmpeg and ffprobe are usable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := startup.Resolve(*configFlag)
			if err != nil {
				return err
			}

			engine := transcoder.NewFFmpeg(cfg.Engine.FFmpegPath, cfg.Engine.FFprobePath)
			if err := engine.Probe(cmd.Context()); err != nil {
				return fmt.Errorf("engine unavailable: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ffmpeg (%s) and ffprobe (%s) are available\n", cfg.Engine.FFmpegPath, cfg.Engine.FFprobePath)
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			info := startup.GetBuildInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "mp4-creator %s (commit %s, built %s, %s %s/%s)\n",
				info.Version, info.Commit, info.BuildTime, info.GoVersion, info.OS, info.Arch)
		},
	}
}

func newWorkspaceManager(cfg *startup.Config) *workspace.Manager {
	return workspace.NewManager(workspace.Config{
		Root:         cfg.Workspace.TempDir,
		Prefix:       cfg.Workspace.Prefix,
		CleanupGrace: cfg.Workspace.Grace,
	})
}
