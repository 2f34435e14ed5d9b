// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/crate/internal/formatter"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/urfave/cli/v3"
)

// app builds the root command. Its flags are visible to every subcommand.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    shared.AppName,
		Usage:   "Keep Spotify playlists in sync with your saved library",
		Version: "0.3.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   shared.DefaultConfigPath(),
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Before:   r.loadConfig,
		Commands: r.register(),
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: text, markdown, csv or json",
		Value:   string(formatter.Text),
	}
}

// setupCommand handles setup operations for the database and the config file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Write the default configuration file",
				Action: r.SetupConfig,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize crate with Spotify using OAuth2",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser callback",
						Value: defaultAuthTimeout,
					},
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL instead of opening it",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show the stored token",
				Action: r.AuthStatus,
			},
		},
	}
}

// cacheCommand handles the local library snapshot
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Maintain and query the local library snapshot",
		Commands: []*cli.Command{
			{
				Name:   "update",
				Usage:  "Add recently saved albums and tracks to the snapshot",
				Action: r.CacheUpdate,
			},
			{
				Name:   "rebuild",
				Usage:  "Fetch the whole library and refresh every snapshot entry",
				Action: r.CacheRebuild,
			},
			{
				Name:      "search",
				Usage:     "Search cached tracks by artist, album or title",
				ArgsUsage: "<query>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "query"},
				},
				Flags: []cli.Flag{
					formatFlag(),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the listing to a file instead of stdout",
					},
				},
				Action: r.CacheSearch,
			},
			{
				Name:  "genres",
				Usage: "List genres of cached albums",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CacheGenres,
			},
			{
				Name:   "stats",
				Usage:  "Show snapshot sizes",
				Action: r.CacheStats,
			},
		},
	}
}

// playlistCommand handles the managed playlists. Omitted flags fall back to the [playlists] config section.
func playlistCommand(r *Runner) *cli.Command {
	idFlag := func() cli.Flag {
		return &cli.StringFlag{Name: "id", Usage: "Playlist ID (defaults to the configured playlist)"}
	}

	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Update managed playlists",
		Commands: []*cli.Command{
			{
				Name:  "recent",
				Usage: "Add recently saved tracks to the head and trim the tail",
				Flags: []cli.Flag{
					idFlag(),
					&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Usage: "Tracks to keep"},
					&cli.BoolFlag{Name: "no-trim", Usage: "Only add, never remove"},
				},
				Action: r.PlaylistRecent,
			},
			{
				Name:  "trim",
				Usage: "Remove tracks past the first album boundary after --keep",
				Flags: []cli.Flag{
					idFlag(),
					&cli.IntFlag{Name: "keep", Aliases: []string{"k"}, Usage: "Tracks to keep", Required: true},
				},
				Action: r.PlaylistTrim,
			},
			{
				Name:  "everything",
				Usage: "Rebuild from recent tracks and a sample of the library",
				Flags: []cli.Flag{
					idFlag(),
					&cli.IntFlag{Name: "recent", Usage: "Recent tracks at the head"},
					&cli.IntFlag{Name: "total", Usage: "Sampled tracks after them"},
				},
				Action: r.PlaylistEverything,
			},
			{
				Name:  "weekly",
				Usage: "Rebuild from a random sample of the library",
				Flags: []cli.Flag{
					idFlag(),
					&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Usage: "Sampled tracks"},
				},
				Action: r.PlaylistWeekly,
			},
			{
				Name:   "liked",
				Usage:  "Rebuild from every cached liked track",
				Flags:  []cli.Flag{idFlag()},
				Action: r.PlaylistLiked,
			},
			{
				Name:      "search",
				Usage:     "Rebuild from cached tracks matching a query",
				ArgsUsage: "<query>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "query"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Playlist ID", Required: true},
				},
				Action: r.PlaylistSearch,
			},
		},
	}
}

// historyCommand lists and prunes recorded sync runs
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recorded playlist updates",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum runs to show", Value: 20},
			&cli.StringFlag{Name: "playlist", Usage: "Only runs against this playlist"},
			&cli.StringFlag{Name: "status", Usage: "Only runs with this status (pending, succeeded, failed)"},
			&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
		},
		Action: r.History,
		Commands: []*cli.Command{
			{
				Name:  "prune",
				Usage: "Delete finished runs older than --older-than",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "older-than", Usage: "Age of runs to delete", Value: defaultHistoryRetention},
				},
				Action: r.HistoryPrune,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive playlist management.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Pick and run playlist updates interactively",
		Action:  r.TUI,
	}
}
