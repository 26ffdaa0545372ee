// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/medley/internal/models"
	"github.com/urfave/cli/v3"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func playerFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "player",
		Aliases: []string{"p"},
		Usage:   "Player id",
		Value:   "default",
	}
}

func prettyFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "pretty",
		Usage: "Pretty-print JSON output",
	}
}

// tableFlags select how a listing is rendered.
func tableFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: text, json, csv or markdown",
			Value:   "text",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write the listing to a file instead of stdout",
		},
	}
}

func listFlags() []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{
			Name:  "provider",
			Usage: "Only list entities of this provider",
		},
		&cli.StringFlag{
			Name:    "query",
			Aliases: []string{"q"},
			Usage:   "Case-insensitive substring filter",
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum number of entries, 0 for all",
		},
		&cli.IntFlag{
			Name:  "offset",
			Usage: "Number of entries to skip",
		},
	}, tableFlags()...)
}

// setupCommand prepares the config file and the database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and database",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create the config file if missing and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Revert the last applied migration",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupRollback,
			},
			{
				Name:   "status",
				Usage:  "Show the schema version and pending migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupStatus,
			},
		},
	}
}

// syncCommand drives provider synchronization
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Synchronize providers into the library",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run one sync cycle",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "provider",
						Usage: "Only sync this provider",
					},
					&cli.StringSliceFlag{
						Name:  "folder",
						Usage: "Only rescan this folder of --provider (repeatable)",
					},
					&cli.BoolFlag{
						Name:    "verbose",
						Aliases: []string{"v"},
						Usage:   "Print every synced entity",
					},
				}, tableFlags()...),
				Action: r.SyncRun,
			},
			{
				Name:  "status",
				Usage: "Show provider sync states",
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:  "history",
						Usage: "Also show this many recorded runs per provider",
					},
				}, tableFlags()...),
				Action: r.SyncStatus,
			},
			{
				Name:  "watch",
				Usage: "Sync all providers periodically until interrupted",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "interval",
						Usage: "Time between cycles, defaults to sync.interval",
					},
				},
				Action: r.SyncWatch,
			},
			{
				Name:      "reset",
				Usage:     "Move a finished provider back to idle",
				ArgsUsage: "<provider>",
				Action:    r.SyncReset,
			},
		},
	}
}

// libraryCommand browses the aggregated library
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Browse the aggregated library",
		Commands: []*cli.Command{
			{
				Name:   "tracks",
				Usage:  "List tracks",
				Flags:  listFlags(),
				Action: r.LibraryList(models.KindTrack),
			},
			{
				Name:   "albums",
				Usage:  "List albums",
				Flags:  listFlags(),
				Action: r.LibraryList(models.KindAlbum),
			},
			{
				Name:   "artists",
				Usage:  "List artists",
				Flags:  listFlags(),
				Action: r.LibraryList(models.KindArtist),
			},
			{
				Name:   "playlists",
				Usage:  "List playlists",
				Flags:  listFlags(),
				Action: r.LibraryList(models.KindPlaylist),
			},
			{
				Name:      "find",
				Usage:     "Look up one entity by cursor",
				ArgsUsage: "<cursor>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "kind",
						Usage: "Entity kind: track, album, artist or playlist",
					},
					prettyFlag(),
				},
				Action: r.LibraryFind,
			},
			{
				Name:      "search",
				Usage:     "Search every entity kind",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					prettyFlag(),
				},
				Action: r.LibrarySearch,
			},
			{
				Name:      "browse",
				Usage:     "List a folder of a provider",
				ArgsUsage: "<provider> [path]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					prettyFlag(),
				},
				Action: r.LibraryBrowse,
			},
		},
	}
}

// queueCommand edits a player queue
func queueCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "queue",
		Usage: "Manage a player queue",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Queue tracks by cursor",
				ArgsUsage: "<cursor>...",
				Flags:     []cli.Flag{playerFlag()},
				Action:    r.QueueAdd,
			},
			{
				Name:   "show",
				Usage:  "Show the queue",
				Flags:  append([]cli.Flag{playerFlag()}, tableFlags()...),
				Action: r.QueueShow,
			},
			{
				Name:   "clear",
				Usage:  "Empty the queue",
				Flags:  []cli.Flag{playerFlag()},
				Action: r.QueueClear,
			},
		},
	}
}

// playerCommand controls player transport
func playerCommand(r *Runner) *cli.Command {
	transport := func(name, usage string) *cli.Command {
		return &cli.Command{
			Name:   name,
			Usage:  usage,
			Flags:  []cli.Flag{playerFlag()},
			Action: r.PlayerTransport(name),
		}
	}

	return &cli.Command{
		Name:  "player",
		Usage: "Control playback state",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show the player snapshot",
				Flags:  []cli.Flag{playerFlag(), prettyFlag()},
				Action: r.PlayerStatus,
			},
			transport("play", "Start or resume playback"),
			transport("pause", "Pause playback"),
			transport("stop", "Stop playback"),
			transport("next", "Skip to the next track"),
			transport("previous", "Go back to the previous track"),
			{
				Name:      "volume",
				Usage:     "Set the volume",
				ArgsUsage: "<0-100>",
				Flags:     []cli.Flag{playerFlag()},
				Action:    r.PlayerVolume,
			},
			{
				Name:   "events",
				Usage:  "Stream player events as JSON lines",
				Flags:  []cli.Flag{playerFlag()},
				Action: r.PlayerEvents,
			},
		},
	}
}

// extensionsCommand inspects hosted extensions
func extensionsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "extensions",
		Aliases: []string{"ext"},
		Usage:   "Inspect hosted extensions",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List extensions and their hooks",
				Flags:  tableFlags(),
				Action: r.ExtensionsList,
			},
			{
				Name:      "reset",
				Usage:     "Re-enable a disabled extension",
				ArgsUsage: "<id>",
				Action:    r.ExtensionsReset,
			},
		},
	}
}

// cursorCommand converts between uris and cursors
func cursorCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cursor",
		Usage: "Encode and decode cursors",
		Commands: []*cli.Command{
			{
				Name:      "encode",
				Usage:     "Print the cursor of a uri",
				ArgsUsage: "<uri>...",
				Action:    r.CursorEncode,
			},
			{
				Name:      "decode",
				Usage:     "Print the uri behind a cursor",
				ArgsUsage: "<cursor>...",
				Action:    r.CursorDecode,
			},
		},
	}
}
