// Package dev provides the development server and incremental rebuilds.
//
// This package implements:
//   - Change classification for icon sets, stylesheets, watched pages and loaders
//   - Per-file debounced rebuilds, serialized through one build queue
//   - Coalesced browser reloads over WebSocket
//   - Request resolution over the compiled page tree and the raw source tree
//
// # Architecture
//
// The development server consists of several components:
//
//   - Watcher: turns fsnotify events under the entry directory into ChangeEvents
//   - Classifier: maps a ChangeEvent to Icon, Style, File or Loader
//   - Dispatcher: routes classified events to the scheduler, the aggregator or the loader queue
//   - Scheduler: one cancellable timer per source file, firing into the build queue
//   - Aggregator: counts generic changes and emits one reload after a quiet period
//   - ReloadServer: broadcasts reloads to connected browsers
//   - Resolver and Handler: serve pages, templates and static files
//
// # Usage
//
//	srv := dev.NewServer(dev.ServerOptions{
//	    Config: cfg,
//	    Logger: log,
//	})
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	if err := srv.Start(ctx); err != nil {
//	    errors.PrintError(err)
//	}
//
// # Live Reload Protocol
//
// The browser connects to /_lalilo/reload via WebSocket and receives one
// JSON message per coalesced burst of changes:
//
//	{"type": "reload", "force": true}
package dev
