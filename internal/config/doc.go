// Package config provides configuration parsing for Lalilo projects.
//
// The configuration is stored in lalilo.json at the project root. Comments
// are allowed. Every directory is relative to the project root (entry) or
// to the entry directory (dir.*, watch.ignoreDirs).
//
// # Configuration File Structure
//
//	{
//	  // sources live here
//	  "entry": "src",
//	  "dir": { "icon": "icon", "scss": "scss", "css": "css", "html": "" },
//	  "template": {
//	    "enabled": true,
//	    "entry": "cmd/renderer/Main.php",
//	    "env": "Development"
//	  },
//	  "watch": {
//	    "formats": [".php", ".html", ".css", ".js"],
//	    "ignoreDirs": ["icon"],
//	    "debounce": "357ms",
//	    "reloadDelay": "300ms"
//	  },
//	  "loaders": [
//	    { "title": "Lint JS", "ext": ".js", "exec": "cmd/loaders/lint.js", "runner": "node" }
//	  ],
//	  "server": {
//	    "domain": "127.0.0.1",
//	    "port": { "min": 8000, "max": 8999, "default": 8000 }
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.LoadFromWorkingDir()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Entry:", cfg.EntryPath())
package config
