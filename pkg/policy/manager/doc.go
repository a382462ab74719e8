// Package manager loads policies from YAML files and keeps a running
// engine in sync with them.
//
// The Loader reads one policy per file and validates it before it
// reaches the engine. The Manager combines a Loader with an optional
// fsnotify watcher: on file creation or change the policy is reloaded,
// on file removal the policy is unloaded.
package manager
