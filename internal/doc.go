// Package internal contains the implementation packages of componentry.
//
// # Package Organization
//
// The runtime is layered bottom-up:
//
//   - values: dotted-path lookup, truthiness and stringification
//   - dom: headless document model over golang.org/x/net/html
//   - template: the {{...}} fragment template engine
//   - state: per-component reactive state, bindings and computed values
//   - loader: fragment fetching and stylesheet or script loading
//   - lifecycle: phase hooks and event dispatch
//   - bus: component-to-component messaging
//   - component: component records, registry and error fallback
//   - runtime: marker discovery and the component controller
//
// Around the runtime sit the tooling packages:
//
//   - config: viper-backed configuration with validation
//   - logging: structured slog logging
//   - errors: typed errors, collection and the HTML error overlay
//   - renderer: whole-page rendering with a shared fragment cache
//   - snapshot, persist: state snapshots and their bbolt store
//   - watcher: debounced fsnotify file watching
//   - server: development server with websocket live reload
//   - version: build information
package internal
