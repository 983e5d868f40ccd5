// Package file provides file-based configuration and prompt storage.
//
// ConfigStore persists user settings as TOML under the scengen config
// directory (~/.scengen by default). Nested tables are flattened into
// dot-notation keys so callers can read "provider.model" directly.
//
// PromptStore serves the LLM prompt templates. Defaults are embedded
// in the binary; on first use they are written out as editable .txt
// files so users can tune generation behaviour without rebuilding.
// A filesystem watcher picks up edits while a batch is running.
package file
