package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/scengen-cli/internal/core/ports/driven"
	"github.com/custodia-labs/scengen-cli/internal/logger"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads LLM prompts from user-editable files on disk.
// Prompts are loaded from a configurable directory with fallback to
// embedded defaults.
//
// The store uses lazy initialisation - files are only created when first
// accessed, not in the constructor. This makes testing easier and avoids
// unexpected I/O.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// defaultPrompts contains embedded default prompts.
// These are used when user files don't exist and as the initial content
// for new files.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptScenarioSystem: `You are a senior QA engineer writing test scenarios for a web application.

You respond with a single JSON object of the form:

{"scenarios": [{"test_id": "", "name": "...", "description": "...", "preconditions": ["..."], "steps": [{"action": "...", "input": "...", "expected": "...", "refs": ["..."]}], "classification": "functional|regression|integration|edge_case", "priority": "high|medium|low"}]}

Rules:
1. Leave test_id empty; identifiers are assigned downstream.
2. Every step names a concrete action and the observable expected result.
3. Tag each step's refs with the page or module it touches.
4. Cover the happy path first, then boundary and failure behaviour.
5. Respond with JSON only. No prose, no code fences.`,

	driven.PromptPageGeneration: `Generate test scenarios for a single page that has changed.

Page: %s

Change specification:
%s

Write scenarios that verify the described behaviour on this page. Prefix each step action with the page tag in square brackets, e.g. "[checkout] submit the order form".`,

	driven.PromptModuleAggregation: `Generate integration test scenarios for the "%s" module by combining the page-level scenarios below.

Each scenario you produce must span at least %d distinct pages: exercise flows that cross page boundaries rather than restating single-page checks. Set refs on every step to the pages it touches.

Page-level source scenarios (JSON):
%s`,

	driven.PromptProjectAggregation: `Generate end-to-end test scenarios for the "%s" project by combining the module-level scenarios below.

Each scenario you produce must span at least %d distinct modules. Focus on user journeys that cross module boundaries. Set refs on every step to the modules it touches.

Reference manual excerpts:
%s

Module-level source scenarios (JSON):
%s`,
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.scengen/prompts/.
//
// The constructor does not perform any I/O - directory creation and
// file writes happen lazily on first Load() call.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".scengen", "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// On first call, initialises the prompt directory and creates default files.
// Returns cached value if available, otherwise loads from file.
// Falls back to embedded default if file doesn't exist.
func (s *PromptStore) Load(name string) (string, error) {
	// Ensure directory and defaults exist (lazy init)
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		// Fall back to embedded defaults if init failed
		if prompt, ok := defaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	// Check cache first (read lock)
	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	// Load from file (no lock held during I/O)
	prompt, err := s.loadFromFile(name)
	if err != nil {
		// Fall back to embedded default
		if defaultPrompt, ok := defaultPrompts[name]; ok {
			return defaultPrompt, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	// Cache the result (write lock)
	// Use double-check pattern to avoid overwriting concurrent loads
	s.mu.Lock()
	if _, ok := s.cache[name]; !ok {
		s.cache[name] = prompt
	} else {
		// Another goroutine loaded it first, use their value
		prompt = s.cache[name]
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Watch starts a filesystem watcher on the prompt directory and clears
// the cache whenever a prompt file is written, so edits made while a
// batch is running take effect on the next template load. Stop the
// watcher with Close.
func (s *PromptStore) Watch() error {
	// The directory must exist before it can be watched.
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		return s.initErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create prompt watcher: %w", err)
	}
	if err := watcher.Add(s.promptDir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch prompt directory: %w", err)
	}

	s.watcher = watcher
	s.done = make(chan struct{})
	go s.watchLoop(watcher, s.done)
	return nil
}

// Close stops the filesystem watcher, if running.
func (s *PromptStore) Close() error {
	s.mu.Lock()
	watcher := s.watcher
	done := s.done
	s.watcher = nil
	s.done = nil
	s.mu.Unlock()

	if watcher == nil {
		return nil
	}
	err := watcher.Close()
	<-done
	return err
}

func (s *PromptStore) watchLoop(watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
				continue
			}
			if filepath.Ext(event.Name) != ".txt" {
				continue
			}
			logger.Debug("Prompt file changed, clearing cache: %s", filepath.Base(event.Name))
			s.Reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Prompt watcher error: %v", err)
		}
	}
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// initialise creates the prompt directory and default files.
// Called once via sync.Once on first Load().
func (s *PromptStore) initialise() {
	// Create directory
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	// Create default prompt files (only if they don't exist)
	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	// Create README
	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

// loadFromFile reads a prompt from disk.
func (s *PromptStore) loadFromFile(name string) (string, error) {
	path := filepath.Join(s.promptDir, name+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil // Already exists or stat error (ignore)
	}

	content := `# Scengen Prompts

This directory contains customisable prompts used by scengen's test
scenario generation.

## Files

- ` + "`scenario_system.txt`" + ` - System prompt shared by all generation calls
- ` + "`page_generation.txt`" + ` - Generates scenarios for a single changed page
- ` + "`module_aggregation.txt`" + ` - Combines page scenarios into module flows
- ` + "`project_aggregation.txt`" + ` - Combines module scenarios into end-to-end journeys

## Customisation

Edit any file to customise generation behaviour. Changes are picked up
automatically while a batch is running.

## Format Placeholders

Prompts use Go fmt placeholders:
- ` + "`%s`" + ` - String (page/module/project name, spec text, source JSON)
- ` + "`%d`" + ` - Integer (minimum distinct pages or modules per scenario)

Ensure customised prompts keep placeholders in the same order as the
defaults.
`
	return os.WriteFile(path, []byte(content), 0600)
}
