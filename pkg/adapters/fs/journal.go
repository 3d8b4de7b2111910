package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/meteora/pkg/core"
	"github.com/aretw0/meteora/pkg/seal"
)

const (
	tagsFile    = "tags.yaml"
	journalFile = "journal.yaml"
)

type tagRegistry struct {
	Tags []string `yaml:"tags"`
}

type journal struct {
	Scratchpad []string              `yaml:"scratchpad,omitempty"`
	Logbook    map[string][]logEntry `yaml:"logbook,omitempty"`
}

type logEntry struct {
	Text string   `yaml:"text"`
	Tags []string `yaml:"tags,omitempty"`
}

func newJournal(snap core.Snapshot) journal {
	j := journal{Scratchpad: snap.Scratchpad}
	if len(snap.Logbook) > 0 {
		j.Logbook = make(map[string][]logEntry, len(snap.Logbook))
		for day, entries := range snap.Logbook {
			for _, e := range entries {
				j.Logbook[day] = append(j.Logbook[day], logEntry{Text: e.Text, Tags: e.Tags})
			}
		}
	}
	return j
}

func (j journal) logbook() map[string][]core.LogEntry {
	out := make(map[string][]core.LogEntry, len(j.Logbook))
	for day, entries := range j.Logbook {
		for _, e := range entries {
			out[day] = append(out[day], core.LogEntry{Text: e.Text, Tags: e.Tags})
		}
	}
	return out
}

func (r *Repository) readTags() ([]string, error) {
	var reg tagRegistry
	if err := r.readYAML(tagsFile, &reg, nil); err != nil {
		return nil, err
	}
	return reg.Tags, nil
}

func (r *Repository) writeTags(tags []string) error {
	sorted := slices.Clone(tags)
	slices.Sort(sorted)
	return r.writeYAML(tagsFile, tagRegistry{Tags: sorted}, nil)
}

// The journal holds free text, so it is sealed as a whole when a sealer is set.
func (r *Repository) readJournal() (journal, error) {
	var j journal
	err := r.readYAML(journalFile, &j, r.config.Sealer)
	return j, err
}

func (r *Repository) writeJournal(j journal) error {
	return r.writeYAML(journalFile, j, r.config.Sealer)
}

// readYAML decodes a system file into v. A missing file leaves v untouched.
func (r *Repository) readYAML(name string, v any, sealer *seal.Sealer) error {
	path := filepath.Join(r.systemPath(), name)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if text := strings.TrimSpace(string(data)); seal.IsSealed(text) {
		if sealer == nil {
			return core.Corrupt(path, fmt.Errorf("file is sealed and no passphrase is configured"))
		}
		plain, err := sealer.Open(text)
		if err != nil {
			return core.Corrupt(path, err)
		}
		data = plain
	}

	if err := yaml.Unmarshal(data, v); err != nil {
		return core.Corrupt(path, err)
	}
	return nil
}

func (r *Repository) writeYAML(name string, v any, sealer *seal.Sealer) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	path := filepath.Join(r.systemPath(), name)

	if sealer != nil {
		if current, err := os.ReadFile(path); err == nil {
			if plain, err := sealer.Open(strings.TrimSpace(string(current))); err == nil && string(plain) == string(data) {
				return nil
			}
		}
		sealed, err := sealer.Seal(data)
		if err != nil {
			return fmt.Errorf("failed to seal %s: %w", name, err)
		}
		data = []byte(sealed + "\n")
	}

	if _, err := writeIfChanged(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
