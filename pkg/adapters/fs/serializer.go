package fs

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/meteora/pkg/core"
	"github.com/aretw0/meteora/pkg/seal"
)

// frontmatter is the YAML header of a note file.
type frontmatter struct {
	Title    string         `yaml:"title,omitempty"`
	Created  time.Time      `yaml:"created"`
	Priority float64        `yaml:"priority"`
	Deadline *deadlineField `yaml:"deadline,omitempty"`
	Tags     []string       `yaml:"tags,omitempty"`
	Links    []string       `yaml:"links,omitempty"`
	Done     bool           `yaml:"done,omitempty"`
}

type deadlineField struct {
	Kind      core.DeadlineKind `yaml:"kind"`
	At        time.Time         `yaml:"at,omitempty"`
	EveryDays int               `yaml:"every_days,omitempty"`
}

// parseNote reads a Markdown file with an optional YAML frontmatter block.
// A sealed body is opened with sealer.
func parseNote(id string, data []byte, sealer *seal.Sealer) (core.Note, error) {
	n := core.Note{ID: id, Deadline: core.Eternal{}}

	body := data
	if bytes.HasPrefix(data, []byte("---\n")) || bytes.HasPrefix(data, []byte("---\r\n")) {
		rest := data[3:]
		parts := bytes.SplitN(rest, []byte("\n---"), 2)
		if len(parts) == 1 {
			return core.Note{}, errors.New("frontmatter started but no closing delimiter found")
		}

		var fm frontmatter
		if err := yaml.Unmarshal(parts[0], &fm); err != nil {
			return core.Note{}, fmt.Errorf("failed to parse frontmatter: %w", err)
		}
		if err := fm.apply(&n); err != nil {
			return core.Note{}, err
		}

		body = parts[1]
		body = bytes.TrimPrefix(body, []byte("\r"))
		body = bytes.TrimPrefix(body, []byte("\n"))
	}

	n.Body = string(body)
	if text := strings.TrimSpace(n.Body); seal.IsSealed(text) {
		if sealer == nil {
			return core.Note{}, errors.New("body is sealed and no passphrase is configured")
		}
		plain, err := sealer.OpenString(text)
		if err != nil {
			return core.Note{}, err
		}
		n.Body = plain
	}
	return n, nil
}

// serializeNote renders a note as frontmatter plus body. With a sealer, the
// body is replaced by its sealed form; the frontmatter stays readable.
func serializeNote(n core.Note, sealer *seal.Sealer) ([]byte, error) {
	body := n.Body
	if sealer != nil {
		sealed, err := sealer.SealString(body)
		if err != nil {
			return nil, fmt.Errorf("failed to seal note %s: %w", n.ID, err)
		}
		body = sealed + "\n"
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(toFrontmatter(n)); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	buf.WriteString("---\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}

func toFrontmatter(n core.Note) frontmatter {
	fm := frontmatter{
		Title:    n.Title,
		Created:  n.CreatedAt.UTC(),
		Priority: n.Priority,
		Tags:     n.Tags,
		Links:    n.Links,
		Done:     n.Done,
	}
	if kind, at, every := core.DeadlineFields(n.Deadline); kind != core.KindEternal {
		fm.Deadline = &deadlineField{Kind: kind, At: at.UTC(), EveryDays: every}
	}
	return fm
}

func (fm frontmatter) apply(n *core.Note) error {
	n.Title = fm.Title
	n.CreatedAt = fm.Created
	n.Priority = fm.Priority
	n.Tags = fm.Tags
	n.Links = fm.Links
	n.Done = fm.Done
	if fm.Deadline != nil {
		d, err := core.NewDeadline(fm.Deadline.Kind, fm.Deadline.At, fm.Deadline.EveryDays)
		if err != nil {
			return err
		}
		n.Deadline = d
	}
	return nil
}
