package api

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"

	"github.com/aretw0/meteora/pkg/codec"
	"github.com/aretw0/meteora/pkg/core"
)

// NoteResponse is a note as shown to clients, with its current score.
type NoteResponse struct {
	codec.Note
	DisplayTitle string  `json:"display_title"`
	Score        float64 `json:"score"`
}

// TagResponse is a registered tag.
type TagResponse struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Notes int    `json:"notes"`
}

// TagRequest names a tag to add or the new name of a renamed tag.
type TagRequest struct {
	Name string `json:"name"`
}

func (s *Server) noteResponse(n core.Note) NoteResponse {
	return NoteResponse{
		Note:         codec.FromNote(n),
		DisplayTitle: n.DisplayTitle(),
		Score:        core.Score(n, s.service.Now(), s.service.Weights()),
	}
}

// param returns a path parameter. IDs of nested notes arrive with escaped slashes.
func param(c *fiber.Ctx, name string) (string, error) {
	v, err := url.PathUnescape(utils.CopyString(c.Params(name)))
	if err != nil {
		return "", badRequest(fmt.Errorf("invalid %s: %w", name, err))
	}
	return v, nil
}

func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

func (s *Server) handleState(c *fiber.Ctx) error {
	return c.JSON(s.service.State())
}

func (s *Server) handleSave(c *fiber.Ctx) error {
	if err := s.service.Save(c.UserContext()); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleListNotes returns the ranked notes matching ?tag=..&q=..&hide_done=..
// Several tags may be given by repeating tag or separating with commas.
func (s *Server) handleListNotes(c *fiber.Ctx) error {
	var q core.Query
	for _, raw := range c.Context().QueryArgs().PeekMulti("tag") {
		for _, tag := range strings.Split(string(raw), ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				q.Tags = append(q.Tags, tag)
			}
		}
	}
	q.Text = c.Query("q")
	q.HideDone = c.QueryBool("hide_done")

	notes := s.service.View(q)
	out := make([]NoteResponse, len(notes))
	for i, n := range notes {
		out[i] = s.noteResponse(n)
	}
	return c.JSON(out)
}

func (s *Server) handleGetNote(c *fiber.Ctx) error {
	id, err := param(c, "id")
	if err != nil {
		return err
	}
	n, err := s.service.Note(id)
	if err != nil {
		return err
	}
	return c.JSON(s.noteResponse(n))
}

func decodeNote(c *fiber.Ctx) (core.Note, error) {
	var in codec.Note
	if err := c.BodyParser(&in); err != nil {
		return core.Note{}, badRequest(fmt.Errorf("invalid note: %w", err))
	}
	n, err := in.Note()
	if err != nil {
		return core.Note{}, badRequest(err)
	}
	return n, nil
}

func (s *Server) handleCreateNote(c *fiber.Ctx) error {
	n, err := decodeNote(c)
	if err != nil {
		return err
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.service.Now()
	}

	var stored core.Note
	err = s.service.Update(c.UserContext(), func(st *core.Store) error {
		if st.Has(n.ID) {
			return fiber.NewError(fiber.StatusConflict, fmt.Sprintf("note %s already exists", n.ID))
		}
		stored, err = st.Put(n)
		return err
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(s.noteResponse(stored))
}

func (s *Server) handleReplaceNote(c *fiber.Ctx) error {
	id, err := param(c, "id")
	if err != nil {
		return err
	}
	n, err := decodeNote(c)
	if err != nil {
		return err
	}
	if n.ID != "" && n.ID != id {
		return badRequest(errors.New("note ID in body does not match path"))
	}
	n.ID = id

	var stored core.Note
	err = s.service.Update(c.UserContext(), func(st *core.Store) error {
		if n.CreatedAt.IsZero() {
			if old, err := st.Get(id); err == nil {
				n.CreatedAt = old.CreatedAt
			} else {
				n.CreatedAt = s.service.Now()
			}
		}
		stored, err = st.Put(n)
		return err
	})
	if err != nil {
		return err
	}
	return c.JSON(s.noteResponse(stored))
}

func (s *Server) handleDeleteNote(c *fiber.Ctx) error {
	id, err := param(c, "id")
	if err != nil {
		return err
	}
	if err := s.service.Update(c.UserContext(), func(st *core.Store) error {
		return st.Delete(id)
	}); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) linkParams(c *fiber.Ctx) (string, string, error) {
	id, err := param(c, "id")
	if err != nil {
		return "", "", err
	}
	target, err := param(c, "target")
	if err != nil {
		return "", "", err
	}
	return id, target, nil
}

func (s *Server) handleLink(c *fiber.Ctx) error {
	id, target, err := s.linkParams(c)
	if err != nil {
		return err
	}
	if err := s.service.Update(c.UserContext(), func(st *core.Store) error {
		return st.Link(id, target)
	}); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleUnlink(c *fiber.Ctx) error {
	id, target, err := s.linkParams(c)
	if err != nil {
		return err
	}
	if err := s.service.Update(c.UserContext(), func(st *core.Store) error {
		return st.Unlink(id, target)
	}); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleDependencies(c *fiber.Ctx) error {
	id, err := param(c, "id")
	if err != nil {
		return err
	}
	if _, err := s.service.Note(id); err != nil {
		return err
	}
	return c.JSON(nonNil(slices.Collect(s.service.DependenciesOf(id))))
}

func (s *Server) handleDependents(c *fiber.Ctx) error {
	id, err := param(c, "id")
	if err != nil {
		return err
	}
	if _, err := s.service.Note(id); err != nil {
		return err
	}
	return c.JSON(nonNil(slices.Collect(s.service.DependentsOf(id))))
}

func (s *Server) handleListTags(c *fiber.Ctx) error {
	usage := s.service.TagUsage()
	tags := s.service.Tags()
	out := make([]TagResponse, len(tags))
	for i, t := range tags {
		out[i] = TagResponse{Name: t.Name, Color: t.Color.Hex(), Notes: usage[t.Name]}
	}
	return c.JSON(out)
}

func (s *Server) handleAddTag(c *fiber.Ctx) error {
	var in TagRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(fmt.Errorf("invalid tag: %w", err))
	}
	if err := s.service.Update(c.UserContext(), func(st *core.Store) error {
		return st.AddTag(in.Name)
	}); err != nil {
		return err
	}
	t := core.NewTag(strings.TrimSpace(in.Name))
	return c.Status(fiber.StatusCreated).JSON(TagResponse{Name: t.Name, Color: t.Color.Hex()})
}

func (s *Server) handleRenameTag(c *fiber.Ctx) error {
	name, err := param(c, "name")
	if err != nil {
		return err
	}
	var in TagRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(fmt.Errorf("invalid tag: %w", err))
	}
	if err := s.service.Update(c.UserContext(), func(st *core.Store) error {
		return st.RenameTag(name, in.Name)
	}); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleDeleteTag(c *fiber.Ctx) error {
	name, err := param(c, "name")
	if err != nil {
		return err
	}
	if err := s.service.Update(c.UserContext(), func(st *core.Store) error {
		return st.DeleteTag(name)
	}); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
