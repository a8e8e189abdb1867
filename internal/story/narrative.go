// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

package story

// Beat is one of the 15 fixed canonical structural positions of the
// three-act template. Every graph carries exactly 15 of them; patches may
// reword a beat but never remove one.
type Beat struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Act         int    `json:"act"`
	Position    int    `json:"position"`
	Description string `json:"description,omitempty"`
}

func (b Beat) NodeID() string { return b.ID }
func (b Beat) Kind() NodeKind { return KindBeat }

func (b Beat) Fields() map[string]any {
	return map[string]any{
		"slug":        b.Slug,
		"name":        b.Name,
		"act":         b.Act,
		"position":    b.Position,
		"description": b.Description,
	}
}

func (b Beat) WithFields(set map[string]any, unset []string) (Node, error) {
	for field, v := range set {
		var err error
		switch field {
		case "slug":
			b.Slug, err = fieldString(KindBeat, field, v)
		case "name":
			b.Name, err = fieldString(KindBeat, field, v)
		case "act":
			b.Act, err = fieldInt(KindBeat, field, v)
		case "position":
			b.Position, err = fieldInt(KindBeat, field, v)
		case "description":
			b.Description, err = fieldString(KindBeat, field, v)
		default:
			err = errUnknownField(KindBeat, field)
		}
		if err != nil {
			return nil, err
		}
	}
	for _, field := range unset {
		switch field {
		case "slug":
			b.Slug = ""
		case "name":
			b.Name = ""
		case "act":
			b.Act = 0
		case "position":
			b.Position = 0
		case "description":
			b.Description = ""
		default:
			return nil, errUnknownField(KindBeat, field)
		}
	}
	return b, nil
}

// StoryBeat is a concrete authored event aligned to a canonical Beat.
type StoryBeat struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Synopsis  string `json:"synopsis,omitempty"`
	BeatID    string `json:"beat_id,omitempty"` // canonical Beat this realizes
	Order     int    `json:"order,omitempty"`
	Intensity int    `json:"intensity,omitempty"` // 1..5
}

func (s StoryBeat) NodeID() string { return s.ID }
func (s StoryBeat) Kind() NodeKind { return KindStoryBeat }

func (s StoryBeat) Fields() map[string]any {
	return map[string]any{
		"title":     s.Title,
		"synopsis":  s.Synopsis,
		"beat_id":   s.BeatID,
		"order":     s.Order,
		"intensity": s.Intensity,
	}
}

func (s StoryBeat) WithFields(set map[string]any, unset []string) (Node, error) {
	for field, v := range set {
		var err error
		switch field {
		case "title":
			s.Title, err = fieldString(KindStoryBeat, field, v)
		case "synopsis":
			s.Synopsis, err = fieldString(KindStoryBeat, field, v)
		case "beat_id":
			s.BeatID, err = fieldString(KindStoryBeat, field, v)
		case "order":
			s.Order, err = fieldInt(KindStoryBeat, field, v)
		case "intensity":
			s.Intensity, err = fieldInt(KindStoryBeat, field, v)
		default:
			err = errUnknownField(KindStoryBeat, field)
		}
		if err != nil {
			return nil, err
		}
	}
	for _, field := range unset {
		switch field {
		case "title":
			s.Title = ""
		case "synopsis":
			s.Synopsis = ""
		case "beat_id":
			s.BeatID = ""
		case "order":
			s.Order = 0
		case "intensity":
			s.Intensity = 0
		default:
			return nil, errUnknownField(KindStoryBeat, field)
		}
	}
	return s, nil
}

// Scene is a concrete dramatized unit satisfying a StoryBeat.
type Scene struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`
	Content string `json:"content,omitempty"`
	Order   int    `json:"order,omitempty"`
	Mood    string `json:"mood,omitempty"`
}

func (s Scene) NodeID() string { return s.ID }
func (s Scene) Kind() NodeKind { return KindScene }

func (s Scene) Fields() map[string]any {
	return map[string]any{
		"title":   s.Title,
		"summary": s.Summary,
		"content": s.Content,
		"order":   s.Order,
		"mood":    s.Mood,
	}
}

func (s Scene) WithFields(set map[string]any, unset []string) (Node, error) {
	for field, v := range set {
		var err error
		switch field {
		case "title":
			s.Title, err = fieldString(KindScene, field, v)
		case "summary":
			s.Summary, err = fieldString(KindScene, field, v)
		case "content":
			s.Content, err = fieldString(KindScene, field, v)
		case "order":
			s.Order, err = fieldInt(KindScene, field, v)
		case "mood":
			s.Mood, err = fieldString(KindScene, field, v)
		default:
			err = errUnknownField(KindScene, field)
		}
		if err != nil {
			return nil, err
		}
	}
	for _, field := range unset {
		switch field {
		case "title":
			s.Title = ""
		case "summary":
			s.Summary = ""
		case "content":
			s.Content = ""
		case "order":
			s.Order = 0
		case "mood":
			s.Mood = ""
		default:
			return nil, errUnknownField(KindScene, field)
		}
	}
	return s, nil
}

// Conflict is a dramatic opposition driving part of the story.
type Conflict struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Nature      string `json:"nature,omitempty"`    // internal, external, interpersonal, societal
	Intensity   int    `json:"intensity,omitempty"` // 1..5
}

func (c Conflict) NodeID() string { return c.ID }
func (c Conflict) Kind() NodeKind { return KindConflict }

func (c Conflict) Fields() map[string]any {
	return map[string]any{
		"name":        c.Name,
		"description": c.Description,
		"nature":      c.Nature,
		"intensity":   c.Intensity,
	}
}

func (c Conflict) WithFields(set map[string]any, unset []string) (Node, error) {
	for field, v := range set {
		var err error
		switch field {
		case "name":
			c.Name, err = fieldString(KindConflict, field, v)
		case "description":
			c.Description, err = fieldString(KindConflict, field, v)
		case "nature":
			c.Nature, err = fieldString(KindConflict, field, v)
		case "intensity":
			c.Intensity, err = fieldInt(KindConflict, field, v)
		default:
			err = errUnknownField(KindConflict, field)
		}
		if err != nil {
			return nil, err
		}
	}
	for _, field := range unset {
		switch field {
		case "name":
			c.Name = ""
		case "description":
			c.Description = ""
		case "nature":
			c.Nature = ""
		case "intensity":
			c.Intensity = 0
		default:
			return nil, errUnknownField(KindConflict, field)
		}
	}
	return c, nil
}

// Theme is an abstract idea the story argues.
type Theme struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Statement string `json:"statement,omitempty"`
}

func (t Theme) NodeID() string { return t.ID }
func (t Theme) Kind() NodeKind { return KindTheme }

func (t Theme) Fields() map[string]any {
	return map[string]any{
		"name":      t.Name,
		"statement": t.Statement,
	}
}

func (t Theme) WithFields(set map[string]any, unset []string) (Node, error) {
	for field, v := range set {
		var err error
		switch field {
		case "name":
			t.Name, err = fieldString(KindTheme, field, v)
		case "statement":
			t.Statement, err = fieldString(KindTheme, field, v)
		default:
			err = errUnknownField(KindTheme, field)
		}
		if err != nil {
			return nil, err
		}
	}
	for _, field := range unset {
		switch field {
		case "name":
			t.Name = ""
		case "statement":
			t.Statement = ""
		default:
			return nil, errUnknownField(KindTheme, field)
		}
	}
	return t, nil
}

// Motif is a recurring concrete image or phrase.
type Motif struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (m Motif) NodeID() string { return m.ID }
func (m Motif) Kind() NodeKind { return KindMotif }

func (m Motif) Fields() map[string]any {
	return map[string]any{
		"name":        m.Name,
		"description": m.Description,
	}
}

func (m Motif) WithFields(set map[string]any, unset []string) (Node, error) {
	for field, v := range set {
		var err error
		switch field {
		case "name":
			m.Name, err = fieldString(KindMotif, field, v)
		case "description":
			m.Description, err = fieldString(KindMotif, field, v)
		default:
			err = errUnknownField(KindMotif, field)
		}
		if err != nil {
			return nil, err
		}
	}
	for _, field := range unset {
		switch field {
		case "name":
			m.Name = ""
		case "description":
			m.Description = ""
		default:
			return nil, errUnknownField(KindMotif, field)
		}
	}
	return m, nil
}

// PlotPoint is a pivotal story event not tied to the canonical template.
type PlotPoint struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Act         int    `json:"act,omitempty"` // 1..5
}

func (p PlotPoint) NodeID() string { return p.ID }
func (p PlotPoint) Kind() NodeKind { return KindPlotPoint }

func (p PlotPoint) Fields() map[string]any {
	return map[string]any{
		"title":       p.Title,
		"description": p.Description,
		"act":         p.Act,
	}
}

func (p PlotPoint) WithFields(set map[string]any, unset []string) (Node, error) {
	for field, v := range set {
		var err error
		switch field {
		case "title":
			p.Title, err = fieldString(KindPlotPoint, field, v)
		case "description":
			p.Description, err = fieldString(KindPlotPoint, field, v)
		case "act":
			p.Act, err = fieldInt(KindPlotPoint, field, v)
		default:
			err = errUnknownField(KindPlotPoint, field)
		}
		if err != nil {
			return nil, err
		}
	}
	for _, field := range unset {
		switch field {
		case "title":
			p.Title = ""
		case "description":
			p.Description = ""
		case "act":
			p.Act = 0
		default:
			return nil, errUnknownField(KindPlotPoint, field)
		}
	}
	return p, nil
}
