// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

package story

// Character is a person (or person-like agent) in the story.
type Character struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Role        string `json:"role,omitempty"` // protagonist, antagonist, supporting
	Goal        string `json:"goal,omitempty"`
	Flaw        string `json:"flaw,omitempty"`
}

func (c Character) NodeID() string { return c.ID }
func (c Character) Kind() NodeKind { return KindCharacter }

func (c Character) Fields() map[string]any {
	return map[string]any{
		"name":        c.Name,
		"description": c.Description,
		"role":        c.Role,
		"goal":        c.Goal,
		"flaw":        c.Flaw,
	}
}

func (c Character) WithFields(set map[string]any, unset []string) (Node, error) {
	for field, v := range set {
		var err error
		switch field {
		case "name":
			c.Name, err = fieldString(KindCharacter, field, v)
		case "description":
			c.Description, err = fieldString(KindCharacter, field, v)
		case "role":
			c.Role, err = fieldString(KindCharacter, field, v)
		case "goal":
			c.Goal, err = fieldString(KindCharacter, field, v)
		case "flaw":
			c.Flaw, err = fieldString(KindCharacter, field, v)
		default:
			err = errUnknownField(KindCharacter, field)
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
		case "role":
			c.Role = ""
		case "goal":
			c.Goal = ""
		case "flaw":
			c.Flaw = ""
		default:
			return nil, errUnknownField(KindCharacter, field)
		}
	}
	return c, nil
}

// CharacterArc tracks how one character changes across the story.
type CharacterArc struct {
	ID          string `json:"id"`
	CharacterID string `json:"character_id"`
	ArcType     string `json:"arc_type,omitempty"` // positive, negative, flat
	Summary     string `json:"summary,omitempty"`
}

func (a CharacterArc) NodeID() string { return a.ID }
func (a CharacterArc) Kind() NodeKind { return KindCharacterArc }

func (a CharacterArc) Fields() map[string]any {
	return map[string]any{
		"character_id": a.CharacterID,
		"arc_type":     a.ArcType,
		"summary":      a.Summary,
	}
}

func (a CharacterArc) WithFields(set map[string]any, unset []string) (Node, error) {
	for field, v := range set {
		var err error
		switch field {
		case "character_id":
			a.CharacterID, err = fieldString(KindCharacterArc, field, v)
		case "arc_type":
			a.ArcType, err = fieldString(KindCharacterArc, field, v)
		case "summary":
			a.Summary, err = fieldString(KindCharacterArc, field, v)
		default:
			err = errUnknownField(KindCharacterArc, field)
		}
		if err != nil {
			return nil, err
		}
	}
	for _, field := range unset {
		switch field {
		case "character_id":
			a.CharacterID = ""
		case "arc_type":
			a.ArcType = ""
		case "summary":
			a.Summary = ""
		default:
			return nil, errUnknownField(KindCharacterArc, field)
		}
	}
	return a, nil
}

// Location is a place scenes can be set in.
type Location struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (l Location) NodeID() string { return l.ID }
func (l Location) Kind() NodeKind { return KindLocation }

func (l Location) Fields() map[string]any {
	return map[string]any{
		"name":        l.Name,
		"description": l.Description,
	}
}

func (l Location) WithFields(set map[string]any, unset []string) (Node, error) {
	for field, v := range set {
		var err error
		switch field {
		case "name":
			l.Name, err = fieldString(KindLocation, field, v)
		case "description":
			l.Description, err = fieldString(KindLocation, field, v)
		default:
			err = errUnknownField(KindLocation, field)
		}
		if err != nil {
			return nil, err
		}
	}
	for _, field := range unset {
		switch field {
		case "name":
			l.Name = ""
		case "description":
			l.Description = ""
		default:
			return nil, errUnknownField(KindLocation, field)
		}
	}
	return l, nil
}

// Object is a significant physical item (a prop, a macguffin).
type Object struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Significance string `json:"significance,omitempty"`
}

func (o Object) NodeID() string { return o.ID }
func (o Object) Kind() NodeKind { return KindObject }

func (o Object) Fields() map[string]any {
	return map[string]any{
		"name":         o.Name,
		"description":  o.Description,
		"significance": o.Significance,
	}
}

func (o Object) WithFields(set map[string]any, unset []string) (Node, error) {
	for field, v := range set {
		var err error
		switch field {
		case "name":
			o.Name, err = fieldString(KindObject, field, v)
		case "description":
			o.Description, err = fieldString(KindObject, field, v)
		case "significance":
			o.Significance, err = fieldString(KindObject, field, v)
		default:
			err = errUnknownField(KindObject, field)
		}
		if err != nil {
			return nil, err
		}
	}
	for _, field := range unset {
		switch field {
		case "name":
			o.Name = ""
		case "description":
			o.Description = ""
		case "significance":
			o.Significance = ""
		default:
			return nil, errUnknownField(KindObject, field)
		}
	}
	return o, nil
}
