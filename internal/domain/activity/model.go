package activity

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
)

// Domain errors
var (
	ErrEmptyName           = errors.New("activity name cannot be empty")
	ErrNegativeCapacity    = errors.New("activity max_participants cannot be negative")
	ErrCollectionNotObject = errors.New("activity collection must be a JSON object")
)

// Activity is a signup-able event with a bounded capacity and an ordered roster.
// Capacity is enforced by the backend; the client only reports it.
type Activity struct {
	Name            string   `json:"-"`
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// SpotsLeft returns MaxParticipants minus the participant count.
// The result is not clamped: an over-subscribed activity reports a negative value.
func (a Activity) SpotsLeft() int {
	return a.MaxParticipants - len(a.Participants)
}

// HasParticipants reports whether anyone is registered.
func (a Activity) HasParticipants() bool {
	return len(a.Participants) > 0
}

// Validate checks the fields the backend is expected to supply.
// PRE: Activity struct is populated
// POST: Returns nil if valid, error otherwise
func (a Activity) Validate() error {
	if a.Name == "" {
		return ErrEmptyName
	}
	if a.MaxParticipants < 0 {
		return ErrNegativeCapacity
	}
	return nil
}

// Collection is the full activity list in the order the backend returned it.
// It is replaced wholesale on every fetch.
type Collection struct {
	Activities []Activity
}

// Len returns the number of activities.
func (c Collection) Len() int {
	return len(c.Activities)
}

// Names returns activity names in collection order.
func (c Collection) Names() []string {
	names := make([]string, 0, len(c.Activities))
	for _, a := range c.Activities {
		names = append(names, a.Name)
	}
	return names
}

// Find returns the activity with the given name.
func (c Collection) Find(name string) (Activity, bool) {
	for _, a := range c.Activities {
		if a.Name == name {
			return a, true
		}
	}
	return Activity{}, false
}

// DecodeCollection parses a name -> activity JSON object, keeping key order.
// PRE: r yields a single JSON object
// POST: Returns activities in document order, or an error for malformed input.
// A repeated name keeps its first position and its last value, as a JSON map would.
func DecodeCollection(r io.Reader) (Collection, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return Collection{}, fmt.Errorf("read collection: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return Collection{}, ErrCollectionNotObject
	}

	var out Collection
	index := map[string]int{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Collection{}, fmt.Errorf("read activity name: %w", err)
		}
		name, ok := keyTok.(string)
		if !ok {
			return Collection{}, fmt.Errorf("activity name is not a string: %v", keyTok)
		}
		var a Activity
		if err := dec.Decode(&a); err != nil {
			return Collection{}, fmt.Errorf("decode activity %q: %w", name, err)
		}
		a.Name = name
		if a.Participants == nil {
			a.Participants = []string{}
		}
		if i, dup := index[name]; dup {
			out.Activities[i] = a
			continue
		}
		index[name] = len(out.Activities)
		out.Activities = append(out.Activities, a)
	}

	if _, err := dec.Token(); err != nil {
		return Collection{}, fmt.Errorf("close collection: %w", err)
	}
	return out, nil
}

// DecodeCollectionBytes is DecodeCollection over an in-memory body.
func DecodeCollectionBytes(b []byte) (Collection, error) {
	return DecodeCollection(bytes.NewReader(b))
}

// EncodeCollection writes the collection as a name -> activity JSON object in order.
func EncodeCollection(w io.Writer, c Collection) error {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range c.Activities {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(a.Name)
		if err != nil {
			return err
		}
		participants := a.Participants
		if participants == nil {
			participants = []string{}
		}
		body, err := json.Marshal(struct {
			Description     string   `json:"description"`
			Schedule        string   `json:"schedule"`
			MaxParticipants int      `json:"max_participants"`
			Participants    []string `json:"participants"`
		}{a.Description, a.Schedule, a.MaxParticipants, participants})
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteByte('}')
	_, err := w.Write(buf.Bytes())
	return err
}
