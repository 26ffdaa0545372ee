package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// MetaKind tags the variant held by a [MetaValue].
type MetaKind int

const (
	MetaKindBool MetaKind = iota + 1
	MetaKindString
	MetaKindFloat
	MetaKindInt
)

// MetaValue is provider-specific metadata attached to an entity: exactly one of bool, string, float or int.
type MetaValue struct {
	kind MetaKind
	b    bool
	s    string
	f    float64
	i    int64
}

func MetaBool(v bool) MetaValue     { return MetaValue{kind: MetaKindBool, b: v} }
func MetaString(v string) MetaValue { return MetaValue{kind: MetaKindString, s: v} }
func MetaFloat(v float64) MetaValue { return MetaValue{kind: MetaKindFloat, f: v} }
func MetaInt(v int64) MetaValue     { return MetaValue{kind: MetaKindInt, i: v} }

// Kind returns the variant tag, 0 for the zero value.
func (m MetaValue) Kind() MetaKind { return m.kind }

// Bool returns the bool variant.
func (m MetaValue) Bool() (bool, bool) { return m.b, m.kind == MetaKindBool }

func (m MetaValue) String() string {
	switch m.kind {
	case MetaKindBool:
		return strconv.FormatBool(m.b)
	case MetaKindString:
		return m.s
	case MetaKindFloat:
		return strconv.FormatFloat(m.f, 'g', -1, 64)
	case MetaKindInt:
		return strconv.FormatInt(m.i, 10)
	default:
		return ""
	}
}

// Text returns the string variant.
func (m MetaValue) Text() (string, bool) { return m.s, m.kind == MetaKindString }

// Float returns the float variant.
func (m MetaValue) Float() (float64, bool) { return m.f, m.kind == MetaKindFloat }

// Int returns the int variant.
func (m MetaValue) Int() (int64, bool) { return m.i, m.kind == MetaKindInt }

type metaJSON struct {
	Bool   *bool    `json:"bool,omitempty"`
	String *string  `json:"string,omitempty"`
	Float  *float64 `json:"float,omitempty"`
	Int    *int64   `json:"int,omitempty"`
}

// MarshalJSON encodes the value as a single-key object such as {"int":3}.
func (m MetaValue) MarshalJSON() ([]byte, error) {
	var out metaJSON
	switch m.kind {
	case MetaKindBool:
		out.Bool = &m.b
	case MetaKindString:
		out.String = &m.s
	case MetaKindFloat:
		out.Float = &m.f
	case MetaKindInt:
		out.Int = &m.i
	default:
		return []byte("null"), nil
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the single-key object form.
func (m *MetaValue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = MetaValue{}
		return nil
	}
	var in metaJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch {
	case in.Bool != nil:
		*m = MetaBool(*in.Bool)
	case in.String != nil:
		*m = MetaString(*in.String)
	case in.Float != nil:
		*m = MetaFloat(*in.Float)
	case in.Int != nil:
		*m = MetaInt(*in.Int)
	default:
		return fmt.Errorf("meta value %s has no variant", string(data))
	}
	return nil
}

// Rating is a user rating: none, like, dislike or 0-5 stars.
type Rating struct {
	Kind  RatingKind `json:"kind,omitempty"`
	Stars uint8      `json:"stars,omitempty"`
}

// RatingKind tags a [Rating].
type RatingKind string

const (
	RatingNone    RatingKind = ""
	RatingLike    RatingKind = "like"
	RatingDislike RatingKind = "dislike"
	RatingStars   RatingKind = "stars"
)

// Stars returns a star rating clamped to 0..5.
func Stars(n int) Rating {
	if n < 0 {
		n = 0
	}
	if n > 5 {
		n = 5
	}
	return Rating{Kind: RatingStars, Stars: uint8(n)}
}

// PlayerState is the transport state of a player.
type PlayerState int

const (
	StateStop PlayerState = iota
	StatePlay
	StatePause
)

func (s PlayerState) String() string {
	switch s {
	case StatePlay:
		return "play"
	case StatePause:
		return "pause"
	default:
		return "stop"
	}
}

// QueuedTrack is one entry of a player queue.
type QueuedTrack struct {
	ID      string `json:"id"`
	Track   Track  `json:"track"`
	Playing bool   `json:"playing"`
}
