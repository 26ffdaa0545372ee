package models

import (
	"fmt"
	"strconv"
)

// Kind names the entity families stored in the catalog.
type Kind string

const (
	KindTrack    Kind = "track"
	KindAlbum    Kind = "album"
	KindArtist   Kind = "artist"
	KindPlaylist Kind = "playlist"
)

// Kinds lists every entity kind in a stable order.
var Kinds = []Kind{KindTrack, KindAlbum, KindArtist, KindPlaylist}

// ParseKind accepts singular or plural kind names ("track", "tracks").
func ParseKind(s string) (Kind, error) {
	switch s {
	case "track", "tracks":
		return KindTrack, nil
	case "album", "albums":
		return KindAlbum, nil
	case "artist", "artists":
		return KindArtist, nil
	case "playlist", "playlists":
		return KindPlaylist, nil
	default:
		return "", fmt.Errorf("unknown entity kind %q", s)
	}
}

// Identifier points at a catalog entity either by its numeric id or by its uri.
type Identifier struct {
	id  int64
	uri string
}

// ByID returns an Identifier for a persisted entity.
func ByID(id int64) Identifier { return Identifier{id: id} }

// ByURI returns an Identifier for an entity that may not be persisted yet.
func ByURI(uri string) Identifier { return Identifier{uri: uri} }

// IsID reports whether the identifier holds a numeric id.
func (i Identifier) IsID() bool { return i.id != 0 }

// ID returns the numeric id, or 0 for uri identifiers.
func (i Identifier) ID() int64 { return i.id }

// URI returns the uri, or "" for numeric identifiers.
func (i Identifier) URI() string { return i.uri }

func (i Identifier) String() string {
	if i.IsID() {
		return "id:" + strconv.FormatInt(i.id, 10)
	}
	return "uri:" + i.uri
}

// Identifiable is implemented by everything the persistence layer can address.
type Identifiable interface {
	// Identifier prefers the numeric id once assigned and falls back to the uri.
	Identifier() Identifier
}

// Entity is the uniform capability of catalog entities.
type Entity interface {
	Identifiable
	Kind() Kind
	Key() string    // Key returns the uri
	Source() string // Source returns the provider tag
}

func identifierOf(id int64, uri string) Identifier {
	if id != 0 {
		return ByID(id)
	}
	return ByURI(uri)
}

// SameEntity reports whether a and b describe the same catalog entry. Equality is by kind and uri, never by id.
func SameEntity(a, b Entity) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Kind() == b.Kind() && a.Key() == b.Key()
}

// WithID returns a copy of e carrying the given numeric id.
func WithID(e Entity, id int64) Entity {
	switch v := e.(type) {
	case Track:
		v.ID = id
		return v
	case *Track:
		c := *v
		c.ID = id
		return c
	case Album:
		v.ID = id
		return v
	case *Album:
		c := *v
		c.ID = id
		return c
	case Artist:
		v.ID = id
		return v
	case *Artist:
		c := *v
		c.ID = id
		return c
	case Playlist:
		v.ID = id
		return v
	case *Playlist:
		c := *v
		c.ID = id
		return c
	default:
		return e
	}
}

// Deref turns pointer entities into values so the catalog only stores values.
func Deref(e Entity) Entity {
	switch v := e.(type) {
	case *Track:
		return *v
	case *Album:
		return *v
	case *Artist:
		return *v
	case *Playlist:
		return *v
	default:
		return e
	}
}

// PathOf returns the provider folder an entity was observed in.
func PathOf(e Entity) string {
	switch v := Deref(e).(type) {
	case Track:
		return v.Path
	case Album:
		return v.Path
	case Artist:
		return v.Path
	case Playlist:
		return v.Path
	default:
		return ""
	}
}

// TitleOf returns the display title (or name) of an entity.
func TitleOf(e Entity) string {
	switch v := Deref(e).(type) {
	case Track:
		return v.Title
	case Album:
		return v.Title
	case Artist:
		return v.Name
	case Playlist:
		return v.Title
	default:
		return ""
	}
}
