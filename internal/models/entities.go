package models

import (
	"fmt"
	"strings"
	"time"
)

// Track represents a playable recording reported by a provider.
type Track struct {
	ID         int64                `json:"id,omitempty"`
	URI        string               `json:"uri"`
	Provider   string               `json:"provider"`
	Path       string               `json:"path,omitempty"`
	Title      string               `json:"title"`
	ArtistURI  string               `json:"artist_uri,omitempty"`
	ArtistName string               `json:"artist_name,omitempty"`
	AlbumURI   string               `json:"album_uri,omitempty"`
	AlbumTitle string               `json:"album_title,omitempty"`
	Duration   time.Duration        `json:"duration,omitempty"`
	Image      string               `json:"image,omitempty"`
	Rating     Rating               `json:"rating,omitempty"`
	Meta       map[string]MetaValue `json:"meta,omitempty"`
}

func (t Track) Kind() Kind             { return KindTrack }
func (t Track) Key() string            { return t.URI }
func (t Track) Source() string         { return t.Provider }
func (t Track) Identifier() Identifier { return identifierOf(t.ID, t.URI) }

// Validate checks the fields every track must carry.
func (t Track) Validate() error {
	return validateEntity(KindTrack, t.URI, t.Provider, t.Title)
}

// Album represents a release grouping tracks.
type Album struct {
	ID         int64                `json:"id,omitempty"`
	URI        string               `json:"uri"`
	Provider   string               `json:"provider"`
	Path       string               `json:"path,omitempty"`
	Title      string               `json:"title"`
	ArtistURI  string               `json:"artist_uri,omitempty"`
	ArtistName string               `json:"artist_name,omitempty"`
	Image      string               `json:"image,omitempty"`
	Rating     Rating               `json:"rating,omitempty"`
	Meta       map[string]MetaValue `json:"meta,omitempty"`
}

func (a Album) Kind() Kind             { return KindAlbum }
func (a Album) Key() string            { return a.URI }
func (a Album) Source() string         { return a.Provider }
func (a Album) Identifier() Identifier { return identifierOf(a.ID, a.URI) }

// Validate checks the fields every album must carry.
func (a Album) Validate() error {
	return validateEntity(KindAlbum, a.URI, a.Provider, a.Title)
}

// Artist represents a performer.
type Artist struct {
	ID       int64                `json:"id,omitempty"`
	URI      string               `json:"uri"`
	Provider string               `json:"provider"`
	Path     string               `json:"path,omitempty"`
	Name     string               `json:"name"`
	Image    string               `json:"image,omitempty"`
	Rating   Rating               `json:"rating,omitempty"`
	Meta     map[string]MetaValue `json:"meta,omitempty"`
}

func (a Artist) Kind() Kind             { return KindArtist }
func (a Artist) Key() string            { return a.URI }
func (a Artist) Source() string         { return a.Provider }
func (a Artist) Identifier() Identifier { return identifierOf(a.ID, a.URI) }

// Validate checks the fields every artist must carry.
func (a Artist) Validate() error {
	return validateEntity(KindArtist, a.URI, a.Provider, a.Name)
}

// Playlist is an ordered list of embedded track copies.
type Playlist struct {
	ID       int64                `json:"id,omitempty"`
	URI      string               `json:"uri"`
	Provider string               `json:"provider"`
	Path     string               `json:"path,omitempty"`
	Title    string               `json:"title"`
	Tracks   []Track              `json:"tracks,omitempty"`
	Image    string               `json:"image,omitempty"`
	Meta     map[string]MetaValue `json:"meta,omitempty"`
}

func (p Playlist) Kind() Kind             { return KindPlaylist }
func (p Playlist) Key() string            { return p.URI }
func (p Playlist) Source() string         { return p.Provider }
func (p Playlist) Identifier() Identifier { return identifierOf(p.ID, p.URI) }

// Validate checks the fields every playlist must carry.
func (p Playlist) Validate() error {
	return validateEntity(KindPlaylist, p.URI, p.Provider, p.Title)
}

// Validate dispatches to the kind-specific validation of e.
func Validate(e Entity) error {
	switch v := Deref(e).(type) {
	case Track:
		return v.Validate()
	case Album:
		return v.Validate()
	case Artist:
		return v.Validate()
	case Playlist:
		return v.Validate()
	default:
		return fmt.Errorf("unsupported entity type %T", e)
	}
}

func validateEntity(kind Kind, uri, provider, title string) error {
	if strings.TrimSpace(uri) == "" {
		return fmt.Errorf("%s uri is required", kind)
	}
	if strings.TrimSpace(provider) == "" {
		return fmt.Errorf("%s %s: provider is required", kind, uri)
	}
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%s %s: title is required", kind, uri)
	}
	return nil
}

// ProviderFolder is one level of a provider's browsable hierarchy.
type ProviderFolder struct {
	Folders []string `json:"folders"`
	Items   []Entity `json:"-"`
}

