// Package models defines the catalog entities shared by every medley component.
//
// The package contains three groups of types:
//
// 1. Catalog entities, all keyed by a provider-scoped uri such as "local:track:abc":
//   - [Track] : a playable recording with owned album/artist references
//   - [Album] : a release with an owned artist reference
//   - [Artist] : a performer
//   - [Playlist] : an ordered list of embedded [Track] copies
//
// 2. Identity helpers:
//   - [Identifier] : either the numeric id assigned on persistence or the uri before that
//   - [Entity] : the uniform capability every catalog entity implements
//
// 3. Supporting values:
//   - [MetaValue] : provider-specific metadata (bool, string, float or int)
//   - [Rating], [ProviderFolder], [PlayerState], [QueuedTrack]
//
// Relationships are expressed as uri fields plus embedded display copies, never as pointers
// between entities, so an entity graph can never form a cycle.
package models
