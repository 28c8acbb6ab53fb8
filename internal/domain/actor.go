package domain

import "strings"

// ActorKind discriminates the well-known step actors from custom ones.
type ActorKind int

const (
	ActorUser ActorKind = iota
	ActorSystem
	ActorServer
	ActorExternalAPI
	ActorDatabase
	ActorCustom
)

// Actor identifies who performs a scenario step. Well-known actors carry
// only a kind; custom actors keep the user-supplied name.
type Actor struct {
	Kind   ActorKind
	Custom string
}

// ParseActor is case-insensitive and accepts the documented aliases
// (api, external_api, db). Anything unrecognized becomes a custom actor
// with the original spelling preserved.
func ParseActor(s string) Actor {
	switch strings.ToLower(s) {
	case "user":
		return Actor{Kind: ActorUser}
	case "system":
		return Actor{Kind: ActorSystem}
	case "server":
		return Actor{Kind: ActorServer}
	case "externalapi", "external_api", "api":
		return Actor{Kind: ActorExternalAPI}
	case "database", "db":
		return Actor{Kind: ActorDatabase}
	}
	return Actor{Kind: ActorCustom, Custom: s}
}

func (a Actor) Name() string {
	switch a.Kind {
	case ActorUser:
		return "User"
	case ActorSystem:
		return "System"
	case ActorServer:
		return "Server"
	case ActorExternalAPI:
		return "ExternalAPI"
	case ActorDatabase:
		return "Database"
	}
	return a.Custom
}

// IsHuman reports whether the actor represents a person. Custom actors
// count as human; everything well-known except User is machinery.
func (a Actor) IsHuman() bool {
	return a.Kind == ActorUser || a.Kind == ActorCustom
}

func (a Actor) IsSystem() bool {
	switch a.Kind {
	case ActorSystem, ActorServer, ActorExternalAPI, ActorDatabase:
		return true
	}
	return false
}

func (a Actor) String() string { return a.Name() }

// MarshalText serializes the actor as its bare name so TOML documents
// and render contexts see a plain string.
func (a Actor) MarshalText() ([]byte, error) {
	return []byte(a.Name()), nil
}

func (a *Actor) UnmarshalText(text []byte) error {
	*a = ParseActor(string(text))
	return nil
}
