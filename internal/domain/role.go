package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// RoleTag is the closed set of roles known to the platform. Stored roles are
// matched by tag, never by display name.
type RoleTag string

const (
	RoleStudent     RoleTag = "student"
	RoleAdvisor     RoleTag = "advisor"
	RoleDirector    RoleTag = "director"
	RoleJuror       RoleTag = "juror"
	RoleCoordinator RoleTag = "coordinator"
	RoleDean        RoleTag = "dean"
	RoleAdmin       RoleTag = "admin"
)

var roleDisplayNames = map[RoleTag]string{
	RoleStudent:     "Estudiante",
	RoleAdvisor:     "Asesor",
	RoleDirector:    "Director",
	RoleJuror:       "Jurado",
	RoleCoordinator: "Coordinador",
	RoleDean:        "Decano",
	RoleAdmin:       "Administrador",
}

// ErrUnknownRole is returned when a role tag is outside the closed set.
var ErrUnknownRole = errors.New("unknown role")

// ParseRoleTag converts free text into a known tag
func ParseRoleTag(raw string) (RoleTag, error) {
	tag := RoleTag(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := roleDisplayNames[tag]; !ok {
		return "", errors.Wrapf(ErrUnknownRole, "%q", raw)
	}
	return tag, nil
}

// DisplayName is the Spanish label shown in the dashboard
func (t RoleTag) DisplayName() string {
	if name, ok := roleDisplayNames[t]; ok {
		return name
	}
	return string(t)
}

// Valid reports whether the tag belongs to the closed set
func (t RoleTag) Valid() bool {
	_, ok := roleDisplayNames[t]
	return ok
}

// Role is a stored role row
type Role struct {
	ID   uuid.UUID `json:"id"`
	Tag  RoleTag   `json:"tag"`
	Name string    `json:"name"`
}

// RoleTable resolves role tags to stored identifiers. It is built once at
// startup and read-only afterwards.
type RoleTable struct {
	byTag map[RoleTag]Role
}

// NewRoleTable indexes stored roles by tag, ignoring tags outside the closed set.
func NewRoleTable(roles []Role) RoleTable {
	table := RoleTable{byTag: make(map[RoleTag]Role, len(roles))}
	for _, role := range roles {
		if !role.Tag.Valid() {
			continue
		}
		table.byTag[role.Tag] = role
	}
	return table
}

// Lookup returns the stored role for a tag
func (t RoleTable) Lookup(tag RoleTag) (Role, bool) {
	role, ok := t.byTag[tag]
	return role, ok
}

// Require fails listing every missing tag when any of the given roles is absent
func (t RoleTable) Require(tags ...RoleTag) error {
	var missing []string
	for _, tag := range tags {
		if _, ok := t.byTag[tag]; !ok {
			missing = append(missing, string(tag))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("missing base roles: %s", strings.Join(missing, ", "))
}

// Len reports the number of resolved roles
func (t RoleTable) Len() int {
	return len(t.byTag)
}
