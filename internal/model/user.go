package model

import "fmt"

// Role determines how much of the merged task collection a viewer sees.
type Role string

const (
	RoleMember     Role = "member"
	RoleTeamLeader Role = "team_leader"
	RoleDirector   Role = "director"
)

var validRoles = map[Role]bool{
	RoleMember:     true,
	RoleTeamLeader: true,
	RoleDirector:   true,
}

// User is the organizational record behind a viewer context: who they are,
// which team they belong to, and how wide their visibility scope is.
type User struct {
	ID         string `yaml:"id" json:"id"`
	Name       string `yaml:"name" json:"name"`
	Role       Role   `yaml:"role" json:"role"`
	TeamID     string `yaml:"team_id" json:"team_id"`
	Department string `yaml:"department" json:"department"`
	Region     string `yaml:"region" json:"region"`
}

func (u User) Validate() error {
	if u.ID == "" {
		return fmt.Errorf("user missing id")
	}
	if u.Role != "" && !validRoles[u.Role] {
		return fmt.Errorf("user %s unknown role %q", u.ID, u.Role)
	}
	return nil
}
