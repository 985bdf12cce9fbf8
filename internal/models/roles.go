// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package models

// The closed set of subteam roles. Each role owns at most one form.
// "chasis" is the team's historical spelling and is load-bearing in
// stored data; do not correct it.
const (
	RoleDAQ        = "DAQ"
	RoleChief      = "Chief"
	RoleSuspension = "suspension"
	RoleElectronic = "electronic"
	RoleDrivetrain = "drivetrain"
	RoleDriver     = "driver"
	RoleChasis     = "chasis"
	RoleAero       = "aero"
	RoleErgo       = "ergo"
	RolePowertrain = "powertrain"
)

// AllRoles returns the closed role set in display order.
func AllRoles() []string {
	return []string{
		RoleDAQ,
		RoleChief,
		RoleSuspension,
		RoleElectronic,
		RoleDrivetrain,
		RoleDriver,
		RoleChasis,
		RoleAero,
		RoleErgo,
		RolePowertrain,
	}
}

// IsValidRole reports whether the string is a member of the closed role set.
func IsValidRole(role string) bool {
	for _, r := range AllRoles() {
		if r == role {
			return true
		}
	}
	return false
}
