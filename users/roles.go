package users

import "strings"

// Role literals as stored in inv.roles.rol_nombre. The table carries a CHECK
// over exactly these three values.
const (
	RoleAdmin       = "ADMIN"
	RoleUsuario     = "USUARIO"
	RolePracticante = "PRACTICANTE"
)

// NormalizeRole maps role spellings from the UI and legacy data onto the
// stored literals. Unknown spellings pass through upper-cased so they fail the
// database CHECK instead of silently becoming a valid role; an empty input
// defaults to USUARIO.
func NormalizeRole(name string) string {
	n := strings.ToUpper(strings.TrimSpace(name))

	switch n {
	case RoleUsuario, "USUARIOS", "USER":
		return RoleUsuario
	case RolePracticante, "PRACTICANTES":
		return RolePracticante
	case RoleAdmin, "ADMINISTRADOR":
		return RoleAdmin
	case "":
		return RoleUsuario
	default:
		return n
	}
}

// IsKnownRole reports whether the given (already normalized) role is one of
// the stored literals.
func IsKnownRole(role string) bool {
	return role == RoleAdmin || role == RoleUsuario || role == RolePracticante
}
