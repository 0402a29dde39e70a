package entity

import "time"

// Roles válidos para User.
const (
	RoleAdmin    = "admin"
	RoleTecnico  = "tecnico"
	RoleConsulta = "consulta"
)

// UnknownUserName se muestra cuando el responsable de un movimiento ya no existe en el directorio.
const UnknownUserName = "Usuario no disponible"

// User representa un usuario del directorio (la autenticación vive en otro servicio).
type User struct {
	ID        string
	Email     string
	Name      string
	Role      string // admin, tecnico, consulta
	Status    string // active, inactive
	CreatedAt time.Time
	UpdatedAt time.Time
}
