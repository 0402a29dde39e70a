package entity

// Contact destinatario de correos de actas (coordinadores de sede, proveedores).
type Contact struct {
	ID     string
	Name   string
	Email  string
	Active bool
}
