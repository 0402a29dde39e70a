package ports

import "context"

// MailMessage correo con el acta adjunta.
type MailMessage struct {
	To             []string
	Subject        string
	HTML           string
	Attachment     []byte
	AttachmentName string
}

// Mailer puerto de salida para el envío de correos.
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}

// ContactDirectory resuelve identificadores de contacto a correos.
type ContactDirectory interface {
	Emails(ctx context.Context, contactIDs []string) ([]string, error)
}

// UserDirectory resuelve identificadores de usuario a nombres visibles.
// Los usuarios inexistentes no aparecen en el mapa.
type UserDirectory interface {
	Names(ctx context.Context, userIDs []string) (map[string]string, error)
}

// TaskQueue cola de despacho de tareas posteriores (Redis). La fuente de verdad es
// la tabla de tareas; la cola solo acelera la entrega.
type TaskQueue interface {
	Enqueue(ctx context.Context, taskID string) error
	DeadLetter(ctx context.Context, taskID, reason string) error
}
