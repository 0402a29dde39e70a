// Package cache guarda en memoria los nombres de usuario y correos de contactos
// que se consultan al armar actas y reportes.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/jhoicas/Trazabilidad-api/internal/application/ports"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
	"github.com/jhoicas/Trazabilidad-api/internal/infrastructure/metrics"
)

var (
	_ ports.UserDirectory    = (*UserDirectory)(nil)
	_ ports.ContactDirectory = (*ContactDirectory)(nil)
)

// UserDirectory resuelve nombres de usuario con caché LRU+TTL. Los usuarios inexistentes
// no se guardan: pueden crearse después en el servicio de identidad.
type UserDirectory struct {
	repo  repository.UserRepository
	cache *expirable.LRU[string, string]
}

// NewUserDirectory construye el directorio. size <= 0 desactiva el tope de entradas.
func NewUserDirectory(repo repository.UserRepository, size int, ttl time.Duration) *UserDirectory {
	return &UserDirectory{repo: repo, cache: expirable.NewLRU[string, string](size, nil, ttl)}
}

// Names devuelve id → nombre para los usuarios existentes.
func (d *UserDirectory) Names(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	var missing []string
	for _, id := range dedupe(ids) {
		if name, ok := d.cache.Get(id); ok {
			metrics.CacheLookups.WithLabelValues("users", "hit").Inc()
			out[id] = name
			continue
		}
		metrics.CacheLookups.WithLabelValues("users", "miss").Inc()
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}
	users, err := d.repo.GetByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		d.cache.Add(u.ID, u.Name)
		out[u.ID] = u.Name
	}
	return out, nil
}

// ContactDirectory resuelve correos de contactos activos con caché.
type ContactDirectory struct {
	repo  repository.ContactRepository
	cache *expirable.LRU[string, string]
}

// NewContactDirectory construye el directorio de contactos.
func NewContactDirectory(repo repository.ContactRepository, size int, ttl time.Duration) *ContactDirectory {
	return &ContactDirectory{repo: repo, cache: expirable.NewLRU[string, string](size, nil, ttl)}
}

// Emails devuelve los correos de los contactos activos, en el orden pedido y sin repetir.
func (d *ContactDirectory) Emails(ctx context.Context, ids []string) ([]string, error) {
	ids = dedupe(ids)
	found := make(map[string]string, len(ids))
	var missing []string
	for _, id := range ids {
		if addr, ok := d.cache.Get(id); ok {
			metrics.CacheLookups.WithLabelValues("contacts", "hit").Inc()
			found[id] = addr
			continue
		}
		metrics.CacheLookups.WithLabelValues("contacts", "miss").Inc()
		missing = append(missing, id)
	}
	if len(missing) > 0 {
		contacts, err := d.repo.GetByIDs(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, c := range contacts {
			if !c.Active || c.Email == "" {
				continue
			}
			d.cache.Add(c.ID, c.Email)
			found[c.ID] = c.Email
		}
	}

	seen := make(map[string]bool, len(found))
	emails := make([]string, 0, len(found))
	for _, id := range ids {
		addr, ok := found[id]
		if !ok || seen[addr] {
			continue
		}
		seen[addr] = true
		emails = append(emails, addr)
	}
	return emails, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
