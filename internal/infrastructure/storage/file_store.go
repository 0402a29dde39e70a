// Package storage guarda los PDF de las actas en disco local.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jhoicas/Trazabilidad-api/internal/application/ports"
	"github.com/jhoicas/Trazabilidad-api/internal/domain"
)

var _ ports.ArtifactStore = (*FileStore)(nil)

// FileStore implementa ports.ArtifactStore sobre un directorio. La referencia es el nombre del archivo.
type FileStore struct {
	dir     string
	baseURL string
}

// NewFileStore crea el directorio si no existe. publicBaseURL puede ser vacío.
func NewFileStore(dir, publicBaseURL string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage: directorio vacío")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: crear directorio: %w", err)
	}
	return &FileStore{dir: dir, baseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

// Put escribe en un temporal y renombra, así un lector nunca ve un PDF a medias.
func (s *FileStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ref, err := cleanRef(name)
	if err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("storage: temporal: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("storage: escribir: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("storage: cerrar: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, ref)); err != nil {
		return "", fmt.Errorf("storage: renombrar: %w", err)
	}
	return ref, nil
}

// Get lee el archivo; ErrNotFound si no existe.
func (s *FileStore) Get(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := cleanRef(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, clean))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: artefacto %s", domain.ErrNotFound, ref)
		}
		return nil, fmt.Errorf("storage: leer: %w", err)
	}
	return data, nil
}

// URL de descarga pública; vacío si no se configuró base pública.
func (s *FileStore) URL(ref string) string {
	if s.baseURL == "" || ref == "" {
		return ""
	}
	return s.baseURL + "/" + ref
}

// cleanRef rechaza rutas: la referencia es un nombre de archivo plano.
func cleanRef(name string) (string, error) {
	base := filepath.Base(name)
	if name == "" || base != name || base == "." || base == ".." || strings.HasPrefix(base, ".") {
		return "", fmt.Errorf("%w: nombre de archivo inválido %q", domain.ErrInvalidInput, name)
	}
	return base, nil
}
