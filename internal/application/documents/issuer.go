package documents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jhoicas/Trazabilidad-api/internal/application/dto"
	"github.com/jhoicas/Trazabilidad-api/internal/application/ports"
	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/acta"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/inventory"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

// Issuer emite actas: reserva el consecutivo, arma el contenido y, después del commit,
// genera el PDF y lo guarda en el almacenamiento de artefactos.
type Issuer struct {
	docs          repository.DocumentRepository
	renderer      ports.ActaRenderer
	store         ports.ArtifactStore
	users         ports.UserDirectory
	renderTimeout time.Duration
	now           func() time.Time
}

// NewIssuer construye el emisor. docs es el repositorio fuera de transacción
// (actualización del estado de render y consultas).
func NewIssuer(
	docs repository.DocumentRepository,
	renderer ports.ActaRenderer,
	store ports.ArtifactStore,
	users ports.UserDirectory,
	renderTimeout time.Duration,
) *Issuer {
	if renderTimeout <= 0 {
		renderTimeout = 15 * time.Second
	}
	return &Issuer{
		docs:          docs,
		renderer:      renderer,
		store:         store,
		users:         users,
		renderTimeout: renderTimeout,
		now:           time.Now,
	}
}

// IssueInput contenido de un acta nueva.
type IssueInput struct {
	Kind              entity.DocumentKind
	ResponsibleUserID string
	Fields            []entity.ActaField
	Items             []entity.ActaItem
	Signatories       []entity.Signatory
	Observations      string
	Metadata          map[string]string
}

// Artifact PDF de un acta listo para entregar.
type Artifact struct {
	Data     []byte
	Ref      string
	URL      string
	Filename string
}

// Issue reserva el consecutivo del tipo y guarda el acta con estado de render PENDING.
// docs debe estar ligado a la transacción del lote: si el lote hace rollback,
// el consecutivo y el acta desaparecen con él.
func (i *Issuer) Issue(ctx context.Context, docs repository.DocumentRepository, in IssueInput) (*entity.Document, error) {
	if !acta.Issuable(in.Kind) {
		return nil, fmt.Errorf("%w: tipo de acta %q", domain.ErrInvalidInput, in.Kind)
	}
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: el acta debe tener al menos un equipo", domain.ErrInvalidInput)
	}

	seq, err := docs.NextSequence(ctx, in.Kind)
	if err != nil {
		return nil, fmt.Errorf("documents: reservar consecutivo: %w", err)
	}
	issuedAt := i.now().UTC()
	reference := acta.FormatReference(in.Kind, issuedAt.Year(), seq)

	payload := entity.ActaPayload{
		Title:        acta.Title(in.Kind),
		Reference:    reference,
		Kind:         in.Kind,
		IssuedAt:     issuedAt,
		Responsible:  i.responsibleName(ctx, in.ResponsibleUserID),
		Fields:       in.Fields,
		Items:        in.Items,
		Signatories:  in.Signatories,
		Observations: in.Observations,
		Metadata:     in.Metadata,
		TotalValue:   inventory.DeclaredValue(in.Items),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("documents: serializar acta: %w", err)
	}

	doc := &entity.Document{
		ID:                uuid.New().String(),
		Kind:              in.Kind,
		Sequence:          seq,
		Reference:         reference,
		IssuedAt:          issuedAt,
		ResponsibleUserID: in.ResponsibleUserID,
		ItemCount:         len(in.Items),
		Payload:           body,
		RenderStatus:      entity.RenderPending,
	}
	if err := docs.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("documents: guardar acta: %w", err)
	}
	return doc, nil
}

// Render genera el PDF, lo guarda y marca el acta como READY.
// Cualquier falla se devuelve envuelta en domain.ErrRender y deja el acta en FAILED;
// la transición de los equipos ya está confirmada y no se toca.
func (i *Issuer) Render(ctx context.Context, doc *entity.Document) (*Artifact, error) {
	var payload entity.ActaPayload
	if err := json.Unmarshal(doc.Payload, &payload); err != nil {
		return nil, i.renderFailed(ctx, doc, fmt.Errorf("contenido ilegible: %w", err))
	}

	rctx, cancel := context.WithTimeout(ctx, i.renderTimeout)
	defer cancel()

	data, err := i.renderer.RenderActa(rctx, &payload)
	if err != nil {
		return nil, i.renderFailed(ctx, doc, err)
	}

	name := Filename(doc)
	ref, err := i.store.Put(ctx, name, data)
	if err != nil {
		return nil, i.renderFailed(ctx, doc, fmt.Errorf("guardar artefacto: %w", err))
	}
	if err := i.docs.UpdateArtifact(ctx, doc.ID, ref, entity.RenderReady); err != nil {
		log.Error().Err(err).Str("reference", doc.Reference).Msg("documents: no se pudo marcar el acta como lista")
	}
	doc.ArtifactRef = ref
	doc.RenderStatus = entity.RenderReady

	return &Artifact{Data: data, Ref: ref, URL: i.store.URL(ref), Filename: name}, nil
}

func (i *Issuer) renderFailed(ctx context.Context, doc *entity.Document, cause error) error {
	if err := i.docs.UpdateArtifact(ctx, doc.ID, doc.ArtifactRef, entity.RenderFailed); err != nil {
		log.Error().Err(err).Str("reference", doc.Reference).Msg("documents: no se pudo marcar el render fallido")
	}
	doc.RenderStatus = entity.RenderFailed
	return fmt.Errorf("%w: %s: %v", domain.ErrRender, doc.Reference, cause)
}

// Get devuelve el acta o domain.ErrNotFound.
func (i *Issuer) Get(ctx context.Context, id string) (*entity.Document, error) {
	doc, err := i.docs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("documents: obtener acta: %w", err)
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

// Artifact devuelve el PDF almacenado; si no existe o no se puede leer, lo vuelve a generar.
func (i *Issuer) Artifact(ctx context.Context, id string) (*Artifact, error) {
	doc, err := i.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.ArtifactRef != "" {
		data, err := i.store.Get(ctx, doc.ArtifactRef)
		if err == nil {
			return &Artifact{Data: data, Ref: doc.ArtifactRef, URL: i.store.URL(doc.ArtifactRef), Filename: Filename(doc)}, nil
		}
		log.Warn().Err(err).Str("reference", doc.Reference).Msg("documents: artefacto no disponible, se regenera")
	}
	return i.Render(ctx, doc)
}

// URL pública del PDF del acta, si ya fue generado.
func (i *Issuer) URL(doc *entity.Document) string {
	if doc.ArtifactRef == "" {
		return ""
	}
	return i.store.URL(doc.ArtifactRef)
}

// List historial de actas con clasificación por tipo.
func (i *Issuer) List(ctx context.Context, in dto.ActaSearchRequest) (*dto.ActaListResponse, error) {
	in.DefaultPage()
	kind := entity.DocumentKind(strings.ToUpper(strings.TrimSpace(in.Kind)))
	if kind != "" && kind != entity.DocumentOther && !acta.Issuable(kind) {
		return nil, fmt.Errorf("%w: tipo de acta %q", domain.ErrInvalidInput, in.Kind)
	}
	if in.From != nil && in.To != nil && in.To.Before(*in.From) {
		return nil, fmt.Errorf("%w: la fecha final es anterior a la inicial", domain.ErrInvalidInput)
	}

	list, total, err := i.docs.List(ctx, repository.DocumentFilter{
		Kind:   kind,
		From:   in.From,
		To:     in.To,
		Text:   strings.TrimSpace(in.Text),
		UserID: strings.TrimSpace(in.UserID),
		Limit:  in.Limit,
		Offset: in.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("documents: listar actas: %w", err)
	}

	ids := make([]string, 0, len(list))
	for _, d := range list {
		ids = append(ids, d.ResponsibleUserID)
	}
	names := i.names(ctx, ids)

	items := make([]dto.ActaResponse, 0, len(list))
	for _, d := range list {
		name, ok := names[d.ResponsibleUserID]
		if !ok {
			name = entity.UnknownUserName
		}
		items = append(items, dto.ActaResponse{
			ID:           d.ID,
			Reference:    d.Reference,
			Kind:         string(acta.Classify(string(d.Kind), d.Reference)),
			IssuedAt:     d.IssuedAt,
			Responsible:  name,
			ItemCount:    d.ItemCount,
			RenderStatus: string(d.RenderStatus),
			ArtifactURL:  i.URL(d),
		})
	}
	return &dto.ActaListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: in.Limit, Offset: in.Offset, Total: total},
	}, nil
}

// Filename nombre del PDF: ENT-2026-000001.pdf.
func Filename(doc *entity.Document) string {
	return doc.Reference + ".pdf"
}

func (i *Issuer) responsibleName(ctx context.Context, userID string) string {
	if name, ok := i.names(ctx, []string{userID})[userID]; ok {
		return name
	}
	return entity.UnknownUserName
}

func (i *Issuer) names(ctx context.Context, ids []string) map[string]string {
	if i.users == nil || len(ids) == 0 {
		return map[string]string{}
	}
	names, err := i.users.Names(ctx, ids)
	if err != nil {
		log.Warn().Err(err).Msg("documents: directorio de usuarios no disponible")
		return map[string]string{}
	}
	return names
}
