// Package report resolves which reports an identity may see and manages the
// report catalog and its grants.
package report

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/natanjs01/projetopowerbiv1/internal/apperror"
	"github.com/natanjs01/projetopowerbiv1/internal/audit"
	auditentity "github.com/natanjs01/projetopowerbiv1/internal/audit/entity"
	"github.com/natanjs01/projetopowerbiv1/internal/report/entity"
	userentity "github.com/natanjs01/projetopowerbiv1/internal/user/entity"
	"github.com/natanjs01/projetopowerbiv1/pkg/utilities"
)

// Catalog is the report and grant data the service needs.
type Catalog interface {
	ListActive(ctx context.Context) ([]entity.Report, error)
	ListAll(ctx context.Context) ([]entity.Report, error)
	ListActiveByIDs(ctx context.Context, ids []string) ([]entity.Report, error)
	GrantedReportIDs(ctx context.Context, userID, sector string) ([]string, error)
	GetByID(ctx context.Context, id string) (*entity.Report, error)
	Create(ctx context.Context, rep *entity.Report) error
	Update(ctx context.Context, id string, in entity.ReportInput, embedID *string) error
	Deactivate(ctx context.Context, id string) error
	ListGrants(ctx context.Context, reportID string) ([]entity.GrantView, error)
	CreateGrant(ctx context.Context, g *entity.Grant) error
	DeleteGrant(ctx context.Context, id string) error
}

// Service implements report visibility, the admin catalog and grants.
type Service struct {
	catalog Catalog
	audit   audit.Recorder
	viewer  Viewer
	log     *zap.SugaredLogger
}

func NewService(c Catalog, rec audit.Recorder, viewer Viewer, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{catalog: c, audit: rec, viewer: viewer, log: log}
}

func (s *Service) backend(op string, err error) error {
	s.log.Errorw(op+" failed", "err", err)
	return apperror.Backend(err)
}

// ListVisible returns the active reports identity may open, ordered by title.
// Admins see every active report. Without any grant no report query is made.
func (s *Service) ListVisible(ctx context.Context, identity *userentity.Identity) ([]entity.Report, error) {
	if identity == nil {
		return nil, apperror.E(apperror.SessionExpired, "")
	}
	if identity.IsAdmin() {
		out, err := s.catalog.ListActive(ctx)
		if err != nil {
			return nil, s.backend("list reports", err)
		}
		return out, nil
	}
	ids, err := s.catalog.GrantedReportIDs(ctx, identity.ID, identity.Sector)
	if err != nil {
		return nil, s.backend("list grants", err)
	}
	if len(ids) == 0 {
		return []entity.Report{}, nil
	}
	out, err := s.catalog.ListActiveByIDs(ctx, ids)
	if err != nil {
		return nil, s.backend("list reports", err)
	}
	return out, nil
}

// Open returns the viewer URL of a report identity may see and records the view.
func (s *Service) Open(ctx context.Context, identity *userentity.Identity, reportID string) (string, error) {
	visible, err := s.ListVisible(ctx, identity)
	if err != nil {
		return "", err
	}
	for _, rep := range visible {
		if rep.ID == reportID {
			s.audit.Record(ctx, identity.ID, rep.ID, auditentity.ActionViewReport, map[string]string{"titulo": rep.Title})
			return s.viewer.URL(rep.EmbedID), nil
		}
	}
	return "", apperror.E(apperror.NoPermission, "Você não tem permissão para acessar este relatório")
}

// ViewerURL builds the viewer link for an embedded report identifier.
func (s *Service) ViewerURL(embedID string) string { return s.viewer.URL(embedID) }

// ListAll returns the whole catalog for administration.
func (s *Service) ListAll(ctx context.Context) ([]entity.Report, error) {
	out, err := s.catalog.ListAll(ctx)
	if err != nil {
		return nil, s.backend("list all reports", err)
	}
	return out, nil
}

// Get returns one catalog entry.
func (s *Service) Get(ctx context.Context, id string) (*entity.Report, error) {
	rep, err := s.catalog.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.E(apperror.NotFound, "")
		}
		return nil, s.backend("get report", err)
	}
	return rep, nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func actorOf(actor *userentity.Identity) string {
	if actor == nil {
		return ""
	}
	return actor.ID
}

// Create adds a report. The embedded identifier is extracted from the fragment.
func (s *Service) Create(ctx context.Context, actor *userentity.Identity, in entity.ReportInput) (*entity.Report, error) {
	title := strings.TrimSpace(deref(in.Title))
	if title == "" || in.EmbedFragment == nil {
		return nil, apperror.E(apperror.InvalidInput, "")
	}
	embedID, ok := ExtractEmbeddedID(*in.EmbedFragment)
	if !ok {
		return nil, apperror.E(apperror.InvalidEmbed, "")
	}
	rep := &entity.Report{
		ID:              uuid.NewString(),
		Title:           title,
		Description:     in.Description,
		EmbedID:         embedID,
		Category:        in.Category,
		EmbedFragment:   *in.EmbedFragment,
		DataSource:      in.DataSource,
		UpdateFrequency: in.UpdateFrequency,
		Owner:           in.Owner,
		Active:          true,
	}
	if actor != nil {
		by := actor.ID
		rep.CreatedBy = &by
	}
	if err := s.catalog.Create(ctx, rep); err != nil {
		return nil, s.backend("create report", err)
	}
	s.audit.Record(ctx, actorOf(actor), rep.ID, auditentity.ActionCreateReport, map[string]string{"titulo": title})
	return rep, nil
}

// Update changes a report. A new fragment must carry an identifier.
func (s *Service) Update(ctx context.Context, actor *userentity.Identity, id string, in entity.ReportInput) error {
	var embedID *string
	if in.EmbedFragment != nil {
		extracted, ok := ExtractEmbeddedID(*in.EmbedFragment)
		if !ok {
			return apperror.E(apperror.InvalidEmbed, "")
		}
		embedID = &extracted
	}
	if err := s.catalog.Update(ctx, id, in, embedID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.E(apperror.NotFound, "")
		}
		return s.backend("update report", err)
	}
	s.audit.Record(ctx, actorOf(actor), id, auditentity.ActionUpdateReport, in)
	return nil
}

// Deactivate hides a report from every listing but the admin catalog.
func (s *Service) Deactivate(ctx context.Context, actor *userentity.Identity, id string) error {
	if err := s.catalog.Deactivate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.E(apperror.NotFound, "")
		}
		return s.backend("deactivate report", err)
	}
	s.audit.Record(ctx, actorOf(actor), id, auditentity.ActionDeactivateReport, map[string]any{})
	return nil
}

// ListGrants returns who can see a report.
func (s *Service) ListGrants(ctx context.Context, reportID string) ([]entity.GrantView, error) {
	out, err := s.catalog.ListGrants(ctx, reportID)
	if err != nil {
		return nil, s.backend("list grants", err)
	}
	return out, nil
}

// GrantRequest names the grantee: a user id or a sector, not both.
type GrantRequest struct {
	UserID string `json:"usuario_id"`
	Sector string `json:"setor"`
}

// Grant gives a user or a sector access to a report.
func (s *Service) Grant(ctx context.Context, actor *userentity.Identity, reportID string, req GrantRequest) (*entity.Grant, error) {
	userID, sector := strings.TrimSpace(req.UserID), strings.TrimSpace(req.Sector)
	if (userID == "") == (sector == "") {
		return nil, apperror.E(apperror.InvalidInput, "Informe um usuário ou um setor")
	}
	g := &entity.Grant{ID: utilities.NewSnowflakeID(), ReportID: reportID}
	if userID != "" {
		g.UserID = &userID
	} else {
		g.Sector = &sector
	}
	if actor != nil {
		by := actor.ID
		g.GrantedBy = &by
	}
	if err := s.catalog.CreateGrant(ctx, g); err != nil {
		return nil, s.backend("create grant", err)
	}
	s.audit.Record(ctx, actorOf(actor), reportID, auditentity.ActionGrantPermission, map[string]string{"usuarioId": userID, "setor": sector})
	return g, nil
}

// Revoke removes a grant.
func (s *Service) Revoke(ctx context.Context, actor *userentity.Identity, grantID string) error {
	if err := s.catalog.DeleteGrant(ctx, grantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.E(apperror.NotFound, "")
		}
		return s.backend("delete grant", err)
	}
	s.audit.Record(ctx, actorOf(actor), "", auditentity.ActionRevokePermission, map[string]string{"permissaoId": grantID})
	return nil
}
