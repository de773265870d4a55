package adoption

import (
	"context"
	"errors"

	"github.com/farmlink/backend/internal/domain/adoption"
	"github.com/farmlink/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProjectService manages the adoption project lifecycle around the
// allocation engine: creation with unit generation, opening for sale and the
// growth/harvest progression that drives the adoption records.
type ProjectService struct {
	projectRepo adoption.ProjectRepository
	unitRepo    adoption.UnitRepository
	recordRepo  adoption.AdoptionRecordRepository
	logger      *zap.Logger
}

// NewProjectService creates a new ProjectService
func NewProjectService(projectRepo adoption.ProjectRepository, unitRepo adoption.UnitRepository, recordRepo adoption.AdoptionRecordRepository, logger *zap.Logger) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		unitRepo:    unitRepo,
		recordRepo:  recordRepo,
		logger:      logger,
	}
}

// Create creates a new project in DRAFT status together with its unit rows,
// numbered from 1
func (s *ProjectService) Create(ctx context.Context, req CreateProjectRequest) (*ProjectResponse, error) {
	price, err := decimal.NewFromString(req.UnitPrice)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price is not a valid decimal")
	}

	project, err := adoption.NewProject(req.FarmID, req.CropID, req.Name, req.TotalUnits, price, req.StartAt, req.EndAt)
	if err != nil {
		return nil, err
	}
	project.Description = req.Description

	units := make([]adoption.Unit, req.TotalUnits)
	for i := 0; i < req.TotalUnits; i++ {
		units[i] = *adoption.NewUnit(project.ID, i+1)
	}

	if err := s.projectRepo.SaveWithUnits(ctx, project, units); err != nil {
		return nil, err
	}

	s.logger.Info("Adoption project created",
		zap.String("project_id", project.ID.String()),
		zap.Int("total_units", project.TotalUnits),
	)

	resp := ToProjectResponse(project)
	return &resp, nil
}

// GetByID retrieves a project by ID
func (s *ProjectService) GetByID(ctx context.Context, id uuid.UUID) (*ProjectResponse, error) {
	project, err := s.projectRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToProjectResponse(project)
	return &resp, nil
}

// List retrieves projects with filtering and pagination
func (s *ProjectService) List(ctx context.Context, filter shared.Filter) ([]ProjectResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	projects, err := s.projectRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.projectRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return ToProjectResponses(projects), total, nil
}

// Open publishes a draft project so buyers can reserve units
func (s *ProjectService) Open(ctx context.Context, id uuid.UUID) (*ProjectResponse, error) {
	return s.transition(ctx, id, func(p *adoption.Project) error { return p.Open() })
}

// StartGrowing moves an open or full project into its growing phase
func (s *ProjectService) StartGrowing(ctx context.Context, id uuid.UUID) (*ProjectResponse, error) {
	return s.transition(ctx, id, func(p *adoption.Project) error { return p.StartGrowing() })
}

// CompleteHarvest finishes a growing project: the project becomes COMPLETED,
// adopted units become HARVESTED and every growing adoption record advances
// to HARVESTED
func (s *ProjectService) CompleteHarvest(ctx context.Context, id uuid.UUID) (*ProjectResponse, error) {
	resp, err := s.transition(ctx, id, func(p *adoption.Project) error { return p.Complete() })
	if err != nil {
		return nil, err
	}

	if _, err := s.unitRepo.AdvanceByProject(ctx, id, adoption.UnitStatusAdopted, adoption.UnitStatusHarvested); err != nil {
		return nil, err
	}
	updated, err := s.recordRepo.AdvanceStatusByProject(ctx, id, adoption.RecordStatusGrowing, adoption.RecordStatusHarvested)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Project harvest completed",
		zap.String("project_id", id.String()),
		zap.Int64("records_harvested", updated),
	)

	return resp, nil
}

// MarkDelivered advances all harvested records of a completed project to
// DELIVERED once the produce shipments are confirmed
func (s *ProjectService) MarkDelivered(ctx context.Context, id uuid.UUID) (int64, error) {
	project, err := s.projectRepo.FindByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if project.Status != adoption.ProjectStatusCompleted {
		return 0, shared.NewDomainError("INVALID_STATE", "Only completed projects can be delivered")
	}
	return s.recordRepo.AdvanceStatusByProject(ctx, id, adoption.RecordStatusHarvested, adoption.RecordStatusDelivered)
}

func (s *ProjectService) transition(ctx context.Context, id uuid.UUID, fn func(*adoption.Project) error) (*ProjectResponse, error) {
	project, err := s.projectRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	if err := fn(project); err != nil {
		return nil, err
	}
	if err := s.projectRepo.Save(ctx, project); err != nil {
		return nil, err
	}

	resp := ToProjectResponse(project)
	return &resp, nil
}
