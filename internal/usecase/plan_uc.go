package usecase

import (
	"classifieds-marketplace/internal/domain/model"
)

// PlanUseCase exposes the premium plan catalog.
type PlanUseCase struct {
	catalog *model.PlanCatalog
}

// NewPlanUseCase constructs a PlanUseCase.
func NewPlanUseCase(catalog *model.PlanCatalog) *PlanUseCase {
	return &PlanUseCase{catalog: catalog}
}

// List returns all plans ordered by days.
func (uc *PlanUseCase) List() []model.PremiumPlan {
	return uc.catalog.All()
}

func (uc *PlanUseCase) Currency() string { return uc.catalog.Currency() }

// Get resolves days to a plan or domain.ErrInvalidPlan.
func (uc *PlanUseCase) Get(days int) (model.PremiumPlan, error) {
	return uc.catalog.Lookup(days)
}
