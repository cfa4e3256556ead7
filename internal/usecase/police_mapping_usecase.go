package usecase

import (
	"context"

	"SafeRoute-App/internal/domain/model"
	"SafeRoute-App/internal/domain/service"
	"SafeRoute-App/internal/infrastructure/metrics"
)

type PoliceMappingUseCase interface {
	MapPolice(ctx context.Context, req *model.MapPoliceRequest) (*model.MapPoliceResponse, error)
}

type policeMappingUseCaseImpl struct {
	mapper  service.PoliceProximityMapper
	metrics *metrics.Metrics
}

func NewPoliceMappingUseCase(mapper service.PoliceProximityMapper, m *metrics.Metrics) PoliceMappingUseCase {
	return &policeMappingUseCaseImpl{mapper: mapper, metrics: m}
}

func (u *policeMappingUseCaseImpl) MapPolice(ctx context.Context, req *model.MapPoliceRequest) (*model.MapPoliceResponse, error) {
	if req.Limit < 0 {
		return nil, &model.InputError{Field: "limit", Message: "limitは0以上で指定してください"}
	}

	resp, err := u.mapper.MapPolice(ctx, *req)
	if err != nil {
		return nil, err
	}

	failed := 0
	for _, r := range resp.Results {
		if r.Error != "" {
			failed++
		}
	}
	u.metrics.AddPoliceUpdates(metrics.ResultUpdated, resp.Updated)
	u.metrics.AddPoliceUpdates(metrics.ResultFailed, failed)
	u.metrics.AddPoliceUpdates(metrics.ResultSkipped, max(0, resp.Processed-resp.Updated-failed))
	return resp, nil
}
