package api

import (
	"fmt"
	"net/url"
	"strings"

	"dronenav/internal/model"
	"dronenav/internal/webhooks"
)

var weightKeys = map[string]struct{}{"delivered": {}, "energy": {}, "violation": {}, "timeViolation": {}}

func validateOptimizeRequest(req *model.OptimizeRequest) error {
	if req.ScenarioID == "" && req.Scenario == nil {
		return fmt.Errorf("%w: scenarioId or scenario required", errBadRequest)
	}
	if req.ScenarioID != "" && req.Scenario != nil {
		return fmt.Errorf("%w: scenarioId and scenario are mutually exclusive", errBadRequest)
	}
	if req.PopulationSize < 0 {
		return fmt.Errorf("%w: populationSize must be >= 0", errBadRequest)
	}
	if req.Generations < 0 {
		return fmt.Errorf("%w: generations must be >= 0", errBadRequest)
	}
	if req.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0", errBadRequest)
	}
	if req.CrossoverRate != nil && (*req.CrossoverRate < 0 || *req.CrossoverRate > 1) {
		return fmt.Errorf("%w: crossoverRate must be in [0,1]", errBadRequest)
	}
	if req.MutationRate != nil && (*req.MutationRate < 0 || *req.MutationRate > 1) {
		return fmt.Errorf("%w: mutationRate must be in [0,1]", errBadRequest)
	}
	if req.NoFlyPenalty != nil && *req.NoFlyPenalty < 0 {
		return fmt.Errorf("%w: noFlyPenalty must be >= 0", errBadRequest)
	}
	if req.StartTime != "" {
		if _, err := model.ParseClock(req.StartTime); err != nil {
			return fmt.Errorf("%w: startTime: %v", errBadRequest, err)
		}
	}
	for k := range req.Weights {
		if _, ok := weightKeys[k]; !ok {
			return fmt.Errorf("%w: unknown weight key: %s (allowed: delivered,energy,violation,timeViolation)", errBadRequest, k)
		}
	}
	return nil
}

func validateSubscription(req *model.SubscriptionRequest) error {
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url must be an absolute http(s) URL", errBadRequest)
	}
	if len(req.Events) == 0 {
		req.Events = []string{webhooks.EventRunCompleted}
	}
	for _, e := range req.Events {
		if strings.TrimSpace(e) != webhooks.EventRunCompleted {
			return fmt.Errorf("%w: unsupported event %q", errBadRequest, e)
		}
	}
	return nil
}
