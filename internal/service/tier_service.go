package service

import (
	"github.com/DylanFeger/askeuno-sub001/internal/models"
	"github.com/DylanFeger/askeuno-sub001/pkg/config"
)

// TierService is the static subscription-limit table. Pure lookups, no
// side effects; the chat layer consults it before invoking the planner.
type TierService struct {
	policies map[models.SubscriptionTier]config.TierPolicy
}

func NewTierService(cfg *config.TiersConfig) *TierService {
	return &TierService{
		policies: map[models.SubscriptionTier]config.TierPolicy{
			models.TierStarter:      cfg.Starter,
			models.TierProfessional: cfg.Professional,
			models.TierEnterprise:   cfg.Enterprise,
		},
	}
}

// Policy returns the limits for a tier. Unknown tiers get the starter
// policy so a bad value never widens access.
func (s *TierService) Policy(tier models.SubscriptionTier) config.TierPolicy {
	if p, ok := s.policies[tier]; ok {
		return p
	}
	return s.policies[models.TierStarter]
}

// MaxSourcesForTier is how many sources a plan may correlate.
func (s *TierService) MaxSourcesForTier(tier models.SubscriptionTier) int {
	return s.Policy(tier).MaxSources
}

// CanUseMultiSource reports whether the tier may attach more than one
// source to a conversation.
func (s *TierService) CanUseMultiSource(tier models.SubscriptionTier) bool {
	return s.Policy(tier).MaxSources > 1
}
