package services

import (
	"github.com/Metsalill/grocery-backend/internal/data/dberr"
	"github.com/Metsalill/grocery-backend/internal/domain"
	"github.com/Metsalill/grocery-backend/internal/platform/logger"
)

// queryTier is one strategy in an ordered degradation list. Tiers run from
// most to least feature-dependent; a tier failing because the backend lacks
// a function, table or column advances to the next one. Any other failure
// aborts the whole list immediately.
type queryTier struct {
	name string
	run  func() error
}

// runTiers executes tiers in order and returns on the first success.
// Capability probing is by exception only: no schema inspection happens
// ahead of a query, because capabilities differ across deployments
// independently of code version. Exhausting the list yields a
// service_degraded error; a non-capability failure surfaces as internal.
func runTiers(log *logger.Logger, op string, tiers []queryTier) error {
	var lastMiss error
	for _, t := range tiers {
		err := t.run()
		if err == nil {
			return nil
		}
		if dberr.IsUndefinedCapability(err) {
			lastMiss = domain.Wrap(domain.CodeCapabilityUnavailable, op, err)
			log.Debug("query tier unavailable, advancing",
				"op", op, "tier", t.name, "error", err.Error())
			continue
		}
		return domain.Wrap(domain.CodeInternal, op, err)
	}
	return domain.NewError(domain.CodeServiceDegraded, op, "no query tier available", lastMiss)
}
