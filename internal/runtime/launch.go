package runtime

import (
	"context"

	"go.uber.org/zap"

	"github.com/simserve/simserve/internal/metrics"
)

// launchPhase names the states of the delegated-execution attempt, so the
// decision to simulate is always visible in logs rather than implicit.
type launchPhase string

const (
	phaseAttempting launchPhase = "attempting"
	phaseDelegated  launchPhase = "delegated"
	phaseFallback   launchPhase = "fallback"
)

// launchDelegated tries to run code on the execution backend and returns the
// remote process id. A non-nil error means the caller must simulate; the
// transition is logged and counted here.
func (o *Orchestrator) launchDelegated(ctx context.Context, code string, port int) (string, error) {
	log := o.log.With(zap.Int("port", port))
	log.Debug("delegated execution", zap.String("phase", string(phaseAttempting)))

	ctx, cancel := context.WithTimeout(ctx, o.requestTimeout())
	defer cancel()

	processID, err := o.exec.Start(ctx, code, port)
	if err != nil {
		metrics.DelegatedFallbacks.Inc()
		log.Warn("delegated execution unavailable, serving simulated responses",
			zap.String("phase", string(phaseFallback)),
			zap.Error(err))
		return "", err
	}

	log.Info("delegated execution running",
		zap.String("phase", string(phaseDelegated)),
		zap.String("processId", processID))
	return processID, nil
}
