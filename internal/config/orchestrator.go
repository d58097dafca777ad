package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// OrchestratorConfig holds every deadline and staleness threshold the orchestrator
// enforces. Phase deadlines are seconds; staleness thresholds are hours.
type OrchestratorConfig struct {
	ConfigDeadline   time.Duration `env:"CONFIG_DEADLINE" envDefault:"30s"`
	DecisionDeadline time.Duration `env:"DECISION_DEADLINE" envDefault:"30s"`

	ShowdownGrace        time.Duration `env:"SHOWDOWN_GRACE" envDefault:"20s"`
	NextRoundGrace       time.Duration `env:"NEXT_ROUND_GRACE" envDefault:"10s"`
	GameOverDealerWindow time.Duration `env:"GAME_OVER_DEALER_WINDOW" envDefault:"8s"`
	GameOverAutoAdvance  time.Duration `env:"GAME_OVER_AUTO_ADVANCE" envDefault:"30s"`

	StalePausedAfter     time.Duration `env:"STALE_PAUSED_AFTER" envDefault:"4h"`
	StaleWaitingAfter    time.Duration `env:"STALE_WAITING_AFTER" envDefault:"2h"`
	StaleInProgressAfter time.Duration `env:"STALE_IN_PROGRESS_AFTER" envDefault:"2h"`

	AllowBotDealers    bool    `env:"ALLOW_BOT_DEALERS" envDefault:"false"`
	BotStayProbability float64 `env:"BOT_STAY_PROBABILITY" envDefault:"0.5"`

	ReconcileEnabled  bool          `env:"RECONCILE_ENABLED" envDefault:"true"`
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"15s"`
	ReconcileBatch    int           `env:"RECONCILE_BATCH" envDefault:"200"`
	ReconcileTimeout  time.Duration `env:"RECONCILE_TIMEOUT" envDefault:"5s"`
}

func LoadOrchestrator() (OrchestratorConfig, error) {
	var cfg OrchestratorConfig
	err := env.Parse(&cfg)
	return cfg, err
}

// DefaultOrchestrator returns the envDefault values without reading the environment.
func DefaultOrchestrator() OrchestratorConfig {
	return OrchestratorConfig{
		ConfigDeadline:       30 * time.Second,
		DecisionDeadline:     30 * time.Second,
		ShowdownGrace:        20 * time.Second,
		NextRoundGrace:       10 * time.Second,
		GameOverDealerWindow: 8 * time.Second,
		GameOverAutoAdvance:  30 * time.Second,
		StalePausedAfter:     4 * time.Hour,
		StaleWaitingAfter:    2 * time.Hour,
		StaleInProgressAfter: 2 * time.Hour,
		BotStayProbability:   0.5,
		ReconcileEnabled:     true,
		ReconcileInterval:    15 * time.Second,
		ReconcileBatch:       200,
		ReconcileTimeout:     5 * time.Second,
	}
}
