package nakama

import (
	"context"
	"database/sql"
	"fmt"

	"degendecks/internal/app"
	"degendecks/internal/app/onboarding"
	"degendecks/internal/config"
	"degendecks/internal/vrf"

	"github.com/heroiclabs/nakama-common/runtime"
	"golang.org/x/time/rate"
)

const devDelegationSecret = "degendecks-dev-secret"

// InitModule wires RPCs, the venue match handler and hooks for Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)

	path := env[EnvConfigPath]
	if path == "" {
		path = defaultGameConfigPath
	}
	if err := config.LoadGameConfig(path); err != nil {
		logger.Warn("InitModule: Could not load game config, using defaults: %v", err)
	}
	gameCfg := config.GetGameConfig()

	secret := env[EnvDelegationSecret]
	if secret == "" {
		secret = devDelegationSecret
		logger.Warn("InitModule: %s missing from env, using development secret.", EnvDelegationSecret)
	}

	deps := app.Deps{
		Ledger:   NewNakamaLedgerAdapter(nk),
		Economy:  NewNakamaEconomyAdapter(nk),
		Profiles: NewNakamaProfileAdapter(nk),
		Configs:  NewNakamaProfileAdapter(nk),
		Venue:    NewNakamaVenueAdapter(nk),
		Tokens:   app.NewDelegationTokens(secret),
		Rules:    gameCfg.Rules(),
		AdminID:  env[EnvAdminUserID],
		OracleID: env[EnvOracleUserID],
	}
	if verifier, err := vrf.NewVerifier(env[EnvOraclePublicKey]); err != nil {
		logger.Warn("InitModule: randomness delivery disabled: %v", err)
	} else {
		deps.Oracle = verifier
	}
	if deps.AdminID == "" {
		logger.Warn("InitModule: %s missing from env, config cannot be initialized.", EnvAdminUserID)
	}

	gameService = app.NewService(deps)
	onboardingService = onboarding.NewService(NewNakamaAccountAdapter(nk), NewNakamaProfileAdapter(nk), nil)
	actionLimiter = newUserLimiter(rate.Limit(gameCfg.ActionRatePerSecond), gameCfg.ActionBurst)

	if err := RegisterRPCs(initializer); err != nil {
		return err
	}

	if err := initializer.RegisterMatch(MatchNameVenue, func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return newVenueHandler(gameService, gameCfg.VenueTickRate), nil
	}); err != nil {
		return err
	}

	if err := initializer.RegisterAfterAuthenticateDevice(AfterAuthenticateDevice); err != nil {
		return fmt.Errorf("failed to register authenticate hook: %w", err)
	}

	logger.Info("DegenDecks Go module loaded.")
	return nil
}
