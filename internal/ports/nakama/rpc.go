package nakama

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"degendecks/internal/app"
	"degendecks/internal/app/onboarding"
	"degendecks/internal/domain"
	"degendecks/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// gRPC status codes returned to clients.
const (
	codeInvalidArgument    = 3
	codeNotFound           = 5
	codePermissionDenied   = 7
	codeResourceExhausted  = 8
	codeFailedPrecondition = 9
	codeInternal           = 13
	codeUnauthenticated    = 16
)

var (
	gameService       *app.Service
	onboardingService *onboarding.Service
	actionLimiter     *userLimiter

	errRateLimited = errors.New("too many requests")
)

type rpcFunc func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error)

// gameAction runs one use-case for the calling user.
type gameAction func(ctx context.Context, caller, payload string) (*domain.Game, []app.Event, error)

type createGameRequest struct {
	Seed       uint64 `json:"seed"`
	EntryStake int64  `json:"entry_stake"`
	Asset      string `json:"asset"`
	Capacity   int    `json:"capacity"`
	// WaitTime is in seconds.
	WaitTime int64 `json:"wait_time"`
}

type gameRequest struct {
	Game string `json:"game"`
}

type cardRequest struct {
	Game string      `json:"game"`
	Card domain.Card `json:"card"`
}

type profileRequest struct {
	Username string `json:"username"`
}

type configRequest struct {
	FeeRecipient  string   `json:"fee_recipient"`
	FeeBps        uint16   `json:"fee_bps"`
	AllowedAssets []string `json:"allowed_assets"`
}

type listRandomnessRequest struct {
	Limit int `json:"limit"`
}

type randomnessDelivery struct {
	Game      string      `json:"game"`
	RequestID uint64      `json:"request_id"`
	Value     domain.Seed `json:"value"`
	// Proof is the hex encoded oracle signature.
	Proof string `json:"proof"`
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	rpcs := map[string]rpcFunc{
		RpcInitializeConfig:       rpcInitializeConfig,
		RpcInitializeProfile:      rpcInitializeProfile,
		RpcCreateGame:             gameRPC(RpcCreateGame, createGame),
		RpcJoinGame:               gameRPC(RpcJoinGame, byRef(gameServiceCall((*app.Service).JoinGame))),
		RpcExitGame:               gameRPC(RpcExitGame, byRef(gameServiceCall((*app.Service).ExitGame))),
		RpcCancelGame:             gameRPC(RpcCancelGame, byRef(gameServiceCall((*app.Service).CancelGame))),
		RpcPlayCard:               gameRPC(RpcPlayCard, withCard(gameCardCall((*app.Service).PlayCard))),
		RpcDelegateAndPlayCard:    gameRPC(RpcDelegateAndPlayCard, withCard(gameCardCall((*app.Service).DelegateAndPlayCard))),
		RpcDrawFromPile:           gameRPC(RpcDrawFromPile, byRef(gameServiceCall((*app.Service).DrawFromPile))),
		RpcDelegateAndDraw:        gameRPC(RpcDelegateAndDraw, byRef(gameServiceCall((*app.Service).DelegateAndDraw))),
		RpcPenalizeOpponent:       gameRPC(RpcPenalizeOpponent, byRef(gameServiceCall((*app.Service).PenalizeOpponent))),
		RpcCommitGame:             gameRPC(RpcCommitGame, byRef(gameServiceCall((*app.Service).CommitGame))),
		RpcClaimPrize:             gameRPC(RpcClaimPrize, byRef(gameServiceCall((*app.Service).ClaimPrize))),
		RpcConsumeRandomness:      gameRPC(RpcConsumeRandomness, consumeRandomness),
		RpcGetGame:                rpcGetGame,
		RpcListRandomnessRequests: rpcListRandomnessRequests,
	}
	for id, fn := range rpcs {
		if err := initializer.RegisterRpc(id, fn); err != nil {
			return fmt.Errorf("failed to register rpc %s: %w", id, err)
		}
	}
	return nil
}

func gameServiceCall(fn func(*app.Service, context.Context, string, string) (*domain.Game, []app.Event, error)) func(ctx context.Context, caller, ref string) (*domain.Game, []app.Event, error) {
	return func(ctx context.Context, caller, ref string) (*domain.Game, []app.Event, error) {
		return fn(gameService, ctx, caller, ref)
	}
}

func gameCardCall(fn func(*app.Service, context.Context, string, string, domain.Card) (*domain.Game, []app.Event, error)) func(ctx context.Context, caller, ref string, card domain.Card) (*domain.Game, []app.Event, error) {
	return func(ctx context.Context, caller, ref string, card domain.Card) (*domain.Game, []app.Event, error) {
		return fn(gameService, ctx, caller, ref, card)
	}
}

func byRef(fn func(ctx context.Context, caller, ref string) (*domain.Game, []app.Event, error)) gameAction {
	return func(ctx context.Context, caller, payload string) (*domain.Game, []app.Event, error) {
		var req gameRequest
		if err := decodePayload(payload, &req); err != nil {
			return nil, nil, err
		}
		return fn(ctx, caller, req.Game)
	}
}

func withCard(fn func(ctx context.Context, caller, ref string, card domain.Card) (*domain.Game, []app.Event, error)) gameAction {
	return func(ctx context.Context, caller, payload string) (*domain.Game, []app.Event, error) {
		var req cardRequest
		if err := decodePayload(payload, &req); err != nil {
			return nil, nil, err
		}
		return fn(ctx, caller, req.Game, req.Card)
	}
}

func createGame(ctx context.Context, caller, payload string) (*domain.Game, []app.Event, error) {
	var req createGameRequest
	if err := decodePayload(payload, &req); err != nil {
		return nil, nil, err
	}
	return gameService.CreateGame(ctx, caller, app.CreateGameRequest{
		Seed:       req.Seed,
		EntryStake: req.EntryStake,
		Asset:      req.Asset,
		Capacity:   req.Capacity,
		WaitTime:   time.Duration(req.WaitTime) * time.Second,
	})
}

func consumeRandomness(ctx context.Context, caller, payload string) (*domain.Game, []app.Event, error) {
	var req randomnessDelivery
	if err := decodePayload(payload, &req); err != nil {
		return nil, nil, err
	}
	proof, err := hex.DecodeString(req.Proof)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: proof: %v", errMalformedPayload, err)
	}
	return gameService.OnRandomnessDelivered(ctx, caller, req.Game, req.RequestID, req.Value, proof)
}

// gameRPC wraps a game action with caller resolution, rate limiting, error
// mapping and event publishing. The response is the caller's view of the game.
func gameRPC(name string, act gameAction) rpcFunc {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
		userID, err := callerID(ctx)
		if err != nil {
			return "", err
		}
		if !actionLimiter.Allow(userID) {
			return "", toRuntimeError(logger, name, userID, errRateLimited)
		}

		g, events, err := act(ctx, userID, payload)
		if err != nil {
			return "", toRuntimeError(logger, name, userID, err)
		}
		logger.Debug("%s [User:%s]: game %s now %s", name, userID, g.Ref, g.Phase())
		publishEvents(ctx, logger, nk, g, events)
		return respond(domain.ViewFor(g, userID))
	}
}

func rpcGetGame(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}
	var req gameRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", toRuntimeError(logger, RpcGetGame, userID, err)
	}
	g, err := gameService.GetGame(ctx, req.Game)
	if err != nil {
		return "", toRuntimeError(logger, RpcGetGame, userID, err)
	}
	return respond(domain.ViewFor(g, userID))
}

func rpcListRandomnessRequests(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}
	var req listRandomnessRequest
	if payload != "" {
		if err := decodePayload(payload, &req); err != nil {
			return "", toRuntimeError(logger, RpcListRandomnessRequests, userID, err)
		}
	}
	reqs, err := gameService.PendingRandomness(ctx, userID, req.Limit)
	if err != nil {
		return "", toRuntimeError(logger, RpcListRandomnessRequests, userID, err)
	}
	if reqs == nil {
		reqs = []ports.RandomnessRequest{}
	}
	return respond(reqs)
}

func rpcInitializeConfig(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}
	var req configRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", toRuntimeError(logger, RpcInitializeConfig, userID, err)
	}
	cfg, events, err := gameService.InitializeConfig(ctx, userID, domain.PlatformConfig{
		FeeRecipient:  req.FeeRecipient,
		FeeBps:        req.FeeBps,
		AllowedAssets: req.AllowedAssets,
	})
	if err != nil {
		return "", toRuntimeError(logger, RpcInitializeConfig, userID, err)
	}
	logger.Info("%s [User:%s]: platform config initialized (fee %d bps)", RpcInitializeConfig, userID, cfg.FeeBps)
	publishEvents(ctx, logger, nk, nil, events)
	return respond(cfg)
}

func rpcInitializeProfile(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}
	var req profileRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", toRuntimeError(logger, RpcInitializeProfile, userID, err)
	}
	profile, err := onboardingService.InitializeProfile(ctx, userID, req.Username)
	if err != nil {
		return "", toRuntimeError(logger, RpcInitializeProfile, userID, err)
	}
	return respond(profile)
}

func callerID(ctx context.Context) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return "", runtime.NewError("authentication required", codeUnauthenticated)
	}
	return userID, nil
}

func decodePayload(payload string, out any) error {
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("%w: %v", errMalformedPayload, err)
	}
	return nil
}

func respond(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", runtime.NewError("failed to encode response", codeInternal)
	}
	return string(data), nil
}

// errorCode maps an error to the status code clients receive.
func errorCode(err error) int {
	switch {
	case errors.Is(err, errMalformedPayload):
		return codeInvalidArgument
	case errors.Is(err, errRateLimited):
		return codeResourceExhausted
	}
	switch domain.Classify(err) {
	case domain.ClassAuthorization:
		return codePermissionDenied
	case domain.ClassPrecondition, domain.ClassFunds:
		return codeFailedPrecondition
	case domain.ClassInput:
		return codeInvalidArgument
	case domain.ClassNotFound:
		return codeNotFound
	default:
		return codeInternal
	}
}

// publicMessage hides internal error details from clients.
func publicMessage(err error) string {
	if errorCode(err) == codeInternal {
		return "internal error"
	}
	return err.Error()
}

func toRuntimeError(logger runtime.Logger, rpc, userID string, err error) error {
	code := errorCode(err)
	if code == codeInternal {
		logger.Error("%s [User:%s]: %v", rpc, userID, err)
	} else {
		logger.Warn("%s [User:%s]: rejected: %v", rpc, userID, err)
	}
	return runtime.NewError(publicMessage(err), code)
}
