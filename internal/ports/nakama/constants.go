package nakama

// RPC ids registered with Nakama.
const (
	RpcInitializeConfig       = "initialize_config"
	RpcInitializeProfile      = "initialize_profile"
	RpcCreateGame             = "create_game"
	RpcJoinGame               = "join_game"
	RpcExitGame               = "exit_game"
	RpcCancelGame             = "cancel_game"
	RpcPlayCard               = "play_card"
	RpcDelegateAndPlayCard    = "delegate_and_play_card"
	RpcDrawFromPile           = "draw_from_pile"
	RpcDelegateAndDraw        = "delegate_and_draw"
	RpcPenalizeOpponent       = "penalize_opponent"
	RpcCommitGame             = "commit_game"
	RpcClaimPrize             = "claim_prize"
	RpcGetGame                = "get_game"
	RpcListRandomnessRequests = "list_randomness_requests"
	RpcConsumeRandomness      = "consume_randomness"

	// MatchNameVenue is the authoritative match handler that hosts a delegated game.
	MatchNameVenue = "degendecks_venue"
)

// Runtime env keys.
const (
	EnvAdminUserID        = "degendecks_admin_user_id"
	EnvOracleUserID       = "degendecks_oracle_user_id"
	EnvOraclePublicKey    = "degendecks_oracle_public_key"
	EnvDelegationSecret   = "degendecks_delegation_secret"
	EnvConfigPath         = "degendecks_config_path"
	defaultGameConfigPath = "data/game_config.json"
)

// Storage collections.
const (
	collectionGames      = "games"
	collectionVenueGames = "venue_games"
	collectionRandomness = "randomness_requests"
	collectionProfiles   = "profiles"
	collectionConfig     = "config"

	keyProfile  = "profile"
	keyPlatform = "platform"

	storageListPageSize = 100
)

// Op codes for venue socket messages.
const (
	// Client -> Server
	OpPlayCard  int64 = 1
	OpDrawCard  int64 = 2
	OpPenalize  int64 = 3
	OpGameState int64 = 4

	// Server -> Client events
	OpGameDelegated   int64 = 101
	OpCardPlayed      int64 = 102
	OpCardDrawn       int64 = 103
	OpPileReshuffled  int64 = 104
	OpPlayerPenalized int64 = 105
	OpGameEnded       int64 = 106
	OpGameCommitted   int64 = 107
	OpGameSnapshot    int64 = 108 // sent privately
	OpGameEvent       int64 = 109
	OpGameError       int64 = 110
)
