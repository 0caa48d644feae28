package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"degendecks/internal/app"
	"degendecks/internal/bot"
	"degendecks/internal/config"
	"degendecks/internal/domain"
	"degendecks/internal/ports/sqlstore"
	"degendecks/internal/vrf"

	"github.com/dustin/go-humanize"
	"github.com/echa/log"
	"github.com/pterm/pterm"
)

const (
	adminID   = "sim-admin"
	oracleID  = "sim-oracle"
	treasury  = "sim-treasury"
	maxTurns  = 2000
	simSecret = "degendecks-sim-secret"
)

var (
	dbPath       string
	botsPath     string
	configPath   string
	asset        string
	games        int
	players      int
	stake        int64
	startBalance int64
	feeBps       uint
	oracleSeed   string
	flags        = flag.NewFlagSet("sim", flag.ContinueOnError)
)

func init() {
	flags.Usage = func() {}
	flags.StringVar(&dbPath, "db", ":memory:", "SQLite database path")
	flags.StringVar(&botsPath, "bots", "data/bot_identities.json", "bot identity pool")
	flags.StringVar(&configPath, "config", "data/game_config.json", "game rules config")
	flags.StringVar(&asset, "asset", "gold", "stake asset")
	flags.IntVar(&games, "games", 10, "number of games to play")
	flags.IntVar(&players, "players", 2, "players per game")
	flags.Int64Var(&stake, "stake", 100, "entry stake per player")
	flags.Int64Var(&startBalance, "balance", 10_000, "starting balance per bot")
	flags.UintVar(&feeBps, "fee", 500, "platform fee in basis points")
	flags.StringVar(&oracleSeed, "oracle-seed", "", "seed for a reproducible oracle key (random when empty)")
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

// result is the outcome of one simulated game.
type result struct {
	ref    string
	winner string
	turns  int
	prize  int64
	fee    int64
	cid    string
}

func run() error {
	err := flags.Parse(os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			fmt.Printf("Usage: %s [flags]\n", os.Args[0])
			fmt.Println("\nFlags")
			flags.PrintDefaults()
			return nil
		}
		return err
	}

	if err := config.LoadGameConfig(configPath); err != nil {
		log.Warnf("Using default rules: %v", err)
	}
	if _, err := parseFeeBps(feeBps); err != nil {
		return err
	}
	rules := config.GetGameConfig().Rules()
	if players < rules.MinPlayers || players > rules.MaxPlayers {
		return fmt.Errorf("players must be within [%d,%d]", rules.MinPlayers, rules.MaxPlayers)
	}

	pool, err := bot.LoadIdentities(botsPath)
	if err != nil {
		log.Warnf("Using generated bots: %v", err)
	}
	agents := make([]*bot.Agent, 0, players)
	for i := 0; i < players; i++ {
		identity := bot.GetBotIdentity(pool, i)
		if i >= len(pool) {
			// Wrapping around would seat the same bot twice.
			identity = bot.GetBotIdentity(nil, i)
		}
		agent, err := bot.NewAgent(identity)
		if err != nil {
			return err
		}
		agents = append(agents, agent)
	}

	store, err := sqlstore.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	oracle := vrf.NewOracle()
	if oracleSeed != "" {
		oracle = vrf.NewDeterministicOracle([]byte(oracleSeed))
	}
	log.Infof("Oracle public key %s", oracle.PublicKeyHex())

	venue := &localVenue{}
	svc := app.NewService(app.Deps{
		Ledger:   store,
		Economy:  store,
		Profiles: store,
		Configs:  store,
		Venue:    venue,
		Oracle:   oracle.Verifier(),
		Tokens:   app.NewDelegationTokens(simSecret),
		Rules:    rules,
		AdminID:  adminID,
		OracleID: oracleID,
	})

	ctx := context.Background()
	if err := setup(ctx, svc, store, agents); err != nil {
		return err
	}

	sim := &simulation{svc: svc, oracle: oracle, agents: agents}
	results := make([]result, 0, games)
	for i := 0; i < games; i++ {
		res, err := sim.playGame(ctx, uint64(i+1))
		if err != nil {
			return fmt.Errorf("game %d: %w", i+1, err)
		}
		log.Infof("Game %s won by %s after %d turns", res.ref, res.winner, res.turns)
		results = append(results, res)
	}
	log.Infof("Opened %d venues, closed %d", venue.opened.Load(), venue.closed.Load())

	return report(ctx, store, agents, results)
}

// parseFeeBps checks the -fee flag before narrowing it to the config type.
func parseFeeBps(v uint) (uint16, error) {
	if v >= domain.FeeDenominator {
		return 0, fmt.Errorf("fee must be below %d bps, got %d", domain.FeeDenominator, v)
	}
	return uint16(v), nil
}

func setup(ctx context.Context, svc *app.Service, store *sqlstore.Store, agents []*bot.Agent) error {
	fee, err := parseFeeBps(feeBps)
	if err != nil {
		return err
	}
	_, _, err = svc.InitializeConfig(ctx, adminID, domain.PlatformConfig{
		FeeRecipient:  treasury,
		FeeBps:        fee,
		AllowedAssets: []string{asset},
	})
	if err != nil && !errors.Is(err, domain.ErrConfigExists) {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	for _, a := range agents {
		err := store.CreateProfile(ctx, &domain.Profile{Owner: a.ID, Username: a.Name, CreatedAt: time.Now().UTC()})
		switch {
		case errors.Is(err, domain.ErrProfileExists):
			continue
		case err != nil:
			return err
		}
		if err := store.Credit(ctx, a.ID, asset, startBalance, "sim_faucet"); err != nil {
			return err
		}
	}
	return nil
}

type simulation struct {
	svc    *app.Service
	oracle *vrf.Oracle
	agents []*bot.Agent
}

func (s *simulation) agent(id string) *bot.Agent {
	for _, a := range s.agents {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (s *simulation) playGame(ctx context.Context, n uint64) (result, error) {
	creator := s.agents[0]
	g, _, err := s.svc.CreateGame(ctx, creator.ID, app.CreateGameRequest{
		Seed:       uint64(time.Now().UnixNano()) + n,
		EntryStake: stake,
		Asset:      asset,
		Capacity:   len(s.agents),
		WaitTime:   time.Minute,
	})
	if err != nil {
		return result{}, err
	}
	ref := g.Ref
	for _, a := range s.agents[1:] {
		if _, _, err := s.svc.JoinGame(ctx, a.ID, ref); err != nil {
			return result{}, err
		}
	}
	if err := s.fulfill(ctx); err != nil {
		return result{}, err
	}

	turns := 0
	for ; turns < maxTurns; turns++ {
		g, err = s.svc.GetGame(ctx, ref)
		if err != nil {
			return result{}, err
		}
		if g.Ended {
			break
		}
		active := s.agent(g.ActivePlayer().Owner)
		if err := s.takeTurn(ctx, active, g); err != nil {
			return result{}, err
		}
	}
	if !g.Ended {
		return result{}, fmt.Errorf("no winner after %d turns", maxTurns)
	}

	g, _, err = s.svc.CommitGame(ctx, creator.ID, ref)
	if err != nil {
		return result{}, err
	}
	winner := *g.Winner
	_, events, err := s.svc.ClaimPrize(ctx, winner, ref)
	if err != nil {
		return result{}, err
	}

	res := result{ref: ref, winner: winner, turns: turns, cid: g.SnapshotCID}
	for _, ev := range events {
		if p, ok := ev.Payload.(app.PrizeClaimedPayload); ok {
			res.prize, res.fee = p.Prize, p.Fee
		}
	}
	return res, nil
}

// fulfill answers outstanding randomness requests as the oracle.
func (s *simulation) fulfill(ctx context.Context) error {
	reqs, err := s.svc.PendingRandomness(ctx, oracleID, 0)
	if err != nil {
		return err
	}
	for _, r := range reqs {
		value, proof, err := s.oracle.Fulfill(r.GameRef, r.RequestID)
		if err != nil {
			return err
		}
		if _, _, err := s.svc.OnRandomnessDelivered(ctx, oracleID, r.GameRef, r.RequestID, value, proof); err != nil {
			return err
		}
		log.Debugf("Delivered randomness for %s request %d", r.GameRef, r.RequestID)
	}
	return nil
}

func (s *simulation) takeTurn(ctx context.Context, a *bot.Agent, g *domain.Game) error {
	move, err := a.Play(g)
	if err != nil {
		return err
	}
	switch {
	case move.Draw && g.Delegated:
		_, _, err = s.svc.DrawFromPile(ctx, a.ID, g.Ref)
	case move.Draw:
		_, _, err = s.svc.DelegateAndDraw(ctx, a.ID, g.Ref)
	case g.Delegated:
		_, _, err = s.svc.PlayCard(ctx, a.ID, g.Ref, move.Card)
	default:
		_, _, err = s.svc.DelegateAndPlayCard(ctx, a.ID, g.Ref, move.Card)
	}
	return err
}

func report(ctx context.Context, store *sqlstore.Store, agents []*bot.Agent, results []result) error {
	gamesTable := pterm.TableData{{"Game", "Winner", "Turns", "Prize", "Fee", "Snapshot"}}
	var totalFees int64
	for _, r := range results {
		totalFees += r.fee
		gamesTable = append(gamesTable, []string{
			r.ref, r.winner, strconv.Itoa(r.turns), humanize.Comma(r.prize), humanize.Comma(r.fee), r.cid,
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(gamesTable).Render(); err != nil {
		return err
	}

	wins := map[string]int{}
	for _, r := range results {
		wins[r.winner]++
	}
	balances := pterm.TableData{{"Bot", "Wins", "Balance"}}
	for _, a := range agents {
		balance, err := store.GetBalance(ctx, a.ID, asset)
		if err != nil {
			return err
		}
		balances = append(balances, []string{a.Name, strconv.Itoa(wins[a.ID]), humanize.Comma(balance)})
	}
	treasuryBalance, err := store.GetBalance(ctx, treasury, asset)
	if err != nil {
		return err
	}
	balances = append(balances, []string{"treasury", "-", humanize.Comma(treasuryBalance)})
	if err := pterm.DefaultTable.WithHasHeader().WithData(balances).Render(); err != nil {
		return err
	}

	pterm.Success.Printfln("Played %d games, collected %s %s in fees", len(results), humanize.Comma(totalFees), asset)
	return nil
}
