package domain

import (
	"fmt"
	"time"
)

// TransferReason tags a wallet movement caused by a game.
type TransferReason string

const (
	ReasonStake  TransferReason = "stake_deposit"
	ReasonRefund TransferReason = "stake_refund"
	ReasonPrize  TransferReason = "prize_payout"
	ReasonFee    TransferReason = "platform_fee"
)

// Transfer moves Amount of Asset into (positive) or out of (negative) a wallet.
// The matching vault movement is applied to the game in the same step.
type Transfer struct {
	UserID  string         `json:"user_id"`
	Asset   string         `json:"asset"`
	Amount  int64          `json:"amount"`
	Reason  TransferReason `json:"reason"`
	GameRef string         `json:"game_ref"`
}

// deposit moves the entry stake of owner into the vault.
func (g *Game) deposit(owner string, asset string, balance int64) (Transfer, error) {
	if g.EntryStake <= 0 {
		return Transfer{}, fmt.Errorf("%w: %d", ErrInvalidEntryStake, g.EntryStake)
	}
	if asset != g.Vault.Asset {
		return Transfer{}, fmt.Errorf("%w: %q, vault holds %q", ErrAssetMismatch, asset, g.Vault.Asset)
	}
	if balance < g.EntryStake {
		return Transfer{}, fmt.Errorf("%w: balance %d below stake %d", ErrInsufficientFunds, balance, g.EntryStake)
	}
	g.Vault.Balance += g.EntryStake
	return Transfer{
		UserID:  owner,
		Asset:   g.Vault.Asset,
		Amount:  -g.EntryStake,
		Reason:  ReasonStake,
		GameRef: g.Ref,
	}, nil
}

// refund returns the entry stake of owner from the vault.
func (g *Game) refund(owner string) (Transfer, error) {
	if g.Started {
		return Transfer{}, ErrAlreadyStarted
	}
	if g.Vault.Balance < g.EntryStake {
		return Transfer{}, fmt.Errorf("%w: vault %d below stake %d", ErrInsufficientFunds, g.Vault.Balance, g.EntryStake)
	}
	g.Vault.Balance -= g.EntryStake
	return Transfer{
		UserID:  owner,
		Asset:   g.Vault.Asset,
		Amount:  g.EntryStake,
		Reason:  ReasonRefund,
		GameRef: g.Ref,
	}, nil
}

// FeeSplit returns the platform fee and the winner's share of total.
func FeeSplit(total int64, feeBps uint16) (fee, prize int64) {
	fee = total * int64(feeBps) / FeeDenominator
	return fee, total - fee
}

// payout withdraws the whole vault to the winner net of the platform fee.
func (g *Game) payout(winner string, cfg *PlatformConfig, now time.Time) ([]Transfer, error) {
	if g.Vault.Settled {
		return nil, ErrAlreadyClaimed
	}
	fee, prize := FeeSplit(g.Vault.Balance, cfg.FeeBps)

	var transfers []Transfer
	if prize > 0 {
		transfers = append(transfers, Transfer{
			UserID:  winner,
			Asset:   g.Vault.Asset,
			Amount:  prize,
			Reason:  ReasonPrize,
			GameRef: g.Ref,
		})
	}
	if fee > 0 {
		transfers = append(transfers, Transfer{
			UserID:  cfg.FeeRecipient,
			Asset:   g.Vault.Asset,
			Amount:  fee,
			Reason:  ReasonFee,
			GameRef: g.Ref,
		})
	}

	g.Vault.Balance = 0
	g.Vault.Settled = true
	g.SettledAt = timePtr(now)
	return transfers, nil
}
