package rewards

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"go.uber.org/zap"

	"launchpad-engine-go/internal/ledger"
	"launchpad-engine-go/internal/models"
)

// Distribution failure codes specific to this module; everything else reuses
// the shared taxonomy in models.
var (
	ErrRewardNotFound     = errors.New("RewardNotFound")
	ErrDistributionExists = errors.New("DistributionExists")
)

// Reward is an owner-defined payout template. Fixed rewards pay Amount to
// every recipient; variable rewards pay the per-distribution amount granted
// by the distributor.
type Reward struct {
	ID          int
	Name        string
	Description string
	Token       string
	Amount      *big.Int
	Variable    bool
}

// distribution is one user's pending or claimed payout for a reward.
type distribution struct {
	amount  *big.Int
	claimed bool
}

// Distributor is the flat bonus-payout module that accompanies the
// launchpad: the owner defines rewards, a designated distributor account
// grants at most one distribution per user per reward, and users claim each
// distribution exactly once. Funding sits on the Distributor's ledger
// account; the owner can sweep whatever was never granted.
type Distributor struct {
	mu sync.Mutex

	owner       string
	distributor string
	account     string

	ledger ledger.TokenLedger
	logger *zap.Logger
	sink   models.EventSink

	rewards       []*Reward
	distributions map[int]map[string]*distribution // reward ID -> user -> grant
}

// NewDistributor creates a distributor. account is its ledger identity,
// which callers fund directly.
func NewDistributor(owner, distributorAcct, account string, lg ledger.TokenLedger, logger *zap.Logger, sink models.EventSink) (*Distributor, error) {
	if owner == "" || distributorAcct == "" || account == "" {
		return nil, fmt.Errorf("%w: owner, distributor and account must be set", models.ErrInvalidParameters)
	}
	if lg == nil {
		return nil, fmt.Errorf("%w: ledger is required", models.ErrInvalidParameters)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Distributor{
		owner:         owner,
		distributor:   distributorAcct,
		account:       account,
		ledger:        lg,
		logger:        logger,
		sink:          sink,
		distributions: make(map[int]map[string]*distribution),
	}, nil
}

// AddReward registers a payout template and returns its ID. Owner only.
// For fixed rewards amount is the payout; for variable rewards it is an
// informational default and each grant carries its own amount.
func (d *Distributor) AddReward(caller, name, description, token string, amount *big.Int, variable bool) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if caller != d.owner {
		return 0, fmt.Errorf("%w: only the owner may add rewards", models.ErrUnauthorized)
	}
	if token == "" {
		return 0, fmt.Errorf("%w: reward token must be set", models.ErrInvalidParameters)
	}
	if amount == nil || amount.Sign() <= 0 {
		return 0, fmt.Errorf("%w: reward amount must be positive", models.ErrInvalidAmount)
	}

	id := len(d.rewards)
	d.rewards = append(d.rewards, &Reward{
		ID:          id,
		Name:        name,
		Description: description,
		Token:       token,
		Amount:      new(big.Int).Set(amount),
		Variable:    variable,
	})
	d.distributions[id] = make(map[string]*distribution)

	d.logger.Sugar().Infow("reward added", "reward_id", id, "name", name, "variable", variable)
	d.emit(models.SaleEvent{Type: models.EventRewardAdded, Token: token, Amount: amount.String()})
	return id, nil
}

// AddDistribution grants user a payout for the reward. Distributor only; a
// user can hold at most one distribution per reward. For variable rewards
// amount must be positive; for fixed rewards it is ignored and the reward
// amount applies.
func (d *Distributor) AddDistribution(caller string, rewardID int, user string, amount *big.Int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if caller != d.distributor {
		return fmt.Errorf("%w: only the distributor may grant distributions", models.ErrUnauthorized)
	}
	reward, err := d.reward(rewardID)
	if err != nil {
		return err
	}
	if _, ok := d.distributions[rewardID][user]; ok {
		return fmt.Errorf("%w: user %s already granted reward %d", ErrDistributionExists, user, rewardID)
	}

	payout := reward.Amount
	if reward.Variable {
		if amount == nil || amount.Sign() <= 0 {
			return fmt.Errorf("%w: variable distribution amount must be positive", models.ErrInvalidAmount)
		}
		payout = amount
	}

	d.distributions[rewardID][user] = &distribution{amount: new(big.Int).Set(payout)}

	d.logger.Sugar().Infow("distribution granted",
		"reward_id", rewardID, "user", user, "amount", payout.String())
	d.emit(models.SaleEvent{
		Type:    models.EventDistributionAdded,
		Account: user,
		Token:   reward.Token,
		Amount:  payout.String(),
	})
	return nil
}

// ClaimDistribution pays out the user's granted distribution for a reward,
// once.
func (d *Distributor) ClaimDistribution(user string, rewardID int) (*big.Int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	reward, err := d.reward(rewardID)
	if err != nil {
		return nil, err
	}
	grant, ok := d.distributions[rewardID][user]
	if !ok || grant.claimed {
		return nil, fmt.Errorf("%w: user %s has no unclaimed distribution for reward %d",
			models.ErrNothingToClaim, user, rewardID)
	}

	if err := d.ledger.Transfer(reward.Token, d.account, user, grant.amount); err != nil {
		return nil, fmt.Errorf("pay distribution: %w", err)
	}
	grant.claimed = true

	d.logger.Sugar().Infow("distribution claimed",
		"reward_id", rewardID, "user", user, "amount", grant.amount.String())
	d.emit(models.SaleEvent{
		Type:    models.EventDistributionClaimed,
		Account: user,
		Token:   reward.Token,
		Amount:  grant.amount.String(),
	})
	return new(big.Int).Set(grant.amount), nil
}

// Sweep returns the distributor account's full remaining balance of token to
// the owner. Owner only. Outstanding unclaimed grants are the owner's
// responsibility to re-fund.
func (d *Distributor) Sweep(caller, token string) (*big.Int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if caller != d.owner {
		return nil, fmt.Errorf("%w: only the owner may sweep funding", models.ErrUnauthorized)
	}

	balance, err := d.ledger.BalanceOf(token, d.account)
	if err != nil {
		return nil, fmt.Errorf("sweep: %w", err)
	}
	if balance.Sign() > 0 {
		if err := d.ledger.Transfer(token, d.account, d.owner, balance); err != nil {
			return nil, fmt.Errorf("sweep: %w", err)
		}
	}

	d.logger.Sugar().Infow("funding swept", "token", token, "amount", balance.String())
	return balance, nil
}

// Rewards returns a copy of the registered reward templates.
func (d *Distributor) Rewards() []Reward {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Reward, 0, len(d.rewards))
	for _, r := range d.rewards {
		cp := *r
		cp.Amount = new(big.Int).Set(r.Amount)
		out = append(out, cp)
	}
	return out
}

// Account returns the distributor's ledger identity.
func (d *Distributor) Account() string { return d.account }

func (d *Distributor) reward(id int) (*Reward, error) {
	if id < 0 || id >= len(d.rewards) {
		return nil, fmt.Errorf("%w: reward %d", ErrRewardNotFound, id)
	}
	return d.rewards[id], nil
}

func (d *Distributor) emit(event models.SaleEvent) {
	if d.sink != nil {
		d.sink.Emit(event)
	}
}
